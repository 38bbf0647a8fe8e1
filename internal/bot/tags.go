package bot

import (
	"context"
	"fmt"
	"strconv"

	"werss_bot/internal/api"
	"werss_bot/internal/model"
)

func (b *Bot) handleTags(ctx context.Context, chatID int64, page int, kw string) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ListTags(ctx, pageOf(page, size), kw)
	if err != nil {
		b.fail(ctx, chatID, "list tags", err)
		return
	}
	p := ListPage{Page: page, Size: size, Total: res.Total}
	b.replyWithKeyboard(chatID, FormatTagList(res.List, p, sess.Compact), withPager(nil, pagerRow(cmdTags, p, kw)))
}

func (b *Bot) handleAddTag(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || !a.Has("name") {
		b.reply(chatID, "Usage: /addtag name=.. [cover=..] [intro=..] [status=0|1|2] [mps=a,b]")
		return
	}
	in := api.TagInput{Status: model.TagEnabled}
	if msg := applyTagOptions(&in, a); msg != "" {
		b.reply(chatID, msg)
		return
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "add tag", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	tag, err := backend.CreateTag(ctx, in)
	if err != nil {
		b.fail(ctx, chatID, "add tag", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Tag added: #%s %s", tag.ID, in.Name))
}

func (b *Bot) handleEditTag(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Positional) == 0 || len(a.Options) == 0 {
		b.reply(chatID, "Usage: /edittag <id> [name=..] [cover=..] [intro=..] [status=0|1|2] [mps=a,b]")
		return
	}
	id := a.Arg(0)

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	tag, err := backend.GetTag(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load tag", err)
		return
	}
	in := tagInput(tag)
	if msg := applyTagOptions(&in, a); msg != "" {
		b.reply(chatID, msg)
		return
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "update tag", err)
		return
	}
	if err := backend.UpdateTag(ctx, id, in); err != nil {
		b.fail(ctx, chatID, "update tag", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Tag #%s updated.", id))
}

// handleToggleTag switches a tag between enabled and disabled. A blocked tag
// becomes enabled.
func (b *Bot) handleToggleTag(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /toggletag <id>")
		return
	}
	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	tag, err := backend.GetTag(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load tag", err)
		return
	}
	in := tagInput(tag)
	in.Status = model.TagEnabled
	if tag.Status == model.TagEnabled {
		in.Status = model.TagDisabled
	}
	if err := backend.UpdateTag(ctx, id, in); err != nil {
		b.fail(ctx, chatID, "update tag", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Tag #%s %s.", id, enabledLabel(in.Status == model.TagEnabled)))
}

func tagInput(t *model.Tag) api.TagInput {
	return api.TagInput{
		Name:   t.Name,
		Cover:  t.Cover,
		Intro:  t.Intro,
		Status: t.Status,
		MpsID:  t.MpsID,
	}
}

// applyTagOptions copies the given options onto in. It returns a message for
// the user when an option cannot be parsed.
func applyTagOptions(in *api.TagInput, a Args) string {
	if a.Has("name") {
		in.Name = a.Get("name")
	}
	if a.Has("cover") {
		in.Cover = a.Get("cover")
	}
	if a.Has("intro") {
		in.Intro = a.Get("intro")
	}
	if a.Has("status") {
		st, err := strconv.Atoi(a.Get("status"))
		if err != nil {
			return "status must be 0 (disabled), 1 (enabled) or 2 (blocked)."
		}
		in.Status = st
	}
	if a.Has("mps") {
		mps, err := encodeMps(SplitList(a.Get("mps")))
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		in.MpsID = mps
	}
	return ""
}

func encodeMps(ids []string) (string, error) {
	refs := make([]model.MpRef, len(ids))
	for i, id := range ids {
		refs[i] = model.MpRef{ID: id}
	}
	return model.EncodeMpRefs(refs)
}
