package bot

import (
	"context"
	"fmt"

	"werss_bot/internal/api"
	"werss_bot/internal/client"
)

func (b *Bot) handleConfigs(ctx context.Context, chatID int64, page int) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ListConfigs(ctx, pageOf(page, size))
	if err != nil {
		b.fail(ctx, chatID, "list settings", err)
		return
	}
	p := ListPage{Page: page, Size: size, Total: res.Total}
	b.replyWithKeyboard(chatID, FormatConfigList(res.List, p), withPager(nil, pagerRow(cmdConfigs, p, "")))
}

// handleSetConfig creates a setting, or updates the value and description
// of an existing one. Keys cannot be renamed.
func (b *Bot) handleSetConfig(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Options) == 0 {
		b.reply(chatID, "Usage: /setconfig key=.. value=.. [description=..]")
		return
	}
	in := api.ConfigInput{
		Key:         a.Get("key"),
		Value:       a.Get("value"),
		Description: a.Get("description"),
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "save setting", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	existing, err := backend.GetConfig(ctx, in.Key)
	switch {
	case client.IsNotFound(err), err == nil && existing.Key == "":
		if err := backend.CreateConfig(ctx, in); err != nil {
			b.fail(ctx, chatID, "create setting", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("Setting %s created.", in.Key))
	case err != nil:
		b.fail(ctx, chatID, "load setting", err)
	default:
		if !a.Has("description") {
			in.Description = existing.Description
		}
		if err := backend.UpdateConfig(ctx, in); err != nil {
			b.fail(ctx, chatID, "update setting", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("Setting %s updated.", in.Key))
	}
}
