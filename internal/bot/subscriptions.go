package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"werss_bot/internal/api"
	"werss_bot/internal/client"
	"werss_bot/internal/fetcher"
	"werss_bot/internal/filter"
	"werss_bot/internal/model"
)

const previewLimit = 10

func (b *Bot) handleSubs(ctx context.Context, chatID int64, page int, kw string) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ListSubscriptions(ctx, pageOf(page, size), kw)
	if err != nil {
		b.fail(ctx, chatID, "list subscriptions", err)
		return
	}

	p := ListPage{Page: page, Size: size, Total: res.Total}
	labels := make([]string, len(res.List))
	payloads := make([]string, len(res.List))
	for i, s := range res.List {
		labels[i] = s.Name
		payloads[i] = "sub:" + s.Key()
	}
	rows := withPager(itemRows(labels, payloads), pagerRow(cmdSubs, p, kw))
	b.replyWithKeyboard(chatID, FormatSubscriptionList(res.List, sess.SelectedMpID, p, sess.Compact), rows)
}

func (b *Bot) handleSub(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /sub <mp_id>, or /sub none to clear the selection")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if id == "none" {
		if err := b.store.SetSelectedMp(ctx, chatID, ""); err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, "Selection cleared. /articles now lists every subscription.")
		return
	}

	sub, err := a.GetSubscription(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load subscription", err)
		return
	}
	key := sub.Key()
	if key == "" {
		key = id
	}
	if err := b.store.SetSelectedMp(ctx, chatID, key); err != nil {
		b.log.Error("select subscription", "chat_id", chatID, "mp_id", key, "error", err)
	}

	rssURL := sub.RSSURL
	if rssURL == "" {
		rssURL, _ = b.backend.RootURL(fetcher.FeedPath(key))
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		{button("Articles", cmdArticles+":1"), button("Feed preview", "feed:"+key)},
		{button("Sync", "sync:"+key), button("Delete", "ask:"+kindSub+":"+key)},
	}
	b.replyWithKeyboard(chatID, FormatSubscription(sub, rssURL)+"\nSelected for /articles.", rows)
}

func (b *Bot) handleAddSub(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Options) == 0 {
		b.reply(chatID, "Usage: /addsub name=.. mp_id=.. avatar=.. [intro=..]")
		return
	}
	in := api.SubscriptionInput{
		Name:   a.Get("name"),
		MpID:   a.Get("mp_id"),
		Avatar: a.Get("avatar"),
		Cover:  a.Get("cover"),
		Intro:  a.Get("intro"),
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "add subscription", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if _, err := backend.CreateSubscription(ctx, in); err != nil {
		b.fail(ctx, chatID, "add subscription", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscription added: %s (%s)\nUse /syncsub %s to fetch its articles.", in.Name, in.MpID, in.MpID))
}

func (b *Bot) handleEditSub(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Positional) == 0 || len(a.Options) == 0 {
		b.reply(chatID, "Usage: /editsub <mp_id> [name=..] [avatar=..] [intro=..] [status=on|off]")
		return
	}
	id := a.Arg(0)

	var up api.SubscriptionUpdate
	if a.Has("name") {
		v := a.Get("name")
		up.Name = &v
	}
	if a.Has("avatar") {
		v := a.Get("avatar")
		up.Avatar = &v
		up.Cover = &v
	}
	if a.Has("cover") {
		v := a.Get("cover")
		up.Cover = &v
	}
	if a.Has("intro") {
		v := a.Get("intro")
		up.Intro = &v
	}
	if a.Has("status") {
		on, err := ParseSwitch(a.Get("status"))
		if err != nil {
			b.reply(chatID, fmt.Sprintf("status: %v", err))
			return
		}
		st := model.SubscriptionDisabled
		if on {
			st = model.SubscriptionEnabled
		}
		up.Status = &st
	}
	if err := b.validator.Struct(up); err != nil {
		b.fail(ctx, chatID, "update subscription", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if err := backend.UpdateSubscription(ctx, id, up); err != nil {
		b.fail(ctx, chatID, "update subscription", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscription %s updated.", id))
}

func (b *Bot) handleSyncSub(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /syncsub <mp_id|all> [start_page] [end_page]")
		return
	}
	start, end := 0, 1
	var err error
	if len(fields) > 1 {
		if start, err = strconv.Atoi(fields[1]); err != nil || start < 0 {
			b.reply(chatID, "start_page must be a number from 0.")
			return
		}
		end = start + 1
	}
	if len(fields) > 2 {
		if end, err = strconv.Atoi(fields[2]); err != nil || end <= start {
			b.reply(chatID, "end_page must be a number after start_page.")
			return
		}
	}

	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	mpID := fields[0]
	if _, err := a.SyncSubscription(ctx, mpID, start, end); err != nil {
		if client.IsQuiet(err) {
			b.reply(chatID, "Sync is rate limited: "+client.Message(err))
			return
		}
		b.fail(ctx, chatID, "sync subscription", err)
		return
	}
	target := mpID
	if mpID == api.AllSubscriptions {
		target = "all subscriptions"
	}
	b.reply(chatID, fmt.Sprintf("Sync started for %s. New articles appear in /articles shortly.", target))
}

func (b *Bot) handleSearchMp(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /searchmp <keyword> or /searchmp <article url>")
		return
	}
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}

	if strings.HasPrefix(args, "http") {
		item, err := a.AccountByArticle(ctx, args)
		if err != nil {
			b.fail(ctx, chatID, "resolve account", err)
			return
		}
		b.reply(chatID, FormatMpItems([]model.MpItem{*item}))
		return
	}

	res, err := a.SearchAccounts(ctx, args, api.Page{PageSize: sess.EffectivePageSize()})
	if err != nil {
		b.fail(ctx, chatID, "search accounts", err)
		return
	}
	b.reply(chatID, FormatMpItems(res.List))
}

func (b *Bot) handleFeed(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /feed <mp_id> [keyword]")
		return
	}
	_, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	kw := strings.Join(fields[1:], " ")

	feedURL, err := b.backend.RootURL(fetcher.FeedPath(fields[0]))
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	res, err := b.fetcher.Preview(ctx, feedURL, sess.Token, filter.SearchTerms(kw), previewLimit)
	if err != nil {
		b.log.Warn("preview feed", "chat_id", chatID, "url", feedURL, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to load feed: %v", err))
		return
	}
	b.reply(chatID, FormatPreview(res, kw)+"\n"+feedURL)
}

func (b *Bot) handleExportSubs(ctx context.Context, chatID int64, args string) {
	format := strings.ToLower(strings.TrimSpace(args))
	if format == "" {
		format = api.SubsCSV
	}
	if format != api.SubsCSV && format != api.SubsOPML {
		b.reply(chatID, "Usage: /exportsubs [csv|opml]")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	file, err := a.ExportSubscriptions(ctx, format)
	if err != nil {
		b.fail(ctx, chatID, "export subscriptions", err)
		return
	}
	b.sendDocument(chatID, file.Name, file.Data, "Subscriptions ("+format+")")
}
