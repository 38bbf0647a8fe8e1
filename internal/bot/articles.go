package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"werss_bot/internal/api"
	"werss_bot/internal/client"
	"werss_bot/internal/model"
)

func (b *Bot) handleArticles(ctx context.Context, chatID int64, page int, kw string) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ListArticles(ctx, api.ArticleQuery{
		Page:   pageOf(page, size),
		Search: kw,
		MpID:   sess.SelectedMpID,
	})
	if err != nil {
		b.fail(ctx, chatID, "list articles", err)
		return
	}

	p := ListPage{Page: page, Size: size, Total: res.Total}
	labels := make([]string, len(res.List))
	payloads := make([]string, len(res.List))
	for i, art := range res.List {
		labels[i] = art.Title
		payloads[i] = "article:" + art.ID.String()
	}
	rows := withPager(itemRows(labels, payloads), pagerRow(cmdArticles, p, kw))
	b.replyWithKeyboard(chatID, FormatArticleList(res.List, sess.SelectedMpID, p, sess.Compact), rows)
}

func (b *Bot) handleArticle(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /article <id>")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	art, err := a.GetArticle(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load article", err)
		return
	}
	b.showArticle(chatID, art)
}

func (b *Bot) handleAdjacent(ctx context.Context, chatID int64, id, direction string) {
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	art, err := a.AdjacentArticle(ctx, id, direction)
	if client.IsNotFound(err) || (err == nil && (art == nil || art.ID == "")) {
		b.reply(chatID, "No more articles in that direction.")
		return
	}
	if err != nil {
		b.fail(ctx, chatID, "load article", err)
		return
	}
	b.showArticle(chatID, art)
}

func (b *Bot) showArticle(chatID int64, art *model.Article) {
	id := art.ID.String()
	rows := [][]tgbotapi.InlineKeyboardButton{
		{button("« Prev", "nav:"+api.Prev+":"+id), button("Next »", "nav:"+api.Next+":"+id)},
		{button("Refetch", "refetch:"+id), button("Delete", "ask:"+kindArticle+":"+id)},
	}
	b.replyWithKeyboard(chatID, FormatArticle(art), rows)
}

func (b *Bot) handleRefetch(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /refetch <id>")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if err := a.RefetchArticle(ctx, id); err != nil {
		if client.IsQuiet(err) {
			b.reply(chatID, "Refetch is rate limited: "+client.Message(err))
			return
		}
		b.fail(ctx, chatID, "refetch article", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Refetch of article #%s requested.", id))
}

func (b *Bot) handleArticleTags(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /articletags <article_id>")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	tags, err := a.ArticleTags(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "list article tags", err)
		return
	}
	b.reply(chatID, FormatArticleTags(id, tags))
}

// handleTagArticle assigns or, with remove set, unassigns a tag.
func (b *Bot) handleTagArticle(ctx context.Context, chatID int64, args string, remove bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		if remove {
			b.reply(chatID, "Usage: /untagarticle <article_id> <tag_id>")
		} else {
			b.reply(chatID, "Usage: /tagarticle <article_id> <tag_id>")
		}
		return
	}
	id, tagID := fields[0], fields[1]
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	if remove {
		if err := a.RemoveArticleTag(ctx, id, tagID); err != nil {
			b.fail(ctx, chatID, "remove article tag", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("Tag #%s removed from article #%s.", tagID, id))
		return
	}
	if err := a.AddArticleTag(ctx, id, tagID); err != nil {
		b.fail(ctx, chatID, "add article tag", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Tag #%s added to article #%s.", tagID, id))
}
