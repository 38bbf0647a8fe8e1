package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"werss_bot/internal/api"
	"werss_bot/internal/storage"
)

const (
	cmdLogin    = "login"
	cmdUpload   = "upload"
	cmdSubs     = "subs"
	cmdArticles = "articles"
	cmdTags     = "tags"
	cmdTasks    = "tasks"
	cmdKeys     = "keys"
	cmdKeyLogs  = "keylogs"
	cmdConfigs  = "configs"
)

// Kinds of deletable records.
const (
	kindSub     = "sub"
	kindArticle = "article"
	kindTag     = "tag"
	kindTask    = "task"
	kindKey     = "key"
	kindConfig  = "config"
	kindExport  = "export"
)

// maxCallbackData is Telegram's limit on inline button payloads.
const maxCallbackData = 64

var kindLabels = map[string]string{
	kindSub:     "subscription",
	kindArticle: "article",
	kindTag:     "tag",
	kindTask:    "message task",
	kindKey:     "API key",
	kindConfig:  "setting",
	kindExport:  "export archive",
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

// pagerRow returns Prev/Next buttons for a list, or nil for a single page.
// extra is appended to the payload when it fits.
func pagerRow(list string, p ListPage, extra string) []tgbotapi.InlineKeyboardButton {
	data := func(page int) string {
		d := list + ":" + strconv.Itoa(page)
		if extra != "" && len(d)+1+len(extra) <= maxCallbackData {
			d += ":" + extra
		}
		return d
	}
	var row []tgbotapi.InlineKeyboardButton
	if p.Page > 1 {
		row = append(row, button("« Prev", data(p.Page-1)))
	}
	if p.Page < p.Pages() {
		row = append(row, button("Next »", data(p.Page+1)))
	}
	return row
}

// itemRows lays out one button per item, two per row.
func itemRows(labels, payloads []string) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := range labels {
		if len(payloads[i]) > maxCallbackData {
			continue
		}
		row = append(row, button(clip(labels[i], 30), payloads[i]))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func withPager(rows [][]tgbotapi.InlineKeyboardButton, pager []tgbotapi.InlineKeyboardButton) [][]tgbotapi.InlineKeyboardButton {
	if len(pager) > 0 {
		rows = append(rows, pager)
	}
	return rows
}

// confirmDelete asks the user to confirm deleting the record named in args.
func (b *Bot) confirmDelete(ctx context.Context, chatID int64, kind, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /del%s <id>", kind))
		return
	}
	if _, _, ok := b.authed(ctx, chatID); !ok {
		return
	}
	b.askDelete(chatID, kind, id)
}

func (b *Bot) askDelete(chatID int64, kind, id string) {
	data := "del:" + kind + ":" + id
	if len(data) > maxCallbackData {
		b.reply(chatID, fmt.Sprintf("The %s ID is too long for a confirmation button.", kindLabels[kind]))
		return
	}
	b.replyWithKeyboard(chatID,
		fmt.Sprintf("Delete %s %q? This cannot be undone.", kindLabels[kind], id),
		[][]tgbotapi.InlineKeyboardButton{{
			button("Yes, delete", data),
			button("Cancel", "noop:0"),
		}},
	)
}

// deleteConfirmed removes a record after the user confirmed it.
func (b *Bot) deleteConfirmed(ctx context.Context, chatID int64, kind, id string) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}

	var err error
	switch kind {
	case kindSub:
		err = a.DeleteSubscription(ctx, id)
	case kindArticle:
		err = a.DeleteArticle(ctx, id)
	case kindTag:
		err = a.DeleteTag(ctx, id)
	case kindTask:
		err = a.DeleteTask(ctx, id)
	case kindKey:
		err = a.DeleteApiKey(ctx, id)
	case kindConfig:
		err = a.DeleteConfig(ctx, id)
	case kindExport:
		filename, mpID := splitExportID(id)
		err = a.DeleteExport(ctx, filename, mpID)
	default:
		return
	}
	if err != nil {
		b.fail(ctx, chatID, "delete "+kindLabels[kind], err)
		return
	}

	b.log.Info("deleted", "kind", kind, "id", id, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("%s %q deleted.", capitalize(kindLabels[kind]), id))

	switch kind {
	case kindSub:
		if sess.SelectedMpID != id {
			return
		}
		if err := b.store.SetSelectedMp(ctx, chatID, ""); err != nil {
			b.log.Error("clear selected subscription", "chat_id", chatID, "error", err)
		}
		b.handleSubs(ctx, chatID, 1, "")
	case kindKey:
		if err := b.store.DeleteSecret(ctx, chatID, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			b.log.Error("delete secret", "chat_id", chatID, "key_id", id, "error", err)
		}
	}
}

func exportID(filename, mpID string) string {
	if mpID == "" {
		return filename
	}
	return mpID + "/" + filename
}

func splitExportID(id string) (filename, mpID string) {
	if mp, name, ok := strings.Cut(id, "/"); ok {
		return name, mp
	}
	return id, ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	b.ack(cb.ID, "")

	action, rest, ok := strings.Cut(cb.Data, ":")
	if !ok || rest == "" {
		return
	}

	userID, username := int64(0), ""
	if cb.From != nil {
		userID, username = cb.From.ID, cb.From.UserName
	}
	b.log.Info("callback",
		"action", action,
		"data", rest,
		"chat_id", chatID,
		"user_id", userID,
		"username", username,
	)

	switch action {
	case "noop":
	case cmdSubs, cmdArticles, cmdTags, cmdTasks, cmdKeys, cmdConfigs, cmdKeyLogs:
		b.handlePageCallback(ctx, chatID, action, rest)
	case "sub":
		b.handleSub(ctx, chatID, rest)
	case "sync":
		b.handleSyncSub(ctx, chatID, rest)
	case "feed":
		b.handleFeed(ctx, chatID, rest)
	case "article":
		b.handleArticle(ctx, chatID, rest)
	case "nav":
		dir, id, ok := strings.Cut(rest, ":")
		if !ok {
			return
		}
		b.handleAdjacent(ctx, chatID, id, dir)
	case "refetch":
		b.handleRefetch(ctx, chatID, rest)
	case "task":
		b.handleTask(ctx, chatID, rest)
	case "run":
		b.handleRunTask(ctx, chatID, rest)
	case "test":
		b.handleRunTask(ctx, chatID, rest+" test")
	case "ask":
		kind, id, ok := strings.Cut(rest, ":")
		if !ok || kindLabels[kind] == "" {
			return
		}
		b.askDelete(chatID, kind, id)
	case "del":
		kind, id, ok := strings.Cut(rest, ":")
		if !ok || kindLabels[kind] == "" || id == "" {
			return
		}
		b.deleteConfirmed(ctx, chatID, kind, id)
	}
}

func (b *Bot) handlePageCallback(ctx context.Context, chatID int64, list, rest string) {
	pageStr, extra, _ := strings.Cut(rest, ":")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return
	}
	switch list {
	case cmdSubs:
		b.handleSubs(ctx, chatID, page, extra)
	case cmdArticles:
		b.handleArticles(ctx, chatID, page, extra)
	case cmdTags:
		b.handleTags(ctx, chatID, page, extra)
	case cmdTasks:
		b.handleTasks(ctx, chatID, page)
	case cmdKeys:
		b.handleKeys(ctx, chatID, page)
	case cmdConfigs:
		b.handleConfigs(ctx, chatID, page)
	case cmdKeyLogs:
		if extra != "" {
			b.showKeyLogs(ctx, chatID, extra, page)
		}
	}
}

// pageOf converts a 1-based console page to the 0-based page index the
// offset endpoints use.
func pageOf(page, size int) api.Page {
	return api.Page{Page: page - 1, PageSize: size}
}
