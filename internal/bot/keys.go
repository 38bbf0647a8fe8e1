package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"werss_bot/internal/api"
	"werss_bot/internal/model"
	"werss_bot/internal/storage"
)

func (b *Bot) handleKeys(ctx context.Context, chatID int64, page int) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ListApiKeys(ctx, api.Page{Page: page, PageSize: size})
	if err != nil {
		b.fail(ctx, chatID, "list API keys", err)
		return
	}
	p := ListPage{Page: page, Size: size, Total: res.Total}
	b.replyWithKeyboard(chatID, FormatApiKeyList(res.List, p), withPager(nil, pagerRow(cmdKeys, p, "")))
}

func (b *Bot) handleAddKey(ctx context.Context, chatID int64, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Positional) < 2 {
		b.reply(chatID, "Usage: /addkey <read|read_write> <name>")
		return
	}
	in := api.ApiKeyInput{
		Permissions: strings.ToLower(a.Arg(0)),
		Name:        a.Rest(1),
	}
	if err := b.validator.Struct(in); err != nil {
		b.fail(ctx, chatID, "create API key", err)
		return
	}

	backend, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	key, err := backend.CreateApiKey(ctx, in)
	if err != nil {
		b.fail(ctx, chatID, "create API key", err)
		return
	}
	b.cacheSecret(ctx, chatID, key)
	b.reply(chatID, FormatNewKey(key, "created"))
}

func (b *Bot) handleRegenKey(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /regenkey <id>")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	key, err := a.RegenerateApiKey(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "regenerate API key", err)
		return
	}
	if key.ID == "" {
		key.ID = model.ID(id)
	}
	b.cacheSecret(ctx, chatID, key)
	b.reply(chatID, FormatNewKey(key, "regenerated"))
}

func (b *Bot) cacheSecret(ctx context.Context, chatID int64, key *model.ApiKey) {
	if key.Key == "" || key.ID == "" {
		return
	}
	if err := b.store.SaveSecret(ctx, chatID, key.ID.String(), key.Key); err != nil {
		b.log.Error("save secret", "chat_id", chatID, "key_id", key.ID, "error", err)
	}
}

func (b *Bot) handleToggleKey(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /togglekey <id>")
		return
	}
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	key, err := a.GetApiKey(ctx, id)
	if err != nil {
		b.fail(ctx, chatID, "load API key", err)
		return
	}
	active := !key.IsActive
	if _, err := a.UpdateApiKey(ctx, id, api.ApiKeyUpdate{IsActive: &active}); err != nil {
		b.fail(ctx, chatID, "update API key", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("API key #%s %s.", id, enabledLabel(active)))
}

func (b *Bot) handleKeySecret(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /keysecret <id>")
		return
	}
	secret, err := b.store.GetSecret(ctx, chatID, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("No cached secret for API key #%s. Use /regenkey %s to issue a new one.", id, id))
		return
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Secret of API key #%s:\n%s", id, secret))
}

func (b *Bot) handleKeyLogs(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /keylogs <id> [page]")
		return
	}
	page := 1
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			b.reply(chatID, "page must be a positive number.")
			return
		}
		page = n
	}
	b.showKeyLogs(ctx, chatID, fields[0], page)
}

func (b *Bot) showKeyLogs(ctx context.Context, chatID int64, id string, page int) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	size := sess.EffectivePageSize()
	res, err := a.ApiKeyLogs(ctx, id, api.Page{Page: page, PageSize: size})
	if err != nil {
		b.fail(ctx, chatID, "load API key usage", err)
		return
	}
	p := ListPage{Page: page, Size: size, Total: res.Total}
	b.replyWithKeyboard(chatID, FormatApiKeyLogs(id, res.List, p), withPager(nil, pagerRow(cmdKeyLogs, p, id)))
}
