package bot

import (
	"context"
	"fmt"
	"time"

	"werss_bot/internal/dashboard"
	"werss_bot/internal/model"
)

const defaultWatchTTL = 2 * time.Minute

func (b *Bot) handleDashboard(ctx context.Context, chatID int64) {
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	res, err := dashboard.NewLoader(a, b.log).Load(ctx)
	if err != nil {
		b.fail(ctx, chatID, "load dashboard", err)
		return
	}
	b.reply(chatID, FormatDashboard(res))
}

func (b *Bot) handleSysInfo(ctx context.Context, chatID int64) {
	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	info, err := a.SysInfo(ctx)
	if err != nil {
		b.fail(ctx, chatID, "load system information", err)
		return
	}
	b.reply(chatID, FormatSysInfo(info))
}

// handleResources sends a resource snapshot and registers it as a watch
// that the resource monitor refreshes until it expires. A chat has at most
// one live watch.
func (b *Bot) handleResources(ctx context.Context, chatID int64, args string) {
	if args == "stop" {
		if err := b.store.DeleteChatWatches(ctx, chatID); err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, "Resource monitor stopped.")
		return
	}

	a, _, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	res, err := a.SysResources(ctx)
	if err != nil {
		b.fail(ctx, chatID, "load system resources", err)
		return
	}
	now := b.now()
	sent, err := b.send(chatID, FormatResources(res, now), nil)
	if err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
		return
	}

	ttl := b.cfg.ResourceWatchTTL
	if ttl <= 0 {
		ttl = defaultWatchTTL
	}
	if err := b.store.DeleteChatWatches(ctx, chatID); err != nil {
		b.log.Error("delete chat watches", "chat_id", chatID, "error", err)
	}
	w := &model.ResourceWatch{ChatID: chatID, MessageID: sent.MessageID, ExpiresAt: now.Add(ttl)}
	if err := b.store.CreateWatch(ctx, w); err != nil {
		b.log.Error("create watch", "chat_id", chatID, "error", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Live for %s. Use /resources stop to end it early.", ttl))
}
