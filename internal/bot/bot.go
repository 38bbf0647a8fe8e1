// Package bot is the Telegram admin console for the WeRSS backend. Each
// command loads data through the api package and replies with a text view.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"werss_bot/internal/client"
	"werss_bot/internal/config"
	"werss_bot/internal/fetcher"
	"werss_bot/internal/storage"
	"werss_bot/internal/validate"
)

// maxMessageLen keeps replies under Telegram's 4096 character limit.
const maxMessageLen = 4000

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that serves the admin console.
type Bot struct {
	api       telegramAPI
	store     storage.Storage
	cfg       *config.Config
	backend   *client.Client
	fetcher   *fetcher.Fetcher
	validator *validate.Validator
	log       *slog.Logger
	now       func() time.Time
}

// New creates a Bot with the given Telegram token, storage, config and
// backend client. The client carries no token; each chat's session token is
// attached per request.
func New(token string, store storage.Storage, cfg *config.Config, backend *client.Client, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:       api,
		store:     store,
		cfg:       cfg,
		backend:   backend,
		fetcher:   fetcher.New(backend.HTTP()),
		validator: validate.New(),
		log:       log,
		now:       time.Now,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil {
			return
		}
		if cb.From != nil && !b.cfg.IsUserAllowed(cb.From.ID) {
			b.ack(cb.ID, "Access denied.")
			return
		}
		b.handleCallback(ctx, cb)
		return
	}

	msg := update.Message
	if msg == nil {
		return
	}
	isUpload := len(msg.Photo) > 0 || msg.Document != nil
	if !msg.IsCommand() && !(isUpload && strings.HasPrefix(msg.Caption, "/"+cmdUpload)) {
		return
	}
	if msg.From != nil && !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, "Access denied.")
		return
	}
	if !msg.IsCommand() {
		b.handleUpload(ctx, msg)
		return
	}
	b.handleCommand(ctx, msg)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	if _, err := b.send(chatID, text, nil); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// EditMessage replaces the text of a message the bot sent earlier.
func (b *Bot) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, clip(text, maxMessageLen))
	if _, err := b.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	var markup any
	if len(rows) > 0 {
		markup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.send(chatID, text, markup); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) send(chatID int64, text string, markup any) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, clip(text, maxMessageLen))
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return b.api.Send(msg)
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("send document", "chat_id", chatID, "name", name, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to send %s.", name))
	}
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	if cmd == cmdLogin {
		b.log.Debug("command", "cmd", cmd, "chat_id", chatID)
	} else {
		b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)
	}

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdLogin:
		b.handleLogin(ctx, chatID, msg.MessageID, args)
	case "logout":
		b.handleLogout(ctx, chatID)
	case "whoami":
		b.handleWhoami(ctx, chatID)
	case "settings":
		b.handleSettings(ctx, chatID, args)

	case cmdSubs:
		page, kw := ParseListArgs(args)
		b.handleSubs(ctx, chatID, page, kw)
	case "sub":
		b.handleSub(ctx, chatID, args)
	case "addsub":
		b.handleAddSub(ctx, chatID, args)
	case "editsub":
		b.handleEditSub(ctx, chatID, args)
	case "delsub":
		b.confirmDelete(ctx, chatID, kindSub, args)
	case "syncsub":
		b.handleSyncSub(ctx, chatID, args)
	case "searchmp":
		b.handleSearchMp(ctx, chatID, args)
	case "feed":
		b.handleFeed(ctx, chatID, args)
	case "exportsubs":
		b.handleExportSubs(ctx, chatID, args)

	case cmdArticles:
		page, kw := ParseListArgs(args)
		b.handleArticles(ctx, chatID, page, kw)
	case "article":
		b.handleArticle(ctx, chatID, args)
	case "delarticle":
		b.confirmDelete(ctx, chatID, kindArticle, args)
	case "refetch":
		b.handleRefetch(ctx, chatID, args)
	case "articletags":
		b.handleArticleTags(ctx, chatID, args)
	case "tagarticle":
		b.handleTagArticle(ctx, chatID, args, false)
	case "untagarticle":
		b.handleTagArticle(ctx, chatID, args, true)

	case cmdTags:
		page, kw := ParseListArgs(args)
		b.handleTags(ctx, chatID, page, kw)
	case "addtag":
		b.handleAddTag(ctx, chatID, args)
	case "edittag":
		b.handleEditTag(ctx, chatID, args)
	case "toggletag":
		b.handleToggleTag(ctx, chatID, args)
	case "deltag":
		b.confirmDelete(ctx, chatID, kindTag, args)

	case cmdTasks:
		page, _ := ParseListArgs(args)
		b.handleTasks(ctx, chatID, page)
	case "task":
		b.handleTask(ctx, chatID, args)
	case "addtask":
		b.handleAddTask(ctx, chatID, args)
	case "edittask":
		b.handleEditTask(ctx, chatID, args)
	case "toggletask":
		b.handleToggleTask(ctx, chatID, args)
	case "runtask":
		b.handleRunTask(ctx, chatID, args)
	case "applytasks":
		b.handleApplyTasks(ctx, chatID)
	case "deltask":
		b.confirmDelete(ctx, chatID, kindTask, args)

	case cmdKeys:
		page, _ := ParseListArgs(args)
		b.handleKeys(ctx, chatID, page)
	case "addkey":
		b.handleAddKey(ctx, chatID, args)
	case "keylogs":
		b.handleKeyLogs(ctx, chatID, args)
	case "regenkey":
		b.handleRegenKey(ctx, chatID, args)
	case "togglekey":
		b.handleToggleKey(ctx, chatID, args)
	case "delkey":
		b.confirmDelete(ctx, chatID, kindKey, args)
	case "keysecret":
		b.handleKeySecret(ctx, chatID, args)

	case cmdConfigs:
		page, _ := ParseListArgs(args)
		b.handleConfigs(ctx, chatID, page)
	case "setconfig":
		b.handleSetConfig(ctx, chatID, args)
	case "delconfig":
		b.confirmDelete(ctx, chatID, kindConfig, args)

	case "dashboard":
		b.handleDashboard(ctx, chatID)
	case "sysinfo":
		b.handleSysInfo(ctx, chatID)
	case "resources":
		b.handleResources(ctx, chatID, args)

	case "export":
		b.handleExport(ctx, chatID, args)
	case "exports":
		b.handleExports(ctx, chatID, args)
	case "download":
		b.handleDownload(ctx, chatID, args)
	case "delexport":
		b.handleDelExport(ctx, chatID, args)
	case cmdUpload:
		b.reply(chatID, "Send a photo with the caption /upload to upload an image.")
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fetcher.Truncate(s, n-3)
}
