package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang-jwt/jwt/v5"

	"werss_bot/internal/api"
	"werss_bot/internal/client"
	"werss_bot/internal/model"
	"werss_bot/internal/storage"
	"werss_bot/internal/validate"
)

const maxPageSize = 100

func (b *Bot) loadSession(ctx context.Context, chatID int64) (*model.Session, error) {
	sess, err := b.store.GetSession(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return &model.Session{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (b *Bot) apiFor(token string) *api.API {
	return api.New(b.backend.WithToken(client.StaticToken(token)))
}

// authed returns the backend API for the chat's session. It replies with a
// login prompt and returns false when the chat has no valid token.
func (b *Bot) authed(ctx context.Context, chatID int64) (*api.API, *model.Session, bool) {
	sess, err := b.loadSession(ctx, chatID)
	if err != nil {
		b.log.Error("load session", "chat_id", chatID, "error", err)
		b.reply(chatID, "Error: could not load your session.")
		return nil, nil, false
	}
	if !sess.LoggedIn(b.now()) {
		b.reply(chatID, "Please /login first.")
		return nil, nil, false
	}
	return b.apiFor(sess.Token), sess, true
}

// fail reports err to the chat. An expired session also drops the stored token.
func (b *Bot) fail(ctx context.Context, chatID int64, action string, err error) {
	var verrs validate.Errors
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		if cerr := b.store.ClearToken(ctx, chatID); cerr != nil {
			b.log.Error("clear token", "chat_id", chatID, "error", cerr)
		}
		b.reply(chatID, client.Message(err))
	case errors.As(err, &verrs):
		b.reply(chatID, verrs.Error())
	default:
		b.log.Warn(action, "chat_id", chatID, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to %s: %s", action, client.Message(err)))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the WeRSS admin console!

Manage WeChat public account subscriptions, articles, tags,
message tasks, API keys and backend settings from Telegram.

Quick start:
1. /login <username> <password> - sign in to the backend
2. /subs - list subscriptions
3. /dashboard - article statistics

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Session:
/login <user> <password> - sign in
/logout - forget the token
/whoami - current account and token expiry
/settings [page_size=N] [compact=on|off] - list preferences

Subscriptions:
/subs [page] [keyword] - list subscriptions
/sub <mp_id> - details, selects it for /articles
/addsub name=.. mp_id=.. avatar=.. [intro=..] - add
/editsub <mp_id> [name=..] [avatar=..] [intro=..] [status=on|off] - edit
/delsub <mp_id> - delete
/syncsub <mp_id|all> [start] [end] - fetch new articles
/searchmp <keyword|article url> - find public accounts
/feed <mp_id> [keyword] - preview the RSS feed
/exportsubs [csv|opml] - download the subscription list

Articles:
/articles [page] [keyword] - list (selected subscription only)
/article <id> - read an article
/delarticle <id> - delete
/refetch <id> - fetch the content again
/articletags <id> - tags of an article
/tagarticle <id> <tag_id> - assign a tag
/untagarticle <id> <tag_id> - remove a tag

Tags:
/tags [page] [keyword] - list
/addtag name=.. [cover=..] [intro=..] [status=0|1|2] [mps=a,b] - add
/edittag <id> field=.. - change fields of a tag
/toggletag <id> - enable or disable
/deltag <id> - delete

Message tasks:
/tasks [page] - list
/task <id> - details and next runs
/addtask name=.. cron=".." [type=message|webhook] [template=..] [webhook=..] [mps=a,b] - add
/edittask <id> field=.. - change fields of a task
/toggletask <id> - enable or disable
/runtask <id> [test] - run now
/applytasks - reload the backend schedule
/deltask <id> - delete

API keys:
/keys [page] - list
/addkey <read|read_write> <name> - create
/keylogs <id> [page] - usage log
/regenkey <id> - issue a new secret
/togglekey <id> - enable or disable
/keysecret <id> - show the cached secret
/delkey <id> - delete

Settings:
/configs [page] - list
/setconfig key=.. value=.. [description=..] - create or update
/delconfig <key> - delete

System:
/dashboard - statistics
/sysinfo - backend information
/resources [stop] - live resource monitor

Export:
/export <mp_id|all> formats=md,csv [scope=all|selected] [ids=a,b] - export articles
/exports [mp_id] - list archives
/download <filename> [mp_id] - download an archive
/delexport <filename> [mp_id] - delete an archive
Photo with caption /upload - upload an image and get its URL`)
}

func (b *Bot) handleLogin(ctx context.Context, chatID int64, messageID int, args string) {
	a, err := ParseArgs(args)
	if err != nil || len(a.Positional) < 2 {
		b.reply(chatID, "Usage: /login <username> <password>")
		return
	}
	// The command carries a password.
	b.deleteMessage(chatID, messageID)

	username := a.Arg(0)
	tok, err := api.New(b.backend).Login(ctx, username, a.Rest(1))
	if errors.Is(err, client.ErrUnauthorized) {
		b.reply(chatID, "Login failed: wrong username or password.")
		return
	}
	if err != nil {
		b.fail(ctx, chatID, "log in", err)
		return
	}

	sess, err := b.loadSession(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	sess.Token = tok.AccessToken
	sess.TokenExpiresAt = tokenExpiry(tok, b.now())
	if err := b.store.SaveSession(ctx, sess); err != nil {
		b.log.Error("save session", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to save session.")
		return
	}

	b.log.Info("login", "chat_id", chatID, "username", username)
	text := fmt.Sprintf("Logged in as %s.", username)
	if sess.TokenExpiresAt != nil {
		text += "\nToken valid until " + sess.TokenExpiresAt.Format(timeLayout) + "."
	}
	b.reply(chatID, text)
}

func (b *Bot) handleLogout(ctx context.Context, chatID int64) {
	if err := b.store.ClearToken(ctx, chatID); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if err := b.store.DeleteChatWatches(ctx, chatID); err != nil {
		b.log.Error("delete chat watches", "chat_id", chatID, "error", err)
	}
	b.reply(chatID, "Logged out.")
}

func (b *Bot) handleWhoami(ctx context.Context, chatID int64) {
	a, sess, ok := b.authed(ctx, chatID)
	if !ok {
		return
	}
	user, err := a.Profile(ctx)
	if err != nil {
		b.fail(ctx, chatID, "load profile", err)
		return
	}
	b.reply(chatID, FormatWhoami(user, sess, tokenInfo(sess.Token)))
}

// TokenInfo is what the console can read from a bearer token without
// verifying it.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

func tokenInfo(token string) TokenInfo {
	var info TokenInfo
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return info
	}
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info
}

// tokenExpiry prefers the lifetime the backend reported and falls back to
// the token's exp claim.
func tokenExpiry(tok *model.Token, now time.Time) *time.Time {
	if tok.ExpiresIn > 0 {
		t := now.Add(time.Duration(tok.ExpiresIn) * time.Second)
		return &t
	}
	return tokenInfo(tok.AccessToken).ExpiresAt
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64, args string) {
	sess, err := b.loadSession(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	a, err := ParseArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(a.Options) == 0 {
		b.reply(chatID, FormatSettings(sess))
		return
	}

	if a.Has("page_size") {
		n, err := strconv.Atoi(a.Get("page_size"))
		if err != nil || n < 1 || n > maxPageSize {
			b.reply(chatID, fmt.Sprintf("page_size must be between 1 and %d.", maxPageSize))
			return
		}
		sess.PageSize = n
	}
	if a.Has("compact") {
		on, err := ParseSwitch(a.Get("compact"))
		if err != nil {
			b.reply(chatID, fmt.Sprintf("compact: %v", err))
			return
		}
		sess.Compact = on
	}
	if err := b.store.SaveSession(ctx, sess); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, "Settings saved.\n\n"+FormatSettings(sess))
}
