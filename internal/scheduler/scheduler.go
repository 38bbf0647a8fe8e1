// Package scheduler refreshes live resource monitor messages.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"werss_bot/internal/bot"
	"werss_bot/internal/client"
	"werss_bot/internal/model"
	"werss_bot/internal/storage"
)

// Editor is the interface for editing sent Telegram messages.
type Editor interface {
	EditMessage(chatID int64, messageID int, text string) error
}

// ResourceAPI reads the backend host usage.
type ResourceAPI interface {
	SysResources(ctx context.Context) (*model.SysResources, error)
}

// APIFactory returns a ResourceAPI authenticated with token.
type APIFactory func(token string) ResourceAPI

// Scheduler polls system resources for every active watch and edits the
// watch message in place.
type Scheduler struct {
	store  storage.Storage
	newAPI APIFactory
	editor Editor
	log    *slog.Logger
	tick   time.Duration
	now    func() time.Time
}

// New creates a Scheduler polling every two seconds.
func New(store storage.Storage, newAPI APIFactory, editor Editor, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		newAPI: newAPI,
		editor: editor,
		log:    log,
		tick:   2 * time.Second,
		now:    time.Now,
	}
}

// SetTickInterval overrides the default poll interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	if d > 0 {
		s.tick = d
	}
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.refreshAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	watches, err := s.store.ListWatches(ctx)
	if err != nil {
		s.log.Error("list watches", "error", err)
		return
	}
	if len(watches) == 0 {
		return
	}

	now := s.now()
	var expired bool
	live := make(map[int64][]model.ResourceWatch)
	for _, w := range watches {
		if !now.Before(w.ExpiresAt) {
			expired = true
			s.edit(w, "Resource monitor stopped.")
			continue
		}
		live[w.ChatID] = append(live[w.ChatID], w)
	}
	if expired {
		n, err := s.store.DeleteExpiredWatches(ctx, now)
		if err != nil {
			s.log.Error("delete expired watches", "error", err)
		} else {
			s.log.Debug("resource watches expired", "count", n)
		}
	}

	for chatID, ws := range live {
		if ctx.Err() != nil {
			return
		}
		s.refreshChat(ctx, chatID, ws)
	}
}

func (s *Scheduler) refreshChat(ctx context.Context, chatID int64, watches []model.ResourceWatch) {
	sess, err := s.store.GetSession(ctx, chatID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Error("get session", "chat_id", chatID, "error", err)
		return
	}
	if !sess.LoggedIn(s.now()) {
		s.stop(ctx, chatID, watches, "Resource monitor stopped: please /login again.")
		return
	}

	res, err := s.newAPI(sess.Token).SysResources(ctx)
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		if err := s.store.ClearToken(ctx, chatID); err != nil {
			s.log.Error("clear token", "chat_id", chatID, "error", err)
		}
		s.stop(ctx, chatID, watches, "Resource monitor stopped: session expired, please /login again.")
		return
	case err != nil:
		s.log.Warn("read resources", "chat_id", chatID, "error", err)
		return
	}

	text := bot.FormatResources(res, s.now())
	for _, w := range watches {
		s.edit(w, text)
	}
}

func (s *Scheduler) stop(ctx context.Context, chatID int64, watches []model.ResourceWatch, text string) {
	for _, w := range watches {
		s.edit(w, text)
	}
	if err := s.store.DeleteChatWatches(ctx, chatID); err != nil {
		s.log.Error("delete chat watches", "chat_id", chatID, "error", err)
	}
}

func (s *Scheduler) edit(w model.ResourceWatch, text string) {
	if err := s.editor.EditMessage(w.ChatID, w.MessageID, text); err != nil {
		s.log.Error("edit watch message", "chat_id", w.ChatID, "message_id", w.MessageID, "error", err)
	}
}
