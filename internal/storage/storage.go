// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"werss_bot/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	GetSession(ctx context.Context, chatID int64) (*model.Session, error)
	SaveSession(ctx context.Context, s *model.Session) error
	ClearToken(ctx context.Context, chatID int64) error
	SetSelectedMp(ctx context.Context, chatID int64, mpID string) error

	SaveSecret(ctx context.Context, chatID int64, keyID, secret string) error
	GetSecret(ctx context.Context, chatID int64, keyID string) (string, error)
	DeleteSecret(ctx context.Context, chatID int64, keyID string) error

	CreateWatch(ctx context.Context, w *model.ResourceWatch) error
	ListWatches(ctx context.Context) ([]model.ResourceWatch, error)
	DeleteWatch(ctx context.Context, id int64) error
	DeleteChatWatches(ctx context.Context, chatID int64) error
	DeleteExpiredWatches(ctx context.Context, now time.Time) (int64, error)

	Close() error
}
