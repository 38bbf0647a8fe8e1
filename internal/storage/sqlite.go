package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"werss_bot/internal/model"
	"werss_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetSession returns the session of a chat, or ErrNotFound.
func (s *SQLite) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, token, token_expires_at, selected_mp_id, page_size, compact, updated_at
		 FROM sessions WHERE chat_id = ?`, chatID,
	)
	var sess model.Session
	var compact int
	var expires sql.NullString
	var updated string
	err := row.Scan(&sess.ChatID, &sess.Token, &expires, &sess.SelectedMpID, &sess.PageSize, &compact, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Compact = compact == 1
	sess.TokenExpiresAt = parseNullTime(expires)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &sess, nil
}

// SaveSession inserts or replaces the session of s.ChatID.
func (s *SQLite) SaveSession(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, token, token_expires_at, selected_mp_id, page_size, compact, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   token = excluded.token,
		   token_expires_at = excluded.token_expires_at,
		   selected_mp_id = excluded.selected_mp_id,
		   page_size = excluded.page_size,
		   compact = excluded.compact,
		   updated_at = excluded.updated_at`,
		sess.ChatID, sess.Token, formatNullTime(sess.TokenExpiresAt), sess.SelectedMpID,
		sess.EffectivePageSize(), boolToInt(sess.Compact), now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	sess.UpdatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ClearToken forgets the backend token of a chat and keeps its preferences.
func (s *SQLite) ClearToken(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET token = '', token_expires_at = NULL, updated_at = ? WHERE chat_id = ?`,
		time.Now().UTC().Format(timeLayout), chatID,
	)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// SetSelectedMp stores the subscription a chat is browsing. An empty id
// clears the selection.
func (s *SQLite) SetSelectedMp(ctx context.Context, chatID int64, mpID string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, selected_mp_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET selected_mp_id = excluded.selected_mp_id, updated_at = excluded.updated_at`,
		chatID, mpID, now,
	)
	if err != nil {
		return fmt.Errorf("set selected subscription: %w", err)
	}
	return nil
}

// SaveSecret caches a newly issued API key secret, replacing any older one.
func (s *SQLite) SaveSecret(ctx context.Context, chatID int64, keyID, secret string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_key_secrets (chat_id, key_id, secret, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id, key_id) DO UPDATE SET secret = excluded.secret, created_at = excluded.created_at`,
		chatID, keyID, secret, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save secret: %w", err)
	}
	return nil
}

// GetSecret returns a cached API key secret, or ErrNotFound.
func (s *SQLite) GetSecret(ctx context.Context, chatID int64, keyID string) (string, error) {
	var secret string
	err := s.db.QueryRowContext(ctx,
		`SELECT secret FROM api_key_secrets WHERE chat_id = ? AND key_id = ?`, chatID, keyID,
	).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	return secret, nil
}

// DeleteSecret drops a cached API key secret.
func (s *SQLite) DeleteSecret(ctx context.Context, chatID int64, keyID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM api_key_secrets WHERE chat_id = ? AND key_id = ?`, chatID, keyID,
	)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// CreateWatch inserts a resource watch and populates its ID and CreatedAt.
func (s *SQLite) CreateWatch(ctx context.Context, w *model.ResourceWatch) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO resource_watches (chat_id, message_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		w.ChatID, w.MessageID, w.ExpiresAt.UTC().Format(timeLayout), now,
	)
	if err != nil {
		return fmt.Errorf("insert watch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	w.ID = id
	w.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListWatches returns every stored watch, oldest first.
func (s *SQLite) ListWatches(ctx context.Context) ([]model.ResourceWatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, message_id, expires_at, created_at FROM resource_watches ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var watches []model.ResourceWatch
	for rows.Next() {
		var w model.ResourceWatch
		var expires, created string
		if err := rows.Scan(&w.ID, &w.ChatID, &w.MessageID, &expires, &created); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		w.ExpiresAt, _ = time.Parse(timeLayout, expires)
		w.CreatedAt, _ = time.Parse(timeLayout, created)
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// DeleteWatch removes a watch by its ID.
func (s *SQLite) DeleteWatch(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resource_watches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	return nil
}

// DeleteChatWatches removes every watch of a chat.
func (s *SQLite) DeleteChatWatches(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resource_watches WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat watches: %w", err)
	}
	return nil
}

// DeleteExpiredWatches removes watches that expired at or before now and
// returns how many were removed.
func (s *SQLite) DeleteExpiredWatches(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM resource_watches WHERE expires_at <= ?`, now.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired watches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
