package model

import "time"

// DefaultPageSize is the list page size used when a session has none set.
const DefaultPageSize = 10

// Session is the per-chat local state: the backend token plus UI preferences.
type Session struct {
	ChatID         int64
	Token          string
	TokenExpiresAt *time.Time
	SelectedMpID   string
	PageSize       int
	Compact        bool
	UpdatedAt      time.Time
}

// LoggedIn reports whether the session holds a token that has not expired.
func (s *Session) LoggedIn(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return s.TokenExpiresAt == nil || now.Before(*s.TokenExpiresAt)
}

// EffectivePageSize returns the configured page size or the default.
func (s *Session) EffectivePageSize() int {
	if s == nil || s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}

// ResourceWatch is a live system-resource message that is refreshed in place.
type ResourceWatch struct {
	ID        int64
	ChatID    int64
	MessageID int
	ExpiresAt time.Time
	CreatedAt time.Time
}
