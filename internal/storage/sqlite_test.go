package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"werss_bot/internal/model"
)

var ignoreSessionTS = cmpopts.IgnoreFields(model.Session{}, "UpdatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	expires := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sess model.Session
		want model.Session
	}{
		{
			name: "full session",
			sess: model.Session{ChatID: 1, Token: "tok", TokenExpiresAt: &expires, SelectedMpID: "MP_1", PageSize: 20, Compact: true},
			want: model.Session{ChatID: 1, Token: "tok", TokenExpiresAt: &expires, SelectedMpID: "MP_1", PageSize: 20, Compact: true},
		},
		{
			name: "defaults",
			sess: model.Session{ChatID: 2, Token: "tok2"},
			want: model.Session{ChatID: 2, Token: "tok2", PageSize: model.DefaultPageSize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := tt.sess
			if err := s.SaveSession(ctx, &sess); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.GetSession(ctx, tt.sess.ChatID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(tt.want, *got, ignoreSessionTS); diff != "" {
				t.Errorf("GetSession mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	s := newTestDB(t)
	if _, err := s.GetSession(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveSessionOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.SaveSession(ctx, &model.Session{ChatID: 1, Token: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSession(ctx, &model.Session{ChatID: 1, Token: "new", PageSize: 5}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSession(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Token != "new" || got.PageSize != 5 {
		t.Errorf("session = %+v", got)
	}
}

func TestClearTokenKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	expires := time.Now().Add(time.Hour)

	sess := model.Session{ChatID: 1, Token: "tok", TokenExpiresAt: &expires, SelectedMpID: "MP_1", PageSize: 15}
	if err := s.SaveSession(ctx, &sess); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearToken(ctx, 1); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	got, err := s.GetSession(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := model.Session{ChatID: 1, SelectedMpID: "MP_1", PageSize: 15}
	if diff := cmp.Diff(want, *got, ignoreSessionTS); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestSetSelectedMp(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	// Creates the session row when missing.
	if err := s.SetSelectedMp(ctx, 7, "MP_7"); err != nil {
		t.Fatalf("select: %v", err)
	}
	got, err := s.GetSession(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.SelectedMpID != "MP_7" || got.PageSize != model.DefaultPageSize {
		t.Errorf("session = %+v", got)
	}

	if err := s.SetSelectedMp(ctx, 7, ""); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	got, err = s.GetSession(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.SelectedMpID != "" {
		t.Errorf("SelectedMpID = %q, want empty", got.SelectedMpID)
	}
}

func TestSecrets(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.GetSecret(ctx, 1, "k1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.SaveSecret(ctx, 1, "k1", "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSecret(ctx, 1, "k1", "second"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSecret(ctx, 1, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "second" {
		t.Errorf("secret = %q, want second", got)
	}
	if _, err := s.GetSecret(ctx, 2, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("secret leaked across chats: %v", err)
	}

	if err := s.DeleteSecret(ctx, 1, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSecret(ctx, 1, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}
}

func TestWatches(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	watches := []model.ResourceWatch{
		{ChatID: 1, MessageID: 10, ExpiresAt: now.Add(-time.Minute)},
		{ChatID: 1, MessageID: 11, ExpiresAt: now.Add(time.Minute)},
		{ChatID: 2, MessageID: 20, ExpiresAt: now.Add(time.Minute)},
	}
	for i := range watches {
		if err := s.CreateWatch(ctx, &watches[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
		if watches[i].ID == 0 {
			t.Fatal("expected non-zero ID")
		}
	}

	n, err := s.DeleteExpiredWatches(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	got, err := s.ListWatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.ResourceWatch{watches[1], watches[2]}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.ResourceWatch{}, "CreatedAt")); diff != "" {
		t.Errorf("ListWatches mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteChatWatches(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteWatch(ctx, watches[2].ID); err != nil {
		t.Fatal(err)
	}
	got, err = s.ListWatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("watches left = %+v", got)
	}
}
