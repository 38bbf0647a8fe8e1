package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"CONFIG_FILE", "TELEGRAM_BOT_TOKEN", "WERSS_BASE_URL", "DATABASE_PATH", "LOG_LEVEL",
	"ALLOWED_USERS", "HTTP_TIMEOUT", "RESOURCE_POLL_INTERVAL", "RESOURCE_WATCH_TTL", "METRICS_ADDR",
}

func defaults(token, base string) *Config {
	return &Config{
		TelegramBotToken:     token,
		BaseURL:              base,
		DatabasePath:         DefaultDatabasePath,
		LogLevel:             DefaultLogLevel,
		HTTPTimeout:          DefaultHTTPTimeout,
		ResourcePollInterval: DefaultResourcePollInterval,
		ResourceWatchTTL:     DefaultResourceWatchTTL,
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{"WERSS_BASE_URL": "http://werss"},
			wantErr: true,
		},
		{
			name:    "missing base url",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok"},
			wantErr: true,
		},
		{
			name: "required only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "WERSS_BASE_URL": "http://werss"},
			want: defaults("tok", "http://werss"),
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":     "tok",
				"WERSS_BASE_URL":         "http://werss/",
				"DATABASE_PATH":          "/tmp/console.db",
				"LOG_LEVEL":              "debug",
				"ALLOWED_USERS":          "111, 222,,333",
				"HTTP_TIMEOUT":           "5s",
				"RESOURCE_POLL_INTERVAL": "500ms",
				"RESOURCE_WATCH_TTL":     "1m",
				"METRICS_ADDR":           ":9090",
			},
			want: &Config{
				TelegramBotToken:     "tok",
				BaseURL:              "http://werss/",
				DatabasePath:         "/tmp/console.db",
				LogLevel:             "debug",
				AllowedUsers:         []int64{111, 222, 333},
				HTTPTimeout:          5 * time.Second,
				ResourcePollInterval: 500 * time.Millisecond,
				ResourceWatchTTL:     time.Minute,
				MetricsAddr:          ":9090",
			},
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"WERSS_BASE_URL":     "http://werss",
				"ALLOWED_USERS":      "123,abc",
			},
			wantErr: true,
		},
		{
			name: "invalid duration",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"WERSS_BASE_URL":     "http://werss",
				"HTTP_TIMEOUT":       "soon",
			},
			wantErr: true,
		},
		{
			name: "non-positive duration",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":     "tok",
				"WERSS_BASE_URL":         "http://werss",
				"RESOURCE_POLL_INTERVAL": "0s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}

	path := filepath.Join(t.TempDir(), "console.yaml")
	content := `telegram_bot_token: file-token
base_url: http://file
log_level: warn
allowed_users: [7, 8]
resource_poll_interval: 3s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "error")

	got, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := defaults("file-token", "http://file")
	want.LogLevel = "error"
	want.AllowedUsers = []int64{7, 8}
	want.ResourcePollInterval = 3 * time.Second
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("WERSS_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("WERSS_DOTENV_PROBE", "")
	if err := os.Unsetenv("WERSS_DOTENV_PROBE"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if diff := cmp.Diff("from-file", os.Getenv("WERSS_DOTENV_PROBE")); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{name: "empty list allows everyone", allowedUsers: nil, userID: 42, want: true},
		{name: "user in list", allowedUsers: []int64{10, 20, 30}, userID: 20, want: true},
		{name: "user not in list", allowedUsers: []int64{10, 20, 30}, userID: 99, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			if diff := cmp.Diff(tt.want, cfg.IsUserAllowed(tt.userID)); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
