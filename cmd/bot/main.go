package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"werss_bot/internal/api"
	"werss_bot/internal/bot"
	"werss_bot/internal/client"
	"werss_bot/internal/config"
	"werss_bot/internal/scheduler"
	"werss_bot/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backend, err := client.New(cfg.BaseURL, client.NewHTTPClient(cfg.HTTPTimeout),
		client.WithMetrics(client.NewMetrics(reg)),
		client.WithLogger(log),
	)
	if err != nil {
		log.Error("create backend client", "base_url", cfg.BaseURL, "error", err)
		os.Exit(1)
	}

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, backend, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	newAPI := func(token string) scheduler.ResourceAPI {
		return api.New(backend.WithToken(client.StaticToken(token)))
	}
	sched := scheduler.New(store, newAPI, b, log)
	sched.SetTickInterval(cfg.ResourcePollInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveMetrics(ctx, cfg.MetricsAddr, reg, log)
		}()
	}

	log.Info("starting bot", "backend", cfg.BaseURL)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	b.Run(ctx)
	wg.Wait()

	log.Info("bot stopped")
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", "addr", addr, "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
