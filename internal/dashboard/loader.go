package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"werss_bot/internal/api"
	"werss_bot/internal/client"
	"werss_bot/internal/model"
)

// Source is the subset of the backend API the loader needs.
type Source interface {
	DashboardStats(ctx context.Context) (*model.DashboardData, error)
	ListArticles(ctx context.Context, q api.ArticleQuery) (*model.ListResult[model.Article], error)
	ListSubscriptions(ctx context.Context, p api.Page, kw string) (*model.ListResult[model.Subscription], error)
}

// Result is a loaded dashboard and where it came from.
type Result struct {
	Data *model.DashboardData
	// Reconstructed is set when the document was built from raw listings.
	Reconstructed bool
}

// Loader fetches the dashboard document.
type Loader struct {
	src Source
	now func() time.Time
	log *slog.Logger
}

// NewLoader returns a Loader reading from src.
func NewLoader(src Source, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{src: src, now: time.Now, log: log}
}

// Load asks the stats endpoint first and reconstructs the document from at
// most FetchLimit articles and subscriptions when that fails. Errors during
// reconstruction are returned as is.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	data, err := l.src.DashboardStats(ctx)
	if err == nil && data != nil {
		return &Result{Data: data}, nil
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return nil, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	l.log.Warn("dashboard stats unavailable, rebuilding from listings", "error", err)

	articles, err := l.src.ListArticles(ctx, api.ArticleQuery{Page: api.Page{PageSize: FetchLimit}})
	if err != nil {
		return nil, fmt.Errorf("rebuild dashboard: %w", err)
	}
	subs, err := l.src.ListSubscriptions(ctx, api.Page{PageSize: FetchLimit}, "")
	if err != nil {
		return nil, fmt.Errorf("rebuild dashboard: %w", err)
	}

	in := Input{
		Articles:          capped(articles.List),
		Subscriptions:     capped(subs.List),
		ArticleTotal:      articles.Total,
		SubscriptionTotal: subs.Total,
	}
	return &Result{Data: Compute(in, l.now()), Reconstructed: true}, nil
}

func capped[T any](items []T) []T {
	if len(items) > FetchLimit {
		return items[:FetchLimit]
	}
	return items
}
