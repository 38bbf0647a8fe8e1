package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"werss_bot/internal/api"
	"werss_bot/internal/client"
	"werss_bot/internal/model"
)

type mockSource struct {
	stats    *model.DashboardData
	statsErr error

	articles    []model.Article
	articlesErr error
	subs        []model.Subscription

	gotArticleQuery api.ArticleQuery
	gotSubsPage     api.Page
	listCalls       int
}

func (m *mockSource) DashboardStats(context.Context) (*model.DashboardData, error) {
	return m.stats, m.statsErr
}

func (m *mockSource) ListArticles(_ context.Context, q api.ArticleQuery) (*model.ListResult[model.Article], error) {
	m.listCalls++
	m.gotArticleQuery = q
	if m.articlesErr != nil {
		return nil, m.articlesErr
	}
	return &model.ListResult[model.Article]{List: m.articles, Total: len(m.articles)}, nil
}

func (m *mockSource) ListSubscriptions(_ context.Context, p api.Page, _ string) (*model.ListResult[model.Subscription], error) {
	m.listCalls++
	m.gotSubsPage = p
	return &model.ListResult[model.Subscription]{List: m.subs, Total: len(m.subs)}, nil
}

func newTestLoader(src Source) *Loader {
	l := NewLoader(src, nil)
	l.now = func() time.Time { return now }
	return l
}

func TestLoad_UsesStatsEndpoint(t *testing.T) {
	src := &mockSource{stats: &model.DashboardData{Stats: model.DashboardStats{TotalArticles: 9}}}
	res, err := newTestLoader(src).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Reconstructed {
		t.Error("Reconstructed = true, want false")
	}
	if res.Data.Stats.TotalArticles != 9 {
		t.Errorf("TotalArticles = %d", res.Data.Stats.TotalArticles)
	}
	if src.listCalls != 0 {
		t.Errorf("listCalls = %d, want 0", src.listCalls)
	}
}

func TestLoad_FallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		statsErr error
	}{
		{name: "business error", statsErr: &client.APIError{Code: 50001, Message: "boom"}},
		{name: "transport error", statsErr: errors.New("connection refused")},
		{name: "not found", statsErr: &client.StatusError{Status: 404}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{
				statsErr: tt.statsErr,
				articles: []model.Article{article("A", now, now, "Kubernetes")},
				subs:     []model.Subscription{{ID: "1"}},
			}
			res, err := newTestLoader(src).Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !res.Reconstructed {
				t.Error("Reconstructed = false, want true")
			}
			if src.gotArticleQuery.Page.Size() != FetchLimit || src.gotSubsPage.Size() != FetchLimit {
				t.Errorf("fetch sizes = %d, %d, want %d", src.gotArticleQuery.Page.Size(), src.gotSubsPage.Size(), FetchLimit)
			}
			if res.Data.Stats.TotalArticles != 1 || res.Data.Stats.TotalSources != 1 {
				t.Errorf("Stats = %+v", res.Data.Stats)
			}
		})
	}
}

func TestLoad_ReconstructionErrorPropagates(t *testing.T) {
	listErr := errors.New("backend down")
	src := &mockSource{statsErr: errors.New("stats down"), articlesErr: listErr}
	_, err := newTestLoader(src).Load(context.Background())
	if !errors.Is(err, listErr) {
		t.Errorf("err = %v, want %v", err, listErr)
	}
}

func TestLoad_UnauthorizedDoesNotFallBack(t *testing.T) {
	src := &mockSource{statsErr: client.ErrUnauthorized}
	_, err := newTestLoader(src).Load(context.Background())
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if src.listCalls != 0 {
		t.Errorf("listCalls = %d, want 0", src.listCalls)
	}
}
