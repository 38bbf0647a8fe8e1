package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"werss_bot/internal/model"
)

// Adjacent article directions.
const (
	Next = "next"
	Prev = "prev"
)

// ArticleQuery filters the article list.
type ArticleQuery struct {
	Page   Page
	Search string
	MpID   string
	Status *int
}

// ListArticles returns one page of articles.
func (a *API) ListArticles(ctx context.Context, aq ArticleQuery) (*model.ListResult[model.Article], error) {
	q := aq.Page.offsetQuery()
	if aq.Search != "" {
		q.Set("search", aq.Search)
	}
	if aq.MpID != "" {
		q.Set("mp_id", aq.MpID)
	}
	if aq.Status != nil {
		q.Set("status", strconv.Itoa(*aq.Status))
	}
	var out model.ListResult[model.Article]
	if err := a.b.Get(ctx, path("articles"), q, &out); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return &out, nil
}

// GetArticle returns one article with its content.
func (a *API) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	var out model.Article
	if err := a.b.Get(ctx, path("articles", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &out, nil
}

// AdjacentArticle returns the article next to or before id.
func (a *API) AdjacentArticle(ctx context.Context, id, direction string) (*model.Article, error) {
	if direction != Next && direction != Prev {
		return nil, fmt.Errorf("unknown direction %q", direction)
	}
	var out model.Article
	if err := a.b.Get(ctx, path("articles", id, direction), nil, &out); err != nil {
		return nil, fmt.Errorf("get %s article: %w", direction, err)
	}
	return &out, nil
}

// DeleteArticle marks an article deleted.
func (a *API) DeleteArticle(ctx context.Context, id string) error {
	if err := a.b.Delete(ctx, path("articles", id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}

// RefetchArticle asks the backend to download the article content again.
func (a *API) RefetchArticle(ctx context.Context, id string) error {
	if err := a.b.Post(ctx, path("articles", id, "fetch_content"), nil, nil, nil); err != nil {
		return fmt.Errorf("refetch article: %w", err)
	}
	return nil
}

// ArticleTags lists the tags assigned to an article.
func (a *API) ArticleTags(ctx context.Context, id string) ([]model.TagRef, error) {
	var out struct {
		Tags []model.TagRef `json:"tags"`
	}
	if err := a.b.Get(ctx, path("articles", id, "tags"), nil, &out); err != nil {
		return nil, fmt.Errorf("list article tags: %w", err)
	}
	return out.Tags, nil
}

// AddArticleTag assigns a tag to an article.
func (a *API) AddArticleTag(ctx context.Context, id, tagID string) error {
	q := url.Values{"tag_id": {tagID}}
	if err := a.b.Post(ctx, path("articles", id, "tags"), q, nil, nil); err != nil {
		return fmt.Errorf("add article tag: %w", err)
	}
	return nil
}

// RemoveArticleTag drops a tag from an article.
func (a *API) RemoveArticleTag(ctx context.Context, id, tagID string) error {
	if err := a.b.Delete(ctx, path("articles", id, "tags", tagID), nil, nil, nil); err != nil {
		return fmt.Errorf("remove article tag: %w", err)
	}
	return nil
}
