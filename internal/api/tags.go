package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"werss_bot/internal/model"
)

// allTagsLimit is large enough to fetch every tag in one call.
const allTagsLimit = 10000

// TagInput is the body for creating or updating a tag.
type TagInput struct {
	Name   string `json:"name" validate:"required,max=50"`
	Cover  string `json:"cover,omitempty" validate:"omitempty,httpprefix"`
	Intro  string `json:"intro,omitempty" validate:"max=500"`
	Status int    `json:"status" validate:"oneof=0 1 2"`
	MpsID  string `json:"mps_id,omitempty"`
}

// ListTags fetches every tag, filters by name and pages locally. The
// returned total counts the filtered tags.
func (a *API) ListTags(ctx context.Context, p Page, kw string) (*model.ListResult[model.Tag], error) {
	q := url.Values{"offset": {"0"}, "limit": {fmt.Sprint(allTagsLimit)}}
	var all model.ListResult[model.Tag]
	if err := a.b.Get(ctx, path("tags"), q, &all); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	filtered := all.List
	if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
		filtered = nil
		for _, t := range all.List {
			if strings.Contains(strings.ToLower(t.Name), kw) {
				filtered = append(filtered, t)
			}
		}
	}
	return &model.ListResult[model.Tag]{
		List:  Paginate(filtered, p),
		Total: len(filtered),
	}, nil
}

// GetTag returns one tag.
func (a *API) GetTag(ctx context.Context, id string) (*model.Tag, error) {
	var out model.Tag
	if err := a.b.Get(ctx, path("tags", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &out, nil
}

// CreateTag adds a tag.
func (a *API) CreateTag(ctx context.Context, in TagInput) (*model.Tag, error) {
	var out model.Tag
	if err := a.b.Post(ctx, path("tags"), nil, in, &out); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return &out, nil
}

// UpdateTag replaces a tag.
func (a *API) UpdateTag(ctx context.Context, id string, in TagInput) error {
	if err := a.b.Put(ctx, path("tags", id), nil, in, nil); err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return nil
}

// DeleteTag removes a tag.
func (a *API) DeleteTag(ctx context.Context, id string) error {
	if err := a.b.Delete(ctx, path("tags", id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}
