package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"werss_bot/internal/model"
)

// AllSubscriptions is the sync target that refreshes every subscription.
const AllSubscriptions = "all"

// SubscriptionInput is the body for creating a subscription.
type SubscriptionInput struct {
	Name   string `json:"mp_name" validate:"required,min=2,max=30"`
	MpID   string `json:"mp_id" validate:"required,mpid"`
	Avatar string `json:"avatar" validate:"required,httpprefix"`
	Cover  string `json:"mp_cover,omitempty"`
	Intro  string `json:"mp_intro,omitempty" validate:"max=200"`
}

// SubscriptionUpdate is a partial update; nil fields are left unchanged.
type SubscriptionUpdate struct {
	Name   *string `json:"mp_name,omitempty" validate:"omitnil,min=2,max=30"`
	Avatar *string `json:"avatar,omitempty" validate:"omitnil,httpprefix"`
	Cover  *string `json:"mp_cover,omitempty"`
	Intro  *string `json:"mp_intro,omitempty" validate:"omitnil,max=200"`
	Status *int    `json:"status,omitempty" validate:"omitnil,oneof=0 1"`
}

// ListSubscriptions returns one page of subscriptions, filtered by keyword.
func (a *API) ListSubscriptions(ctx context.Context, p Page, kw string) (*model.ListResult[model.Subscription], error) {
	q := p.offsetQuery()
	if kw != "" {
		q.Set("kw", kw)
	}
	var out model.ListResult[model.Subscription]
	if err := a.b.Get(ctx, path("mps"), q, &out); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return &out, nil
}

// GetSubscription returns one subscription.
func (a *API) GetSubscription(ctx context.Context, mpID string) (*model.Subscription, error) {
	var out model.Subscription
	if err := a.b.Get(ctx, path("mps", mpID), nil, &out); err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &out, nil
}

// CreateSubscription adds a subscription.
func (a *API) CreateSubscription(ctx context.Context, in SubscriptionInput) (*model.Subscription, error) {
	if in.Cover == "" {
		in.Cover = in.Avatar
	}
	var out model.Subscription
	if err := a.b.Post(ctx, path("mps"), nil, in, &out); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return &out, nil
}

// UpdateSubscription changes a subscription.
func (a *API) UpdateSubscription(ctx context.Context, mpID string, in SubscriptionUpdate) error {
	if err := a.b.Put(ctx, path("mps", mpID), nil, in, nil); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription.
func (a *API) DeleteSubscription(ctx context.Context, mpID string) error {
	if err := a.b.Delete(ctx, path("mps", mpID), nil, nil, nil); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// SyncSubscription asks the backend to fetch new articles for mpID, or for
// every subscription when mpID is AllSubscriptions. Pages are 0-based.
func (a *API) SyncSubscription(ctx context.Context, mpID string, startPage, endPage int) (map[string]any, error) {
	q := url.Values{
		"start_page": {strconv.Itoa(startPage)},
		"end_page":   {strconv.Itoa(endPage)},
	}
	var out map[string]any
	if err := a.b.Get(ctx, path("mps", "update", mpID), q, &out); err != nil {
		return nil, fmt.Errorf("sync subscription: %w", err)
	}
	return out, nil
}

// SearchAccounts looks up public accounts by name.
func (a *API) SearchAccounts(ctx context.Context, kw string, p Page) (*model.ListResult[model.MpItem], error) {
	var out model.ListResult[model.MpItem]
	if err := a.b.Get(ctx, path("mps", "search", kw), p.offsetQuery(), &out); err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}
	return &out, nil
}

// AccountByArticle resolves the public account that published articleURL.
func (a *API) AccountByArticle(ctx context.Context, articleURL string) (*model.MpItem, error) {
	var out model.MpItem
	q := url.Values{"url": {articleURL}}
	if err := a.b.Post(ctx, path("mps", "by_article"), q, nil, &out); err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	return &out, nil
}
