package api

import (
	"context"
	"fmt"

	"werss_bot/internal/model"
)

// ApiKeyInput is the body for creating an API key.
type ApiKeyInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Permissions string `json:"permissions" validate:"required,oneof=read read_write"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// ApiKeyUpdate is a partial update; nil fields are left unchanged.
type ApiKeyUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Permissions *string `json:"permissions,omitempty" validate:"omitnil,oneof=read read_write"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// CreateApiKey issues a key. The secret is present only in this response.
func (a *API) CreateApiKey(ctx context.Context, in ApiKeyInput) (*model.ApiKey, error) {
	var out model.ApiKey
	if err := a.b.Post(ctx, path("api-keys"), nil, in, &out); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &out, nil
}

// ListApiKeys returns one page of keys. p.Page is 1-based.
func (a *API) ListApiKeys(ctx context.Context, p Page) (*model.PageResult[model.ApiKey], error) {
	var out model.PageResult[model.ApiKey]
	if err := a.b.Get(ctx, path("api-keys"), p.numberQuery(), &out); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return &out, nil
}

// GetApiKey returns one key without its secret.
func (a *API) GetApiKey(ctx context.Context, id string) (*model.ApiKey, error) {
	var out model.ApiKey
	if err := a.b.Get(ctx, path("api-keys", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &out, nil
}

// UpdateApiKey changes a key's name, permissions or active flag.
func (a *API) UpdateApiKey(ctx context.Context, id string, in ApiKeyUpdate) (*model.ApiKey, error) {
	var out model.ApiKey
	if err := a.b.Put(ctx, path("api-keys", id), nil, in, &out); err != nil {
		return nil, fmt.Errorf("update api key: %w", err)
	}
	return &out, nil
}

// DeleteApiKey revokes a key.
func (a *API) DeleteApiKey(ctx context.Context, id string) error {
	if err := a.b.Delete(ctx, path("api-keys", id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// ApiKeyLogs returns one page of usage records. p.Page is 1-based.
func (a *API) ApiKeyLogs(ctx context.Context, id string, p Page) (*model.PageResult[model.ApiKeyLog], error) {
	var out model.PageResult[model.ApiKeyLog]
	if err := a.b.Get(ctx, path("api-keys", id, "logs"), p.numberQuery(), &out); err != nil {
		return nil, fmt.Errorf("list api key logs: %w", err)
	}
	return &out, nil
}

// RegenerateApiKey replaces a key's secret. The new secret is returned once.
func (a *API) RegenerateApiKey(ctx context.Context, id string) (*model.ApiKey, error) {
	var out model.ApiKey
	if err := a.b.Post(ctx, path("api-keys", id, "regenerate"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("regenerate api key: %w", err)
	}
	return &out, nil
}
