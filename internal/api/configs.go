package api

import (
	"context"
	"fmt"

	"werss_bot/internal/model"
)

// ConfigInput is the body for creating or updating a config entry.
type ConfigInput struct {
	Key         string `json:"config_key" validate:"required,max=100"`
	Value       string `json:"config_value" validate:"required"`
	Description string `json:"description"`
}

// ListConfigs returns one page of config entries.
func (a *API) ListConfigs(ctx context.Context, p Page) (*model.ListResult[model.ConfigEntry], error) {
	var out model.ListResult[model.ConfigEntry]
	if err := a.b.Get(ctx, path("configs"), p.offsetQuery(), &out); err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return &out, nil
}

// GetConfig returns one config entry.
func (a *API) GetConfig(ctx context.Context, key string) (*model.ConfigEntry, error) {
	var out model.ConfigEntry
	if err := a.b.Get(ctx, path("configs", key), nil, &out); err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return &out, nil
}

// CreateConfig adds a config entry.
func (a *API) CreateConfig(ctx context.Context, in ConfigInput) error {
	if err := a.b.Post(ctx, path("configs"), nil, in, nil); err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	return nil
}

// UpdateConfig changes the value and description of an existing key.
func (a *API) UpdateConfig(ctx context.Context, in ConfigInput) error {
	if err := a.b.Put(ctx, path("configs", in.Key), nil, in, nil); err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	return nil
}

// DeleteConfig removes a config entry.
func (a *API) DeleteConfig(ctx context.Context, key string) error {
	if err := a.b.Delete(ctx, path("configs", key), nil, nil, nil); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}
