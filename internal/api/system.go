package api

import (
	"context"
	"fmt"

	"werss_bot/internal/model"
)

// DashboardStats returns the server-computed dashboard document.
func (a *API) DashboardStats(ctx context.Context) (*model.DashboardData, error) {
	var out model.DashboardData
	if err := a.b.Get(ctx, path("dashboard", "stats"), nil, &out); err != nil {
		return nil, fmt.Errorf("get dashboard stats: %w", err)
	}
	return &out, nil
}

// SysInfo returns backend system information.
func (a *API) SysInfo(ctx context.Context) (model.SysInfo, error) {
	var out model.SysInfo
	if err := a.b.Get(ctx, path("sys", "info"), nil, &out); err != nil {
		return nil, fmt.Errorf("get sys info: %w", err)
	}
	return out, nil
}

// SysResources returns a snapshot of backend host usage.
func (a *API) SysResources(ctx context.Context) (*model.SysResources, error) {
	var out model.SysResources
	if err := a.b.Get(ctx, path("sys", "resources"), nil, &out); err != nil {
		return nil, fmt.Errorf("get sys resources: %w", err)
	}
	return &out, nil
}
