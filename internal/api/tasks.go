package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"werss_bot/internal/model"
)

// MessageTaskInput is the body for creating or updating a message task.
type MessageTaskInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	MessageType     int    `json:"message_type" validate:"oneof=0 1"`
	MessageTemplate string `json:"message_template"`
	WebHookURL      string `json:"web_hook_url" validate:"required_if=MessageType 1,omitempty,httpprefix"`
	MpsID           string `json:"mps_id"`
	CronExp         string `json:"cron_exp" validate:"required,cron"`
	Status          int    `json:"status" validate:"oneof=0 1"`
}

// ListTasks returns one page of message tasks.
func (a *API) ListTasks(ctx context.Context, p Page) (*model.ListResult[model.MessageTask], error) {
	var out model.ListResult[model.MessageTask]
	if err := a.b.Get(ctx, path("message_tasks"), p.offsetQuery(), &out); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return &out, nil
}

// GetTask returns one message task.
func (a *API) GetTask(ctx context.Context, id string) (*model.MessageTask, error) {
	var out model.MessageTask
	if err := a.b.Get(ctx, path("message_tasks", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &out, nil
}

// CreateTask adds a message task.
func (a *API) CreateTask(ctx context.Context, in MessageTaskInput) (*model.MessageTask, error) {
	var out model.MessageTask
	if err := a.b.Post(ctx, path("message_tasks"), nil, in, &out); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &out, nil
}

// UpdateTask replaces a message task.
func (a *API) UpdateTask(ctx context.Context, id string, in MessageTaskInput) error {
	if err := a.b.Put(ctx, path("message_tasks", id), nil, in, nil); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask removes a message task.
func (a *API) DeleteTask(ctx context.Context, id string) error {
	if err := a.b.Delete(ctx, path("message_tasks", id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// RunTask executes a task once. A test run sends to the sink without
// recording delivery.
func (a *API) RunTask(ctx context.Context, id string, test bool) (map[string]any, error) {
	q := url.Values{"isTest": {strconv.FormatBool(test)}}
	var out map[string]any
	if err := a.b.Get(ctx, path("message_tasks", id, "run"), q, &out); err != nil {
		return nil, fmt.Errorf("run task: %w", err)
	}
	return out, nil
}

// ApplyTasks reloads the backend scheduler from the stored tasks.
func (a *API) ApplyTasks(ctx context.Context) error {
	if err := a.b.Put(ctx, path("message_tasks", "job", "fresh"), nil, nil, nil); err != nil {
		return fmt.Errorf("apply tasks: %w", err)
	}
	return nil
}
