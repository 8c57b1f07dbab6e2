package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// TemplateStore defines the interface for reading and authoring workflow and status templates.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error)
	GetStatusTemplate(ctx context.Context, id uuid.UUID) (*model.StatusTemplate, error)
	ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error)
	ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error)
	CreateTemplate(ctx context.Context, template *model.WorkflowTemplate) error
	CreateStatusTemplate(ctx context.Context, template *model.StatusTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	DeleteStatusTemplate(ctx context.Context, id uuid.UUID) error
}

// WorkflowStore defines the interface for persisting workflow instances.
// UpdateWorkflow writes only when the stored version still equals expectedVersion and bumps it by one.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id uuid.UUID) (*model.Workflow, error)
	ListWorkflows(ctx context.Context, filter model.WorkflowFilter, page, size *int) (*model.PageResult[model.Workflow], error)
	FindWorkflows(ctx context.Context, filter model.WorkflowFilter, limit int) ([]model.Workflow, error)
	CreateWorkflow(ctx context.Context, workflow *model.Workflow) error
	UpdateWorkflow(ctx context.Context, workflow *model.Workflow, expectedVersion int64) error
}

// EventPublisher delivers transition events to interested consumers.
type EventPublisher interface {
	PublishTransition(ctx context.Context, event model.TransitionEvent) error
}

// TransitionRecorder receives engine measurements. Outcome is "ok" or the error kind.
type TransitionRecorder interface {
	ObserveTransition(action, outcome string, duration time.Duration)
	EventPublishFailed(action string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTransition(string, string, time.Duration) {}
func (noopRecorder) EventPublishFailed(string)                       {}

type noopPublisher struct{}

func (noopPublisher) PublishTransition(context.Context, model.TransitionEvent) error { return nil }
