package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// GetTemplate retrieves a workflow template.
func (e *WorkflowEngine) GetTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	return e.templates.GetTemplate(ctx, id)
}

// GetStatusTemplate retrieves a status template.
func (e *WorkflowEngine) GetStatusTemplate(ctx context.Context, id uuid.UUID) (*model.StatusTemplate, error) {
	return e.templates.GetStatusTemplate(ctx, id)
}

// ListTemplates returns one page of workflow templates.
func (e *WorkflowEngine) ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error) {
	return e.templates.ListTemplates(ctx, page, size)
}

// ListStatusTemplates returns one page of status templates.
func (e *WorkflowEngine) ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error) {
	return e.templates.ListStatusTemplates(ctx, page, size)
}

// CreateTemplate authors a new workflow template.
func (e *WorkflowEngine) CreateTemplate(ctx context.Context, req *model.CreateTemplateDTO, callerID string) (*model.WorkflowTemplate, error) {
	if req == nil {
		return nil, &model.ValidationError{Message: "template request cannot be nil"}
	}
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	template := req.ToTemplate(callerID)
	if err := e.templates.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "workflow template created", "templateId", template.ID, "name", template.Name, "steps", template.StepCount())
	return template, nil
}

// CreateStatusTemplate authors a new status template.
func (e *WorkflowEngine) CreateStatusTemplate(ctx context.Context, req *model.CreateStatusTemplateDTO, callerID string) (*model.StatusTemplate, error) {
	if req == nil {
		return nil, &model.ValidationError{Message: "status template request cannot be nil"}
	}
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	template := req.ToStatusTemplate(callerID)
	if err := e.templates.CreateStatusTemplate(ctx, template); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "status template created", "statusTemplateId", template.ID, "name", template.Name, "isDefault", template.IsDefault)
	return template, nil
}

// DeleteTemplate deletes a workflow template no workflow uses.
func (e *WorkflowEngine) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if err := e.templates.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "workflow template deleted", "templateId", id)
	return nil
}

// DeleteStatusTemplate deletes a status template no workflow uses.
func (e *WorkflowEngine) DeleteStatusTemplate(ctx context.Context, id uuid.UUID) error {
	if err := e.templates.DeleteStatusTemplate(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "status template deleted", "statusTemplateId", id)
	return nil
}
