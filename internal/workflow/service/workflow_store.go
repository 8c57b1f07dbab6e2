package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
	"github.com/OpenNSW/flowtrack/utils"
)

var terminalDefaultStatuses = []model.DefaultStatus{model.StatusCompleted, model.StatusCanceled, model.StatusArchived}

// WorkflowRepository is the gorm-backed WorkflowStore.
type WorkflowRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

// NewWorkflowRepository creates a new WorkflowRepository. A positive queryTimeout bounds every query.
func NewWorkflowRepository(db *gorm.DB, queryTimeout time.Duration) *WorkflowRepository {
	return &WorkflowRepository{db: db, queryTimeout: queryTimeout}
}

// GetWorkflow retrieves a workflow by its ID.
func (r *WorkflowRepository) GetWorkflow(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	ctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()

	var workflow model.Workflow
	if err := r.db.WithContext(ctx).First(&workflow, "id = ?", id).Error; err != nil {
		return nil, storeError("get workflow", resourceWorkflow, id.String(), err)
	}
	return &workflow, nil
}

// ListWorkflows returns one page of workflows matching filter, newest first.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, filter model.WorkflowFilter, page, size *int) (*model.PageResult[model.Workflow], error) {
	ctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()

	offset, limit := utils.GetPaginationParams(page, size)
	result := &model.PageResult[model.Workflow]{
		Items: []model.Workflow{},
		Page:  utils.PageFromOffset(offset, limit),
		Size:  limit,
	}

	query := applyWorkflowFilter(r.db.WithContext(ctx).Model(&model.Workflow{}), filter).Session(&gorm.Session{})
	if err := query.Count(&result.TotalCount).Error; err != nil {
		return nil, storeError("count workflows", resourceWorkflow, "", err)
	}
	if err := query.Order("created_at DESC").Order("id").Offset(offset).Limit(limit).Find(&result.Items).Error; err != nil {
		return nil, storeError("list workflows", resourceWorkflow, "", err)
	}
	return result, nil
}

// FindWorkflows returns up to limit workflows matching filter, newest first. A non-positive limit returns all of them.
func (r *WorkflowRepository) FindWorkflows(ctx context.Context, filter model.WorkflowFilter, limit int) ([]model.Workflow, error) {
	ctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := applyWorkflowFilter(r.db.WithContext(ctx).Model(&model.Workflow{}), filter).
		Order("created_at DESC").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	workflows := make([]model.Workflow, 0)
	if err := query.Find(&workflows).Error; err != nil {
		return nil, storeError("find workflows", resourceWorkflow, "", err)
	}
	return workflows, nil
}

// CreateWorkflow stores a new workflow at version 1.
func (r *WorkflowRepository) CreateWorkflow(ctx context.Context, workflow *model.Workflow) error {
	ctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()

	workflow.Version = 1
	if err := r.db.WithContext(ctx).Create(workflow).Error; err != nil {
		return storeError("create workflow", resourceWorkflow, workflow.Title, err)
	}
	return nil
}

// UpdateWorkflow writes every mutable column of workflow when the stored version equals expectedVersion.
// On success workflow.Version is expectedVersion+1; when no row matched it reports a Conflict, or NotFound if the row is gone.
func (r *WorkflowRepository) UpdateWorkflow(ctx context.Context, workflow *model.Workflow, expectedVersion int64) error {
	ctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()

	next := expectedVersion + 1
	result := r.db.WithContext(ctx).
		Model(&model.Workflow{}).
		Where("id = ? AND version = ?", workflow.ID, expectedVersion).
		Updates(workflowColumns(workflow, next))
	if result.Error != nil {
		return storeError("update workflow", resourceWorkflow, workflow.ID.String(), result.Error)
	}

	if result.RowsAffected == 0 {
		var stored model.Workflow
		err := r.db.WithContext(ctx).Select("id", "version").First(&stored, "id = ?", workflow.ID).Error
		if err != nil {
			return storeError("update workflow", resourceWorkflow, workflow.ID.String(), err)
		}
		return model.NewVersionConflict(resourceWorkflow, workflow.ID.String(), expectedVersion, stored.Version)
	}

	workflow.Version = next
	return nil
}

// workflowColumns lists the columns a transition may change. Identity, template and creator are never rewritten.
func workflowColumns(w *model.Workflow, version int64) map[string]any {
	return map[string]any{
		"title":               w.Title,
		"description":         w.Description,
		"priority":            w.Priority,
		"visibility":          w.Visibility,
		"deadline":            w.Deadline,
		"team_id":             w.TeamID,
		"assignee_id":         w.AssigneeID,
		"current_step":        w.CurrentStep,
		"total_steps":         w.TotalSteps,
		"status_kind":         w.StatusKind,
		"default_status":      w.DefaultStatus,
		"status_template_id":  w.StatusTemplateID,
		"custom_status_id":    w.CustomStatusID,
		"custom_status_name":  w.CustomStatusName,
		"custom_status_color": w.CustomStatusColor,
		"custom_status_order": w.CustomStatusOrder,
		"custom_status_final": w.CustomStatusFinal,
		"updated_at":          w.UpdatedAt,
		"version":             version,
	}
}

func applyWorkflowFilter(query *gorm.DB, filter model.WorkflowFilter) *gorm.DB {
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.CreatorID != nil {
		query = query.Where("creator_id = ?", *filter.CreatorID)
	}
	if filter.TemplateID != nil {
		query = query.Where("template_id = ?", *filter.TemplateID)
	}
	if filter.StatusTemplateID != nil {
		query = query.Where("status_template_id = ?", *filter.StatusTemplateID)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.Visibility != nil {
		query = query.Where("visibility = ?", *filter.Visibility)
	}
	if filter.StatusKey != nil {
		if itemID, err := uuid.Parse(*filter.StatusKey); err == nil {
			query = query.Where("status_kind = ? AND custom_status_id = ?", model.StatusKindCustom, itemID)
		} else {
			query = query.Where("status_kind = ? AND default_status = ?", model.StatusKindDefault, *filter.StatusKey)
		}
	}
	// an explicit status key selects exactly that status, terminal or not
	if filter.StatusKey == nil && !filter.IncludeTerminal {
		query = query.Where(
			"(status_kind = ? AND default_status NOT IN ?) OR (status_kind = ? AND custom_status_final = ?)",
			model.StatusKindDefault, terminalDefaultStatuses, model.StatusKindCustom, false,
		)
	}
	return query
}
