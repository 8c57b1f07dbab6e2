package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
	"github.com/OpenNSW/flowtrack/utils"
)

const (
	resourceTemplate       = "template"
	resourceStatusTemplate = "status template"
	resourceWorkflow       = "workflow"
)

// TemplateService is the gorm-backed TemplateStore.
type TemplateService struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

// NewTemplateService creates a new TemplateService. A positive queryTimeout bounds every query.
func NewTemplateService(db *gorm.DB, queryTimeout time.Duration) *TemplateService {
	return &TemplateService{db: db, queryTimeout: queryTimeout}
}

// GetTemplate retrieves a workflow template by its ID.
func (s *TemplateService) GetTemplate(ctx context.Context, id uuid.UUID) (*model.WorkflowTemplate, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	var template model.WorkflowTemplate
	if err := s.db.WithContext(ctx).First(&template, "id = ?", id).Error; err != nil {
		return nil, storeError("get template", resourceTemplate, id.String(), err)
	}
	return &template, nil
}

// GetStatusTemplate retrieves a status template by its ID.
func (s *TemplateService) GetStatusTemplate(ctx context.Context, id uuid.UUID) (*model.StatusTemplate, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	var template model.StatusTemplate
	if err := s.db.WithContext(ctx).First(&template, "id = ?", id).Error; err != nil {
		return nil, storeError("get status template", resourceStatusTemplate, id.String(), err)
	}
	return &template, nil
}

// ListTemplates returns one page of workflow templates ordered by name.
func (s *TemplateService) ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	offset, limit := utils.GetPaginationParams(page, size)
	result := &model.PageResult[model.WorkflowTemplate]{
		Items: []model.WorkflowTemplate{},
		Page:  utils.PageFromOffset(offset, limit),
		Size:  limit,
	}

	query := s.db.WithContext(ctx).Model(&model.WorkflowTemplate{}).Session(&gorm.Session{})
	if err := query.Count(&result.TotalCount).Error; err != nil {
		return nil, storeError("count templates", resourceTemplate, "", err)
	}
	if err := query.Order("name").Order("id").Offset(offset).Limit(limit).Find(&result.Items).Error; err != nil {
		return nil, storeError("list templates", resourceTemplate, "", err)
	}
	return result, nil
}

// ListStatusTemplates returns one page of status templates, the default one first.
func (s *TemplateService) ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	offset, limit := utils.GetPaginationParams(page, size)
	result := &model.PageResult[model.StatusTemplate]{
		Items: []model.StatusTemplate{},
		Page:  utils.PageFromOffset(offset, limit),
		Size:  limit,
	}

	query := s.db.WithContext(ctx).Model(&model.StatusTemplate{}).Session(&gorm.Session{})
	if err := query.Count(&result.TotalCount).Error; err != nil {
		return nil, storeError("count status templates", resourceStatusTemplate, "", err)
	}
	if err := query.Order("is_default DESC").Order("name").Order("id").Offset(offset).Limit(limit).Find(&result.Items).Error; err != nil {
		return nil, storeError("list status templates", resourceStatusTemplate, "", err)
	}
	return result, nil
}

// CreateTemplate validates and stores a new workflow template.
func (s *TemplateService) CreateTemplate(ctx context.Context, template *model.WorkflowTemplate) error {
	if template == nil {
		return &model.ValidationError{Message: "template cannot be nil"}
	}
	template.NormalizeSteps()
	if err := template.Validate(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(template).Error; err != nil {
		return storeError("create template", resourceTemplate, template.Name, err)
	}
	return nil
}

// CreateStatusTemplate validates and stores a new status template.
// Only one status template is the default: storing a new default clears the flag on the previous one.
func (s *TemplateService) CreateStatusTemplate(ctx context.Context, template *model.StatusTemplate) error {
	if template == nil {
		return &model.ValidationError{Message: "status template cannot be nil"}
	}
	template.NormalizeItems()
	if err := template.Validate(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if template.IsDefault {
			if err := tx.Model(&model.StatusTemplate{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(template).Error
	})
	return storeError("create status template", resourceStatusTemplate, template.Name, err)
}

// DeleteTemplate removes a workflow template that no workflow references.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.deleteUnreferenced(ctx, &model.WorkflowTemplate{}, "template_id", resourceTemplate, id)
}

// DeleteStatusTemplate removes a status template that no workflow references.
func (s *TemplateService) DeleteStatusTemplate(ctx context.Context, id uuid.UUID) error {
	return s.deleteUnreferenced(ctx, &model.StatusTemplate{}, "status_template_id", resourceStatusTemplate, id)
}

// deleteUnreferenced counts the workflows pointing at the record through column and deletes it only when there are none.
// Count and delete run in one transaction.
func (s *TemplateService) deleteUnreferenced(ctx context.Context, record any, column, resource string, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var referencedBy int64
		if err := tx.Model(&model.Workflow{}).Where(column+" = ?", id).Count(&referencedBy).Error; err != nil {
			return err
		}
		if referencedBy > 0 {
			return &model.ConflictError{Resource: resource, ID: id.String(), ReferencedBy: referencedBy}
		}

		result := tx.Where("id = ?", id).Delete(record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &model.NotFoundError{Resource: resource, ID: id.String()}
		}
		return nil
	})
	return storeError("delete "+resource, resource, id.String(), err)
}
