package model

import (
	"time"

	"github.com/google/uuid"
)

// CreateWorkflowDTO is the input of the create transition.
type CreateWorkflowDTO struct {
	TemplateID       uuid.UUID  `json:"templateId" validate:"required"`
	Title            string     `json:"title" validate:"required,max=255"`
	Description      string     `json:"description"`
	Priority         Priority   `json:"priority" validate:"required,oneof=low medium high urgent"`
	Visibility       Visibility `json:"visibility" validate:"required,oneof=public restricted team"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	TeamID           *string    `json:"teamId,omitempty" validate:"omitempty,max=255"`
	AssigneeID       *string    `json:"assigneeId,omitempty" validate:"omitempty,max=255"`
	StatusTemplateID *uuid.UUID `json:"statusTemplateId,omitempty"`
}

// UpdateWorkflowDetailsDTO edits descriptive fields. Nil fields are left unchanged.
type UpdateWorkflowDetailsDTO struct {
	Version       *int64      `json:"version,omitempty"`
	Title         *string     `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string     `json:"description,omitempty"`
	Priority      *Priority   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Visibility    *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=public restricted team"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
	ClearDeadline bool        `json:"clearDeadline,omitempty"`
	TeamID        *string     `json:"teamId,omitempty" validate:"omitempty,max=255"`
}

// TransitionDTO carries the version the caller last read. When nil, the version read by the engine is used.
type TransitionDTO struct {
	Version *int64 `json:"version,omitempty"`
}

// ReassignDTO is the input of the reassign transition.
type ReassignDTO struct {
	Version *int64 `json:"version,omitempty"`
	UserID  string `json:"userId" validate:"required,max=255"`
}

// SetCustomStatusDTO is the input of the setCustomStatus transition.
// StatusTemplateID is required only when the workflow is not bound to a status template yet.
type SetCustomStatusDTO struct {
	Version          *int64     `json:"version,omitempty"`
	StatusItemID     uuid.UUID  `json:"statusItemId" validate:"required"`
	StatusTemplateID *uuid.UUID `json:"statusTemplateId,omitempty"`
}

// CreateTemplateDTO is the input for authoring a workflow template.
type CreateTemplateDTO struct {
	Name        string            `json:"name" validate:"required,max=255"`
	Description string            `json:"description"`
	Visibility  Visibility        `json:"visibility" validate:"required,oneof=public restricted team"`
	Steps       []TemplateStepDTO `json:"steps" validate:"required,min=1,dive"`
}

// TemplateStepDTO is one step of CreateTemplateDTO.
type TemplateStepDTO struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	StepOrder   int    `json:"stepOrder" validate:"gte=0"`
}

// CreateStatusTemplateDTO is the input for authoring a status template.
type CreateStatusTemplateDTO struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	IsDefault   bool            `json:"isDefault"`
	Items       []StatusItemDTO `json:"items" validate:"required,min=1,dive"`
}

// StatusItemDTO is one item of CreateStatusTemplateDTO.
type StatusItemDTO struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,max=50"`
	OrderIndex  int    `json:"orderIndex" validate:"gte=0"`
	IsInitial   bool   `json:"isInitial"`
	IsFinal     bool   `json:"isFinal"`
}

// ToTemplate converts the DTO into a normalized WorkflowTemplate.
func (d *CreateTemplateDTO) ToTemplate(createdBy string) *WorkflowTemplate {
	steps := make([]TemplateStep, len(d.Steps))
	for i, s := range d.Steps {
		steps[i] = TemplateStep{Name: s.Name, Description: s.Description, StepOrder: s.StepOrder}
	}
	t := &WorkflowTemplate{
		Name:        d.Name,
		Description: d.Description,
		Visibility:  d.Visibility,
		Steps:       steps,
		CreatedBy:   createdBy,
	}
	t.NormalizeSteps()
	return t
}

// ToStatusTemplate converts the DTO into a normalized StatusTemplate.
func (d *CreateStatusTemplateDTO) ToStatusTemplate(createdBy string) *StatusTemplate {
	items := make([]StatusItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = StatusItem{
			Name:        it.Name,
			Description: it.Description,
			Color:       it.Color,
			OrderIndex:  it.OrderIndex,
			IsInitial:   it.IsInitial,
			IsFinal:     it.IsFinal,
		}
	}
	st := &StatusTemplate{
		Name:        d.Name,
		Description: d.Description,
		IsDefault:   d.IsDefault,
		Items:       items,
		CreatedBy:   createdBy,
	}
	st.NormalizeItems()
	return st
}
