package model

import (
	"time"

	"github.com/google/uuid"
)

// Workflow is one run of a WorkflowTemplate.
// The status columns persist the Status union; read and write them through Status and SetStatus.
type Workflow struct {
	BaseModel
	TemplateID  uuid.UUID  `gorm:"type:uuid;column:template_id;not null;index" json:"templateId"`
	Title       string     `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Description string     `gorm:"type:text;column:description" json:"description"`
	Priority    Priority   `gorm:"type:varchar(20);column:priority;not null;index" json:"priority"`
	Visibility  Visibility `gorm:"type:varchar(20);column:visibility;not null" json:"visibility"`
	Deadline    *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	TeamID      *string    `gorm:"type:varchar(255);column:team_id;index" json:"teamId,omitempty"`
	AssigneeID  *string    `gorm:"type:varchar(255);column:assignee_id;index" json:"assigneeId,omitempty"`
	CreatorID   string     `gorm:"type:varchar(255);column:creator_id;not null" json:"creatorId"`

	CurrentStep int `gorm:"column:current_step;not null" json:"currentStep"`
	TotalSteps  int `gorm:"column:total_steps;not null" json:"totalSteps"` // snapshot of the template step count at creation

	StatusKind        StatusKind    `gorm:"type:varchar(20);column:status_kind;not null" json:"statusKind"`
	DefaultStatus     DefaultStatus `gorm:"type:varchar(20);column:default_status" json:"defaultStatus,omitempty"`
	StatusTemplateID  *uuid.UUID    `gorm:"type:uuid;column:status_template_id;index" json:"statusTemplateId,omitempty"`
	CustomStatusID    *uuid.UUID    `gorm:"type:uuid;column:custom_status_id" json:"customStatusId,omitempty"`
	CustomStatusName  string        `gorm:"type:varchar(255);column:custom_status_name" json:"customStatusName,omitempty"`
	CustomStatusColor string        `gorm:"type:varchar(50);column:custom_status_color" json:"customStatusColor,omitempty"`
	CustomStatusOrder int           `gorm:"column:custom_status_order" json:"orderIndex,omitempty"`
	CustomStatusFinal bool          `gorm:"column:custom_status_final" json:"customStatusFinal,omitempty"`

	Version int64 `gorm:"column:version;not null" json:"version"`
}

func (w *Workflow) TableName() string {
	return "workflows"
}

// Status returns the effective status of the workflow.
func (w *Workflow) Status() Status {
	if w.StatusKind == StatusKindCustom && w.CustomStatusID != nil && w.StatusTemplateID != nil {
		return CustomStatus{
			TemplateID: *w.StatusTemplateID,
			ItemID:     *w.CustomStatusID,
			Name:       w.CustomStatusName,
			ItemColor:  w.CustomStatusColor,
			OrderIndex: w.CustomStatusOrder,
			Final:      w.CustomStatusFinal,
		}
	}
	return w.DefaultStatus
}

// SetStatus switches the workflow to s. Switching to a custom status binds the workflow to its template;
// switching back to a default status keeps the binding.
func (w *Workflow) SetStatus(s Status) {
	switch st := s.(type) {
	case DefaultStatus:
		w.StatusKind = StatusKindDefault
		w.DefaultStatus = st
		w.CustomStatusID = nil
		w.CustomStatusName = ""
		w.CustomStatusColor = ""
		w.CustomStatusOrder = 0
		w.CustomStatusFinal = false
	case CustomStatus:
		templateID := st.TemplateID
		itemID := st.ItemID
		w.StatusKind = StatusKindCustom
		w.DefaultStatus = ""
		w.StatusTemplateID = &templateID
		w.CustomStatusID = &itemID
		w.CustomStatusName = st.Name
		w.CustomStatusColor = st.ItemColor
		w.CustomStatusOrder = st.OrderIndex
		w.CustomStatusFinal = st.Final
	}
}

// IsTerminal reports whether no further progression is allowed.
func (w *Workflow) IsTerminal() bool {
	return w.Status().IsTerminal()
}

// Clone returns a deep copy, so transitions can be applied without touching the original.
func (w *Workflow) Clone() Workflow {
	c := *w
	c.Deadline = cloneTime(w.Deadline)
	c.TeamID = cloneString(w.TeamID)
	c.AssigneeID = cloneString(w.AssigneeID)
	c.StatusTemplateID = cloneUUID(w.StatusTemplateID)
	c.CustomStatusID = cloneUUID(w.CustomStatusID)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// WorkflowFilter narrows listWorkflows. Nil fields are not applied.
type WorkflowFilter struct {
	AssigneeID       *string     `json:"assigneeId,omitempty"`
	CreatorID        *string     `json:"creatorId,omitempty"`
	TemplateID       *uuid.UUID  `json:"templateId,omitempty"`
	StatusTemplateID *uuid.UUID  `json:"statusTemplateId,omitempty"`
	TeamID           *string     `json:"teamId,omitempty"`
	Priority         *Priority   `json:"priority,omitempty"`
	Visibility       *Visibility `json:"visibility,omitempty"`
	StatusKey        *string     `json:"status,omitempty"` // default status string or custom status item ID
	IncludeTerminal  bool        `json:"includeTerminal"`
}
