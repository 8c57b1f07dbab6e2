package model

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultStatus is the built-in status vocabulary.
type DefaultStatus string

const (
	StatusInProgress DefaultStatus = "in_progress"
	StatusPaused     DefaultStatus = "paused"
	StatusCompleted  DefaultStatus = "completed"
	StatusCanceled   DefaultStatus = "canceled"
	StatusArchived   DefaultStatus = "archived"
)

// DefaultStatusOrder is the fixed display order of default-status groups.
var DefaultStatusOrder = []DefaultStatus{
	StatusInProgress,
	StatusPaused,
	StatusCompleted,
	StatusCanceled,
	StatusArchived,
}

var defaultStatusNames = map[DefaultStatus]string{
	StatusInProgress: "In Progress",
	StatusPaused:     "Paused",
	StatusCompleted:  "Completed",
	StatusCanceled:   "Canceled",
	StatusArchived:   "Archived",
}

var defaultStatusColors = map[DefaultStatus]string{
	StatusInProgress: "#1677ff",
	StatusPaused:     "#faad14",
	StatusCompleted:  "#52c41a",
	StatusCanceled:   "#ff4d4f",
	StatusArchived:   "#8c8c8c",
}

// Status is the effective status of a workflow: either a DefaultStatus or a CustomStatus.
// The set of implementations is closed; switch on the concrete type.
type Status interface {
	Key() string
	DisplayName() string
	Color() string
	IsTerminal() bool
	sealed()
}

func (s DefaultStatus) Key() string { return string(s) }

func (s DefaultStatus) DisplayName() string {
	if name, ok := defaultStatusNames[s]; ok {
		return name
	}
	return string(s)
}

func (s DefaultStatus) Color() string { return defaultStatusColors[s] }

func (s DefaultStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusArchived
}

// Known reports whether s is one of the built-in statuses.
func (s DefaultStatus) Known() bool {
	_, ok := defaultStatusNames[s]
	return ok
}

func (DefaultStatus) sealed() {}

// CustomStatus references a StatusItem of a bound StatusTemplate, with its display fields denormalized.
type CustomStatus struct {
	TemplateID uuid.UUID `json:"statusTemplateId"`
	ItemID     uuid.UUID `json:"statusItemId"`
	Name       string    `json:"name"`
	ItemColor  string    `json:"color"`
	OrderIndex int       `json:"orderIndex"`
	Final      bool      `json:"isFinal"`
}

// NewCustomStatus builds the reference to item inside template.
func NewCustomStatus(templateID uuid.UUID, item StatusItem) CustomStatus {
	return CustomStatus{
		TemplateID: templateID,
		ItemID:     item.ID,
		Name:       item.Name,
		ItemColor:  item.Color,
		OrderIndex: item.OrderIndex,
		Final:      item.IsFinal,
	}
}

func (s CustomStatus) Key() string         { return s.ItemID.String() }
func (s CustomStatus) DisplayName() string { return s.Name }
func (s CustomStatus) Color() string       { return s.ItemColor }
func (s CustomStatus) IsTerminal() bool    { return s.Final }
func (CustomStatus) sealed()               {}

// StatusKind is the persisted discriminator of the Status union.
type StatusKind string

const (
	StatusKindDefault StatusKind = "default"
	StatusKindCustom  StatusKind = "custom"
)

// DescribeStatus renders a status for logs and error messages.
func DescribeStatus(s Status) string {
	switch st := s.(type) {
	case DefaultStatus:
		return string(st)
	case CustomStatus:
		return fmt.Sprintf("%s (custom)", st.Name)
	default:
		return "unknown"
	}
}
