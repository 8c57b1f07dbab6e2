package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// TemplateStep is a single ordered step of a workflow template.
type TemplateStep struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	StepOrder   int    `json:"stepOrder" yaml:"stepOrder"` // 1-based, dense within the template
}

// WorkflowTemplate is a reusable ordered list of steps defining the shape of a process.
type WorkflowTemplate struct {
	BaseModel
	Name        string         `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Description string         `gorm:"type:text;column:description" json:"description"`
	Visibility  Visibility     `gorm:"type:varchar(20);column:visibility;not null" json:"visibility"`
	Steps       []TemplateStep `gorm:"type:jsonb;column:steps;not null;serializer:json" json:"steps"`
	CreatedBy   string         `gorm:"type:varchar(255);column:created_by" json:"createdBy"`
}

func (wt *WorkflowTemplate) TableName() string {
	return "workflow_templates"
}

// StepCount returns the number of steps in the template.
func (wt *WorkflowTemplate) StepCount() int {
	return len(wt.Steps)
}

// Validate checks that the template has at least one step and that step orders form the sequence 1..N.
func (wt *WorkflowTemplate) Validate() error {
	if wt.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if len(wt.Steps) == 0 {
		return &ValidationError{Field: "steps", Message: "template must have at least one step"}
	}
	orders := make([]int, len(wt.Steps))
	for i, step := range wt.Steps {
		if step.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("steps[%d].name", i), Message: "is required"}
		}
		orders[i] = step.StepOrder
	}
	if err := checkDense(orders); err != nil {
		return &ValidationError{Field: "steps.stepOrder", Message: err.Error()}
	}
	return nil
}

// NormalizeSteps numbers steps by list position when no order was given and sorts them by order.
func (wt *WorkflowTemplate) NormalizeSteps() {
	unordered := true
	for _, step := range wt.Steps {
		if step.StepOrder != 0 {
			unordered = false
			break
		}
	}
	if unordered {
		for i := range wt.Steps {
			wt.Steps[i].StepOrder = i + 1
		}
	}
	sort.SliceStable(wt.Steps, func(i, j int) bool {
		return wt.Steps[i].StepOrder < wt.Steps[j].StepOrder
	})
}

// StatusItem is one entry in a custom status vocabulary.
type StatusItem struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Color       string    `json:"color" yaml:"color"`
	OrderIndex  int       `json:"orderIndex" yaml:"orderIndex"`
	IsInitial   bool      `json:"isInitial" yaml:"isInitial"`
	IsFinal     bool      `json:"isFinal" yaml:"isFinal"`
}

// StatusTemplate is a reusable ordered vocabulary of custom statuses, shared by reference between workflows.
type StatusTemplate struct {
	BaseModel
	Name        string       `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Description string       `gorm:"type:text;column:description" json:"description"`
	IsDefault   bool         `gorm:"column:is_default;not null;default:false" json:"isDefault"`
	Items       []StatusItem `gorm:"type:jsonb;column:items;not null;serializer:json" json:"items"`
	CreatedBy   string       `gorm:"type:varchar(255);column:created_by" json:"createdBy"`
}

func (st *StatusTemplate) TableName() string {
	return "status_templates"
}

// Validate checks that exactly one item is initial and that order indexes form the sequence 1..N.
func (st *StatusTemplate) Validate() error {
	if st.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if len(st.Items) == 0 {
		return &ValidationError{Field: "items", Message: "status template must have at least one item"}
	}
	initial := 0
	orders := make([]int, len(st.Items))
	seen := make(map[uuid.UUID]struct{}, len(st.Items))
	for i, item := range st.Items {
		if item.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].name", i), Message: "is required"}
		}
		if _, dup := seen[item.ID]; dup && item.ID != uuid.Nil {
			return &ValidationError{Field: fmt.Sprintf("items[%d].id", i), Message: "duplicate status item id"}
		}
		seen[item.ID] = struct{}{}
		if item.IsInitial {
			initial++
		}
		orders[i] = item.OrderIndex
	}
	if initial != 1 {
		return &ValidationError{Field: "items.isInitial", Message: fmt.Sprintf("exactly one initial item required, found %d", initial)}
	}
	if err := checkDense(orders); err != nil {
		return &ValidationError{Field: "items.orderIndex", Message: err.Error()}
	}
	return nil
}

// NormalizeItems assigns missing item IDs, numbers items by position when no order was given and sorts them.
func (st *StatusTemplate) NormalizeItems() {
	unordered := true
	for i := range st.Items {
		if st.Items[i].ID == uuid.Nil {
			st.Items[i].ID = uuid.New()
		}
		if st.Items[i].OrderIndex != 0 {
			unordered = false
		}
	}
	if unordered {
		for i := range st.Items {
			st.Items[i].OrderIndex = i + 1
		}
	}
	sort.SliceStable(st.Items, func(i, j int) bool {
		return st.Items[i].OrderIndex < st.Items[j].OrderIndex
	})
}

// InitialItem returns the item flagged as initial.
func (st *StatusTemplate) InitialItem() (StatusItem, bool) {
	for _, item := range st.Items {
		if item.IsInitial {
			return item, true
		}
	}
	return StatusItem{}, false
}

// Item looks up a status item by ID.
func (st *StatusTemplate) Item(id uuid.UUID) (StatusItem, bool) {
	for _, item := range st.Items {
		if item.ID == id {
			return item, true
		}
	}
	return StatusItem{}, false
}

// checkDense verifies that values are exactly 1..N in some order.
func checkDense(values []int) error {
	seen := make([]bool, len(values)+1)
	for _, v := range values {
		if v < 1 || v > len(values) {
			return fmt.Errorf("order %d outside 1..%d", v, len(values))
		}
		if seen[v] {
			return fmt.Errorf("order %d used more than once", v)
		}
		seen[v] = true
	}
	return nil
}
