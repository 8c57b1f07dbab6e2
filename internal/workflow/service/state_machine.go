package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// Action names a workflow transition.
type Action string

const (
	ActionCreate            Action = "create"
	ActionAdvanceStep       Action = "advance_step"
	ActionCompleteFinalStep Action = "complete_final_step"
	ActionPause             Action = "pause"
	ActionResume            Action = "resume"
	ActionCancel            Action = "cancel"
	ActionArchive           Action = "archive"
	ActionReassign          Action = "reassign"
	ActionSetCustomStatus   Action = "set_custom_status"
	ActionUseDefaultStatus  Action = "use_default_status"
	ActionUpdateDetails     Action = "update_details"
)

// WorkflowStateMachine validates and applies workflow lifecycle transitions.
// It never mutates its input: every transition works on a clone and returns it, so a rejected
// transition leaves the caller's workflow untouched.
type WorkflowStateMachine struct{}

// NewWorkflowStateMachine creates a new instance of WorkflowStateMachine.
func NewWorkflowStateMachine() *WorkflowStateMachine {
	return &WorkflowStateMachine{}
}

// Create builds a new workflow from template. When statusTemplate is non-nil the workflow starts in its
// initial item; otherwise it starts in the default in_progress status.
func (sm *WorkflowStateMachine) Create(
	template *model.WorkflowTemplate,
	statusTemplate *model.StatusTemplate,
	req *model.CreateWorkflowDTO,
	creatorID string,
	now time.Time,
) (*model.Workflow, error) {
	if template == nil {
		return nil, &model.ValidationError{Field: "templateId", Message: "template is required"}
	}
	if template.StepCount() < 1 {
		return nil, &model.ValidationError{Field: "templateId", Message: fmt.Sprintf("template %s has no steps", template.ID)}
	}
	if creatorID == "" {
		return nil, &model.ValidationError{Field: "creatorId", Message: "caller identity is required"}
	}

	workflow := &model.Workflow{
		BaseModel:   model.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		TemplateID:  template.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Visibility:  req.Visibility,
		Deadline:    req.Deadline,
		TeamID:      req.TeamID,
		AssigneeID:  req.AssigneeID,
		CreatorID:   creatorID,
		CurrentStep: 1,
		TotalSteps:  template.StepCount(),
	}

	if statusTemplate == nil {
		workflow.SetStatus(model.StatusInProgress)
	} else {
		initial, ok := statusTemplate.InitialItem()
		if !ok {
			return nil, &model.ValidationError{
				Field:   "statusTemplateId",
				Message: fmt.Sprintf("status template %s has no initial item", statusTemplate.ID),
			}
		}
		workflow.SetStatus(model.NewCustomStatus(statusTemplate.ID, initial))
	}

	if err := checkStepBounds(workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

// AdvanceStep moves the workflow to its next step.
func (sm *WorkflowStateMachine) AdvanceStep(w *model.Workflow) (*model.Workflow, error) {
	return sm.apply(w, ActionAdvanceStep, func(next *model.Workflow) error {
		if next.CurrentStep >= next.TotalSteps {
			return &model.StepOutOfRangeError{CurrentStep: next.CurrentStep, TotalSteps: next.TotalSteps}
		}
		next.CurrentStep++
		return nil
	})
}

// CompleteFinalStep marks a workflow on its last step as completed. Only valid in the default status model.
func (sm *WorkflowStateMachine) CompleteFinalStep(w *model.Workflow) (*model.Workflow, error) {
	return sm.apply(w, ActionCompleteFinalStep, func(next *model.Workflow) error {
		if next.StatusKind != model.StatusKindDefault {
			return invalid(next, ActionCompleteFinalStep, "only valid in the default status model")
		}
		if next.CurrentStep != next.TotalSteps {
			return invalid(next, ActionCompleteFinalStep,
				fmt.Sprintf("step %d of %d is not the final step", next.CurrentStep, next.TotalSteps))
		}
		next.SetStatus(model.StatusCompleted)
		return nil
	})
}

// Pause moves an in_progress workflow to paused.
func (sm *WorkflowStateMachine) Pause(w *model.Workflow) (*model.Workflow, error) {
	return sm.toggle(w, ActionPause, model.StatusInProgress, model.StatusPaused)
}

// Resume moves a paused workflow back to in_progress.
func (sm *WorkflowStateMachine) Resume(w *model.Workflow) (*model.Workflow, error) {
	return sm.toggle(w, ActionResume, model.StatusPaused, model.StatusInProgress)
}

// Cancel ends the workflow as canceled. A workflow in the custom model switches back to the default model.
func (sm *WorkflowStateMachine) Cancel(w *model.Workflow) (*model.Workflow, error) {
	return sm.apply(w, ActionCancel, func(next *model.Workflow) error {
		next.SetStatus(model.StatusCanceled)
		return nil
	})
}

// Archive ends the workflow as archived. A workflow in the custom model switches back to the default model.
func (sm *WorkflowStateMachine) Archive(w *model.Workflow) (*model.Workflow, error) {
	return sm.apply(w, ActionArchive, func(next *model.Workflow) error {
		next.SetStatus(model.StatusArchived)
		return nil
	})
}

// Reassign changes the assignee without touching the status.
func (sm *WorkflowStateMachine) Reassign(w *model.Workflow, userID string) (*model.Workflow, error) {
	return sm.apply(w, ActionReassign, func(next *model.Workflow) error {
		if userID == "" {
			return &model.ValidationError{Field: "userId", Message: "is required"}
		}
		next.AssigneeID = &userID
		return nil
	})
}

// SetCustomStatus switches the workflow into the custom model at itemID of statusTemplate.
// A workflow already bound to another status template is rejected; choosing a final item makes the workflow terminal.
func (sm *WorkflowStateMachine) SetCustomStatus(w *model.Workflow, statusTemplate *model.StatusTemplate, itemID uuid.UUID) (*model.Workflow, error) {
	return sm.apply(w, ActionSetCustomStatus, func(next *model.Workflow) error {
		if statusTemplate == nil {
			return &model.ValidationError{Field: "statusTemplateId", Message: "status template is required"}
		}
		if next.StatusTemplateID != nil && *next.StatusTemplateID != statusTemplate.ID {
			return &model.ValidationError{
				Field:   "statusTemplateId",
				Message: fmt.Sprintf("workflow is bound to status template %s", *next.StatusTemplateID),
			}
		}
		item, ok := statusTemplate.Item(itemID)
		if !ok {
			return &model.ValidationError{
				Field:   "statusItemId",
				Message: fmt.Sprintf("status item %s does not belong to status template %s", itemID, statusTemplate.ID),
			}
		}
		next.SetStatus(model.NewCustomStatus(statusTemplate.ID, item))
		return nil
	})
}

// UseDefaultStatus switches a workflow from the custom model back to in_progress. The template binding is kept.
func (sm *WorkflowStateMachine) UseDefaultStatus(w *model.Workflow) (*model.Workflow, error) {
	return sm.apply(w, ActionUseDefaultStatus, func(next *model.Workflow) error {
		if next.StatusKind != model.StatusKindCustom {
			return invalid(next, ActionUseDefaultStatus, "workflow already uses the default status model")
		}
		next.SetStatus(model.StatusInProgress)
		return nil
	})
}

// UpdateDetails edits the descriptive fields of a workflow. Nil fields are left unchanged.
func (sm *WorkflowStateMachine) UpdateDetails(w *model.Workflow, req *model.UpdateWorkflowDetailsDTO) (*model.Workflow, error) {
	return sm.apply(w, ActionUpdateDetails, func(next *model.Workflow) error {
		if req.Title != nil {
			if *req.Title == "" {
				return &model.ValidationError{Field: "title", Message: "cannot be empty"}
			}
			next.Title = *req.Title
		}
		if req.Description != nil {
			next.Description = *req.Description
		}
		if req.Priority != nil {
			next.Priority = *req.Priority
		}
		if req.Visibility != nil {
			next.Visibility = *req.Visibility
		}
		if req.ClearDeadline {
			next.Deadline = nil
		} else if req.Deadline != nil {
			deadline := *req.Deadline
			next.Deadline = &deadline
		}
		if req.TeamID != nil {
			teamID := *req.TeamID
			next.TeamID = &teamID
		}
		return nil
	})
}

// CanTransition reports whether action may start from the current status of w.
func (sm *WorkflowStateMachine) CanTransition(w *model.Workflow, action Action) error {
	if w.IsTerminal() {
		return invalid(w, action, "workflow is terminal")
	}
	return nil
}

func (sm *WorkflowStateMachine) toggle(w *model.Workflow, action Action, from, to model.DefaultStatus) (*model.Workflow, error) {
	return sm.apply(w, action, func(next *model.Workflow) error {
		if next.StatusKind != model.StatusKindDefault {
			return invalid(next, action, "only valid in the default status model")
		}
		if next.DefaultStatus != from {
			return invalid(next, action, fmt.Sprintf("workflow must be %s", from))
		}
		next.SetStatus(to)
		return nil
	})
}

// apply rejects transitions on terminal workflows, runs mutate on a clone and re-checks the step bounds.
func (sm *WorkflowStateMachine) apply(w *model.Workflow, action Action, mutate func(next *model.Workflow) error) (*model.Workflow, error) {
	if w == nil {
		return nil, &model.ValidationError{Message: "workflow cannot be nil"}
	}
	if err := sm.CanTransition(w, action); err != nil {
		return nil, err
	}

	next := w.Clone()
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if err := checkStepBounds(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

func invalid(w *model.Workflow, action Action, reason string) error {
	return &model.InvalidTransitionError{
		From:   model.DescribeStatus(w.Status()),
		Action: string(action),
		Reason: reason,
	}
}

// checkStepBounds enforces 1 <= currentStep <= totalSteps.
func checkStepBounds(w *model.Workflow) error {
	if w.TotalSteps < 1 || w.CurrentStep < 1 || w.CurrentStep > w.TotalSteps {
		return &model.StepOutOfRangeError{CurrentStep: w.CurrentStep, TotalSteps: w.TotalSteps}
	}
	return nil
}
