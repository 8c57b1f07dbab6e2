package service

import (
	"time"

	"github.com/OpenNSW/flowtrack/internal/workflow/derived"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// StatusView is the effective status of a workflow as shown to callers.
type StatusView struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	Custom      bool   `json:"custom"`
	IsTerminal  bool   `json:"isTerminal"`
}

// WorkflowView is a workflow together with its state derived at read time.
type WorkflowView struct {
	model.Workflow
	EffectiveStatus StatusView    `json:"status"`
	Derived         derived.State `json:"derived"`
}

// NewWorkflowView derives the view of w at now.
func NewWorkflowView(w *model.Workflow, now time.Time, nearDeadline time.Duration) WorkflowView {
	status := w.Status()
	_, custom := status.(model.CustomStatus)
	return WorkflowView{
		Workflow: *w,
		EffectiveStatus: StatusView{
			Key:         status.Key(),
			DisplayName: status.DisplayName(),
			Color:       status.Color(),
			Custom:      custom,
			IsTerminal:  status.IsTerminal(),
		},
		Derived: derived.Compute(w, now, nearDeadline),
	}
}
