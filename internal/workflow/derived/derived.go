// Package derived computes read-time state of a workflow: progress, overdue and near-deadline flags.
// Every function is pure; "now" is always passed in.
package derived

import (
	"math"
	"time"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// DefaultNearDeadlineThreshold is used when the caller passes a negative threshold.
const DefaultNearDeadlineThreshold = 3 * 24 * time.Hour

const day = 24 * time.Hour

// State is the derived view of a workflow at a point in time.
type State struct {
	ProgressPercentage int  `json:"progressPercentage"`
	IsTerminal         bool `json:"isTerminal"`
	IsOverdue          bool `json:"isOverdue"`
	IsNearDeadline     bool `json:"isNearDeadline"`
	DaysRemaining      *int `json:"daysRemaining,omitempty"` // nil when the workflow has no deadline
}

// Compute derives the state of w at now. A negative threshold falls back to DefaultNearDeadlineThreshold;
// a zero threshold disables the near-deadline window.
func Compute(w *model.Workflow, now time.Time, threshold time.Duration) State {
	if threshold < 0 {
		threshold = DefaultNearDeadlineThreshold
	}

	terminal := w.IsTerminal()
	state := State{
		ProgressPercentage: ProgressPercentage(w.CurrentStep, w.TotalSteps),
		IsTerminal:         terminal,
	}

	if w.Deadline == nil {
		return state
	}

	remaining := w.Deadline.Sub(now)
	days := DaysRemaining(*w.Deadline, now)
	state.DaysRemaining = &days

	if terminal {
		return state
	}
	state.IsOverdue = w.Deadline.Before(now)
	state.IsNearDeadline = threshold > 0 && !state.IsOverdue && remaining <= threshold
	return state
}

// ProgressPercentage returns round(100*current/total) clamped to [0,100], or 0 when total is not positive.
func ProgressPercentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(current) / float64(total)))
	return max(0, min(pct, 100))
}

// DaysRemaining returns ceil((deadline-now) in days); negative once the deadline has passed.
func DaysRemaining(deadline, now time.Time) int {
	return int(math.Ceil(float64(deadline.Sub(now)) / float64(day)))
}

// IsOverdue reports whether w has a passed deadline and is still open.
func IsOverdue(w *model.Workflow, now time.Time) bool {
	return w.Deadline != nil && w.Deadline.Before(now) && !w.IsTerminal()
}

// IsNearDeadline reports whether w is open, not overdue and due within threshold.
func IsNearDeadline(w *model.Workflow, now time.Time, threshold time.Duration) bool {
	return Compute(w, now, threshold).IsNearDeadline
}
