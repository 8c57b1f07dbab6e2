package derived

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newWorkflow(current, total int, deadline *time.Time) *model.Workflow {
	w := &model.Workflow{
		CurrentStep: current,
		TotalSteps:  total,
		Deadline:    deadline,
	}
	w.SetStatus(model.StatusInProgress)
	return w
}

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestCompute_OverdueScenario(t *testing.T) {
	w := newWorkflow(1, 3, at(-24*time.Hour))

	state := Compute(w, now, DefaultNearDeadlineThreshold)

	assert.True(t, state.IsOverdue)
	assert.False(t, state.IsNearDeadline)
	require.NotNil(t, state.DaysRemaining)
	assert.Equal(t, -1, *state.DaysRemaining)
	assert.Equal(t, 33, state.ProgressPercentage)
}

func TestCompute_NearDeadline(t *testing.T) {
	tests := []struct {
		name     string
		deadline *time.Time
		near     bool
		overdue  bool
		days     *int
	}{
		{name: "no deadline", deadline: nil},
		{name: "due in one day", deadline: at(24 * time.Hour), near: true, days: intPtr(1)},
		{name: "due exactly at threshold", deadline: at(3 * 24 * time.Hour), near: true, days: intPtr(3)},
		{name: "due after threshold", deadline: at(3*24*time.Hour + time.Minute), days: intPtr(4)},
		{name: "due now", deadline: at(0), near: true, days: intPtr(0)},
		{name: "one minute late", deadline: at(-time.Minute), overdue: true, days: intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Compute(newWorkflow(1, 2, tt.deadline), now, -1)
			assert.Equal(t, tt.near, state.IsNearDeadline)
			assert.Equal(t, tt.overdue, state.IsOverdue)
			assert.Equal(t, tt.days, state.DaysRemaining)
		})
	}
}

func TestCompute_ZeroThresholdDisablesNearDeadline(t *testing.T) {
	for _, offset := range []time.Duration{time.Minute, 12 * time.Hour, 2 * 24 * time.Hour} {
		state := Compute(newWorkflow(1, 4, at(offset)), now, 0)
		assert.False(t, state.IsNearDeadline, "offset %s", offset)
		assert.False(t, state.IsOverdue, "offset %s", offset)
	}

	state := Compute(newWorkflow(1, 4, at(-time.Hour)), now, 0)
	assert.True(t, state.IsOverdue)
	assert.False(t, state.IsNearDeadline)
}

func TestCompute_TerminalIsNeverOverdueOrNear(t *testing.T) {
	for _, status := range []model.Status{
		model.StatusCompleted,
		model.StatusCanceled,
		model.StatusArchived,
		model.CustomStatus{TemplateID: uuid.New(), ItemID: uuid.New(), Name: "Closed", Final: true},
	} {
		w := newWorkflow(2, 2, at(-48*time.Hour))
		w.SetStatus(status)

		state := Compute(w, now, DefaultNearDeadlineThreshold)
		assert.True(t, state.IsTerminal, model.DescribeStatus(status))
		assert.False(t, state.IsOverdue, model.DescribeStatus(status))
		assert.False(t, state.IsNearDeadline, model.DescribeStatus(status))
		require.NotNil(t, state.DaysRemaining)
		assert.Equal(t, -2, *state.DaysRemaining)
	}
}

func TestCompute_OverdueAndNearDeadlineAreExclusive(t *testing.T) {
	for offset := -5 * 24 * time.Hour; offset <= 5*24*time.Hour; offset += 90 * time.Minute {
		state := Compute(newWorkflow(1, 4, at(offset)), now, 2*24*time.Hour)
		assert.False(t, state.IsOverdue && state.IsNearDeadline, "offset %s", offset)
	}
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0, ProgressPercentage(1, 0))
	assert.Equal(t, 33, ProgressPercentage(1, 3))
	assert.Equal(t, 67, ProgressPercentage(2, 3))
	assert.Equal(t, 100, ProgressPercentage(3, 3))
	assert.Equal(t, 100, ProgressPercentage(5, 3))
	assert.Equal(t, 0, ProgressPercentage(-1, 3))

	for total := 1; total <= 12; total++ {
		prev := -1
		for current := 1; current <= total; current++ {
			pct := ProgressPercentage(current, total)
			assert.GreaterOrEqual(t, pct, prev)
			prev = pct
		}
		assert.Equal(t, 100, prev)
	}
}

func TestIsOverdue(t *testing.T) {
	assert.True(t, IsOverdue(newWorkflow(1, 2, at(-time.Hour)), now))
	assert.False(t, IsOverdue(newWorkflow(1, 2, at(time.Hour)), now))
	assert.False(t, IsOverdue(newWorkflow(1, 2, nil), now))
	assert.True(t, IsNearDeadline(newWorkflow(1, 2, at(time.Hour)), now, time.Hour))
}

func intPtr(v int) *int { return &v }
