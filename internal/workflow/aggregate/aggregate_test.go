package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/flowtrack/internal/workflow/derived"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

var now = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type option func(*model.Workflow)

func withStatus(s model.Status) option { return func(w *model.Workflow) { w.SetStatus(s) } }
func withAssignee(u string) option    { return func(w *model.Workflow) { w.AssigneeID = &u } }
func withPriority(p model.Priority) option {
	return func(w *model.Workflow) { w.Priority = p }
}
func withDeadline(d time.Duration) option {
	return func(w *model.Workflow) {
		t := now.Add(d)
		w.Deadline = &t
	}
}

func wf(created int, opts ...option) model.Workflow {
	w := model.Workflow{
		BaseModel:   model.BaseModel{ID: uuid.New(), CreatedAt: now.Add(time.Duration(created) * time.Minute)},
		Priority:    model.PriorityMedium,
		CurrentStep: 1,
		TotalSteps:  3,
	}
	w.SetStatus(model.StatusInProgress)
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

func keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestGroupByEffectiveStatus_Ordering(t *testing.T) {
	statusTemplate := uuid.New()
	review := model.CustomStatus{TemplateID: statusTemplate, ItemID: uuid.New(), Name: "Review", ItemColor: "#aaa", OrderIndex: 2}
	draft := model.CustomStatus{TemplateID: statusTemplate, ItemID: uuid.New(), Name: "Draft", ItemColor: "#bbb", OrderIndex: 1}

	workflows := []model.Workflow{
		wf(1, withStatus(model.StatusArchived)),
		wf(2, withStatus(model.DefaultStatus("legacy"))),
		wf(3, withStatus(review)),
		wf(4, withStatus(model.StatusPaused)),
		wf(5),
		wf(6, withStatus(draft)),
		wf(7, withStatus(model.StatusCompleted)),
		wf(8, withStatus(model.StatusCanceled)),
		wf(9, withStatus(review)),
	}

	groups := GroupByEffectiveStatus(workflows)

	assert.Equal(t, []string{
		draft.ItemID.String(),
		review.ItemID.String(),
		"in_progress",
		"paused",
		"completed",
		"canceled",
		"archived",
		"legacy",
	}, keys(groups))

	assert.True(t, groups[0].Custom)
	assert.Equal(t, "Draft", groups[0].DisplayName)
	assert.Equal(t, "#bbb", groups[0].Color)
	assert.Len(t, groups[1].Items, 2)
	assert.Equal(t, "In Progress", groups[2].DisplayName)
	assert.False(t, groups[2].Custom)
}

func TestGroupByEffectiveStatus_DeterministicUnderPermutation(t *testing.T) {
	statusTemplate := uuid.New()
	var workflows []model.Workflow
	for i := 0; i < 40; i++ {
		switch i % 4 {
		case 0:
			workflows = append(workflows, wf(i))
		case 1:
			workflows = append(workflows, wf(i, withStatus(model.StatusPaused)))
		case 2:
			workflows = append(workflows, wf(i, withStatus(model.CustomStatus{
				TemplateID: statusTemplate, ItemID: uuid.NewSHA1(uuid.Nil, []byte{byte(i % 3)}), Name: "c", OrderIndex: 1,
			})))
		default:
			workflows = append(workflows, wf(i%5, withStatus(model.StatusCompleted)))
		}
	}

	expected := GroupByEffectiveStatus(append([]model.Workflow(nil), workflows...))

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 10; round++ {
		shuffled := append([]model.Workflow(nil), workflows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, expected, GroupByEffectiveStatus(shuffled))
	}
}

func TestGroupByEffectiveStatus_Empty(t *testing.T) {
	assert.Empty(t, GroupByEffectiveStatus(nil))
}

func TestComputeWorkload(t *testing.T) {
	workflows := []model.Workflow{
		wf(1, withAssignee("bob")),
		wf(2, withAssignee("alice")),
		wf(3, withAssignee("alice")),
		wf(4, withAssignee("carol"), withStatus(model.StatusCompleted)),
		wf(5, withAssignee("bob"), withStatus(model.StatusPaused)),
		wf(6),
		wf(7, withAssignee("dave"), withStatus(model.CustomStatus{TemplateID: uuid.New(), ItemID: uuid.New(), Final: true})),
	}

	assert.Equal(t, []UserWorkload{
		{UserID: "alice", ActiveCount: 2},
		{UserID: "bob", ActiveCount: 2},
		{UserID: "carol", ActiveCount: 0},
		{UserID: "dave", ActiveCount: 0},
	}, ComputeWorkload(workflows))
}

func TestLeastLoaded(t *testing.T) {
	workflows := []model.Workflow{
		wf(1, withAssignee("alice")),
		wf(2, withAssignee("alice")),
		wf(3, withAssignee("bob")),
	}

	user, ok := LeastLoaded(workflows, []string{"alice", "bob", "erin"})
	require.True(t, ok)
	assert.Equal(t, "erin", user)

	user, ok = LeastLoaded(workflows, []string{"alice", "bob"})
	require.True(t, ok)
	assert.Equal(t, "bob", user)

	_, ok = LeastLoaded(workflows, nil)
	assert.False(t, ok)
}

func TestComputeStats(t *testing.T) {
	overdueLate := wf(1, withDeadline(-2*24*time.Hour), withPriority(model.PriorityUrgent))
	overdueRecent := wf(2, withDeadline(-time.Hour))
	near := wf(3, withDeadline(36*time.Hour), withPriority(model.PriorityHigh))
	far := wf(4, withDeadline(10*24*time.Hour), withPriority(model.PriorityLow))
	doneLate := wf(5, withDeadline(-24*time.Hour), withStatus(model.StatusCompleted))

	stats := ComputeStats([]model.Workflow{near, overdueRecent, far, doneLate, overdueLate}, now, derived.DefaultNearDeadlineThreshold)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.Active)
	assert.Equal(t, 1, stats.Terminal)
	assert.Equal(t, map[string]int{"in_progress": 4, "completed": 1}, stats.CountsByStatus)
	assert.Equal(t, map[model.Priority]int{
		model.PriorityUrgent: 1,
		model.PriorityMedium: 2,
		model.PriorityHigh:   1,
		model.PriorityLow:    1,
	}, stats.CountsByPriority)

	require.Len(t, stats.Overdue, 2)
	assert.Equal(t, overdueLate.ID, stats.Overdue[0].Workflow.ID)
	assert.Equal(t, -2, stats.Overdue[0].DaysRemaining)
	assert.Equal(t, overdueRecent.ID, stats.Overdue[1].Workflow.ID)

	require.Len(t, stats.NearDeadline, 1)
	assert.Equal(t, near.ID, stats.NearDeadline[0].Workflow.ID)
	assert.Equal(t, 2, stats.NearDeadline[0].DaysRemaining)
	assert.Equal(t, now, stats.GeneratedAt)
}
