// Package aggregate summarizes collections of workflows for dashboards and workload balancing.
// All functions are pure and safe for concurrent use; results never depend on input order.
package aggregate

import (
	"bytes"
	"sort"
	"time"

	"github.com/OpenNSW/flowtrack/internal/workflow/derived"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// Group is the set of workflows sharing one effective status.
type Group struct {
	Key         string           `json:"key"`
	DisplayName string           `json:"displayName"`
	Color       string           `json:"color"`
	Custom      bool             `json:"custom"`
	OrderIndex  int              `json:"orderIndex,omitempty"`
	Items       []model.Workflow `json:"items"`
}

// UserWorkload is the number of open workflows assigned to a user.
type UserWorkload struct {
	UserID      string `json:"userId"`
	ActiveCount int    `json:"activeCount"`
}

// DeadlineItem is a workflow listed in the overdue or near-deadline sections of Stats.
type DeadlineItem struct {
	Workflow      model.Workflow `json:"workflow"`
	DaysRemaining int            `json:"daysRemaining"`
}

// Stats is the single-pass summary of a workflow collection.
type Stats struct {
	Total            int                    `json:"total"`
	Active           int                    `json:"active"`
	Terminal         int                    `json:"terminal"`
	CountsByStatus   map[string]int         `json:"countsByStatus"`
	CountsByPriority map[model.Priority]int `json:"countsByPriority"`
	Overdue          []DeadlineItem         `json:"overdue"`
	NearDeadline     []DeadlineItem         `json:"nearDeadline"`
	GeneratedAt      time.Time              `json:"generatedAt"`
}

// GroupByEffectiveStatus groups workflows by custom status item or default status.
// Custom groups come first ordered by orderIndex, then default groups in DefaultStatusOrder,
// then unknown default statuses. Remaining ties are broken by key.
func GroupByEffectiveStatus(workflows []model.Workflow) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, w := range workflows {
		key := w.Status().Key()
		i, ok := index[key]
		if !ok {
			groups = append(groups, Group{Key: key})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].Items = append(groups[i].Items, w)
	}

	// Display fields come from the first member after sorting so stale denormalized copies cannot
	// make the result depend on input order.
	for i := range groups {
		sortWorkflows(groups[i].Items)
		status := groups[i].Items[0].Status()
		groups[i].DisplayName = status.DisplayName()
		groups[i].Color = status.Color()
		if custom, isCustom := status.(model.CustomStatus); isCustom {
			groups[i].Custom = true
			groups[i].OrderIndex = custom.OrderIndex
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		bi, pi := groupRank(groups[i])
		bj, pj := groupRank(groups[j])
		if bi != bj {
			return bi < bj
		}
		if pi != pj {
			return pi < pj
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// groupRank returns the band (custom, default, unknown default) and the position within it.
func groupRank(g Group) (int, int) {
	if g.Custom {
		return 0, g.OrderIndex
	}
	for i, s := range model.DefaultStatusOrder {
		if string(s) == g.Key {
			return 1, i
		}
	}
	return 2, 0
}

// ComputeWorkload counts open workflows per assignee. Assignees whose workflows are all terminal are
// reported with zero; unassigned workflows are skipped. Results are ordered by count descending, then user.
func ComputeWorkload(workflows []model.Workflow) []UserWorkload {
	counts := make(map[string]int)
	for i := range workflows {
		w := &workflows[i]
		if w.AssigneeID == nil || *w.AssigneeID == "" {
			continue
		}
		if _, ok := counts[*w.AssigneeID]; !ok {
			counts[*w.AssigneeID] = 0
		}
		if !w.IsTerminal() {
			counts[*w.AssigneeID]++
		}
	}

	result := make([]UserWorkload, 0, len(counts))
	for user, count := range counts {
		result = append(result, UserWorkload{UserID: user, ActiveCount: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ActiveCount != result[j].ActiveCount {
			return result[i].ActiveCount > result[j].ActiveCount
		}
		return result[i].UserID < result[j].UserID
	})
	return result
}

// LeastLoaded picks the candidate with the fewest open workflows, breaking ties by user ID.
// It returns false when there are no candidates.
func LeastLoaded(workflows []model.Workflow, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(candidates))
	for _, wl := range ComputeWorkload(workflows) {
		counts[wl.UserID] = wl.ActiveCount
	}

	best := ""
	bestCount := -1
	for _, c := range candidates {
		n := counts[c]
		if bestCount < 0 || n < bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best, true
}

// ComputeStats summarizes workflows in one pass. Overdue and near-deadline lists are ordered by deadline, then ID.
func ComputeStats(workflows []model.Workflow, now time.Time, threshold time.Duration) Stats {
	stats := Stats{
		Total:            len(workflows),
		CountsByStatus:   make(map[string]int),
		CountsByPriority: make(map[model.Priority]int),
		Overdue:          make([]DeadlineItem, 0),
		NearDeadline:     make([]DeadlineItem, 0),
		GeneratedAt:      now,
	}

	for i := range workflows {
		w := &workflows[i]
		stats.CountsByStatus[w.Status().Key()]++
		stats.CountsByPriority[w.Priority]++

		state := derived.Compute(w, now, threshold)
		if state.IsTerminal {
			stats.Terminal++
		} else {
			stats.Active++
		}
		switch {
		case state.IsOverdue:
			stats.Overdue = append(stats.Overdue, DeadlineItem{Workflow: *w, DaysRemaining: *state.DaysRemaining})
		case state.IsNearDeadline:
			stats.NearDeadline = append(stats.NearDeadline, DeadlineItem{Workflow: *w, DaysRemaining: *state.DaysRemaining})
		}
	}

	sortByDeadline(stats.Overdue)
	sortByDeadline(stats.NearDeadline)
	return stats
}

func sortByDeadline(items []DeadlineItem) {
	sort.Slice(items, func(i, j int) bool {
		di, dj := items[i].Workflow.Deadline, items[j].Workflow.Deadline
		if !di.Equal(*dj) {
			return di.Before(*dj)
		}
		return bytes.Compare(items[i].Workflow.ID[:], items[j].Workflow.ID[:]) < 0
	})
}

// sortWorkflows orders group members by creation time, then ID.
func sortWorkflows(items []model.Workflow) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return bytes.Compare(items[i].ID[:], items[j].ID[:]) < 0
	})
}
