// Package dashboard answers grouped, workload and statistics queries over filtered workflows
// and exports point-in-time snapshots of them.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OpenNSW/flowtrack/internal/export"
	"github.com/OpenNSW/flowtrack/internal/workflow/aggregate"
	"github.com/OpenNSW/flowtrack/internal/workflow/derived"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// WorkflowFinder loads the workflows a dashboard query aggregates over.
type WorkflowFinder interface {
	FindWorkflows(ctx context.Context, filter model.WorkflowFilter, limit int) ([]model.Workflow, error)
}

// SnapshotStore persists exported snapshots.
type SnapshotStore interface {
	Export(ctx context.Context, payload any) (*export.SnapshotMetadata, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Options tune the dashboard. A zero MaxWorkflows falls back to the default limit.
// A negative NearDeadline uses derived.DefaultNearDeadlineThreshold; zero disables the window.
type Options struct {
	NearDeadline time.Duration
	MaxWorkflows int
	Now          func() time.Time
}

const (
	defaultMaxWorkflows = 10000
)

// Service computes dashboard views. Aggregation happens in memory over at most MaxWorkflows rows.
type Service struct {
	finder       WorkflowFinder
	snapshots    SnapshotStore
	nearDeadline time.Duration
	maxWorkflows int
	now          func() time.Time
}

func NewService(finder WorkflowFinder, snapshots SnapshotStore, opts Options) *Service {
	s := &Service{
		finder:       finder,
		snapshots:    snapshots,
		nearDeadline: opts.NearDeadline,
		maxWorkflows: opts.MaxWorkflows,
		now:          opts.Now,
	}
	if s.nearDeadline < 0 {
		s.nearDeadline = derived.DefaultNearDeadlineThreshold
	}
	if s.maxWorkflows <= 0 {
		s.maxWorkflows = defaultMaxWorkflows
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Groups is the response of the groups query.
type Groups struct {
	Groups    []aggregate.Group `json:"groups"`
	Truncated bool              `json:"truncated"`
}

// Workload is the response of the workload query.
type Workload struct {
	Users     []aggregate.UserWorkload `json:"users"`
	Suggested *string                  `json:"suggestedAssignee,omitempty"`
	Truncated bool                     `json:"truncated"`
}

// Stats is the response of the stats query.
type Stats struct {
	aggregate.Stats
	Truncated bool `json:"truncated"`
}

// GroupSummary is a group without its members, as stored in snapshots.
type GroupSummary struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	Custom      bool   `json:"custom"`
	Count       int    `json:"count"`
}

// Snapshot is the document written by ExportSnapshot.
type Snapshot struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Filter      model.WorkflowFilter     `json:"filter"`
	Stats       aggregate.Stats          `json:"stats"`
	Groups      []GroupSummary           `json:"groups"`
	Workload    []aggregate.UserWorkload `json:"workload"`
	Truncated   bool                     `json:"truncated"`
}

// Groups returns the filtered workflows grouped by effective status.
func (s *Service) Groups(ctx context.Context, filter model.WorkflowFilter) (*Groups, error) {
	workflows, truncated, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Groups{Groups: aggregate.GroupByEffectiveStatus(workflows), Truncated: truncated}, nil
}

// Workload returns open workflow counts per assignee. When candidates are given,
// the least loaded of them is suggested.
func (s *Service) Workload(ctx context.Context, filter model.WorkflowFilter, candidates []string) (*Workload, error) {
	workflows, truncated, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := &Workload{Users: aggregate.ComputeWorkload(workflows), Truncated: truncated}
	if user, ok := aggregate.LeastLoaded(workflows, candidates); ok {
		result.Suggested = &user
	}
	return result, nil
}

// Stats returns counts and deadline lists for the filtered workflows.
func (s *Service) Stats(ctx context.Context, filter model.WorkflowFilter) (*Stats, error) {
	workflows, truncated, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Stats{Stats: aggregate.ComputeStats(workflows, s.now(), s.nearDeadline), Truncated: truncated}, nil
}

// BuildSnapshot computes every dashboard view over one load of the filtered workflows.
func (s *Service) BuildSnapshot(ctx context.Context, filter model.WorkflowFilter) (*Snapshot, error) {
	workflows, truncated, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()

	groups := aggregate.GroupByEffectiveStatus(workflows)
	summaries := make([]GroupSummary, len(groups))
	for i, g := range groups {
		summaries[i] = GroupSummary{Key: g.Key, DisplayName: g.DisplayName, Color: g.Color, Custom: g.Custom, Count: len(g.Items)}
	}

	return &Snapshot{
		GeneratedAt: now.UTC(),
		Filter:      filter,
		Stats:       aggregate.ComputeStats(workflows, now, s.nearDeadline),
		Groups:      summaries,
		Workload:    aggregate.ComputeWorkload(workflows),
		Truncated:   truncated,
	}, nil
}

// ExportSnapshot builds a snapshot and writes it to snapshot storage.
func (s *Service) ExportSnapshot(ctx context.Context, filter model.WorkflowFilter) (*export.SnapshotMetadata, *Snapshot, error) {
	snapshot, err := s.BuildSnapshot(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	metadata, err := s.snapshots.Export(ctx, snapshot)
	if err != nil {
		return nil, nil, &model.UnavailableError{Op: "export snapshot", Err: err}
	}
	return metadata, snapshot, nil
}

// OpenSnapshot streams a previously exported snapshot.
func (s *Service) OpenSnapshot(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.snapshots.Open(ctx, key)
}

func (s *Service) load(ctx context.Context, filter model.WorkflowFilter) ([]model.Workflow, bool, error) {
	// one extra row tells whether the limit cut the collection
	workflows, err := s.finder.FindWorkflows(ctx, filter, s.maxWorkflows+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load dashboard workflows: %w", err)
	}
	if len(workflows) > s.maxWorkflows {
		slog.WarnContext(ctx, "dashboard input truncated", "limit", s.maxWorkflows)
		return workflows[:s.maxWorkflows], true, nil
	}
	return workflows, false, nil
}
