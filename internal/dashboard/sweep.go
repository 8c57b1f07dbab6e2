package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/OpenNSW/flowtrack/internal/workflow/aggregate"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

const sweepTimeout = 2 * time.Minute

// SweepRecorder receives the outcome of each sweep.
type SweepRecorder interface {
	RecordSweep(stats *aggregate.Stats, err error)
}

// Sweeper periodically computes statistics over all open workflows and exports them as a snapshot.
type Sweeper struct {
	service  *Service
	recorder SweepRecorder
	schedule string
	export   bool
	cron     *cron.Cron
}

// NewSweeper validates schedule (standard five field cron syntax) and prepares the scheduler.
// When export is false the sweep only updates the recorder.
func NewSweeper(service *Service, recorder SweepRecorder, schedule string, export bool) (*Sweeper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	s := &Sweeper{
		service:  service,
		recorder: recorder,
		schedule: schedule,
		export:   export,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(logger),
			cron.Recover(logger),
		)),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to schedule dashboard sweep: %w", err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Sweeper) Start() {
	slog.Info("dashboard sweep scheduled", "schedule", s.schedule, "export", s.export)
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		slog.Info("dashboard sweep stopped")
	case <-ctx.Done():
		slog.Warn("dashboard sweep did not stop in time", "error", ctx.Err())
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		slog.Error("dashboard sweep failed", "error", err)
	}
}

// RunOnce performs a single sweep over all open workflows.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	start := time.Now()
	snapshot, err := s.service.BuildSnapshot(ctx, model.WorkflowFilter{})
	if err != nil {
		s.recorder.RecordSweep(nil, err)
		return err
	}
	s.recorder.RecordSweep(&snapshot.Stats, nil)

	if s.export {
		metadata, err := s.service.snapshots.Export(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("failed to export sweep snapshot: %w", err)
		}
		slog.Info("dashboard sweep exported snapshot", "key", metadata.Key)
	}

	slog.Info("dashboard sweep completed",
		"total", snapshot.Stats.Total,
		"overdue", len(snapshot.Stats.Overdue),
		"nearDeadline", len(snapshot.Stats.NearDeadline),
		"duration", time.Since(start))
	return nil
}
