// Package simulation runs a scenario projection as a paced sequence of
// progress stages for interactive clients.
package simulation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
)

// Stage is one progress report and the pause that precedes it.
type Stage struct {
	Progress int
	Delay    time.Duration
}

// stageProgress is the fixed sequence of reported percentages.
var stageProgress = []int{0, 30, 60, 85, 100}

// Stages pairs the fixed progress sequence with delays in milliseconds.
// Missing delays are zero; extra delays are ignored.
func Stages(delaysMS []int) []Stage {
	stages := make([]Stage, len(stageProgress))
	for i, p := range stageProgress {
		stages[i].Progress = p
		if i < len(delaysMS) && delaysMS[i] > 0 {
			stages[i].Delay = time.Duration(delaysMS[i]) * time.Millisecond
		}
	}
	return stages
}

// ProgressFunc receives each completed stage's percentage.
type ProgressFunc func(progress int)

// Runner projects scenarios and paces progress reporting.
type Runner struct {
	engine *projection.Engine
	stages []Stage
}

// NewRunner creates a Runner over engine with the given stages.
func NewRunner(engine *projection.Engine, stages []Stage) *Runner {
	return &Runner{engine: engine, stages: stages}
}

// Run projects s and then walks the progress stages, calling onProgress
// after each delay. The snapshot is returned only once the final stage is
// reached; cancelling ctx earlier discards it and returns ctx.Err().
// onProgress may be nil.
func (r *Runner) Run(ctx context.Context, s model.Scenario, onProgress ProgressFunc) (model.Snapshot, error) {
	log := zap.L().With(zap.String("component", "simulation"), zap.String("scenario_id", s.ID))

	snap, err := r.engine.ProjectValidated(s.Interventions, s.Policy)
	if err != nil {
		return model.Snapshot{}, err
	}

	start := time.Now()
	for _, st := range r.stages {
		if err := sleep(ctx, st.Delay); err != nil {
			log.Debug("simulation: cancelled", zap.Int("last_progress", st.Progress))
			return model.Snapshot{}, err
		}
		if onProgress != nil {
			onProgress(st.Progress)
		}
	}

	log.Info("simulation: complete",
		zap.Int("interventions", len(s.Interventions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
