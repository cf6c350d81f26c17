package executor

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// Stage pairs a named task with an optional settling delay to wait after the
// stage completes, before the next one starts. The delay is a deliberate
// fixed sleep: remote-side propagation is not observable, so there is
// nothing to poll.
type Stage struct {
	Name        string
	Task        Task
	SettleAfter time.Duration
}

// PipelineRun is the aggregate outcome of a pipeline: one StageResult per
// executed stage, the full wall-clock duration, and whether the run was
// aborted early because a leading stage produced zero successes.
type PipelineRun struct {
	Planned  int
	Stages   []StageResult
	Duration time.Duration
	Aborted  bool
}

// Completed reports whether the final stage executed.
func (r *PipelineRun) Completed() bool { return !r.Aborted }

// Pipeline sequences stages so that stage k+1 consumes exactly the items
// that succeeded in stage k. Items that fail a stage are dropped for the
// rest of the run; retrying happens only inside a stage's RetryPolicy.
type Pipeline struct {
	runner *TaskRunner
	stages []Stage
	log    logr.Logger
}

func NewPipeline(runner *TaskRunner, stages []Stage, log logr.Logger) *Pipeline {
	return &Pipeline{runner: runner, stages: stages, log: log}
}

// Run executes the stages in order against items. A leading stage with zero
// successes aborts the run before the next stage's task is ever invoked.
// The final stage always completes the run, whatever its failure count.
func (p *Pipeline) Run(ctx context.Context, items []Item) *PipelineRun {
	start := time.Now()
	run := &PipelineRun{Planned: len(items)}

	current := items
	for i, stage := range p.stages {
		p.log.Info("stage starting", "stage", stage.Name, "items", len(current))
		res := p.runner.Run(ctx, stage.Name, current, stage.Task)
		run.Stages = append(run.Stages, *res)
		p.log.Info("stage finished", "stage", stage.Name, "succeeded", res.SuccessCount, "failed", res.FailureCount, "duration", res.Duration.String())

		if i == len(p.stages)-1 {
			break
		}
		if res.SuccessCount == 0 {
			p.log.Info("no successes, aborting pipeline", "stage", stage.Name)
			run.Aborted = true
			break
		}
		if stage.SettleAfter > 0 {
			p.log.Info("settling before next stage", "after", stage.Name, "delay", stage.SettleAfter.String())
			if !p.settle(ctx, stage.SettleAfter) {
				run.Aborted = true
				break
			}
		}
		current = res.Successes
	}

	run.Duration = time.Since(start)
	return run
}

// settle waits for the fixed delay, returning false if ctx is cancelled
// first.
func (p *Pipeline) settle(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
