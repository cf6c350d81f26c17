package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/semaphore"
)

// Task runs one remote operation for a single item and returns an optional
// output value. Tasks must be safe for concurrent use: many workers invoke
// the same Task for different items.
type Task func(ctx context.Context, item Item) (string, error)

// StageResult is the final snapshot of one stage: the items whose task
// succeeded, aggregate counts, and elapsed duration. It is only constructed
// after every worker of the stage has terminated.
type StageResult struct {
	Name         string
	Successes    []Item
	SuccessCount int
	FailureCount int
	Duration     time.Duration
}

// TaskRunner executes a task over a set of items with at most Concurrency
// task bodies running simultaneously. Each execution is wrapped in the
// configured RetryPolicy.
type TaskRunner struct {
	concurrency int64
	heartbeat   time.Duration
	retry       *RetryPolicy
	log         logr.Logger
}

// NewTaskRunner returns a runner bounded to concurrency simultaneous task
// executions. heartbeat <= 0 disables the periodic liveness log line.
func NewTaskRunner(concurrency int, heartbeat time.Duration, retry *RetryPolicy, log logr.Logger) *TaskRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TaskRunner{
		concurrency: int64(concurrency),
		heartbeat:   heartbeat,
		retry:       retry,
		log:         log,
	}
}

// Run drains items through task and blocks until every launched worker has
// terminated, so the returned StageResult is always final, never partial.
// When ctx is cancelled no further workers are spawned and the remaining
// items are recorded as failures; in-flight attempts run to completion.
func (r *TaskRunner) Run(ctx context.Context, name string, items []Item, task Task) *StageResult {
	start := time.Now()
	if len(items) == 0 {
		return &StageResult{Name: name}
	}

	sink := NewResultSink()
	var completed atomic.Int64

	done := make(chan struct{})
	if r.heartbeat > 0 {
		go r.heartbeatLoop(name, len(items), &completed, done)
	}

	sem := semaphore.NewWeighted(r.concurrency)
	var wg sync.WaitGroup
	for _, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting for a slot. The item never ran,
			// but it still gets exactly one recorded outcome.
			sink.Record(item, TaskOutcome{Item: item, Err: err})
			completed.Add(1)
			continue
		}
		wg.Add(1)
		go func(item Item) {
			defer wg.Done()
			defer sem.Release(1)
			out, err := r.retry.Execute(ctx, string(item), func(ctx context.Context) (string, error) {
				return task(ctx, item)
			})
			sink.Record(item, TaskOutcome{Item: item, Output: out, Err: err})
			completed.Add(1)
			if err != nil {
				r.log.Error(err, "item failed", "stage", name, "item", string(item), "class", Classify(err).String())
			} else {
				r.log.V(1).Info("item done", "stage", name, "item", string(item), "completed", completed.Load(), "total", len(items))
			}
		}(item)
	}

	// Join barrier: the stage result must never be handed off while a
	// worker could still record into the sink.
	wg.Wait()
	close(done)
	sink.seal()

	successes, ok, failed, _ := sink.Snapshot()
	return &StageResult{
		Name:         name,
		Successes:    successes,
		SuccessCount: ok,
		FailureCount: failed,
		Duration:     time.Since(start),
	}
}

func (r *TaskRunner) heartbeatLoop(name string, total int, completed *atomic.Int64, done <-chan struct{}) {
	t := time.NewTicker(r.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			r.log.Info("stage still running", "stage", name, "completed", completed.Load(), "total", total)
		}
	}
}
