package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(concurrency int) *TaskRunner {
	retry := NewRetryPolicy(1, time.Millisecond, 0, logr.Discard())
	return NewTaskRunner(concurrency, 0, retry, logr.Discard())
}

func TestTaskRunner_NeverExceedsConcurrencyLimit(t *testing.T) {
	const limit = 3
	var current, peak atomic.Int32

	runner := testRunner(limit)
	items := GenerateItems("cap", 10)

	res := runner.Run(context.Background(), "stage", items, func(_ context.Context, _ Item) (string, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return "", nil
	})

	assert.Equal(t, 10, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestTaskRunner_RecordsExactlyOneOutcomePerItem(t *testing.T) {
	var mu sync.Mutex
	seen := map[Item]int{}

	runner := testRunner(4)
	items := GenerateItems("once", 25)

	res := runner.Run(context.Background(), "stage", items, func(_ context.Context, item Item) (string, error) {
		mu.Lock()
		seen[item]++
		mu.Unlock()
		return "", nil
	})

	require.Len(t, seen, 25)
	for item, n := range seen {
		assert.Equal(t, 1, n, "item %s ran %d times", item, n)
	}
	assert.Equal(t, 25, res.SuccessCount+res.FailureCount)
	assert.ElementsMatch(t, items, res.Successes)
}

func TestTaskRunner_EmptyItemsReturnsImmediately(t *testing.T) {
	var calls atomic.Int32

	runner := testRunner(4)
	res := runner.Run(context.Background(), "stage", nil, func(_ context.Context, _ Item) (string, error) {
		calls.Add(1)
		return "", nil
	})

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	assert.Empty(t, res.Successes)
	assert.Equal(t, "stage", res.Name)
}

func TestTaskRunner_FailuresAreContained(t *testing.T) {
	runner := testRunner(4)
	items := GenerateItems("mix", 10)

	failing := map[Item]bool{items[1]: true, items[4]: true, items[7]: true}

	res := runner.Run(context.Background(), "stage", items, func(_ context.Context, item Item) (string, error) {
		if failing[item] {
			// Permanent so the test does not wait out retry sleeps.
			return "", Permanent(errors.New("permission denied on item"))
		}
		return "", nil
	})

	assert.Equal(t, 7, res.SuccessCount)
	assert.Equal(t, 3, res.FailureCount)
	for item := range failing {
		assert.NotContains(t, res.Successes, item)
	}
}

func TestTaskRunner_CancellationStopsSpawning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{}, 1)
	runner := testRunner(1)
	items := GenerateItems("stop", 6)

	var ran atomic.Int32
	done := make(chan *StageResult, 1)
	go func() {
		done <- runner.Run(ctx, "stage", items, func(_ context.Context, _ Item) (string, error) {
			ran.Add(1)
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(50 * time.Millisecond)
			return "", nil
		})
	}()

	<-started
	cancel()

	select {
	case res := <-done:
		// Every item has exactly one outcome even though most never ran.
		assert.Equal(t, len(items), res.SuccessCount+res.FailureCount)
		assert.Less(t, ran.Load(), int32(len(items)))
		assert.Positive(t, res.FailureCount)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestResultSink_ConcurrentRecordsAreNotLost(t *testing.T) {
	sink := NewResultSink()
	items := GenerateItems("sink", 100)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item Item) {
			defer wg.Done()
			var err error
			if i%4 == 0 {
				err = errors.New("boom")
			}
			sink.Record(item, TaskOutcome{Item: item, Err: err})
		}(i, item)
	}
	wg.Wait()

	_, ok, failed, complete := sink.Snapshot()
	assert.False(t, complete, "sink must stay partial until sealed")
	assert.Equal(t, 75, ok)
	assert.Equal(t, 25, failed)

	sink.seal()
	successes, ok, _, complete := sink.Snapshot()
	assert.True(t, complete)
	assert.Len(t, successes, ok)
}

func TestGenerateItems_Format(t *testing.T) {
	items := GenerateItems("demo", 12)

	require.Len(t, items, 12)
	assert.Regexp(t, `^demo-[0-9a-f]{6}-001$`, string(items[0]))
	assert.Regexp(t, `^demo-[0-9a-f]{6}-012$`, string(items[11]))

	// All items of one run share the salt; two runs do not.
	other := GenerateItems("demo", 1)
	assert.NotEqual(t, string(items[0]), string(other[0]))
}
