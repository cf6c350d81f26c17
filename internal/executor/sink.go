package executor

import "sync"

// ResultSink accumulates task outcomes from concurrent workers. Record is
// safe to call from any number of goroutines; Snapshot returns a partial
// view (complete=false) until the owning stage seals the sink at its join
// barrier.
type ResultSink struct {
	mu           sync.Mutex
	successes    []Item
	successCount int
	failureCount int
	sealed       bool
}

func NewResultSink() *ResultSink {
	return &ResultSink{}
}

// Record stores one outcome. Each item is expected to be recorded exactly
// once per stage; ordering across workers is not preserved.
func (s *ResultSink) Record(item Item, outcome TaskOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outcome.Success() {
		s.successes = append(s.successes, item)
		s.successCount++
		return
	}
	s.failureCount++
}

// Snapshot returns a copy of the recorded successes plus counts. complete is
// false while workers may still be recording.
func (s *ResultSink) Snapshot() (successes []Item, successCount, failureCount int, complete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	successes = make([]Item, len(s.successes))
	copy(successes, s.successes)
	return successes, s.successCount, s.failureCount, s.sealed
}

// seal marks the sink final. Only the stage that owns the sink calls this,
// after all of its workers have joined.
func (s *ResultSink) seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}
