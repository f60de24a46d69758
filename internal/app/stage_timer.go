package app

import (
	"sync"
	"time"
)

// StageTimer records how long each pipeline stage took in the current invocation
type StageTimer struct {
	mu        sync.Mutex
	durations map[Stage]time.Duration
}

// NewStageTimer creates an empty stage timer
func NewStageTimer() *StageTimer {
	return &StageTimer{durations: make(map[Stage]time.Duration)}
}

// Track starts timing a stage and returns a function that stops the clock
func (st *StageTimer) Track(stage Stage) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		st.mu.Lock()
		st.durations[stage] = elapsed
		st.mu.Unlock()
	}
}

// Durations returns a copy of the recorded stage durations
func (st *StageTimer) Durations() map[Stage]time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make(map[Stage]time.Duration, len(st.durations))
	for stage, d := range st.durations {
		out[stage] = d
	}
	return out
}

// Total returns the sum of all recorded stage durations
func (st *StageTimer) Total() time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()

	var total time.Duration
	for _, d := range st.durations {
		total += d
	}
	return total
}
