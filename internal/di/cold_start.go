package di

import (
	"sync"
	"time"
)

// ColdStartTracker remembers when the process started so the first Lambda
// invocation can report its cold start latency.
type ColdStartTracker struct {
	started time.Time
	once    sync.Once
	now     func() time.Time
}

// NewColdStartTracker starts tracking from now.
func NewColdStartTracker() *ColdStartTracker {
	return &ColdStartTracker{started: time.Now(), now: time.Now}
}

// Observe reports whether this is the first call since start and how long
// ago the process started.
func (t *ColdStartTracker) Observe() (cold bool, since time.Duration) {
	t.once.Do(func() { cold = true })
	return cold, t.now().Sub(t.started)
}
