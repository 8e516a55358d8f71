package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives (current, total, path) as items complete.
type ProgressFunc func(current, total int, path string)

// Tracker counts completed items across goroutines and forwards each
// tick to an optional callback. Safe for concurrent use.
type Tracker struct {
	total    atomic.Int32
	current  atomic.Int32
	callback ProgressFunc
}

// NewTracker returns a tracker that invokes callback on each Tick.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add increments the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// SetTotal replaces the expected total.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int32(n))
}

// Tick marks one item as completed.
func (t *Tracker) Tick(path string) {
	current := int(t.current.Add(1))
	total := int(t.total.Load())
	if t.callback != nil {
		t.callback(current, total, path)
	}
}

// Current returns the number of completed items.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the expected total.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker attaches a tracker to the context so the processing layer
// can report per-file progress without threading it explicitly.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker carried by the context, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
