// Package watch implements a single-latest-value broadcast channel: the
// Go analog of tokio::sync::watch::channel. No example repo in the
// corpus ships this primitive and the standard library has no off-the-shelf
// equivalent, so it is hand-built here. The semantic is load-bearing
// (spec.md §9): an MPMC queue would force execution of intermediate,
// already-superseded directives, which is exactly what Hub->Exchange
// target-order dispatch must avoid.
package watch

import "sync"

// Watch holds the latest value of T and lets any number of readers block
// until a newer value is Set. Readers that call Value never see a queue
// of past values, only ever the current one.
type Watch[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	changed chan struct{}
}

// New constructs a Watch seeded with the given initial value.
func New[T any](initial T) *Watch[T] {
	return &Watch[T]{value: initial, changed: make(chan struct{})}
}

// Set publishes a new value and closes the channel handed out by
// WaitChan, waking every reader blocked on it.
func (w *Watch[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	w.version++
	old := w.changed
	w.changed = make(chan struct{})
	w.mu.Unlock()
	close(old)
}

// Value returns the current value and its version.
func (w *Watch[T]) Value() (T, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, w.version
}

// WaitChan returns a channel that is closed once the version advances
// past lastSeen (already closed if it has). Callers typically loop:
//
//	v, ver := w.Value()
//	for {
//	    use(v)
//	    select {
//	    case <-w.WaitChan(ver):
//	        v, ver = w.Value()
//	    case <-ctx.Done():
//	        return
//	    }
//	}
func (w *Watch[T]) WaitChan(lastSeen uint64) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.version != lastSeen {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return w.changed
}
