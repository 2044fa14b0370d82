package shutdown

import (
	"context"
	"sort"
	"sync"
)

// ShutdownFunc is the signature for a registered cleanup handler: stop a
// supervised llama-server, close a switcher's current context, flush the
// logger, etc.
type ShutdownFunc func(ctx context.Context) error

type entry struct {
	name     string
	priority int
	fn       ShutdownFunc
}

// Registry holds an insertion-ordered set of cleanup handlers and runs them
// lowest-priority-first at shutdown. Typical priorities in this module:
// 10 for flushing the logger, 20 for closing the switcher's current
// process, 30+ for anything that should run only after the server is gone
// (e.g. removing a stale lock file left by a crashed install).
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends fn. A registration after Run has already executed is a
// no-op rather than an error — a component that registers late during
// shutdown (e.g. from within another handler) should not panic the
// shutdown sequence.
func (r *Registry) Register(name string, priority int, fn ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, priority: priority, fn: fn})
}

// Run executes every registered handler in ascending priority order,
// running all of them regardless of individual failures, and returns the
// collected errors. Run is idempotent: a second call returns nil without
// re-running anything.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ordered := r.orderedLocked()
	r.mu.Unlock()

	var errs []error
	for _, e := range ordered {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Names returns registered handler names in the order Run would call them.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ordered := r.orderedLocked()
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.name
	}
	return names
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// orderedLocked returns a priority-sorted copy of entries. Callers must
// hold r.mu.
func (r *Registry) orderedLocked() []entry {
	ordered := make([]entry, len(r.entries))
	copy(ordered, r.entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].priority < ordered[j].priority })
	return ordered
}
