package progress

import (
	"strings"
	"sync"
)

// Registry hands out one Tracker per scope so live values outlive a single
// request.
type Registry struct {
	mu        sync.Mutex
	namespace string
	store     Storage
	trackers  map[string]*Tracker
}

func NewRegistry(namespace string, store Storage) *Registry {
	return &Registry{namespace: namespace, store: store, trackers: map[string]*Tracker{}}
}

// Tracker returns the tracker for scope, creating it on first use.
func (r *Registry) Tracker(scope string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[scope]
	if !ok {
		t = NewTracker(r.namespace, scope, r.store)
		r.trackers[scope] = t
	}
	return t
}

// DropPrefix forgets the in-memory state of every scope starting with
// prefix and returns how many were dropped. Stored values are kept.
func (r *Registry) DropPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for scope := range r.trackers {
		if strings.HasPrefix(scope, prefix) {
			delete(r.trackers, scope)
			n++
		}
	}
	return n
}
