// Package progress tracks per-item completion percentages. Values are
// always clamped to [0,100]. A tracker keeps one ephemeral live value for
// the currently selected item, saved values in memory, and writes through
// to durable Storage on save.
package progress

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/coinsforstudy/backend/internal/metrics"
)

// Clamp bounds v to [0,100].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Tracker holds progress for one scope. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	namespace string
	scope     string
	store     Storage

	saved     map[string]int
	liveItem  string
	liveValue int
	hasLive   bool
}

// NewTracker returns a tracker writing keys "<namespace>:<scope>:<item>".
func NewTracker(namespace, scope string, store Storage) *Tracker {
	return &Tracker{
		namespace: namespace,
		scope:     scope,
		store:     store,
		saved:     map[string]int{},
	}
}

// Key returns the storage key of item.
func (t *Tracker) Key(item string) string {
	return strings.Join([]string{t.namespace, t.scope, item}, ":")
}

// UpdateLive sets the ephemeral value for item. Storage is not touched.
// Setting a live value for a different item replaces the previous one.
func (t *Tracker) UpdateLive(item string, v int) int {
	c := Clamp(v)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveItem, t.liveValue, t.hasLive = item, c, true
	return c
}

// UpdateProgress sets the in-memory saved value without persisting it.
func (t *Tracker) UpdateProgress(item string, v int) int {
	c := Clamp(v)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saved[item] = c
	return c
}

// SaveProgress writes the clamped value to storage and memory. Saving the
// same value again leaves storage unchanged.
func (t *Tracker) SaveProgress(ctx context.Context, item string, v int) (int, error) {
	c := Clamp(v)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Set(ctx, t.Key(item), strconv.Itoa(c)); err != nil {
		return 0, fmt.Errorf("save progress %s: %w", t.Key(item), err)
	}
	t.saved[item] = c
	metrics.RecordProgressSave()
	return c, nil
}

// Progress reads item, preferring the live value, then the saved value,
// then storage, then zero. Stored values that are not integers read as 0.
func (t *Tracker) Progress(ctx context.Context, item string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasLive && t.liveItem == item {
		return t.liveValue, nil
	}
	if v, ok := t.saved[item]; ok {
		return v, nil
	}
	raw, ok, err := t.store.Get(ctx, t.Key(item))
	if err != nil {
		return 0, fmt.Errorf("load progress %s: %w", t.Key(item), err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, nil
	}
	c := Clamp(n)
	t.saved[item] = c
	return c, nil
}

// Live returns the current live item and value.
func (t *Tracker) Live() (item string, v int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liveItem, t.liveValue, t.hasLive
}

// Select makes item current. Selecting another item drops the live value.
func (t *Tracker) Select(item string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasLive && t.liveItem != item {
		t.liveItem, t.liveValue, t.hasLive = "", 0, false
	}
}

// ClearLive drops the live value.
func (t *Tracker) ClearLive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveItem, t.liveValue, t.hasLive = "", 0, false
}

// Clear forgets item everywhere: live, in-memory and storage.
func (t *Tracker) Clear(ctx context.Context, item string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasLive && t.liveItem == item {
		t.liveItem, t.liveValue, t.hasLive = "", 0, false
	}
	delete(t.saved, item)
	if err := t.store.Remove(ctx, t.Key(item)); err != nil {
		return fmt.Errorf("clear progress %s: %w", t.Key(item), err)
	}
	return nil
}
