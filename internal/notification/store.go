// Package notification is an in-memory notification store. It is created
// once at startup and injected where needed; records do not survive a
// restart.
package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coinsforstudy/backend/internal/metrics"
)

// Notification is one stored record. Read only ever goes from false to
// true. An empty Recipients list means the record is a broadcast.
type Notification struct {
	ID         string            `json:"id"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Read       bool              `json:"read"`
	CreatedAt  time.Time         `json:"created_at"`
	Recipients []string          `json:"recipients,omitempty"`
	Context    map[string]string `json:"context,omitempty"`

	seq uint64
}

// Draft carries the caller-supplied fields of a new notification.
type Draft struct {
	Message    string
	Category   string
	Recipients []string
	Context    map[string]string
}

// Publisher receives every created notification. Failures are logged by
// the store and never reach the caller of Create.
type Publisher interface {
	PublishNotification(ctx context.Context, n Notification) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithPublisher forwards created notifications to p.
func WithPublisher(p Publisher) Option { return func(s *Store) { s.pub = p } }

// Store holds notifications in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []*Notification
	seq   uint64
	now   func() time.Time
	pub   Publisher
	log   logrus.FieldLogger
}

func NewStore(log logrus.FieldLogger, opts ...Option) *Store {
	s := &Store{now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns every record, newest first. Records created at the same
// instant are ordered by insertion, later first.
func (s *Store) List() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(*Notification) bool { return true })
}

// ListFor returns broadcasts plus the records addressed to any of keys,
// newest first. A key is a user's auth id or a "role:<name>" group.
func (s *Store) ListFor(keys ...string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(n *Notification) bool { return addressedTo(n, keys) })
}

// Create stores a new unread notification and returns it.
func (s *Store) Create(ctx context.Context, d Draft) Notification {
	s.mu.Lock()
	s.seq++
	n := &Notification{
		ID:         uuid.NewString(),
		Message:    d.Message,
		Category:   d.Category,
		CreatedAt:  s.now().UTC(),
		Recipients: append([]string(nil), d.Recipients...),
		Context:    copyMap(d.Context),
		seq:        s.seq,
	}
	s.items = append(s.items, n)
	out := clone(n)
	s.mu.Unlock()

	metrics.RecordNotification(out.Category)
	if s.pub != nil {
		if err := s.pub.PublishNotification(ctx, out); err != nil {
			s.log.WithError(err).WithField("notification_id", out.ID).Warn("notification publish failed")
		}
	}
	return out
}

// MarkRead flags id as read. It reports whether the record exists; an
// unknown id is not an error.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			n.Read = true
			return true
		}
	}
	return false
}

// ErrNotAddressed is returned by MarkReadFor for a record that exists but
// is not visible to the given keys.
var ErrNotAddressed = errors.New("notification: not addressed to recipient")

// MarkReadFor is MarkRead limited to records ListFor(keys...) would return.
// It reports whether the flag changed; an unknown id changes nothing and is
// not an error.
func (s *Store) MarkReadFor(id string, keys ...string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID != id {
			continue
		}
		if !addressedTo(n, keys) {
			return false, ErrNotAddressed
		}
		if n.Read {
			return false, nil
		}
		n.Read = true
		return true, nil
	}
	return false, nil
}

// MarkAllRead flags every record as read and returns how many changed.
// Calling it again changes nothing.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, n := range s.items {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed
}

// MarkAllReadFor is MarkAllRead limited to what ListFor(keys...) returns.
func (s *Store) MarkAllReadFor(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, n := range s.items {
		if !n.Read && addressedTo(n, keys) {
			n.Read = true
			changed++
		}
	}
	return changed
}

// UnreadCount returns the number of unread records visible to keys. With
// no keys every record counts.
func (s *Store) UnreadCount(keys ...string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.items {
		if !n.Read && (len(keys) == 0 || addressedTo(n, keys)) {
			count++
		}
	}
	return count
}

func (s *Store) sorted(keep func(*Notification) bool) []Notification {
	out := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		if keep(n) {
			out = append(out, clone(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

func addressedTo(n *Notification, keys []string) bool {
	if len(n.Recipients) == 0 {
		return true
	}
	for _, r := range n.Recipients {
		for _, k := range keys {
			if r == k {
				return true
			}
		}
	}
	return false
}

// RoleKey is the recipient key addressing every user with role name.
func RoleKey(name string) string { return "role:" + name }

func clone(n *Notification) Notification {
	c := *n
	c.Recipients = append([]string(nil), n.Recipients...)
	c.Context = copyMap(n.Context)
	return c
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
