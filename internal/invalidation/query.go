package invalidation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/plstore/internal/shared"
)

// Snapshot is one delivered result of a live query.
//
// Rows is shared between all subscribers of the query and must be treated as read-only.
type Snapshot[T any] struct {
	Rows    []T
	Err     error
	Version uint64
}

// Key builds the deduplication key for a query from its SQL text and arguments.
func Key(sql string, args ...any) string {
	return fmt.Sprintf("%q%v", sql, args)
}

// Query is a registered live query with a cached result shared by all of its listeners.
type Query[T any] struct {
	t      *Tracker
	k      string
	tables []string
	exec   func(ctx context.Context) ([]T, error)

	mu       sync.Mutex
	subs     map[*Subscription[T]]struct{}
	rows     []T
	gen      uint64 // bumped by every relevant commit
	validGen uint64 // gen the cached rows were computed at
	computed bool

	// serializes executions so results land in gen order
	refreshMu sync.Mutex
}

// Register returns the live query for key.
//
// key should come from [Key]; tables lists every table exec reads. While a query
// has listeners, Register with the same key and row type returns that instance.
// Otherwise it returns a new query that joins the tracker on its first [Query.Subscribe].
func Register[T any](t *Tracker, key string, tables []string, exec func(ctx context.Context) ([]T, error)) *Query[T] {
	var zero T
	k := fmt.Sprintf("%T|%s", zero, key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.queries[k]; ok {
		if q, ok := e.(*Query[T]); ok {
			return q
		}
	}

	return &Query[T]{
		t:      t,
		k:      k,
		tables: slices.Clone(tables),
		exec:   exec,
		subs:   make(map[*Subscription[T]]struct{}),
	}
}

func (q *Query[T]) key() string         { return q.k }
func (q *Query[T]) dependsOn() []string { return q.tables }

func (q *Query[T]) invalidate() {
	q.mu.Lock()
	q.gen++
	q.mu.Unlock()
}

func (q *Query[T]) isDirty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dirtyLocked()
}

func (q *Query[T]) dirtyLocked() bool {
	return !q.computed || q.validGen != q.gen
}

func (q *Query[T]) listenerCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs)
}

// Listeners reports the number of open subscriptions.
func (q *Query[T]) Listeners() int {
	return q.listenerCount()
}

// Tables returns the tables this query depends on.
func (q *Query[T]) Tables() []string {
	return slices.Clone(q.tables)
}

// refresh re-executes the query if it is dirty and delivers the result to every listener.
func (q *Query[T]) refresh(ctx context.Context) error {
	q.refreshMu.Lock()
	defer q.refreshMu.Unlock()

	q.mu.Lock()
	if !q.dirtyLocked() {
		q.mu.Unlock()
		return nil
	}
	gen := q.gen
	q.mu.Unlock()

	rows, err := q.exec(ctx)

	q.mu.Lock()
	if err == nil {
		q.rows = rows
		q.validGen = gen
		q.computed = true
	}
	subs := make([]*Subscription[T], 0, len(q.subs))
	for s := range q.subs {
		subs = append(subs, s)
	}
	q.mu.Unlock()

	if q.t.ctx.Err() != nil {
		return err
	}

	snap := Snapshot[T]{Rows: rows, Err: err, Version: gen}
	for _, s := range subs {
		s.deliver(snap)
	}
	return err
}

// Get returns the current result. A query with listeners serves its cached rows,
// re-executing first if a commit made them stale; one without listeners always executes.
func (q *Query[T]) Get(ctx context.Context) ([]T, error) {
	if !q.t.holds(q) {
		return q.exec(ctx)
	}

	if q.isDirty() {
		if err := q.refresh(ctx); err != nil {
			return nil, err
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.rows), nil
}

// Subscribe attaches a listener. Its first snapshot is the current result; each
// later snapshot follows a commit to one of the query's tables.
func (q *Query[T]) Subscribe() (*Subscription[T], error) {
	t := q.t
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, shared.ErrClosed
	}

	if e, ok := t.queries[q.k]; ok && e != entry(q) {
		if other, ok := e.(*Query[T]); ok {
			t.mu.Unlock()
			return other.Subscribe()
		}
	}
	if _, ok := t.queries[q.k]; !ok {
		t.registerLocked(q)
	}

	q.mu.Lock()
	s := &Subscription[T]{
		id:     shared.GenerateID(),
		q:      q,
		ch:     make(chan Snapshot[T], 1),
		minGen: q.gen,
	}
	q.subs[s] = struct{}{}
	fresh := !q.dirtyLocked()
	if fresh {
		s.deliver(Snapshot[T]{Rows: q.rows, Version: q.validGen})
	}
	q.mu.Unlock()
	t.mu.Unlock()

	if !fresh {
		t.schedule(q.k)
	}
	return s, nil
}

// detach removes s and drops the query from the registry when it was the last listener.
func (q *Query[T]) detach(s *Subscription[T]) {
	t := q.t
	t.mu.Lock()
	q.mu.Lock()
	delete(q.subs, s)
	if len(q.subs) == 0 && t.unregisterLocked(q) {
		// unobserved from here on; drop the cache
		q.rows = nil
		q.computed = false
		q.gen++
	}
	q.mu.Unlock()
	t.mu.Unlock()
}

func (q *Query[T]) closeAll() {
	q.mu.Lock()
	subs := make([]*Subscription[T], 0, len(q.subs))
	for s := range q.subs {
		subs = append(subs, s)
	}
	q.subs = make(map[*Subscription[T]]struct{})
	q.mu.Unlock()

	for _, s := range subs {
		s.shut()
	}
}

// Subscription is one listener of a [Query].
type Subscription[T any] struct {
	id     string
	q      *Query[T]
	ch     chan Snapshot[T]
	minGen uint64

	mu     sync.Mutex
	closed bool
	last   uint64
	seen   bool
}

// ID identifies the subscription in logs.
func (s *Subscription[T]) ID() string { return s.id }

// Updates delivers snapshots. It is closed by [Subscription.Close] or when the tracker shuts down.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] { return s.ch }

// Close detaches the listener. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.q.detach(s)
	s.shut()
}

func (s *Subscription[T]) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver replaces any undelivered snapshot with snap.
func (s *Subscription[T]) deliver(snap Snapshot[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || snap.Version < s.minGen || (s.seen && snap.Version < s.last) {
		return
	}

	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
	s.last, s.seen = snap.Version, true
}
