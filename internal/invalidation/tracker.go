package invalidation

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/shared"
	"golang.org/x/time/rate"
)

const defaultRefreshTimeout = 10 * time.Second

// Options configures a [Tracker].
type Options struct {
	// MaxRefreshPerSecond caps recompute rounds. Zero means unlimited.
	// Commits arriving while a round waits are folded into it.
	MaxRefreshPerSecond float64
	// RefreshTimeout bounds a single query re-execution.
	RefreshTimeout time.Duration
	Logger         *log.Logger
}

// entry is the type-erased view of a [Query] the tracker works with.
type entry interface {
	key() string
	dependsOn() []string
	invalidate()
	isDirty() bool
	listenerCount() int
	refresh(ctx context.Context) error
	closeAll()
}

// Tracker is the table-keyed registry of live queries and the recompute loop that serves them.
type Tracker struct {
	logger         *log.Logger
	limiter        *rate.Limiter
	refreshTimeout time.Duration

	mu      sync.Mutex
	queries map[string]entry
	byTable map[string]map[string]entry
	pending map[string]struct{}
	closed  bool

	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewTracker creates a tracker and starts its recompute loop.
func NewTracker(opts Options) *Tracker {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}

	limit := rate.Inf
	if opts.MaxRefreshPerSecond > 0 {
		limit = rate.Limit(opts.MaxRefreshPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		logger:         opts.Logger,
		limiter:        rate.NewLimiter(limit, 1),
		refreshTimeout: opts.RefreshTimeout,
		queries:        make(map[string]entry),
		byTable:        make(map[string]map[string]entry),
		pending:        make(map[string]struct{}),
		wake:           make(chan struct{}, 1),
		ctx:            ctx,
		cancel:         cancel,
		stopped:        make(chan struct{}),
	}

	go t.run()
	return t
}

// Notify records a commit that wrote tables. It never blocks on recomputation.
func (t *Tracker) Notify(tables ...string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	queued := 0
	for _, table := range tables {
		for k, e := range t.byTable[table] {
			e.invalidate()
			if e.listenerCount() > 0 {
				t.pending[k] = struct{}{}
				queued++
			}
		}
	}
	t.mu.Unlock()

	t.logger.Debug("commit observed", "tables", tables, "queued", queued)
	if queued > 0 {
		t.signal()
	}
}

// Len reports how many live queries are registered, which is those with listeners.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queries)
}

// Close stops the recompute loop and closes every open subscription.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	entries := make([]entry, 0, len(t.queries))
	for _, e := range t.queries {
		entries = append(entries, e)
	}
	t.queries = make(map[string]entry)
	t.byTable = make(map[string]map[string]entry)
	t.pending = make(map[string]struct{})
	t.mu.Unlock()

	t.cancel()
	<-t.stopped

	for _, e := range entries {
		e.closeAll()
	}
}

func (t *Tracker) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// schedule queues k for the next recompute round.
func (t *Tracker) schedule(k string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.pending[k] = struct{}{}
	t.mu.Unlock()
	t.signal()
}

// registerLocked indexes e. Caller holds t.mu.
func (t *Tracker) registerLocked(e entry) {
	k := e.key()
	t.queries[k] = e
	for _, table := range e.dependsOn() {
		if t.byTable[table] == nil {
			t.byTable[table] = make(map[string]entry)
		}
		t.byTable[table][k] = e
	}
}

// holds reports whether e is the registered entry for its key.
func (t *Tracker) holds(e entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queries[e.key()] == e
}

// unregisterLocked drops e if it is still the registered entry for its key and
// reports whether it did. Caller holds t.mu.
func (t *Tracker) unregisterLocked(e entry) bool {
	k := e.key()
	if t.queries[k] != e {
		return false
	}
	delete(t.queries, k)
	delete(t.pending, k)
	for _, table := range e.dependsOn() {
		delete(t.byTable[table], k)
		if len(t.byTable[table]) == 0 {
			delete(t.byTable, table)
		}
	}
	return true
}

func (t *Tracker) run() {
	defer close(t.stopped)

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.wake:
		}

		if err := t.limiter.Wait(t.ctx); err != nil {
			return
		}

		t.mu.Lock()
		batch := make([]entry, 0, len(t.pending))
		for k := range t.pending {
			if e, ok := t.queries[k]; ok {
				batch = append(batch, e)
			}
		}
		t.pending = make(map[string]struct{})
		t.mu.Unlock()

		for _, e := range batch {
			if t.ctx.Err() != nil {
				return
			}
			if e.listenerCount() == 0 || !e.isDirty() {
				continue
			}

			ctx, cancel := context.WithTimeout(t.ctx, t.refreshTimeout)
			start := time.Now()
			if err := e.refresh(ctx); err != nil {
				t.logger.Error("live query refresh failed", "query", e.key(), "error", err)
			} else {
				t.logger.Debug("live query refreshed", "query", e.key(), "took", time.Since(start))
			}
			cancel()
		}
	}
}
