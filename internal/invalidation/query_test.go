package invalidation

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/plstore/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable stands in for a database table: a value plus an execution counter.
type fakeTable struct {
	mu    sync.Mutex
	rows  []string
	execs atomic.Int32
	fail  error
}

func (f *fakeTable) set(rows ...string) {
	f.mu.Lock()
	f.rows = rows
	f.mu.Unlock()
}

func (f *fakeTable) query(ctx context.Context) ([]string, error) {
	f.execs.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]string(nil), f.rows...), nil
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := NewTracker(Options{})
	t.Cleanup(tr.Close)
	return tr
}

func receive[T any](t *testing.T, s *Subscription[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-s.Updates():
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func assertQuiet[T any](t *testing.T, s *Subscription[T]) {
	t.Helper()
	select {
	case snap := <-s.Updates():
		t.Fatalf("unexpected snapshot: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe(t *testing.T) {
	t.Run("first snapshot is the current result", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}
		table.set("a", "b")

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		sub, err := q.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		snap := receive(t, sub)
		require.NoError(t, snap.Err)
		assert.Equal(t, []string{"a", "b"}, snap.Rows)
	})

	t.Run("commit to a dependency pushes a new result", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}
		table.set("a")

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		sub, err := q.Subscribe()
		require.NoError(t, err)
		defer sub.Close()
		receive(t, sub)

		table.set("a", "b")
		tr.Notify("t")

		snap := receive(t, sub)
		assert.Equal(t, []string{"a", "b"}, snap.Rows)
	})

	t.Run("unrelated tables do not trigger re-execution", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		sub, err := q.Subscribe()
		require.NoError(t, err)
		defer sub.Close()
		receive(t, sub)

		tr.Notify("other")
		assertQuiet(t, sub)
		assert.Equal(t, int32(1), table.execs.Load())
	})

	t.Run("subscriber after a commit never sees the older result", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}
		table.set("old")

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		rows, err := q.Get(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"old"}, rows)

		table.set("new")
		tr.Notify("t")

		sub, err := q.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		assert.Equal(t, []string{"new"}, receive(t, sub).Rows)
	})

	t.Run("errors are delivered, not swallowed", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{fail: errors.New("disk gone")}

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		sub, err := q.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		snap := receive(t, sub)
		assert.EqualError(t, snap.Err, "disk gone")
		assert.Nil(t, snap.Rows)
	})
}

func TestDeduplication(t *testing.T) {
	tr := newTestTracker(t)
	table := &fakeTable{}
	table.set("x")

	q1 := Register(tr, Key("SELECT * FROM t WHERE id = ?", int64(1)), []string{"t"}, table.query)
	a, err := q1.Subscribe()
	require.NoError(t, err)
	defer a.Close()
	receive(t, a)

	q2 := Register(tr, Key("SELECT * FROM t WHERE id = ?", int64(1)), []string{"t"}, table.query)
	q3 := Register(tr, Key("SELECT * FROM t WHERE id = ?", int64(2)), []string{"t"}, table.query)

	assert.Same(t, q1, q2)
	assert.NotSame(t, q1, q3)
	assert.Equal(t, 1, tr.Len(), "only queries with listeners are registered")

	b, err := q2.Subscribe()
	require.NoError(t, err)
	defer b.Close()
	receive(t, b)

	assert.Equal(t, 2, q1.Listeners())
	assert.Equal(t, int32(1), table.execs.Load(), "listeners of one query share one execution")

	table.set("y")
	tr.Notify("t")

	assert.Equal(t, []string{"y"}, receive(t, a).Rows)
	assert.Equal(t, []string{"y"}, receive(t, b).Rows)
	assert.Equal(t, int32(2), table.execs.Load())

	t.Run("unlistened handles share the registered query on Subscribe", func(t *testing.T) {
		other := &fakeTable{}
		other.set("z")

		u1 := Register(tr, Key("SELECT * FROM u"), []string{"u"}, other.query)
		u2 := Register(tr, Key("SELECT * FROM u"), []string{"u"}, other.query)
		require.NotSame(t, u1, u2)

		s1, err := u1.Subscribe()
		require.NoError(t, err)
		defer s1.Close()
		receive(t, s1)

		s2, err := u2.Subscribe()
		require.NoError(t, err)
		defer s2.Close()
		receive(t, s2)

		assert.Equal(t, 2, u1.Listeners())
		assert.Equal(t, int32(1), other.execs.Load())
	})
}

func TestGetWithoutListeners(t *testing.T) {
	t.Run("executes every time and stays unregistered", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}
		table.set("a")

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		rows, err := q.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, rows)
		assert.Equal(t, 0, tr.Len())

		table.set("b")
		for i := 0; i < 5; i++ {
			tr.Notify("t")
		}
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(1), table.execs.Load(), "no listener, no recomputation")

		rows, err = q.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, rows)
		assert.Equal(t, int32(2), table.execs.Load())
		assert.Equal(t, 0, tr.Len())
	})

	t.Run("many one-off queries leave nothing behind", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}

		for i := 0; i < 200; i++ {
			q := Register(tr, Key("SELECT * FROM t WHERE id = ?", i), []string{"t"}, table.query)
			_, err := q.Get(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, 0, tr.Len())
	})

	t.Run("listened query serves its clean cache", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}
		table.set("a")

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		sub, err := q.Subscribe()
		require.NoError(t, err)
		defer sub.Close()
		receive(t, sub)

		rows, err := q.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, rows)
		assert.Equal(t, int32(1), table.execs.Load(), "clean cache is served without executing")
		assert.ElementsMatch(t, []string{"t"}, q.Tables())
	})
}

func TestCoalescing(t *testing.T) {
	tr := newTestTracker(t)
	table := &fakeTable{}
	table.set("0")

	q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
	sub, err := q.Subscribe()
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub)

	for _, v := range []string{"1", "2", "3", "4"} {
		table.set(v)
		tr.Notify("t")
	}

	received := 0
	require.Eventually(t, func() bool {
		select {
		case snap := <-sub.Updates():
			received++
			return slices.Equal(snap.Rows, []string{"4"})
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assertQuiet(t, sub)
	assert.LessOrEqual(t, received, int(table.execs.Load())-1, "at most one snapshot per execution, never a backlog")
}

func TestThrottledTracker(t *testing.T) {
	tr := NewTracker(Options{MaxRefreshPerSecond: 5})
	defer tr.Close()

	table := &fakeTable{}
	table.set("0")

	q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
	sub, err := q.Subscribe()
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub)

	for i := 0; i < 20; i++ {
		table.set("burst")
		tr.Notify("t")
	}

	assert.Equal(t, []string{"burst"}, receive(t, sub).Rows)
	assert.Less(t, table.execs.Load(), int32(20), "bursts are folded into fewer executions")
}

func TestUnsubscribe(t *testing.T) {
	t.Run("last listener unregisters the query", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		a, err := q.Subscribe()
		require.NoError(t, err)
		b, err := q.Subscribe()
		require.NoError(t, err)

		a.Close()
		assert.Equal(t, 1, tr.Len())

		b.Close()
		b.Close()
		assert.Equal(t, 0, tr.Len())

		_, open := <-b.Updates()
		for open {
			_, open = <-b.Updates()
		}
	})

	t.Run("resubscribing re-registers", func(t *testing.T) {
		tr := newTestTracker(t)
		table := &fakeTable{}
		table.set("a")

		q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
		s, err := q.Subscribe()
		require.NoError(t, err)
		receive(t, s)
		s.Close()
		require.Equal(t, 0, tr.Len())

		table.set("b")
		tr.Notify("t")

		rows, err := q.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, rows, "a retained handle never serves rows from before a commit")

		s, err = q.Subscribe()
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, []string{"b"}, receive(t, s).Rows)
		assert.Equal(t, 1, tr.Len())

		table.set("c")
		tr.Notify("t")
		assert.Equal(t, []string{"c"}, receive(t, s).Rows)
	})
}

func TestTrackerClose(t *testing.T) {
	tr := NewTracker(Options{})
	table := &fakeTable{}

	q := Register(tr, Key("SELECT * FROM t"), []string{"t"}, table.query)
	sub, err := q.Subscribe()
	require.NoError(t, err)

	tr.Close()
	tr.Close()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Updates():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	_, err = q.Subscribe()
	assert.ErrorIs(t, err, shared.ErrClosed)

	tr.Notify("t")
}
