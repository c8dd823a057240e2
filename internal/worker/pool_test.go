package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/plstore/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Close()

	got, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestFuture(t *testing.T) {
	t.Run("Await after completion", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		f := Go(context.Background(), p, func(ctx context.Context) (string, error) {
			return "done", nil
		})

		select {
		case <-f.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("future never completed")
		}

		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "done", v)
	})

	t.Run("cancel while waiting", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		started := make(chan struct{})
		release := make(chan struct{})
		observed := make(chan error, 1)

		ctx, cancel := context.WithCancel(context.Background())
		f := Go(ctx, p, func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			observed <- ctx.Err()
			<-release
			return 0, ctx.Err()
		})

		<-started
		cancel()
		_, err := f.Await(context.Background())
		close(release)

		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, <-observed, context.Canceled)
	})

	t.Run("already cancelled context skips the call", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran atomic.Bool
		f := Go(ctx, p, func(ctx context.Context) (int, error) {
			ran.Store(true)
			return 1, nil
		})

		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ran.Load())
	})

	t.Run("panics become storage errors", func(t *testing.T) {
		p := NewPool(1, nil)
		defer p.Close()

		_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
			panic("bad scan")
		})
		assert.ErrorIs(t, err, shared.ErrStorage)
	})
}

func TestPoolClose(t *testing.T) {
	p := NewPool(1, nil)

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), func() { count.Add(1) }))
	}

	p.Close()
	assert.Equal(t, int32(5), count.Load(), "queued jobs should drain before Close returns")

	err := p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, shared.ErrClosed)

	_, err = Do(context.Background(), p, func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, shared.ErrClosed)

	p.Close()
}
