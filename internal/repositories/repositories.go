package repositories

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/shared"
	"github.com/desertthunder/plstore/internal/worker"
)

// Table names, as used for invalidation.
const (
	TablePlaylists     = "playlists"
	TablePlaylistItems = "playlist_items"
)

// Conn is what a repository borrows from the connection handle.
type Conn interface {
	Reader() *sql.DB
	// Transaction runs fn in one write transaction and, after commit, notifies
	// the tracker that tables changed. Any error from fn rolls everything back.
	Transaction(ctx context.Context, tables []string, fn func(tx *sql.Tx) error) error
	Tracker() *invalidation.Tracker
	Workers() *worker.Pool
	Logger() *log.Logger
}

// read runs fn against the reader pool on a worker.
func read[T any](ctx context.Context, c Conn, op string, fn func(ctx context.Context, db *sql.DB) (T, error)) (T, error) {
	return worker.Do(ctx, c.Workers(), func(ctx context.Context) (T, error) {
		v, err := fn(ctx, c.Reader())
		return v, shared.ClassifyError(op, err)
	})
}

// readAsync is read without waiting.
func readAsync[T any](ctx context.Context, c Conn, op string, fn func(ctx context.Context, db *sql.DB) (T, error)) *worker.Future[T] {
	return worker.Go(ctx, c.Workers(), func(ctx context.Context) (T, error) {
		v, err := fn(ctx, c.Reader())
		return v, shared.ClassifyError(op, err)
	})
}

// write runs fn in a transaction on a worker.
func write[T any](ctx context.Context, c Conn, op string, tables []string, fn func(ctx context.Context, tx *sql.Tx) (T, error)) (T, error) {
	return worker.Do(ctx, c.Workers(), func(ctx context.Context) (T, error) {
		var v T
		err := c.Transaction(ctx, tables, func(tx *sql.Tx) error {
			var err error
			v, err = fn(ctx, tx)
			return err
		})
		if err != nil {
			var zero T
			return zero, shared.ClassifyError(op, err)
		}
		return v, nil
	})
}

// live registers a list query with the tracker, executing it on the worker pool.
func live[T any](c Conn, tables []string, scan func(rows *sql.Rows) (T, error), query string, args ...any) *invalidation.Query[T] {
	exec := func(ctx context.Context) ([]T, error) {
		return read(ctx, c, "live query", func(ctx context.Context, db *sql.DB) ([]T, error) {
			return queryList(ctx, db, scan, query, args...)
		})
	}
	return invalidation.Register(c.Tracker(), invalidation.Key(query, args...), tables, exec)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryList runs query and scans every row. The cursor is released on return, including on cancellation.
func queryList[T any](ctx context.Context, q queryer, scan func(rows *sql.Rows) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// nullString binds an empty string as NULL so the NOT NULL constraint rejects it.
func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// nullID binds a zero identifier as NULL so the store assigns the next one.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
