package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/repositories"
	"github.com/desertthunder/plstore/internal/shared"
	"github.com/desertthunder/plstore/internal/worker"
)

// Options configures [Open].
type Options struct {
	// Path is the database file, or [shared.MemoryPath].
	Path        string
	BusyTimeout time.Duration
	MaxReaders  int
	WAL         bool

	Workers             int
	MaxRefreshPerSecond float64
	RefreshTimeout      time.Duration

	Logger *log.Logger
}

// OptionsFromConfig maps a loaded configuration onto [Options].
func OptionsFromConfig(cfg *shared.Config, logger *log.Logger) Options {
	return Options{
		Path:                cfg.Database.Path,
		BusyTimeout:         cfg.Database.BusyTimeout(),
		MaxReaders:          cfg.Database.MaxReaders,
		WAL:                 cfg.Database.WAL,
		Workers:             cfg.Workers.Size,
		MaxRefreshPerSecond: cfg.Live.MaxRefreshPerSecond,
		RefreshTimeout:      cfg.Live.RefreshTimeout(),
		Logger:              logger,
	}
}

// DB is an open store. It is safe for concurrent use.
type DB struct {
	path    string
	reader  *sql.DB
	writer  *sql.DB
	tracker *invalidation.Tracker
	workers *worker.Pool
	logger  *log.Logger

	playlists func() *repositories.PlaylistRepository
	items     func() *repositories.PlaylistItemRepository

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the store at opts.Path.
//
// Returns a [shared.SchemaError] when an existing file does not match the expected schema.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: database path is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxReaders <= 0 {
		opts.MaxReaders = 4
	}

	logger := shared.WithLogger(opts.Logger, "component", "store")
	memory := opts.Path == shared.MemoryPath

	if !memory {
		if err := ensureDir(opts.Path); err != nil {
			return nil, shared.ClassifyError("open", err)
		}
	}

	writer, err := shared.NewDatabase(shared.DSN(opts.Path, shared.DSNOptions{
		BusyTimeout: opts.BusyTimeout,
		WAL:         opts.WAL && !memory,
		ImmediateTx: true,
	}))
	if err != nil {
		return nil, shared.ClassifyError("open writer", err)
	}
	if memory {
		shared.ConfigureDatabase(writer, 1, 1, 0)
	} else {
		shared.ConfigureDatabase(writer, 1, 1, time.Hour)
	}

	if err := ensureSchema(ctx, writer, logger); err != nil {
		writer.Close()
		return nil, err
	}

	reader := writer
	if !memory {
		reader, err = shared.NewDatabase(shared.DSN(opts.Path, shared.DSNOptions{
			BusyTimeout: opts.BusyTimeout,
			ReadOnly:    true,
		}))
		if err != nil {
			writer.Close()
			return nil, shared.ClassifyError("open reader", err)
		}
		shared.ConfigureDatabase(reader, opts.MaxReaders, max(1, opts.MaxReaders/2), time.Hour)
	}

	d := &DB{
		path:   opts.Path,
		reader: reader,
		writer: writer,
		tracker: invalidation.NewTracker(invalidation.Options{
			MaxRefreshPerSecond: opts.MaxRefreshPerSecond,
			RefreshTimeout:      opts.RefreshTimeout,
			Logger:              shared.WithLogger(opts.Logger, "component", "invalidation"),
		}),
		workers: worker.NewPool(opts.Workers, shared.WithLogger(opts.Logger, "component", "worker")),
		logger:  logger,
	}
	d.playlists = sync.OnceValue(func() *repositories.PlaylistRepository {
		return repositories.NewPlaylistRepository(d)
	})
	d.items = sync.OnceValue(func() *repositories.PlaylistItemRepository {
		return repositories.NewPlaylistItemRepository(d)
	})

	logger.Info("opened store", "path", opts.Path, "wal", opts.WAL && !memory, "workers", opts.Workers)
	return d, nil
}

// Path returns the location the store was opened at.
func (d *DB) Path() string { return d.path }

// Reader returns the read-only pool.
func (d *DB) Reader() *sql.DB { return d.reader }

// Tracker returns the invalidation tracker serving live queries.
func (d *DB) Tracker() *invalidation.Tracker { return d.tracker }

// Workers returns the pool blocking storage calls run on.
func (d *DB) Workers() *worker.Pool { return d.workers }

// Logger returns the store's logger.
func (d *DB) Logger() *log.Logger { return d.logger }

// Playlists returns the shared playlist repository, building it on first use.
func (d *DB) Playlists() *repositories.PlaylistRepository { return d.playlists() }

// Items returns the shared playlist item repository, building it on first use.
func (d *DB) Items() *repositories.PlaylistItemRepository { return d.items() }

// Transaction runs fn inside one write transaction.
//
// The transaction commits only if fn returns nil; otherwise every statement is rolled
// back. After commit the tracker is told that tables changed. Cancelling ctx after
// commit has no effect on the data.
func (d *DB) Transaction(ctx context.Context, tables []string, fn func(tx *sql.Tx) error) error {
	if d.closed.Load() {
		return shared.ErrClosed
	}

	tx, err := d.writer.BeginTx(ctx, nil)
	if err != nil {
		return shared.ClassifyError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return shared.ClassifyError("commit", err)
	}

	if len(tables) > 0 {
		d.tracker.Notify(tables...)
	}
	d.logger.Debug("committed", "tables", tables)
	return nil
}

// ClearAll deletes every playlist and item, then reclaims the file space.
//
// Foreign-key checks are deferred to commit so the deletion order does not matter.
// This cannot be undone.
func (d *DB) ClearAll(ctx context.Context) error {
	tables := []string{repositories.TablePlaylists, repositories.TablePlaylistItems}

	_, err := worker.Do(ctx, d.workers, func(ctx context.Context) (struct{}, error) {
		err := d.Transaction(ctx, tables, func(tx *sql.Tx) error {
			for _, stmt := range []string{
				"PRAGMA defer_foreign_keys = TRUE",
				"DELETE FROM playlists",
				"DELETE FROM playlist_items",
			} {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return struct{}{}, shared.ClassifyError("clear all", err)
		}

		var busy, logFrames, checkpointed int
		if err := d.writer.QueryRowContext(ctx, "PRAGMA wal_checkpoint(FULL)").Scan(&busy, &logFrames, &checkpointed); err != nil {
			return struct{}{}, shared.ClassifyError("checkpoint", err)
		}
		if _, err := d.writer.ExecContext(ctx, "VACUUM"); err != nil {
			return struct{}{}, shared.ClassifyError("vacuum", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	d.logger.Warn("cleared all tables", "path", d.path)
	return nil
}

// WatchExternal polls the file's data version every interval and invalidates both
// tables when it moves, so live queries also see commits made by other processes.
// It blocks until ctx is done. In-memory stores have no other writers and just wait.
func (d *DB) WatchExternal(ctx context.Context, every time.Duration) error {
	if d.closed.Load() {
		return shared.ErrClosed
	}
	if every <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", shared.ErrInvalidArgument)
	}
	if d.reader == d.writer {
		<-ctx.Done()
		return nil
	}

	conn, err := d.reader.Conn(ctx)
	if err != nil {
		return shared.ClassifyError("watch external", err)
	}
	defer conn.Close()

	version := func() (int64, error) {
		var v int64
		err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
		return v, err
	}

	last, err := version()
	if err != nil {
		return shared.ClassifyError("watch external", err)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v, err := version()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return shared.ClassifyError("watch external", err)
			}
			if v != last {
				last = v
				d.logger.Debug("data version moved", "version", v)
				d.tracker.Notify(repositories.TablePlaylists, repositories.TablePlaylistItems)
			}
		}
	}
}

// Close stops live-query delivery, drains the worker pool and closes both pools.
// Calls after the first return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.tracker.Close()
		d.workers.Close()

		if d.reader != d.writer {
			if err := d.reader.Close(); err != nil {
				d.closeErr = fmt.Errorf("close reader: %w", err)
			}
		}
		if err := d.writer.Close(); err != nil && d.closeErr == nil {
			d.closeErr = fmt.Errorf("close writer: %w", err)
		}
		d.logger.Info("closed store", "path", d.path)
	})
	return d.closeErr
}

func ensureDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
