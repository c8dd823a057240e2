package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/shared"
	"github.com/urfave/cli/v3"
)

// Watch prints the playlist list, or one playlist's items with --items, every time
// it changes. Commits from other processes are picked up by polling. Runs until
// interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	var playlistID int64
	if raw := cmd.String("items"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: --items must be an integer, got %q", shared.ErrInvalidArgument, raw)
		}
		playlistID = id
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	polled := make(chan error, 1)
	go func() { polled <- db.WatchExternal(ctx, config.Live.PollInterval()) }()

	svc := library.NewService(db, r.logger)
	asJSON := cmd.Bool("json")

	if playlistID != 0 {
		err = stream(ctx, r.logger, svc.Items(playlistID), func(snap invalidation.Snapshot[models.PlaylistItem]) error {
			if asJSON {
				return r.writeJSON(snap.Rows, false)
			}
			r.writePlainHeader(fmt.Sprintf("Playlist %d @ v%d (%d items)", playlistID, snap.Version, len(snap.Rows)))
			return r.printItems(snap.Rows)
		})
	} else {
		err = stream(ctx, r.logger, svc.Playlists(), func(snap invalidation.Snapshot[models.Playlist]) error {
			if asJSON {
				return r.writeJSON(snap.Rows, false)
			}
			r.writePlain("@ v%d\n", snap.Version)
			return r.printPlaylists(snap.Rows)
		})
	}

	cancel()
	if pollErr := <-polled; err == nil {
		err = pollErr
	}
	return err
}

// stream hands each snapshot of q to render until ctx is done or the store closes.
// Failed refreshes are logged and skipped; the next commit retries them.
func stream[T any](ctx context.Context, logger *log.Logger, q *invalidation.Query[T], render func(invalidation.Snapshot[T]) error) error {
	sub, err := q.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if snap.Err != nil {
				logger.Warn("live query refresh failed", "error", snap.Err, "version", snap.Version)
				continue
			}
			if err := render(snap); err != nil {
				return err
			}
		}
	}
}
