package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/urfave/cli/v3"
)

// ItemAdd adds media to a playlist unless it is already there.
func (r *Runner) ItemAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := idArg(cmd, "playlist")
	if err != nil {
		return err
	}
	mediaID, err := idArg(cmd, "media")
	if err != nil {
		return err
	}
	uri, err := stringArg(cmd, "uri")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		added, err := svc.AddToPlaylist(ctx, playlistID, models.Media{ID: mediaID, URI: uri})
		if err != nil {
			return fmt.Errorf("failed to add media: %w", err)
		}

		switch {
		case cmd.Bool("json"):
			return r.writeJSON(map[string]bool{"added": added}, false)
		case added:
			return r.writeOK("Added media %d to playlist %d", mediaID, playlistID)
		default:
			return r.writeWarn("Media %d is already in playlist %d", mediaID, playlistID)
		}
	})
}

// ItemRemove removes media from a playlist. Removing absent media is not an error.
func (r *Runner) ItemRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := idArg(cmd, "playlist")
	if err != nil {
		return err
	}
	mediaID, err := idArg(cmd, "media")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		if err := svc.RemoveFromPlaylist(ctx, playlistID, mediaID); err != nil {
			return fmt.Errorf("failed to remove media: %w", err)
		}
		return r.writeOK("Removed media %d from playlist %d", mediaID, playlistID)
	})
}

// ItemList prints a playlist's items in play order.
func (r *Runner) ItemList(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := idArg(cmd, "playlist")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		items, err := svc.Items(playlistID).Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(items, true)
		}
		return r.printItems(items)
	})
}

// ItemURIs prints the playlist's media URIs, one per line, ready for a play queue.
func (r *Runner) ItemURIs(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := idArg(cmd, "playlist")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		uris, err := svc.QueueURIs(ctx, playlistID)
		if err != nil {
			return fmt.Errorf("failed to load uris: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(uris, false)
		}
		if len(uris) == 0 {
			return nil
		}
		return r.writePlain("%s\n", strings.Join(uris, "\n"))
	})
}

// ItemCount prints how many items a playlist holds.
func (r *Runner) ItemCount(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := idArg(cmd, "playlist")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		n, err := svc.ItemCount(ctx, playlistID)
		if err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(map[string]int{"count": n}, false)
		}
		return r.writePlain("%d\n", n)
	})
}

// ItemHas prints whether media is in a playlist.
func (r *Runner) ItemHas(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := idArg(cmd, "playlist")
	if err != nil {
		return err
	}
	mediaID, err := idArg(cmd, "media")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		present, err := svc.Contains(ctx, playlistID, mediaID)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(map[string]bool{"present": present}, false)
		}
		return r.writePlain("%t\n", present)
	})
}
