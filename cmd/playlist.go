package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plstore/internal/formatter"
	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates a playlist stamped with the current time.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := stringArg(cmd, "name")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		id, err := svc.CreatePlaylist(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(map[string]int64{"id": id}, false)
		}
		return r.writeOK("Created playlist %d: %s", id, name)
	})
}

// PlaylistList prints every playlist, newest first.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	return r.withService(ctx, cmd, func(svc *library.Service) error {
		playlists, err := svc.Playlists().Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(playlists, true)
		}
		return r.printPlaylists(playlists)
	})
}

// PlaylistShow prints one playlist with its items.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		export, err := svc.Export(ctx, id)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(export, true)
		}

		r.writePlainHeader(export.Playlist.Name)
		r.writePlain("ID:      %d\n", export.Playlist.ID)
		r.writePlain("Created: %s\n", formatter.FormatTimestamp(export.Playlist.CreatedAt))
		r.writePlain("Items:   %d\n\n", len(export.Items))
		return r.printItems(export.Items)
	})
}

// PlaylistRename renames a playlist.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	name, err := stringArg(cmd, "name")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		if err := svc.RenamePlaylist(ctx, id, name); err != nil {
			return err
		}
		return r.writeOK("Renamed playlist %d to %s", id, name)
	})
}

// PlaylistDelete deletes a playlist and its items.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		if err := svc.DeletePlaylist(ctx, id); err != nil {
			return err
		}
		return r.writeOK("Deleted playlist %d", id)
	})
}

// PlaylistExport renders a playlist in the requested format to a file or stdout.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withService(ctx, cmd, func(svc *library.Service) error {
		export, err := svc.Export(ctx, id)
		if err != nil {
			return err
		}

		if cmd.String("output") == "-" {
			data, err := formatter.Render(export, format)
			if err != nil {
				return err
			}
			if _, err := r.output.Write(data); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		}

		path, err := formatter.WriteExport(export, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("exported playlist", "id", id, "format", format, "path", path)
		return r.writeOK("Exported %d items to %s", len(export.Items), path)
	})
}

func (r *Runner) printPlaylists(playlists []models.Playlist) error {
	if len(playlists) == 0 {
		return r.writeWarn("No playlists")
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		if err := r.writePlain("%4d  %-30s  %s\n", p.ID, p.Name, formatter.FormatTimestamp(p.CreatedAt)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) printItems(items []models.PlaylistItem) error {
	if len(items) == 0 {
		return r.writeWarn("No items")
	}

	for i, item := range items {
		if err := r.writePlain("%3d. %-40s  media %d  added %s\n",
			i+1, item.MediaURI, item.MediaID, formatter.FormatTimestamp(item.AddedAt)); err != nil {
			return err
		}
	}
	return nil
}
