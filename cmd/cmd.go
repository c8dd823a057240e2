// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes a starter config and creates the schema
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the configuration file and initialize the database",
		Action: r.Setup,
	}
}

// playlistCommand handles playlist CRUD
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.PlaylistCreate,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List playlists, newest first",
				Action:  r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its items",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistShow,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a playlist and its items",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to a file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, m3u, json)",
						Value:   "m3u",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path; '-' writes to stdout",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// itemCommand handles playlist membership
func itemCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "item",
		Usage: "Playlist item operations",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add media to a playlist unless already present",
				Arguments: []cli.Argument{
					playlistArg(),
					&cli.StringArg{Name: "media"},
					&cli.StringArg{Name: "uri"},
				},
				Action: r.ItemAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove media from a playlist",
				Arguments: []cli.Argument{
					playlistArg(),
					&cli.StringArg{Name: "media"},
				},
				Action: r.ItemRemove,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a playlist's items in play order",
				Arguments: []cli.Argument{playlistArg()},
				Action:    r.ItemList,
			},
			{
				Name:      "uris",
				Usage:     "Print a playlist's media URIs in play order",
				Arguments: []cli.Argument{playlistArg()},
				Action:    r.ItemURIs,
			},
			{
				Name:      "count",
				Usage:     "Count a playlist's items",
				Arguments: []cli.Argument{playlistArg()},
				Action:    r.ItemCount,
			},
			{
				Name:  "has",
				Usage: "Check whether media is in a playlist",
				Arguments: []cli.Argument{
					playlistArg(),
					&cli.StringArg{Name: "media"},
				},
				Action: r.ItemHas,
			},
		},
	}
}

// watchCommand streams the live playlist (or item) view
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print the playlist list each time it changes, until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "items",
				Usage: "Watch the items of this playlist id instead",
			},
		},
		Action: r.Watch,
	}
}

// clearCommand wipes both tables
func clearCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every playlist and item, then compact the file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the irreversible deletion",
			},
		},
		Action: r.Clear,
	}
}

// tuiCommand launches the interactive browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse playlists interactively",
		Action: r.TUI,
	}
}

func playlistArg() cli.Argument {
	return &cli.StringArg{Name: "playlist"}
}
