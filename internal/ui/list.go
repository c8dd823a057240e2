package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/plstore/internal/formatter"
	"github.com/desertthunder/plstore/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = mediaItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	return fmt.Sprintf("#%d • created %s", i.playlist.ID, formatter.FormatTimestamp(i.playlist.CreatedAt))
}

// mediaItem wraps [models.PlaylistItem] to implement [list.Item].
type mediaItem struct {
	item models.PlaylistItem
}

func (i mediaItem) FilterValue() string { return i.item.MediaURI }
func (i mediaItem) Title() string       { return i.item.MediaURI }
func (i mediaItem) Description() string {
	return fmt.Sprintf("media %d • added %s", i.item.MediaID, formatter.FormatTimestamp(i.item.AddedAt))
}

func playlistItems(rows []models.Playlist) []list.Item {
	items := make([]list.Item, len(rows))
	for i, p := range rows {
		items[i] = playlistItem{playlist: p}
	}
	return items
}

func mediaItems(rows []models.PlaylistItem) []list.Item {
	items := make([]list.Item, len(rows))
	for i, it := range rows {
		items[i] = mediaItem{item: it}
	}
	return items
}
