package models

import (
	"fmt"
	"strings"
)

// Playlist is a user-defined, named collection of media items.
//
// A zero ID asks the store to assign the next identifier on insert.
type Playlist struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
}

// Validate checks that the playlist carries a usable name.
func (p Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}

// PlaylistItem associates a media item with a playlist.
//
// MediaID is opaque to the store; MediaURI is kept denormalized so the
// playlist still resolves if the media catalog changes.
type PlaylistItem struct {
	ID         int64  `json:"id"`
	PlaylistID int64  `json:"playlistId"`
	MediaID    int64  `json:"mediaId"`
	MediaURI   string `json:"mediaUri"`
	AddedAt    int64  `json:"addedAt"` // epoch milliseconds, default ordering
}

// Validate checks the fields the store cannot infer.
func (i PlaylistItem) Validate() error {
	if i.PlaylistID == 0 {
		return fmt.Errorf("playlist id is required")
	}
	if strings.TrimSpace(i.MediaURI) == "" {
		return fmt.Errorf("media uri is required")
	}
	return nil
}

// Media is the slice of a catalog entry that playlists need: its identity and locator.
type Media struct {
	ID  int64  `json:"id"`
	URI string `json:"uri"`
}

// PlaylistExport is a playlist together with its items in play order.
type PlaylistExport struct {
	Playlist Playlist       `json:"playlist"`
	Items    []PlaylistItem `json:"items"`
}
