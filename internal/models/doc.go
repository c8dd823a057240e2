// Package models defines the record types persisted by the playlist store.
//
//   - [Playlist] : a named playlist, ordered newest first by CreatedAt
//   - [PlaylistItem] : the association between a playlist and a media item, ordered by AddedAt
//   - [Media] : the identity and locator of a catalog entry, supplied by callers
//
// The types carry no behavior beyond validation. Identifiers of zero mean "assign on insert".
package models
