// Package library is the application-facing view of the playlist store.
//
// [Service] adds the rules the repositories leave to callers: names are trimmed and
// must be non-empty, timestamps come from a clock, media is added at most once per
// playlist, and renaming or adding to a missing playlist reports [shared.ErrPlaylistNotFound].
package library
