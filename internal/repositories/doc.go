// Package repositories provides the data-access layer for playlists and their items.
//
// # Repositories
//
//   - [PlaylistRepository] : CRUD over the playlists table, plus the live playlist list
//   - [PlaylistItemRepository] : membership, counts and projections over playlist_items
//
// Both borrow a [Conn] for every call rather than owning a connection. Reads run on
// the reader pool; writes run inside a single transaction scope on the writer,
// which notifies the invalidation tracker with the tables written once it commits.
// All calls are executed on the worker pool and honour the caller's context.
//
// # Live queries
//
// GetAll and GetItemsForPlaylist return an [invalidation.Query] rather than a slice.
// Subscribe to it for pushed updates or call Get for the current value.
//
// # Errors
//
// Driver errors are classified by [shared.ClassifyError]:
//   - [shared.ErrConstraint] : foreign-key, not-null or uniqueness violation
//   - [shared.ErrStorage] : any other engine failure, diagnostic preserved
//
// A missing row is not an error: point lookups return nil and counts return zero.
package repositories
