// Package store owns the SQLite file behind the playlist repositories.
//
// [Open] creates the version 1 schema on a fresh file and validates the layout and
// fingerprint of an existing one, failing with [shared.ErrSchema] on any drift.
// The returned [DB] keeps two pools:
//
//   - a writer with a single connection, so write transactions are serialized
//   - a read-only reader pool for point lookups and live-query refreshes
//
// Every connection enforces foreign keys. An in-memory store uses one connection for both.
//
// [DB.Transaction] is the only write path. After a successful commit it notifies the
// invalidation tracker with the tables the transaction wrote, and the tracker refreshes
// dependent live queries in the background.
package store
