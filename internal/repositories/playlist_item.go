package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/worker"
)

// PlaylistItemRepository handles membership of media in playlists.
type PlaylistItemRepository struct {
	conn Conn
}

// NewPlaylistItemRepository creates a PlaylistItemRepository borrowing conn
func NewPlaylistItemRepository(conn Conn) *PlaylistItemRepository {
	return &PlaylistItemRepository{conn: conn}
}

const insertItemQuery = `
	INSERT INTO playlist_items (id, playlistId, mediaId, mediaUri, addedAt)
	VALUES (?, ?, ?, ?, ?)
`

// Insert adds an item and returns its identifier. A zero ID is assigned by the store.
//
// The referenced playlist must exist.
func (r *PlaylistItemRepository) Insert(ctx context.Context, item models.PlaylistItem) (int64, error) {
	return write(ctx, r.conn, "insert playlist item", []string{TablePlaylistItems},
		func(ctx context.Context, tx *sql.Tx) (int64, error) {
			return insertItem(ctx, tx, item)
		})
}

// InsertIfAbsent inserts item unless its media is already in the playlist.
// The check and the insert share one transaction.
func (r *PlaylistItemRepository) InsertIfAbsent(ctx context.Context, item models.PlaylistItem) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM playlist_items WHERE playlistId = ? AND mediaId = ?
		)
	`

	return write(ctx, r.conn, "insert playlist item", []string{TablePlaylistItems},
		func(ctx context.Context, tx *sql.Tx) (bool, error) {
			var exists bool
			if err := tx.QueryRowContext(ctx, query, item.PlaylistID, item.MediaID).Scan(&exists); err != nil {
				return false, err
			}
			if exists {
				return false, nil
			}
			if _, err := insertItem(ctx, tx, item); err != nil {
				return false, err
			}
			return true, nil
		})
}

// Delete removes the item with the same ID.
func (r *PlaylistItemRepository) Delete(ctx context.Context, item models.PlaylistItem) error {
	_, err := write(ctx, r.conn, "delete playlist item", []string{TablePlaylistItems},
		func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
			_, err := tx.ExecContext(ctx, `DELETE FROM playlist_items WHERE id = ?`, item.ID)
			return struct{}{}, err
		})
	return err
}

// RemoveSongFromPlaylist removes every item for mediaID in the playlist.
// Removing something that is not there succeeds.
func (r *PlaylistItemRepository) RemoveSongFromPlaylist(ctx context.Context, playlistID, mediaID int64) error {
	query := `
		DELETE FROM playlist_items
		WHERE playlistId = ? AND mediaId = ?
	`

	n, err := write(ctx, r.conn, "remove song from playlist", []string{TablePlaylistItems},
		func(ctx context.Context, tx *sql.Tx) (int64, error) {
			res, err := tx.ExecContext(ctx, query, playlistID, mediaID)
			if err != nil {
				return 0, err
			}
			return res.RowsAffected()
		})
	if err != nil {
		return err
	}

	r.conn.Logger().Debug("removed media", "playlist", playlistID, "media", mediaID, "rows", n)
	return nil
}

// GetItemsForPlaylist returns the live item list for a playlist, oldest addition first.
func (r *PlaylistItemRepository) GetItemsForPlaylist(playlistID int64) *invalidation.Query[models.PlaylistItem] {
	query := `
		SELECT id, playlistId, mediaId, mediaUri, addedAt
		FROM playlist_items
		WHERE playlistId = ?
		ORDER BY addedAt ASC, id ASC
	`

	return live(r.conn, []string{TablePlaylistItems}, scanItem, query, playlistID)
}

// GetURIsForPlaylist returns the media URIs of a playlist in addition order.
func (r *PlaylistItemRepository) GetURIsForPlaylist(ctx context.Context, playlistID int64) ([]string, error) {
	return read(ctx, r.conn, "get playlist uris", func(ctx context.Context, db *sql.DB) ([]string, error) {
		return getURIs(ctx, db, playlistID)
	})
}

// GetURIsForPlaylistAsync is [PlaylistItemRepository.GetURIsForPlaylist] returning a handle.
func (r *PlaylistItemRepository) GetURIsForPlaylistAsync(ctx context.Context, playlistID int64) *worker.Future[[]string] {
	return readAsync(ctx, r.conn, "get playlist uris", func(ctx context.Context, db *sql.DB) ([]string, error) {
		return getURIs(ctx, db, playlistID)
	})
}

// IsItemInPlaylist reports whether mediaID is in the playlist.
func (r *PlaylistItemRepository) IsItemInPlaylist(ctx context.Context, playlistID, mediaID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM playlist_items WHERE playlistId = ? AND mediaId = ?
		)
	`

	return read(ctx, r.conn, "check playlist item", func(ctx context.Context, db *sql.DB) (bool, error) {
		var exists bool
		err := db.QueryRowContext(ctx, query, playlistID, mediaID).Scan(&exists)
		return exists, err
	})
}

// GetItemCount returns the number of items in a playlist.
//
// An absent playlist and an empty one both count zero.
func (r *PlaylistItemRepository) GetItemCount(ctx context.Context, playlistID int64) (int, error) {
	return read(ctx, r.conn, "count playlist items", func(ctx context.Context, db *sql.DB) (int, error) {
		var n int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_items WHERE playlistId = ?`, playlistID).Scan(&n)
		return n, err
	})
}

func insertItem(ctx context.Context, tx *sql.Tx, item models.PlaylistItem) (int64, error) {
	res, err := tx.ExecContext(ctx, insertItemQuery,
		nullID(item.ID),
		item.PlaylistID,
		item.MediaID,
		nullString(item.MediaURI),
		item.AddedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func getURIs(ctx context.Context, db *sql.DB, playlistID int64) ([]string, error) {
	query := `
		SELECT mediaUri
		FROM playlist_items
		WHERE playlistId = ?
		ORDER BY addedAt ASC, id ASC
	`

	return queryList(ctx, db, func(rows *sql.Rows) (string, error) {
		var uri string
		err := rows.Scan(&uri)
		return uri, err
	}, query, playlistID)
}

func scanItem(rows *sql.Rows) (models.PlaylistItem, error) {
	var item models.PlaylistItem
	err := rows.Scan(&item.ID, &item.PlaylistID, &item.MediaID, &item.MediaURI, &item.AddedAt)
	return item, err
}
