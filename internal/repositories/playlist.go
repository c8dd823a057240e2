package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/worker"
)

// PlaylistRepository handles CRUD over the playlists table.
type PlaylistRepository struct {
	conn Conn
}

// NewPlaylistRepository creates a PlaylistRepository borrowing conn
func NewPlaylistRepository(conn Conn) *PlaylistRepository {
	return &PlaylistRepository{conn: conn}
}

// Insert adds a playlist and returns its identifier.
//
// A zero ID lets the store assign the next one. An empty name violates NOT NULL
// and fails with a constraint error.
func (r *PlaylistRepository) Insert(ctx context.Context, p models.Playlist) (int64, error) {
	query := `
		INSERT INTO playlists (id, name, createdAt)
		VALUES (?, ?, ?)
	`

	return write(ctx, r.conn, "insert playlist", []string{TablePlaylists},
		func(ctx context.Context, tx *sql.Tx) (int64, error) {
			res, err := tx.ExecContext(ctx, query, nullID(p.ID), nullString(p.Name), p.CreatedAt)
			if err != nil {
				return 0, err
			}
			return res.LastInsertId()
		})
}

// Update replaces every field of the playlist with the same ID.
//
// No matching row is not an error.
func (r *PlaylistRepository) Update(ctx context.Context, p models.Playlist) error {
	query := `
		UPDATE playlists
		SET name = ?, createdAt = ?
		WHERE id = ?
	`

	n, err := write(ctx, r.conn, "update playlist", []string{TablePlaylists},
		func(ctx context.Context, tx *sql.Tx) (int64, error) {
			res, err := tx.ExecContext(ctx, query, nullString(p.Name), p.CreatedAt, p.ID)
			if err != nil {
				return 0, err
			}
			return res.RowsAffected()
		})
	if err != nil {
		return err
	}

	if n == 0 {
		r.conn.Logger().Debug("update matched no playlist", "id", p.ID)
	}
	return nil
}

// Delete removes the playlist with p's ID and, by cascade, its items.
func (r *PlaylistRepository) Delete(ctx context.Context, p models.Playlist) error {
	return r.DeleteByID(ctx, p.ID)
}

// DeleteByID removes a playlist and, by cascade, its items.
func (r *PlaylistRepository) DeleteByID(ctx context.Context, id int64) error {
	tables := []string{TablePlaylists, TablePlaylistItems}
	_, err := write(ctx, r.conn, "delete playlist", tables,
		func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
			_, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
			return struct{}{}, err
		})
	return err
}

// GetByID returns the playlist or nil when absent.
func (r *PlaylistRepository) GetByID(ctx context.Context, id int64) (*models.Playlist, error) {
	return read(ctx, r.conn, "get playlist", func(ctx context.Context, db *sql.DB) (*models.Playlist, error) {
		return getPlaylist(ctx, db, id)
	})
}

// GetByIDAsync is [PlaylistRepository.GetByID] returning a handle instead of waiting.
func (r *PlaylistRepository) GetByIDAsync(ctx context.Context, id int64) *worker.Future[*models.Playlist] {
	return readAsync(ctx, r.conn, "get playlist", func(ctx context.Context, db *sql.DB) (*models.Playlist, error) {
		return getPlaylist(ctx, db, id)
	})
}

// GetAll returns the live list of playlists, newest first.
func (r *PlaylistRepository) GetAll() *invalidation.Query[models.Playlist] {
	query := `
		SELECT id, name, createdAt
		FROM playlists
		ORDER BY createdAt DESC, id DESC
	`

	return live(r.conn, []string{TablePlaylists}, scanPlaylist, query)
}

func getPlaylist(ctx context.Context, db *sql.DB, id int64) (*models.Playlist, error) {
	query := `
		SELECT id, name, createdAt
		FROM playlists
		WHERE id = ?
	`

	var p models.Playlist
	err := db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPlaylist(rows *sql.Rows) (models.Playlist, error) {
	var p models.Playlist
	err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt)
	return p, err
}
