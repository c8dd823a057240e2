package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/repositories"
	"github.com/desertthunder/plstore/internal/shared"
)

// Store supplies the shared repositories.
type Store interface {
	Playlists() *repositories.PlaylistRepository
	Items() *repositories.PlaylistItemRepository
}

// Service manages playlists on behalf of the application.
type Service struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

// NewService creates a Service over st.
func NewService(st Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Service{
		store:  st,
		logger: shared.WithLogger(logger, "component", "library"),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for createdAt and addedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) stamp() int64 {
	return s.now().UnixMilli()
}

// CreatePlaylist stores a new playlist named name and returns its identifier.
func (s *Service) CreatePlaylist(ctx context.Context, name string) (int64, error) {
	p := models.Playlist{Name: strings.TrimSpace(name), CreatedAt: s.stamp()}
	if err := p.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	id, err := s.store.Playlists().Insert(ctx, p)
	if err != nil {
		return 0, err
	}

	s.logger.Info("created playlist", "id", id, "name", p.Name)
	return id, nil
}

// Playlist returns the playlist with id.
func (s *Service) Playlist(ctx context.Context, id int64) (*models.Playlist, error) {
	p, err := s.store.Playlists().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %d", shared.ErrPlaylistNotFound, id)
	}
	return p, nil
}

// RenamePlaylist changes a playlist's name, keeping its creation time.
func (s *Service) RenamePlaylist(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if err := (models.Playlist{Name: name}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	p, err := s.Playlist(ctx, id)
	if err != nil {
		return err
	}

	p.Name = name
	if err := s.store.Playlists().Update(ctx, *p); err != nil {
		return err
	}

	s.logger.Info("renamed playlist", "id", id, "name", name)
	return nil
}

// DeletePlaylist removes a playlist and all of its items.
func (s *Service) DeletePlaylist(ctx context.Context, id int64) error {
	if err := s.store.Playlists().DeleteByID(ctx, id); err != nil {
		return err
	}

	s.logger.Info("deleted playlist", "id", id)
	return nil
}

// AddToPlaylist adds media to a playlist unless it is already there.
// It reports whether a new item was stored.
func (s *Service) AddToPlaylist(ctx context.Context, playlistID int64, media models.Media) (bool, error) {
	item := models.PlaylistItem{
		PlaylistID: playlistID,
		MediaID:    media.ID,
		MediaURI:   strings.TrimSpace(media.URI),
		AddedAt:    s.stamp(),
	}
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	added, err := s.store.Items().InsertIfAbsent(ctx, item)
	if errors.Is(err, shared.ErrConstraint) {
		return false, fmt.Errorf("%w: %d: %w", shared.ErrPlaylistNotFound, playlistID, err)
	}
	if err != nil {
		return false, err
	}

	if added {
		s.logger.Debug("added media", "playlist", playlistID, "media", media.ID)
	}
	return added, nil
}

// RemoveFromPlaylist removes media from a playlist. Removing absent media succeeds.
func (s *Service) RemoveFromPlaylist(ctx context.Context, playlistID, mediaID int64) error {
	return s.store.Items().RemoveSongFromPlaylist(ctx, playlistID, mediaID)
}

// Contains reports whether media is in a playlist.
func (s *Service) Contains(ctx context.Context, playlistID, mediaID int64) (bool, error) {
	return s.store.Items().IsItemInPlaylist(ctx, playlistID, mediaID)
}

// QueueURIs returns the playlist's media URIs in play order.
func (s *Service) QueueURIs(ctx context.Context, playlistID int64) ([]string, error) {
	return s.store.Items().GetURIsForPlaylistAsync(ctx, playlistID).Await(ctx)
}

// ItemCount returns how many items a playlist holds; zero for a missing playlist.
func (s *Service) ItemCount(ctx context.Context, playlistID int64) (int, error) {
	return s.store.Items().GetItemCount(ctx, playlistID)
}

// Export returns a playlist with its current items in play order.
func (s *Service) Export(ctx context.Context, playlistID int64) (*models.PlaylistExport, error) {
	p, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	items, err := s.Items(playlistID).Get(ctx)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: *p, Items: items}, nil
}

// Playlists is the live playlist list, newest first.
func (s *Service) Playlists() *invalidation.Query[models.Playlist] {
	return s.store.Playlists().GetAll()
}

// Items is the live item list of a playlist in play order.
func (s *Service) Items(playlistID int64) *invalidation.Query[models.PlaylistItem] {
	return s.store.Items().GetItemsForPlaylist(playlistID)
}
