// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/store"
)

// SnapshotTimeout bounds how long helpers wait for a live query to deliver.
const SnapshotTimeout = 2 * time.Second

// OpenStore opens a WAL-mode store in a temporary directory, closed when the test ends.
func OpenStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.Options{
		Path:        filepath.Join(t.TempDir(), "plstore.db"),
		BusyTimeout: SnapshotTimeout,
		MaxReaders:  2,
		WAL:         true,
		Workers:     2,
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MustCreatePlaylist inserts a playlist and returns its id.
func MustCreatePlaylist(t *testing.T, db *store.DB, name string, createdAt int64) int64 {
	t.Helper()
	id, err := db.Playlists().Insert(context.Background(), models.Playlist{Name: name, CreatedAt: createdAt})
	if err != nil {
		t.Fatalf("Failed to create playlist %q: %v", name, err)
	}
	return id
}

// MustAddItem inserts an item for mediaID with a content URI derived from it.
func MustAddItem(t *testing.T, db *store.DB, playlistID, mediaID, addedAt int64) int64 {
	t.Helper()
	id, err := db.Items().Insert(context.Background(), models.PlaylistItem{
		PlaylistID: playlistID,
		MediaID:    mediaID,
		MediaURI:   MediaURI(mediaID),
		AddedAt:    addedAt,
	})
	if err != nil {
		t.Fatalf("Failed to add media %d to playlist %d: %v", mediaID, playlistID, err)
	}
	return id
}

// MediaURI is the URI the helpers store for mediaID.
func MediaURI(mediaID int64) string {
	return "content://media/" + strconv.FormatInt(mediaID, 10)
}

// NextSnapshot waits for the next delivery on sub and fails the test on timeout,
// closure or a delivered error.
func NextSnapshot[T any](t *testing.T, sub *invalidation.Subscription[T]) invalidation.Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		if !ok {
			t.Fatalf("Subscription %s closed", sub.ID())
		}
		if snap.Err != nil {
			t.Fatalf("Snapshot carried error: %v", snap.Err)
		}
		return snap
	case <-time.After(SnapshotTimeout):
		t.Fatalf("Timed out waiting for snapshot on %s", sub.ID())
	}
	return invalidation.Snapshot[T]{}
}

// FixedClock returns a clock stopped at ms epoch milliseconds.
func FixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
