package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/models"
	tu "github.com/desertthunder/plstore/internal/testing"
)

// run executes cmd and returns its message, failing if it blocks too long.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}

	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()

	select {
	case msg := <-out:
		return msg
	case <-time.After(tu.SnapshotTimeout):
		t.Fatal("command did not return")
	}
	return nil
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	db := tu.OpenStore(t)
	first := tu.MustCreatePlaylist(t, db, "First", 1000)
	second := tu.MustCreatePlaylist(t, db, "Second", 2000)
	tu.MustAddItem(t, db, second, 42, 10)
	tu.MustAddItem(t, db, second, 7, 20)
	tu.MustAddItem(t, db, first, 1, 10)

	m := NewModel(context.Background(), library.NewService(db, nil))
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(run(t, m.Init()))
	return m
}

func TestModel(t *testing.T) {
	t.Run("loads playlists newest first", func(t *testing.T) {
		m := newTestModel(t)

		items := m.playlistList.Items()
		if len(items) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(items))
		}
		if got := items[0].(playlistItem).playlist.Name; got != "Second" {
			t.Errorf("first row = %q, want Second", got)
		}
		if !strings.Contains(m.View(), "First") {
			t.Errorf("view missing playlist name:\n%s", m.View())
		}
	})

	t.Run("enter opens the live item view", func(t *testing.T) {
		m := newTestModel(t)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != ItemListView {
			t.Fatalf("view = %v, want ItemListView", m.view)
		}
		m.Update(run(t, cmd))

		items := m.itemList.Items()
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if got := items[0].(mediaItem).item.MediaURI; got != tu.MediaURI(42) {
			t.Errorf("first item = %q, want %q", got, tu.MediaURI(42))
		}
		if !strings.Contains(m.View(), "Items in 'Second' (2)") {
			t.Errorf("view missing title:\n%s", m.View())
		}
	})

	t.Run("removing an item refreshes the view", func(t *testing.T) {
		m := newTestModel(t)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(run(t, cmd))

		_, cmd = m.Update(keyRune('d'))
		m.Update(run(t, cmd))
		if !strings.Contains(m.status, "Removed") {
			t.Errorf("status = %q", m.status)
		}

		m.Update(run(t, waitForItems(m.items)))
		if n := len(m.itemList.Items()); n != 1 {
			t.Errorf("expected 1 item after removal, got %d", n)
		}
	})

	t.Run("esc returns and releases the item subscription", func(t *testing.T) {
		m := newTestModel(t)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(run(t, cmd))
		sub := m.items

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != PlaylistListView {
			t.Errorf("view = %v, want PlaylistListView", m.view)
		}
		if m.items != nil {
			t.Error("expected item subscription to be released")
		}
		if _, ok := <-sub.Updates(); ok {
			t.Error("expected closed subscription channel")
		}
	})

	t.Run("stale item snapshots are ignored", func(t *testing.T) {
		m := newTestModel(t)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(run(t, cmd))

		stale := &invalidation.Subscription[models.PlaylistItem]{}
		m.Update(itemsMsg(stale, invalidation.Snapshot[models.PlaylistItem]{}))
		if n := len(m.itemList.Items()); n != 2 {
			t.Errorf("stale snapshot replaced items, got %d", n)
		}
	})

	t.Run("delete playlist after confirmation", func(t *testing.T) {
		m := newTestModel(t)

		m.Update(keyRune('d'))
		if m.view != ConfirmView {
			t.Fatalf("view = %v, want ConfirmView", m.view)
		}
		if !strings.Contains(m.View(), "Delete 'Second'?") {
			t.Errorf("confirm view wrong:\n%s", m.View())
		}

		_, cmd := m.Update(keyRune('y'))
		m.Update(run(t, cmd))
		m.Update(run(t, waitForPlaylists(m.playlists)))

		items := m.playlistList.Items()
		if len(items) != 1 || items[0].(playlistItem).playlist.Name != "First" {
			t.Errorf("expected only First to remain, got %v", items)
		}
	})

	t.Run("declining keeps the playlist", func(t *testing.T) {
		m := newTestModel(t)

		m.Update(keyRune('d'))
		_, cmd := m.Update(keyRune('n'))
		if cmd != nil {
			t.Error("expected no command when declining")
		}
		if m.view != PlaylistListView {
			t.Errorf("view = %v, want PlaylistListView", m.view)
		}
	})

	t.Run("quit releases subscriptions", func(t *testing.T) {
		m := newTestModel(t)

		_, cmd := m.Update(keyRune('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if m.playlists != nil {
			t.Error("expected playlist subscription to be released")
		}
	})

	t.Run("errors are rendered", func(t *testing.T) {
		m := newTestModel(t)
		m.Update(failedMsg(context.DeadlineExceeded))
		if !strings.Contains(m.View(), "Error:") {
			t.Errorf("view missing error:\n%s", m.View())
		}
	})
}
