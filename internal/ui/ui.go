package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ItemListView
	ConfirmView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	svc          *library.Service
	view         ViewState
	width        int
	height       int
	playlistList list.Model
	itemList     list.Model
	selected     *models.Playlist
	playlists    *invalidation.Subscription[models.Playlist]
	items        *invalidation.Subscription[models.PlaylistItem]
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over svc.
func NewModel(ctx context.Context, svc *library.Service) *Model {
	m := &Model{
		ctx:          ctx,
		svc:          svc,
		view:         PlaylistListView,
		width:        80,
		height:       24,
		playlistList: newList("Playlists"),
		itemList:     newList("Items"),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.resize()
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init subscribes to the live playlist list.
func (m *Model) Init() tea.Cmd {
	sub, err := m.svc.Playlists().Subscribe()
	if err != nil {
		return func() tea.Msg { return failedMsg(err) }
	}
	m.playlists = sub
	return waitForPlaylists(sub)
}

// Close releases every subscription the model holds.
func (m *Model) Close() {
	m.closeItems()
	if m.playlists != nil {
		m.playlists.Close()
		m.playlists = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ItemListView:
			return m.handleItemListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylists:
		snap := msg.data.(invalidation.Snapshot[models.Playlist])
		if snap.Err != nil {
			m.err = snap.Err
		} else {
			m.err = nil
			cmd := m.playlistList.SetItems(playlistItems(snap.Rows))
			return m, tea.Batch(cmd, waitForPlaylists(m.playlists))
		}
		return m, waitForPlaylists(m.playlists)

	case MsgItems:
		data := msg.data.(itemsData)
		if data.sub != m.items {
			return m, nil
		}
		if data.snap.Err != nil {
			m.err = data.snap.Err
			return m, waitForItems(m.items)
		}
		m.err = nil
		m.itemList.Title = fmt.Sprintf("Items in '%s' (%d)", m.selected.Name, len(data.snap.Rows))
		cmd := m.itemList.SetItems(mediaItems(data.snap.Rows))
		return m, tea.Batch(cmd, waitForItems(m.items))

	case MsgClosed:
		if sub, ok := msg.data.(*invalidation.Subscription[models.Playlist]); ok && sub == m.playlists {
			m.playlists = nil
			return m, tea.Quit
		}
		return m, nil

	case MsgDone:
		m.status = msg.data.(string)
		return m, nil

	case MsgFailed:
		m.err = msg.data.(error)
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case ItemListView:
		body = m.renderItemList()
	case ConfirmView:
		body = m.renderConfirm()
	}

	if m.err != nil {
		body += "\n" + styles.Err.Render(fmt.Sprintf("Error: %v", m.err))
	} else if m.status != "" {
		body += "\n" + styles.OK.Render(m.status)
	}
	return body
}

func (m *Model) filtering() bool {
	switch m.view {
	case PlaylistListView:
		return m.playlistList.FilterState() == list.Filtering
	case ItemListView:
		return m.itemList.FilterState() == list.Filtering
	}
	return false
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.filtering() {
		switch {
		case key.Matches(msg, m.keys.quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				return m, m.openPlaylist(pl.playlist)
			}
			return m, nil
		case key.Matches(msg, m.keys.remove):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				p := pl.playlist
				m.selected = &p
				m.view = ConfirmView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleItemListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.filtering() {
		switch {
		case key.Matches(msg, m.keys.quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.closeItems()
			m.view = PlaylistListView
			return m, nil
		case key.Matches(msg, m.keys.remove):
			if it, ok := m.itemList.SelectedItem().(mediaItem); ok {
				return m, m.removeItem(it.item)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = PlaylistListView
		return m, m.deletePlaylist(*m.selected)
	case key.Matches(msg, m.keys.no):
		m.view = PlaylistListView
		return m, nil
	case msg.String() == "ctrl+c":
		m.Close()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case ItemListView:
		m.itemList, cmd = m.itemList.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	m.playlistList.SetSize(m.width-4, m.height-6)
	m.itemList.SetSize(m.width-4, m.height-6)
}

func (m *Model) openPlaylist(p models.Playlist) tea.Cmd {
	m.closeItems()

	sub, err := m.svc.Items(p.ID).Subscribe()
	if err != nil {
		m.err = err
		return nil
	}

	m.selected = &p
	m.items = sub
	m.status = ""
	m.itemList.Title = fmt.Sprintf("Items in '%s'", p.Name)
	m.itemList.SetItems(nil)
	m.view = ItemListView
	return waitForItems(sub)
}

func (m *Model) closeItems() {
	if m.items != nil {
		m.items.Close()
		m.items = nil
	}
}

func (m *Model) removeItem(item models.PlaylistItem) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.RemoveFromPlaylist(m.ctx, item.PlaylistID, item.MediaID); err != nil {
			return failedMsg(err)
		}
		return doneMsg(fmt.Sprintf("Removed %s", item.MediaURI))
	}
}

func (m *Model) deletePlaylist(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.DeletePlaylist(m.ctx, p.ID); err != nil {
			return failedMsg(err)
		}
		return doneMsg(fmt.Sprintf("Deleted '%s'", p.Name))
	}
}

func waitForPlaylists(sub *invalidation.Subscription[models.Playlist]) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-sub.Updates()
		if !ok {
			return closedMsg(sub)
		}
		return playlistsMsg(snap)
	}
}

func waitForItems(sub *invalidation.Subscription[models.PlaylistItem]) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-sub.Updates()
		if !ok {
			return closedMsg(sub)
		}
		return itemsMsg(sub, snap)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.remove, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderItemList() string {
	helpKeys := []key.Binding{m.keys.remove, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.itemList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	if m.selected == nil {
		return ""
	}
	title := styles.Title.Render(fmt.Sprintf("Delete '%s'?", m.selected.Name))
	info := styles.Warn.Render("Every item in this playlist is removed with it.")

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
