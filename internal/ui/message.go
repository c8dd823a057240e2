package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plstore/internal/invalidation"
	"github.com/desertthunder/plstore/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylists MsgKind = iota
	MsgItems
	MsgClosed
	MsgDone
	MsgFailed
)

type itemsData struct {
	sub  *invalidation.Subscription[models.PlaylistItem]
	snap invalidation.Snapshot[models.PlaylistItem]
}

// playlistsMsg is the constructor for [MsgPlaylists]
func playlistsMsg(snap invalidation.Snapshot[models.Playlist]) Msg {
	return Msg{kind: MsgPlaylists, data: snap}
}

// itemsMsg is the constructor for [MsgItems]; sub identifies which subscription delivered.
func itemsMsg(sub *invalidation.Subscription[models.PlaylistItem], snap invalidation.Snapshot[models.PlaylistItem]) Msg {
	return Msg{kind: MsgItems, data: itemsData{sub: sub, snap: snap}}
}

// closedMsg is the constructor for [MsgClosed], carrying the finished subscription.
func closedMsg(sub any) Msg {
	return Msg{kind: MsgClosed, data: sub}
}

// doneMsg is the constructor for [MsgDone]
func doneMsg(status string) Msg {
	return Msg{kind: MsgDone, data: status}
}

// failedMsg is the constructor for [MsgFailed]
func failedMsg(err error) Msg {
	return Msg{kind: MsgFailed, data: err}
}
