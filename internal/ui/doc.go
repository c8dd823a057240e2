// Package ui implements an interactive terminal browser for the playlist store using bubbletea's Elm architecture.
//
// The browser has three views:
//  1. [PlaylistListView] : live list of playlists, newest first
//  2. [ItemListView] : live items of the selected playlist in play order
//  3. [ConfirmView] : confirm deleting a playlist and its items
//
// Both lists are backed by live-query subscriptions rather than polling. Each delivered
// snapshot arrives as a [Msg] and the next wait is scheduled from Update, so writes
// committed through the same store show up without a refresh key.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, d, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
