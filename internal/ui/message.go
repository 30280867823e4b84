package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/musix/internal/library"
	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/player"
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
	MsgSongsPage MsgKind = iota
	MsgPlaylistsPage
	MsgPlaylistLoaded
	MsgSearchTick
	MsgPlayerChanged
	MsgMutationDone
	MsgNoticeExpired
)

type pageResult[T any] struct {
	req  library.PageRequest
	page models.Page[T]
	err  error
}

type playlistResult struct {
	id     int64
	detail models.PlaylistDetail
	err    error
}

type mutationResult struct {
	message string
	err     error
	// reload marks the playlist detail that should be fetched again, or 0.
	reload int64
}

// songsPageMsg is the constructor for [MsgSongsPage]
func songsPageMsg(req library.PageRequest, page models.Page[models.Song], err error) Msg {
	return Msg{kind: MsgSongsPage, data: pageResult[models.Song]{req, page, err}}
}

// playlistsPageMsg is the constructor for [MsgPlaylistsPage]
func playlistsPageMsg(req library.PageRequest, page models.Page[models.Playlist], err error) Msg {
	return Msg{kind: MsgPlaylistsPage, data: pageResult[models.Playlist]{req, page, err}}
}

// playlistLoadedMsg is the constructor for [MsgPlaylistLoaded]
func playlistLoadedMsg(id int64, detail models.PlaylistDetail, err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: playlistResult{id, detail, err}}
}

// searchTickMsg is the constructor for [MsgSearchTick]
func searchTickMsg(at time.Time) Msg {
	return Msg{kind: MsgSearchTick, data: at}
}

// playerChangedMsg is the constructor for [MsgPlayerChanged]
func playerChangedMsg(state player.State) Msg {
	return Msg{kind: MsgPlayerChanged, data: state}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]
func mutationDoneMsg(message string, reload int64, err error) Msg {
	return Msg{kind: MsgMutationDone, data: mutationResult{message: message, err: err, reload: reload}}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]
func noticeExpiredMsg(id int) Msg {
	return Msg{kind: MsgNoticeExpired, data: id}
}
