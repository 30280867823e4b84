package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/musix/internal/library"
	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/player"
	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DiscoverView ViewState = iota
	PlaylistsView
	PlaylistView
	PickerView
)

// scrollMargin is how close to the end of a list the cursor must be before the next page loads.
const scrollMargin = 3

// Options configures a [Model].
type Options struct {
	MediaURL string
	Debounce time.Duration
	Logger   *log.Logger
	Now      func() time.Time
}

type prompt struct {
	label  string
	input  textinput.Model
	submit func(string) tea.Cmd
}

type confirm struct {
	label string
	yes   tea.Cmd
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	lib      *library.Library
	store    *player.Store
	sheet    *player.Sheet
	logger   *log.Logger
	mediaURL string
	now      func() time.Time

	view   ViewState
	back   ViewState
	width  int
	height int
	state  player.State

	search    textinput.Model
	searching bool
	debounce  *library.Debouncer
	songs     *library.Pager[models.Song]
	songList  list.Model

	playlists    *library.Pager[models.Playlist]
	playlistList list.Model

	detailID   int64
	detail     *models.PlaylistDetail
	detailList list.Model

	picker   list.Model
	pickSong *models.Song

	prompt  *prompt
	confirm *confirm

	notices   []notice
	noticeSeq int

	changes     chan struct{}
	unsubscribe func()

	help help.Model
	keys keyMap
}

// NewModel creates the TUI model. ctx must carry a store mounted with [player.Provide].
func NewModel(ctx context.Context, lib *library.Library, opts Options) (*Model, error) {
	store, err := player.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	search := textinput.New()
	search.Prompt = "search: "
	search.Placeholder = "song title"
	search.CharLimit = 120

	m := &Model{
		ctx:          ctx,
		lib:          lib,
		store:        store,
		sheet:        player.NewSheet(store),
		logger:       opts.Logger,
		mediaURL:     opts.MediaURL,
		now:          opts.Now,
		view:         DiscoverView,
		state:        store.Snapshot(),
		search:       search,
		debounce:     library.NewDebouncer(opts.Debounce),
		songs:        lib.SongsPager(),
		songList:     newList("Discover"),
		playlists:    lib.PlaylistsPager(),
		playlistList: newList("Playlists"),
		detailList:   newList("Playlist"),
		picker:       newList("Add to playlist"),
		changes:      make(chan struct{}, 1),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.unsubscribe = store.Subscribe(func(player.State) {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	return m, nil
}

// Close detaches the model from the store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the first songs and playlists fetches and begins listening for player changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSongs(), m.fetchPlaylists(), m.waitForPlayer())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.MouseMsg:
		cmd = m.handleMouse(msg)

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case Msg:
		cmd = m.handleMsg(msg)
	}

	// key and mouse handlers write to the store directly
	m.state = m.store.Snapshot()
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgSongsPage:
		res := msg.data.(pageResult[models.Song])
		if !m.songs.Apply(res.req, res.page, res.err) {
			return nil
		}
		if res.err != nil {
			return m.failed("Failed to load songs", res.err)
		}
		cmd := m.songList.SetItems(songItems(m.songs.Items()))
		return tea.Batch(cmd, m.maybeMoreSongs())

	case MsgPlaylistsPage:
		res := msg.data.(pageResult[models.Playlist])
		if !m.playlists.Apply(res.req, res.page, res.err) {
			return nil
		}
		if res.err != nil {
			return m.failed("Failed to load playlists", res.err)
		}
		items := playlistItems(m.playlists.Items())
		return tea.Batch(m.playlistList.SetItems(items), m.picker.SetItems(items), m.maybeMorePlaylists())

	case MsgPlaylistLoaded:
		res := msg.data.(playlistResult)
		if res.id != m.detailID {
			return nil
		}
		if res.err != nil {
			return m.failed("Failed to load playlist", res.err)
		}
		m.detail = &res.detail
		m.detailList.Title = res.detail.Title
		return m.detailList.SetItems(songItems(res.detail.Songs))

	case MsgSearchTick:
		term, changed := m.debounce.Commit(m.now())
		if !changed || !m.songs.SetTerm(shared.NormalizeTerm(term)) {
			return nil
		}
		m.songList.ResetSelected()
		return tea.Batch(m.songList.SetItems(nil), m.fetchSongs())

	case MsgPlayerChanged:
		m.state = msg.data.(player.State)
		return m.waitForPlayer()

	case MsgMutationDone:
		res := msg.data.(mutationResult)
		if res.err != nil {
			return m.failed(res.message, res.err)
		}
		cmds := []tea.Cmd{m.notify(res.message, false)}
		if !m.playlists.Loaded() {
			cmds = append(cmds, m.fetchPlaylists())
		}
		if res.reload != 0 && res.reload == m.detailID {
			cmds = append(cmds, m.loadPlaylist(res.reload))
		}
		return tea.Batch(cmds...)

	case MsgNoticeExpired:
		m.expire(msg.data.(int))
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.prompt != nil {
		return m.handlePromptKey(msg)
	}
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit
	case key.Matches(msg, m.keys.play):
		m.store.TogglePlaying()
		return nil
	case key.Matches(msg, m.keys.expand):
		if m.store.Snapshot().HasTrack() {
			m.store.ToggleExpanded()
		}
		return nil
	case key.Matches(msg, m.keys.tab):
		return m.switchView()
	}

	switch m.view {
	case DiscoverView:
		return m.handleDiscoverKey(msg)
	case PlaylistsView:
		return m.handlePlaylistsKey(msg)
	case PlaylistView:
		return m.handlePlaylistKey(msg)
	case PickerView:
		return m.handlePickerKey(msg)
	}
	return nil
}

func (m *Model) switchView() tea.Cmd {
	switch m.view {
	case DiscoverView:
		m.view = PlaylistsView
	default:
		m.view = DiscoverView
	}
	return nil
}

func (m *Model) handleDiscoverKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.search):
		m.searching = true
		return m.search.Focus()
	case key.Matches(msg, m.keys.enter):
		if s, ok := m.songList.SelectedItem().(songItem); ok {
			m.playSong(s.song, "")
		}
		return nil
	case key.Matches(msg, m.keys.add):
		if s, ok := m.songList.SelectedItem().(songItem); ok {
			return m.openPicker(s.song)
		}
		return nil
	case key.Matches(msg, m.keys.refresh):
		m.lib.Invalidate("songs")
		return tea.Batch(m.songList.SetItems(nil), m.fetchSongs())
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return tea.Batch(cmd, m.maybeMoreSongs())
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return cmd
	}

	deadline := m.debounce.Input(m.search.Value(), m.now())
	wait := deadline.Sub(m.now())
	return tea.Batch(cmd, tea.Tick(wait, func(t time.Time) tea.Msg { return searchTickMsg(t) }))
}

func (m *Model) handlePlaylistsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.enter):
		if p, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.view = PlaylistView
			m.detailID = p.playlist.ID
			m.detail = nil
			m.detailList.Title = p.playlist.Title
			return tea.Batch(m.detailList.SetItems(nil), m.loadPlaylist(p.playlist.ID))
		}
		return nil
	case key.Matches(msg, m.keys.create):
		m.openPrompt("New playlist title", func(title string) tea.Cmd {
			return m.createPlaylist(title)
		})
		return textinput.Blink
	case key.Matches(msg, m.keys.remove):
		if p, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.confirm = &confirm{
				label: fmt.Sprintf("Delete playlist '%s'?", p.playlist.Title),
				yes:   m.deletePlaylist(p.playlist),
			}
		}
		return nil
	case key.Matches(msg, m.keys.refresh):
		m.lib.Invalidate("playlists")
		return m.fetchPlaylists()
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return tea.Batch(cmd, m.maybeMorePlaylists())
}

func (m *Model) handlePlaylistKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistsView
		return nil
	case key.Matches(msg, m.keys.enter):
		if s, ok := m.detailList.SelectedItem().(songItem); ok && m.detail != nil {
			m.playSong(s.song, m.detail.Cover)
		}
		return nil
	case key.Matches(msg, m.keys.add):
		if s, ok := m.detailList.SelectedItem().(songItem); ok {
			return m.openPicker(s.song)
		}
		return nil
	case key.Matches(msg, m.keys.remove):
		if s, ok := m.detailList.SelectedItem().(songItem); ok && m.detail != nil {
			return m.removeSong(m.detail.ID, s.song)
		}
		return nil
	case key.Matches(msg, m.keys.refresh):
		if m.detailID != 0 {
			m.lib.Invalidate("playlist", fmt.Sprint(m.detailID))
			return m.loadPlaylist(m.detailID)
		}
		return nil
	}

	var cmd tea.Cmd
	m.detailList, cmd = m.detailList.Update(msg)
	return cmd
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = m.back
		m.pickSong = nil
		return nil
	case key.Matches(msg, m.keys.enter):
		p, ok := m.picker.SelectedItem().(playlistItem)
		if !ok || m.pickSong == nil {
			return nil
		}
		song := *m.pickSong
		m.view = m.back
		m.pickSong = nil
		return m.addSong(p.playlist, song)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return tea.Batch(cmd, m.maybeMorePlaylists())
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = nil
		return nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.prompt.input.Value())
		submit := m.prompt.submit
		m.prompt = nil
		if value == "" {
			return nil
		}
		return submit(value)
	}

	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.yes):
		cmd := m.confirm.yes
		m.confirm = nil
		return cmd
	case key.Matches(msg, m.keys.no):
		m.confirm = nil
	}
	return nil
}

func (m *Model) openPrompt(label string, submit func(string) tea.Cmd) {
	input := textinput.New()
	input.Prompt = label + ": "
	input.CharLimit = 200
	input.Focus()
	m.prompt = &prompt{label: label, input: input, submit: submit}
}

func (m *Model) openPicker(song models.Song) tea.Cmd {
	m.pickSong = &song
	m.back = m.view
	m.view = PickerView
	m.picker.Title = fmt.Sprintf("Add '%s' to...", song.Title)
	if !m.playlists.Loaded() {
		return m.fetchPlaylists()
	}
	return nil
}

// playSong loads song into the store. cover is the playlist cover, if any.
func (m *Model) playSong(song models.Song, cover string) {
	coverURL := models.CoverURL(cover, m.mediaURL)
	m.store.PlayTrack(models.TrackFromSong(song, coverURL))
}

func (m *Model) failed(message string, err error) tea.Cmd {
	m.logger.Error(message, "err", err)
	if services.IsUnauthorized(err) {
		message = "Session expired, run musix auth login"
	} else {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return m.notify(message, true)
}

func (m *Model) maybeMoreSongs() tea.Cmd {
	if len(m.songList.Items())-m.songList.Index() > scrollMargin {
		return nil
	}
	return m.fetchSongs()
}

func (m *Model) maybeMorePlaylists() tea.Cmd {
	l := m.playlistList
	if m.view == PickerView {
		l = m.picker
	}
	if len(l.Items())-l.Index() > scrollMargin {
		return nil
	}
	return m.fetchPlaylists()
}

func (m *Model) fetchSongs() tea.Cmd {
	req, ok := m.songs.Next()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		page, err := m.songs.Load(m.ctx, req)
		return songsPageMsg(req, page, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	req, ok := m.playlists.Next()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		page, err := m.playlists.Load(m.ctx, req)
		return playlistsPageMsg(req, page, err)
	}
}

func (m *Model) loadPlaylist(id int64) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.lib.Playlist(m.ctx, id)
		return playlistLoadedMsg(id, detail, err)
	}
}

func (m *Model) createPlaylist(title string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.lib.CreatePlaylist(m.ctx, title, "")
		if err != nil {
			return mutationDoneMsg("Failed to create playlist", 0, err)
		}
		return mutationDoneMsg(fmt.Sprintf("Created '%s'", title), 0, nil)
	}
}

func (m *Model) deletePlaylist(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		if err := m.lib.DeletePlaylist(m.ctx, p.ID); err != nil {
			return mutationDoneMsg("Failed to delete playlist", 0, err)
		}
		return mutationDoneMsg(fmt.Sprintf("Deleted '%s'", p.Title), 0, nil)
	}
}

func (m *Model) addSong(p models.Playlist, song models.Song) tea.Cmd {
	return func() tea.Msg {
		if err := m.lib.AddSong(m.ctx, p.ID, song.ID); err != nil {
			return mutationDoneMsg("Failed to add song", 0, err)
		}
		return mutationDoneMsg(fmt.Sprintf("Added '%s' to '%s'", song.Title, p.Title), p.ID, nil)
	}
}

func (m *Model) removeSong(playlistID int64, song models.Song) tea.Cmd {
	return func() tea.Msg {
		if err := m.lib.RemoveSong(m.ctx, playlistID, song.ID); err != nil {
			return mutationDoneMsg("Failed to remove song", 0, err)
		}
		return mutationDoneMsg(fmt.Sprintf("Removed '%s'", song.Title), playlistID, nil)
	}
}

func (m *Model) waitForPlayer() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return playerChangedMsg(m.store.Snapshot())
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) resize() {
	h := max(m.height-m.chromeRows(), 3)
	w := max(m.width-2, 10)
	m.songList.SetSize(w, h-1)
	m.playlistList.SetSize(w, h)
	m.detailList.SetSize(w, h)
	m.picker.SetSize(w, h)
	m.search.Width = w - len(m.search.Prompt) - 1
}

// chromeRows counts the rows outside the main list: tabs, help and the collapsed sheet.
func (m *Model) chromeRows() int {
	return 2 + 1 + player.BarHeight/CellHeight
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.state.IsExpanded && m.sheet.Visible() && !m.sheet.Dragging() {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderNotices(), m.renderSheet())
	}

	var body string
	switch m.view {
	case DiscoverView:
		body = m.search.View() + "\n" + m.songList.View()
	case PlaylistsView:
		body = m.playlistList.View()
	case PlaylistView:
		body = m.detailList.View()
		if m.detail == nil {
			body = styles.muted.Render("Loading playlist...")
		}
	case PickerView:
		body = m.picker.View()
	}

	if m.prompt != nil {
		body = m.prompt.input.View() + "\n" + styles.help.Render("enter to save, esc to cancel")
	}
	if m.confirm != nil {
		body = styles.warn.Render(m.confirm.label) + "\n" + m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	}

	parts := []string{m.renderTabs(), body}
	if notices := m.renderNotices(); notices != "" {
		parts = append(parts, notices)
	}
	parts = append(parts, m.renderHelp())
	if sheet := m.renderSheet(); sheet != "" {
		parts = append(parts, sheet)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderTabs() string {
	tab := func(label string, on bool) string {
		if on {
			return styles.active.Render(label)
		}
		return styles.tab.Render(label)
	}
	onPlaylists := m.view == PlaylistsView || m.view == PlaylistView
	return lipgloss.JoinHorizontal(lipgloss.Top,
		tab("Discover", m.view == DiscoverView),
		tab("Playlists", onPlaylists),
	) + "\n"
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case DiscoverView:
		keys = []key.Binding{m.keys.search, m.keys.enter, m.keys.add, m.keys.tab}
	case PlaylistsView:
		keys = []key.Binding{m.keys.enter, m.keys.create, m.keys.remove, m.keys.tab}
	case PlaylistView:
		keys = []key.Binding{m.keys.enter, m.keys.add, m.keys.remove, m.keys.back}
	case PickerView:
		keys = []key.Binding{m.keys.enter, m.keys.back}
	}
	keys = append(keys, m.keys.ShortHelp()...)
	return m.help.ShortHelpView(keys)
}
