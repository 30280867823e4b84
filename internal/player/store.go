package player

import (
	"math"
	"sync"

	"github.com/desertthunder/musix/internal/models"
)

// State is an immutable snapshot of the now-playing store.
type State struct {
	CurrentTrack            *models.NowPlayingTrack
	IsPlaying               bool
	IsLoadingAudio          bool
	IsExpanded              bool
	PlaybackPositionSeconds float64
}

// AudioURL returns the current track's source, or "" when nothing playable is loaded.
func (s State) AudioURL() string {
	if s.CurrentTrack == nil {
		return ""
	}
	return s.CurrentTrack.AudioURL
}

// HasTrack reports whether a track is loaded.
func (s State) HasTrack() bool {
	return s.CurrentTrack != nil
}

// Progress returns the playback progress in percent.
func (s State) Progress() float64 {
	if s.CurrentTrack == nil {
		return 0
	}
	return Progress(s.PlaybackPositionSeconds, s.CurrentTrack.DurationSeconds)
}

func (s State) equal(o State) bool {
	if s.IsPlaying != o.IsPlaying || s.IsLoadingAudio != o.IsLoadingAudio ||
		s.IsExpanded != o.IsExpanded || s.PlaybackPositionSeconds != o.PlaybackPositionSeconds {
		return false
	}
	switch {
	case s.CurrentTrack == nil || o.CurrentTrack == nil:
		return s.CurrentTrack == o.CurrentTrack
	default:
		return *s.CurrentTrack == *o.CurrentTrack
	}
}

// Listener receives every new snapshot.
type Listener func(State)

// Store holds the now-playing state.
//
// All mutation goes through the setters, which keep these invariants:
//   - the position is 0 after the audio URL changes or the track is cleared
//   - IsPlaying and IsLoadingAudio are false while the track has no audio URL
//   - IsLoadingAudio is false whenever IsPlaying is false
//
// Listeners are notified one snapshot at a time. A setter called from inside a
// listener is applied immediately but its notification is queued behind the
// delivery in progress.
type Store struct {
	mu         sync.Mutex
	state      State
	listeners  map[int]Listener
	nextID     int
	queue      []State
	delivering bool
	closed     bool
}

// NewStore returns an empty store: nothing loaded, collapsed, paused.
func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close drops all listeners. Setters called afterwards are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = make(map[int]Listener)
	s.queue = nil
}

// SetCurrentTrack replaces the current track. A nil track clears the player.
func (s *Store) SetCurrentTrack(track *models.NowPlayingTrack) {
	s.update(func(st *State) {
		setTrack(st, track)
	})
}

// PlayTrack loads track and starts playing it when it has an audio URL.
func (s *Store) PlayTrack(track models.NowPlayingTrack) {
	s.update(func(st *State) {
		setTrack(st, &track)
		playable := track.Playable()
		st.IsPlaying = playable
		st.IsLoadingAudio = playable
	})
}

func setTrack(st *State, track *models.NowPlayingTrack) {
	if track == nil {
		st.CurrentTrack = nil
		st.IsPlaying = false
		st.IsLoadingAudio = false
		st.PlaybackPositionSeconds = 0
		return
	}

	prev := st.AudioURL()
	t := *track
	if t.CoverURL == "" {
		t.CoverURL = models.DefaultCoverURL
	}
	if t.DurationSeconds < 0 || !finite(t.DurationSeconds) {
		t.DurationSeconds = 0
	}
	st.CurrentTrack = &t

	if t.AudioURL != prev || prev == "" {
		st.PlaybackPositionSeconds = 0
	}
	if t.AudioURL == "" {
		st.IsPlaying = false
		st.IsLoadingAudio = false
	}
}

// SetPlaying sets the play intent. It is ignored while no playable track is loaded.
func (s *Store) SetPlaying(playing bool) {
	s.update(func(st *State) {
		if playing && st.AudioURL() == "" {
			return
		}
		st.IsPlaying = playing
		if !playing {
			st.IsLoadingAudio = false
		}
	})
}

// TogglePlaying flips the play intent unless audio is still loading.
func (s *Store) TogglePlaying() {
	s.update(func(st *State) {
		if st.IsLoadingAudio || st.AudioURL() == "" {
			return
		}
		st.IsPlaying = !st.IsPlaying
	})
}

// SetExpanded sets the sheet expansion.
func (s *Store) SetExpanded(expanded bool) {
	s.update(func(st *State) {
		st.IsExpanded = expanded
	})
}

// ToggleExpanded flips the sheet expansion.
func (s *Store) ToggleExpanded() {
	s.update(func(st *State) {
		st.IsExpanded = !st.IsExpanded
	})
}

// SetLoadingAudio sets the loading flag. Loading is only possible while playing a playable track.
func (s *Store) SetLoadingAudio(loading bool) {
	s.update(func(st *State) {
		if loading && (!st.IsPlaying || st.AudioURL() == "") {
			return
		}
		st.IsLoadingAudio = loading
	})
}

// SetPlaybackPositionSeconds records a position report. Non-finite values are dropped.
func (s *Store) SetPlaybackPositionSeconds(seconds float64) {
	if !finite(seconds) {
		return
	}
	s.update(func(st *State) {
		if st.CurrentTrack == nil {
			return
		}
		st.PlaybackPositionSeconds = math.Max(0, seconds)
	})
}

// setPositionFor records a position report from the source at url. Reports
// for any other source are dropped.
func (s *Store) setPositionFor(url string, seconds float64) {
	if !finite(seconds) {
		return
	}
	s.update(func(st *State) {
		if st.CurrentTrack == nil || st.AudioURL() != url {
			return
		}
		st.PlaybackPositionSeconds = math.Max(0, seconds)
	})
}

// update applies fn and notifies listeners when the state changed.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	next := s.state
	fn(&next)
	if next.equal(s.state) {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.queue = append(s.queue, next)

	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	drained := false
	defer func() {
		if !drained {
			// a listener panicked with the lock released
			s.mu.Lock()
			s.delivering = false
			s.queue = nil
			s.mu.Unlock()
		}
	}()

	for len(s.queue) > 0 {
		snap := s.queue[0]
		s.queue = s.queue[1:]
		listeners := make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
		s.mu.Unlock()

		for _, l := range listeners {
			l(snap)
		}

		s.mu.Lock()
	}
	s.delivering = false
	drained = true
	s.mu.Unlock()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
