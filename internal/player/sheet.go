package player

import "math"

// Sheet geometry and gesture thresholds, in pixels.
const (
	BarHeight        = 64
	DragThreshold    = 10
	ReleaseThreshold = 80
)

// Sheet tracks pointer gestures on the player panel and commits expand/collapse into a [Store].
//
// While collapsed only upward movement builds an offset (the lift), while
// expanded only downward movement does (the drop). A gesture that never moves
// past [DragThreshold] and did not start on a button is a tap and toggles.
type Sheet struct {
	store *Store

	active        bool
	startY        float64
	startExpanded bool
	offset        float64
	dragged       bool
	onButton      bool
}

// NewSheet returns a sheet controller backed by store.
func NewSheet(store *Store) *Sheet {
	return &Sheet{store: store}
}

// Visible reports whether the sheet is shown. Nothing is rendered without a track.
func (s *Sheet) Visible() bool {
	return s.store.Snapshot().HasTrack()
}

// Dragging reports whether a gesture is in progress.
func (s *Sheet) Dragging() bool {
	return s.active
}

// Offset returns the current lift (collapsed) or drop (expanded).
func (s *Sheet) Offset() float64 {
	return s.offset
}

// PointerDown begins a gesture at y. onButton marks a press on an inner control.
func (s *Sheet) PointerDown(y float64, onButton bool) {
	if !s.Visible() {
		return
	}
	s.active = true
	s.startY = y
	s.startExpanded = s.store.Snapshot().IsExpanded
	s.offset = 0
	s.dragged = false
	s.onButton = onButton
}

// PointerMove updates the offset while a gesture is active.
func (s *Sheet) PointerMove(y float64) {
	if !s.active {
		return
	}
	delta := y - s.startY
	if math.Abs(delta) > DragThreshold {
		s.dragged = true
	}
	if s.startExpanded {
		s.offset = math.Max(0, delta)
	} else {
		s.offset = math.Max(0, -delta)
	}
}

// PointerUp ends the gesture. It returns true when the expansion changed.
func (s *Sheet) PointerUp() bool {
	if !s.active {
		return false
	}
	return s.finish(true)
}

// PointerLeave ends the gesture when the pointer leaves the panel. A drag past
// the release threshold still commits, but a leave never counts as a tap.
func (s *Sheet) PointerLeave() bool {
	if !s.active {
		return false
	}
	return s.finish(false)
}

func (s *Sheet) finish(allowTap bool) bool {
	offset, dragged, onButton, expanded := s.offset, s.dragged, s.onButton, s.startExpanded
	s.active = false
	s.offset = 0
	s.dragged = false
	s.onButton = false

	switch {
	case offset > ReleaseThreshold:
		s.store.SetExpanded(!expanded)
		return true
	case !dragged && !onButton && allowTap:
		s.store.ToggleExpanded()
		return true
	default:
		return false
	}
}

// Height returns the rendered panel height given the full available height.
func (s *Sheet) Height(full float64) float64 {
	if s.store.Snapshot().IsExpanded {
		return math.Max(BarHeight, full-s.offset)
	}
	return math.Min(full, BarHeight+s.offset)
}
