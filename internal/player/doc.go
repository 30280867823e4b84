// Package player holds the now-playing state and the machinery that drives audio from it.
//
// A [Store] is the single source of truth for the current track, the play intent,
// the loading flag, the sheet expansion and the playback position. It is mounted
// into a [context.Context] with [Provide] and retrieved with [FromContext].
//
// An [Engine] binds one [Output] device to a store: it reacts to changes of
// (audio URL, play intent) by loading sources and issuing play/pause, and it writes
// device reports (time, end, error) back into the store. Every source load starts a
// new generation; play results and device events from older generations are dropped.
//
// A [Sheet] is the pointer-gesture state machine for the collapsible player panel.
package player
