// Package ui implements the terminal player using bubbletea's Elm architecture.
//
// The [Model] has four views:
//  1. [DiscoverView] : song catalog with a debounced search box and infinite scroll
//  2. [PlaylistsView] : the user's playlists, with create and delete
//  3. [PlaylistView] : one playlist's songs, with remove
//  4. [PickerView] : choose a playlist to add the selected song to
//
// Playback state lives in the [player.Store] mounted on the context passed to [NewModel]; the model
// never owns audio. Selecting a song calls [player.Store.PlayTrack] and the [player.Engine] wired
// by the caller does the rest. Store changes arrive as messages through a one-slot signal channel.
//
// The now-playing sheet sits at the bottom. It is driven by [player.Sheet]: mouse presses, drags
// and releases over the sheet are converted to pointer events with one terminal row counted as
// [CellHeight] pixels, so the drag and release thresholds keep their meaning.
//
// Mutations report back through short-lived notices, the terminal version of a toast.
package ui
