// Package models defines the catalog and playback types shared by the proxy, the client and the player.
//
// The package contains two categories of types:
//
// 1. Upstream payloads: the raw shapes returned by the music API
//   - [SongItem] : one row of GET /song
//   - [PlaylistItem] : one row of GET /playlist
//   - [Envelope] : the {result: {items, _meta}} list wrapper
//
// 2. Normalized entities used by the UI and CLI
//   - [Song], [Playlist], [PlaylistDetail]
//   - [Page] : one page of a paginated list with its cursor metadata
//   - [NowPlayingTrack] : the value object handed to the player
//
// Normalization fills the defaults the upstream leaves out (page 1 of 1, 15 per page)
// and formats durations as m:ss.
package models
