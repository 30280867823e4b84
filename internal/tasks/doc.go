// Package tasks runs long-running library jobs with real-time progress reporting.
//
// # Downloads
//
// [Engine.DownloadPlaylist] fetches a playlist and saves every song through the proxy's download
// route. [Engine.DownloadSongs] does the same for an explicit list of songs.
//
// Songs are fed to a fixed pool of workers. The producer waits on a [rate.Limiter] before handing
// out each job so the upstream never sees more than the configured requests per second.
// Files are written to a temporary name and renamed once complete, so an interrupted run never
// leaves a truncated mp3 behind.
//
// # Skipping
//
// When a [DownloadRecorder] is set, a song already recorded at its destination path (and still on
// disk) is skipped unless [DownloadOpts.Overwrite] is set. Finished downloads are recorded; a
// recorder failure is logged and never fails the download.
//
// # Progress Reporting
//
// All operations accept a send-only [ProgressUpdate] channel, which may be nil.
// Updates use select with default to prevent blocking.
package tasks
