// Package repositories implements SQLite persistence for the client side.
//
// Key Implementations:
//   - [SessionRepository] : the CLI's cookie jar, one bearer token per proxy address
//   - [DownloadRepository] : songs saved to disk, used to skip repeat downloads
//   - [DownloadRecorder] : adapts [DownloadRepository] to the bulk download task
//
// Tables are created by the embedded migrations in the shared package.
package repositories
