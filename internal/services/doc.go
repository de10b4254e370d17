// Package services implements clients for the HTTP APIs the tool talks to.
//
// # GitHub Contents API
//
// [GitHubClient] reads and writes single files in a repository through the contents API.
// Authentication uses a personal access token sent as a bearer token by an [oauth2] client
// built from a static token source. Every request waits on a [rate.Limiter] and carries the
// versioned media type headers GitHub expects.
//
// Writes are conditional: callers read the current file first and pass its SHA back with the
// update, so the remote rejects writes made against a stale revision. Such rejections are
// reported as [shared.ErrVersionConflict].
//
// # Error Handling
//
// Every failure wraps [shared.ErrRemoteBackup]. A missing file on read is not an error; the
// client returns a nil [RemoteFile].
package services
