// Package services implements the HTTP clients on both sides of the musix proxy.
//
// # Upstream
//
// [APIService] is used by the proxy to reach the remote music API. It buffers
// responses into [APIResponse] (status, headers, raw body and parsed JSON when the
// body is JSON) or hands back the live response for streaming downloads. Bearer
// tokens are attached per request with an [oauth2.Transport] over a static source.
//
// # Proxy client
//
// [Client] is what the CLI and terminal player use. It keeps the proxy's session
// cookies in a jar, retries idempotent reads once through [RetryTransport] and
// normalizes list responses into [models.Page] values.
//
// # Error Handling
//
// Non-success answers become [APIError] carrying the upstream message verbatim.
// APIError unwraps to:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrAPIRequest] : any other status
//
// Transport failures wrap [shared.ErrServiceUnavailable].
package services
