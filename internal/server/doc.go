// Package server is the backend-for-frontend: it proxies the upstream music API,
// keeps the bearer token in HTTP-only cookies and gates the web pages.
//
// # Router Infrastructure
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses a chi mux internally. [BasicRouter.With] returns a router
// sharing the same mux with extra middleware, which is how the API routes get a request timeout
// and the login route gets a rate limit without touching the streaming download route.
//
// # Session Cookies
//
// A successful login sets two HTTP-only cookies: the bearer token and its expiration timestamp.
// The expiration comes from the upstream response's absolute timestamp, then its expires_in seconds,
// then the token's own exp claim, and finally a seven day default.
//
// Every proxied request derives an Authorization header from these cookies. An absent or expired
// token is dropped and the request goes upstream anonymously.
//
// # Relaying
//
// Upstream status codes are passed through. A JSON body is relayed byte for byte; anything else
// becomes {"error": "<route default>"}.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// The web shell registers its pages this way behind the route [Gate].
package server
