package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

var authPages = []string{"/login", "/register"}

// passthrough reports paths the gate never inspects: API routes and assets.
func passthrough(path string) bool {
	return strings.HasPrefix(path, "/api") ||
		strings.HasPrefix(path, "/_next") ||
		strings.HasPrefix(path, "/static") ||
		strings.Contains(path, ".")
}

func authPage(path string) bool {
	for _, p := range authPages {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Gate protects pages behind a valid session.
//
// Visitors without one are sent to /login?from=<path> with both session cookies cleared.
// Signed-in visitors to the login or register pages are sent to /.
func Gate(now func() time.Time) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if passthrough(path) {
				next.ServeHTTP(w, r)
				return
			}

			loggedIn := SessionToken(r, now()) != ""
			if authPage(path) {
				if loggedIn {
					http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !loggedIn {
				setCookies(w, ClearCookies())
				target := "/login?" + url.Values{"from": {path}}.Encode()
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
