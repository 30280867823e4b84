package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/musix/internal/shared"
	tu "github.com/desertthunder/musix/internal/testing"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type stubPages struct{}

func (stubPages) Routes() []string { return []string{"/", "/*"} }

func (stubPages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("page " + r.URL.Path))
}

func newTestServer(t *testing.T, upstreamURL string) http.Handler {
	t.Helper()
	cfg := *shared.DefaultConfig()
	cfg.Upstream.APIBaseURL = upstreamURL
	cfg.Server.LoginRatePerMinute = 0
	s := New(cfg, log.New(io.Discard), WithClock(func() time.Time { return testNow }), WithWeb(stubPages{}))
	return s.Routes()
}

func do(h http.Handler, method, target string, body io.Reader, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", rec.Body.String())
	}
	return body.Error
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func session(token string, expires time.Time) []*http.Cookie {
	return []*http.Cookie{
		{Name: shared.TokenCookie, Value: token},
		{Name: shared.ExpiresCookie, Value: url.QueryEscape(shared.FormatExpiry(expires))},
	}
}

func TestResolveExpiration(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(testNow.Add(2 * time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		result map[string]any
		token  string
		want   time.Time
	}{
		{"absolute ISO string", map[string]any{"access_token_expration": "2025-06-02T00:00:00Z", "expires_in": 10.0}, "t", testNow.Add(24 * time.Hour)},
		{"absolute unix seconds", map[string]any{"access_token_expration": json.Number("1748739600")}, "t", testNow.Add(time.Hour)},
		{"expires_in number", map[string]any{"expires_in": json.Number("3600")}, "t", testNow.Add(time.Hour)},
		{"expires_in string", map[string]any{"expires_in": "90"}, "t", testNow.Add(90 * time.Second)},
		{"unparseable absolute falls through", map[string]any{"access_token_expration": "soon", "expires_in": "60"}, "t", testNow.Add(time.Minute)},
		{"non-positive expires_in ignored", map[string]any{"expires_in": json.Number("0")}, "t", testNow.Add(TokenMaxAge)},
		{"jwt exp claim", map[string]any{}, signed, testNow.Add(2 * time.Hour)},
		{"default", map[string]any{}, "opaque", testNow.Add(TokenMaxAge)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveExpiration(tt.result, tt.token, testNow)
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSessionCookies(t *testing.T) {
	t.Run("expiration max age follows remaining seconds", func(t *testing.T) {
		cookies := SessionCookies("tok", testNow.Add(90*time.Minute+500*time.Millisecond), testNow, true)
		token, expires := cookies[0], cookies[1]

		if token.MaxAge != 604800 || !token.HttpOnly || !token.Secure || token.SameSite != http.SameSiteLaxMode || token.Path != "/" {
			t.Errorf("unexpected token cookie %+v", token)
		}
		if expires.MaxAge != 5400 {
			t.Errorf("expected expiration max age 5400, got %d", expires.MaxAge)
		}
	})

	t.Run("past expiration is sent with Max-Age=0", func(t *testing.T) {
		cookies := SessionCookies("tok", testNow.Add(-time.Hour), testNow, false)
		if !strings.Contains(cookies[1].String(), "Max-Age=0") {
			t.Errorf("expected Max-Age=0, got %s", cookies[1].String())
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("sets both cookies and merges the message", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/site/login", 200, `{"result":{"access_token":"abc","expires_in":3600},"ok":true}`)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"u","password":"p"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		cookies := rec.Result().Cookies()
		token := findCookie(cookies, shared.TokenCookie)
		expires := findCookie(cookies, shared.ExpiresCookie)
		if token == nil || token.Value != "abc" || token.MaxAge != 604800 || !token.HttpOnly {
			t.Errorf("unexpected token cookie %+v", token)
		}
		if expires == nil || expires.MaxAge != 3600 || !expires.HttpOnly {
			t.Fatalf("unexpected expiration cookie %+v", expires)
		}
		raw, _ := url.QueryUnescape(expires.Value)
		if got, _ := shared.ParseExpiry(raw); !got.Equal(testNow.Add(time.Hour)) {
			t.Errorf("expected expiration %v, got %q", testNow.Add(time.Hour), raw)
		}

		var body map[string]any
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["message"] != "Logged in successfully" || body["ok"] != true || body["result"] == nil {
			t.Errorf("unexpected body %v", body)
		}

		sent := up.Last()
		if sent.Authorization != "" {
			t.Errorf("login must not send a bearer header, got %q", sent.Authorization)
		}
		if !strings.Contains(string(sent.Body), `"username":"u"`) {
			t.Errorf("unexpected upstream body %s", sent.Body)
		}
	})

	t.Run("top level token without result", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/site/login", 200, `{"access_token":"xyz"}`)
		rec := do(newTestServer(t, up.URL()), http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"u","password":"p"}`))

		expires := findCookie(rec.Result().Cookies(), shared.ExpiresCookie)
		if expires == nil || expires.MaxAge != 604800 {
			t.Errorf("expected default expiration, got %+v", expires)
		}
	})

	t.Run("missing token is a bad gateway", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/site/login", 200, `{"result":{}}`)
		rec := do(newTestServer(t, up.URL()), http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"u","password":"p"}`))

		if rec.Code != http.StatusBadGateway || decodeError(t, rec) != "Login response missing access_token" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("expected no cookies")
		}
	})

	t.Run("validates the body", func(t *testing.T) {
		up := tu.NewUpstream(t)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodPost, "/api/auth/login", strings.NewReader(`{`))
		if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Invalid JSON body" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}

		rec = do(h, http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"u","password":5}`))
		if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Missing or invalid: username, password" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if len(up.Requests()) != 0 {
			t.Error("invalid requests must not reach the upstream")
		}
	})

	t.Run("relays upstream rejection", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/site/login", 401, `{"error":"Invalid credentials"}`)
		rec := do(newTestServer(t, up.URL()), http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"u","password":"p"}`))

		if rec.Code != http.StatusUnauthorized || decodeError(t, rec) != "Invalid credentials" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rate limited per client", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/site/login", 401, `{"error":"no"}`)
		cfg := *shared.DefaultConfig()
		cfg.Upstream.APIBaseURL = up.URL()
		cfg.Server.LoginRatePerMinute = 2
		h := New(cfg, log.New(io.Discard), WithClock(func() time.Time { return testNow })).Routes()

		var last int
		for range 3 {
			last = do(h, http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"u","password":"p"}`)).Code
		}
		if last != http.StatusTooManyRequests {
			t.Errorf("expected 429 on third attempt, got %d", last)
		}
	})
}

func TestLogout(t *testing.T) {
	rec := do(newTestServer(t, ""), http.MethodPost, "/api/auth/logout", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Logged out"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	for _, name := range []string{shared.TokenCookie, shared.ExpiresCookie} {
		c := findCookie(rec.Result().Cookies(), name)
		if c == nil || c.MaxAge >= 0 || c.Value != "" {
			t.Errorf("expected %s cleared, got %+v", name, c)
		}
	}
}

func TestRegister(t *testing.T) {
	up := tu.NewUpstream(t)
	up.JSON(http.MethodPost, "/site/register", 200, `{"ok":true}`)
	h := newTestServer(t, up.URL())

	rec := do(h, http.MethodPost, "/api/auth/register", strings.NewReader(`{"first_name":"A","last_name":"B","username":"u"}`))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Missing or invalid: first_name, last_name, username, password" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodPost, "/api/auth/register", strings.NewReader(`{"first_name":"A","last_name":"B","username":"u","password":"p"}`))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"ok":true}` {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestMissingUpstream(t *testing.T) {
	h := newTestServer(t, "")
	for _, target := range []string{"/api/songs", "/api/playlist", "/api/songs/download/1"} {
		rec := do(h, http.MethodGet, target, nil)
		if rec.Code != http.StatusInternalServerError || decodeError(t, rec) != "Server misconfiguration: API_BASE_URL not set" {
			t.Errorf("%s: unexpected response %d %s", target, rec.Code, rec.Body.String())
		}
	}
}

func TestSongs(t *testing.T) {
	const page = `{"result":{"items":[{"id":1,"title":"A","artist_name":"X","duration":"125.4"}],"_meta":{"currentPage":1,"pageCount":2,"perPage":1,"totalCount":2}}}`

	t.Run("forwards query and bearer token", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodGet, "/song", 200, page)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodGet, "/api/songs?page=1&per-page=1&filter%5Btitle%5D%5Blike%5D=abc", nil, session("tok", testNow.Add(time.Hour))...)
		if rec.Code != http.StatusOK || rec.Body.String() != page {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}

		sent := up.Last()
		if sent.Authorization != "Bearer tok" {
			t.Errorf("expected bearer header, got %q", sent.Authorization)
		}
		q, _ := url.ParseQuery(sent.RawQuery)
		if q.Get("filter[title][like]") != "abc" || q.Get("per-page") != "1" {
			t.Errorf("unexpected upstream query %s", sent.RawQuery)
		}
	})

	t.Run("expired session goes upstream anonymously", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodGet, "/song", 401, `{"message":"Unauthorized"}`)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodGet, "/api/songs", nil, session("tok", testNow.Add(-time.Second))...)
		if up.Last().Authorization != "" {
			t.Errorf("expected no bearer header, got %q", up.Last().Authorization)
		}
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Unauthorized") {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("non JSON failure becomes the route default", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.Handle(http.MethodGet, "/song", tu.Reply{Status: 500, Body: "<html>oops</html>", ContentType: "text/html"})
		rec := do(newTestServer(t, up.URL()), http.MethodGet, "/api/songs", nil)

		if rec.Code != http.StatusInternalServerError || decodeError(t, rec) != "Failed to fetch songs" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestDownload(t *testing.T) {
	up := tu.NewUpstream(t)
	up.Handle(http.MethodGet, "/song/download/42", tu.Reply{Body: "ID3audio", ContentType: "application/octet-stream"})
	up.Handle(http.MethodGet, "/song/download/7", tu.Reply{Status: 404, Body: `{"error":"gone"}`, ContentType: "application/json"})
	h := newTestServer(t, up.URL())

	rec := do(h, http.MethodGet, "/api/songs/download/42", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ID3audio" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "audio/mpeg" {
		t.Errorf("unexpected content type %s", rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="song-42.mp3"` {
		t.Errorf("unexpected disposition %s", got)
	}

	rec = do(h, http.MethodGet, "/api/songs/download/7", nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec) != "Download failed" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	if got := unsafeIDChars.ReplaceAllString(`4"2;x/../y`, ""); got != "42xy" {
		t.Errorf("unexpected sanitized id %q", got)
	}
}

func TestPlaylists(t *testing.T) {
	t.Run("create trims and validates", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/playlist", 200, `{"result":{"id":3}}`)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodPost, "/api/playlist", strings.NewReader(`{"title":"   "}`))
		if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Missing or invalid: title" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}

		rec = do(h, http.MethodPost, "/api/playlist", strings.NewReader(`{"title":" Mix ","cover":"  "}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if got := string(up.Last().Body); got != `{"title":"Mix"}` {
			t.Errorf("unexpected upstream body %s", got)
		}
	})

	t.Run("update accepts PUT and forwards the body", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPatch, "/playlist/5", 200, `{"ok":true}`)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodPut, "/api/playlist/5", strings.NewReader(`{"title":"New"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if last := up.Last(); last.Method != http.MethodPatch || string(last.Body) != `{"title":"New"}` {
			t.Errorf("unexpected upstream request %+v", last)
		}

		rec = do(h, http.MethodPatch, "/api/playlist/5", strings.NewReader(`nope`))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("add song accepts numeric strings", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodPost, "/playlist/add-song/5", 200, `{"ok":true}`)
		h := newTestServer(t, up.URL())

		rec := do(h, http.MethodPost, "/api/playlist/add-song/5", strings.NewReader(`{"song_id":"12"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if got := string(up.Last().Body); got != `{"song_id":12}` {
			t.Errorf("unexpected upstream body %s", got)
		}

		for _, body := range []string{`{}`, `{"song_id":true}`, `{"song_id":"abc"}`} {
			rec := do(h, http.MethodPost, "/api/playlist/add-song/5", strings.NewReader(body))
			if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Missing or invalid: song_id" {
				t.Errorf("%s: unexpected response %d %s", body, rec.Code, rec.Body.String())
			}
		}
	})

	t.Run("remove song relays upstream errors", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.Handle(http.MethodDelete, "/playlist/remove-song/5", tu.Reply{Status: 503, Body: "down"})
		rec := do(newTestServer(t, up.URL()), http.MethodDelete, "/api/playlist/remove-song/5", strings.NewReader(`{"song_id":1}`))

		if rec.Code != http.StatusServiceUnavailable || decodeError(t, rec) != "Failed to remove song from playlist" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("delete and detail", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.JSON(http.MethodDelete, "/playlist/9", 200, `{"ok":true}`)
		up.Handle(http.MethodGet, "/playlist/9", tu.Reply{Status: 200, Body: ""})
		h := newTestServer(t, up.URL())

		if rec := do(h, http.MethodDelete, "/api/playlist/9", nil); rec.Code != http.StatusOK {
			t.Errorf("unexpected delete response %d", rec.Code)
		}
		rec := do(h, http.MethodGet, "/api/playlist/9", nil)
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
			t.Errorf("expected empty object for empty success, got %d %q", rec.Code, rec.Body.String())
		}
	})
}

func TestUploadCover(t *testing.T) {
	up := tu.NewUpstream(t)
	up.JSON(http.MethodPost, "/uploader/playlist-cover", 200, `{"result":"cover.png"}`)
	h := newTestServer(t, up.URL())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("image", "cover.png")
	part.Write([]byte("PNGDATA"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploader/playlist-cover", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != `{"result":"cover.png"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	sent := up.Last()
	if !strings.HasPrefix(sent.ContentType, "multipart/form-data") || !bytes.Contains(sent.Body, []byte("PNGDATA")) {
		t.Errorf("unexpected upstream request %s", sent.ContentType)
	}

	rec = do(h, http.MethodPost, "/api/uploader/playlist-cover", strings.NewReader("{}"))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Invalid form data" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestGate(t *testing.T) {
	h := newTestServer(t, "")

	t.Run("redirects to login with the original path", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/playlists", nil)
		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("expected redirect, got %d", rec.Code)
		}
		loc, _ := url.Parse(rec.Header().Get("Location"))
		if loc.Path != "/login" || loc.Query().Get("from") != "/playlists" {
			t.Errorf("unexpected location %s", loc)
		}
		for _, name := range []string{shared.TokenCookie, shared.ExpiresCookie} {
			if c := findCookie(rec.Result().Cookies(), name); c == nil || c.MaxAge >= 0 {
				t.Errorf("expected %s cleared", name)
			}
		}
	})

	t.Run("expired or unparseable expiration is logged out", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/", nil, session("tok", testNow.Add(-time.Minute))...)
		if rec.Code != http.StatusTemporaryRedirect {
			t.Errorf("expected redirect for expired token, got %d", rec.Code)
		}

		bad := []*http.Cookie{{Name: shared.TokenCookie, Value: "tok"}, {Name: shared.ExpiresCookie, Value: "garbage"}}
		if rec := do(h, http.MethodGet, "/", nil, bad...); rec.Code != http.StatusTemporaryRedirect {
			t.Errorf("expected redirect for unparseable expiration, got %d", rec.Code)
		}
	})

	t.Run("token without expiration is valid", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/discovery", nil, &http.Cookie{Name: shared.TokenCookie, Value: "tok"})
		if rec.Code != http.StatusOK || rec.Body.String() != "page /discovery" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("signed in users skip auth pages", func(t *testing.T) {
		for _, p := range []string{"/login", "/register", "/login/reset"} {
			rec := do(h, http.MethodGet, p, nil, session("tok", testNow.Add(time.Hour))...)
			if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/" {
				t.Errorf("%s: unexpected response %d %s", p, rec.Code, rec.Header().Get("Location"))
			}
		}
		if rec := do(h, http.MethodGet, "/login", nil); rec.Code != http.StatusOK {
			t.Errorf("expected login page for anonymous users, got %d", rec.Code)
		}
	})

	t.Run("assets pass through", func(t *testing.T) {
		for _, p := range []string{"/static/app.css", "/favicon.ico", "/_next/x"} {
			if rec := do(h, http.MethodGet, p, nil); rec.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", p, rec.Code)
			}
		}
	})
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, ""), http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginLimiter(t *testing.T) {
	clock := func() time.Time { return testNow }

	t.Run("tracks a bounded number of clients", func(t *testing.T) {
		l := newSizedLimiter(1, 2, time.Minute, clock)
		for _, host := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
			if !l.allow(host) {
				t.Errorf("first attempt from %s rejected", host)
			}
		}
		if got := l.clients.Len(); got != 2 {
			t.Errorf("expected 2 tracked clients, got %d", got)
		}
		if !l.allow("10.0.0.1") {
			t.Error("expected the oldest client to start with a fresh bucket")
		}
	})

	t.Run("idle buckets are dropped", func(t *testing.T) {
		l := newSizedLimiter(1, 10, 20*time.Millisecond, clock)
		if !l.allow("10.0.0.1") {
			t.Fatal("first attempt rejected")
		}
		if l.allow("10.0.0.1") {
			t.Fatal("expected the second attempt to be limited")
		}

		time.Sleep(60 * time.Millisecond)
		if !l.allow("10.0.0.1") {
			t.Error("expected a fresh bucket after the idle window")
		}
	})

	t.Run("disabled limiter allows everything", func(t *testing.T) {
		l := newLimiter(0, clock)
		for range 5 {
			if !l.allow("10.0.0.1") {
				t.Fatal("expected no limit")
			}
		}
	})
}
