package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
)

// APIError is a non-success answer from the proxy. Message is the upstream error, verbatim when one was sent.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return shared.ErrNotAuthenticated
	}
	return shared.ErrAPIRequest
}

// PageQuery parameterizes one page of a list.
type PageQuery struct {
	Page    int
	PerPage int
	Term    string
}

// Values encodes the query as page, per-page and filter[title][like].
func (q PageQuery) Values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.PerPage > 0 {
		v.Set("per-page", strconv.Itoa(q.PerPage))
	}
	if term := strings.TrimSpace(q.Term); term != "" {
		v.Set("filter[title][like]", term)
	}
	return v
}

// RegisterInput is the body of a registration.
type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// PlaylistUpdate carries the fields to change. Nil fields are left out.
type PlaylistUpdate struct {
	Title *string `json:"title,omitempty"`
	Cover *string `json:"cover,omitempty"`
}

// Client talks to the musix proxy the way the web player does: session cookies
// in a jar, JSON in and out, and one transparent retry for reads.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying client. Its jar is replaced when nil.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the proxy at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q", shared.ErrInvalidConfig, baseURL)
	}

	c := &Client{base: base, logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 0, Transport: NewRetryTransport(nil, c.logger)}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the proxy root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// SetSession stores a token (and optional expiry) as the proxy's session cookies.
func (c *Client) SetSession(token string, expires time.Time) {
	cookies := []*http.Cookie{{Name: shared.TokenCookie, Value: url.QueryEscape(token), Path: "/"}}
	if !expires.IsZero() {
		cookies = append(cookies, &http.Cookie{Name: shared.ExpiresCookie, Value: url.QueryEscape(shared.FormatExpiry(expires)), Path: "/"})
	}
	c.http.Jar.SetCookies(c.base, cookies)
}

// ClearSession drops the session cookies.
func (c *Client) ClearSession() {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{
		{Name: shared.TokenCookie, Path: "/", MaxAge: -1},
		{Name: shared.ExpiresCookie, Path: "/", MaxAge: -1},
	})
}

// Session returns the token and expiry currently held in the jar.
func (c *Client) Session() (token string, expires time.Time, ok bool) {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		switch ck.Name {
		case shared.TokenCookie:
			token = unescape(ck.Value)
		case shared.ExpiresCookie:
			expires, _ = shared.ParseExpiry(unescape(ck.Value))
		}
	}
	return token, expires, token != ""
}

// unescape undoes the query escaping the proxy applies to cookie values.
func unescape(v string) string {
	if u, err := url.QueryUnescape(v); err == nil {
		return u
	}
	return v
}

// resolve turns a proxy path (or absolute URL) into a URL.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidArgument, path)
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	return resp, nil
}

// call performs a JSON round trip. On success the body is decoded into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, fallback string) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	resp, err := c.do(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out, fallback)
}

func decodeResponse(resp *http.Response, out any, fallback string) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: ErrorMessage(data, fallback)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

// ErrorMessage extracts a human readable error from a JSON body.
//
// It looks at "error" then "message" (strings, or objects with a message),
// accepts a bare JSON string and falls back to fallback.
func ErrorMessage(body []byte, fallback string) string {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fallback
	}

	switch v := raw.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		for _, key := range []string{"error", "message"} {
			switch inner := v[key].(type) {
			case string:
				if inner != "" {
					return inner
				}
			case map[string]any:
				if msg, ok := inner["message"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	return fallback
}

// LoginResult is the proxy's answer to a successful login.
type LoginResult struct {
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Login authenticates and stores the session cookies minted by the proxy in the jar.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	in := map[string]string{"username": username, "password": password}
	var out LoginResult
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", nil, in, &out, "Login failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, in RegisterInput) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", nil, in, &out, "Registration failed"); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout clears the session on the proxy and in the jar.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil, "Logout failed")
	c.ClearSession()
	return err
}

// Health returns the proxy's health status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, nil, &out, "Health check failed"); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Songs fetches one page of songs.
func (c *Client) Songs(ctx context.Context, q PageQuery) (models.Page[models.Song], error) {
	var raw models.Envelope[models.SongItem]
	if err := c.call(ctx, http.MethodGet, "/api/songs", q.Values(), nil, &raw, "Failed to fetch songs"); err != nil {
		return models.Page[models.Song]{}, err
	}
	return models.NormalizeSongs(raw), nil
}

// Playlists fetches one page of playlists. The title filter is not supported by the upstream and is ignored.
func (c *Client) Playlists(ctx context.Context, q PageQuery) (models.Page[models.Playlist], error) {
	q.Term = ""
	var raw models.Envelope[models.PlaylistItem]
	if err := c.call(ctx, http.MethodGet, "/api/playlist", q.Values(), nil, &raw, "Failed to fetch playlists"); err != nil {
		return models.Page[models.Playlist]{}, err
	}
	return models.NormalizePlaylists(raw), nil
}

// Playlist fetches a playlist with its songs.
func (c *Client) Playlist(ctx context.Context, id int64) (models.PlaylistDetail, error) {
	var raw models.DetailEnvelope
	path := fmt.Sprintf("/api/playlist/%d", id)
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &raw, "Failed to fetch playlist"); err != nil {
		return models.PlaylistDetail{}, err
	}

	detail, ok := models.NormalizePlaylistDetail(raw)
	if !ok {
		return models.PlaylistDetail{}, fmt.Errorf("%w: Invalid playlist response", shared.ErrPlaylistNotFound)
	}
	return detail, nil
}

// CreatePlaylist creates a playlist. An empty cover is left out.
func (c *Client) CreatePlaylist(ctx context.Context, title, cover string) (json.RawMessage, error) {
	in := map[string]string{"title": title}
	if strings.TrimSpace(cover) != "" {
		in["cover"] = cover
	}
	var out json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/api/playlist", nil, in, &out, "Failed to create playlist"); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePlaylist changes a playlist's title and/or cover.
func (c *Client) UpdatePlaylist(ctx context.Context, id int64, in PlaylistUpdate) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/api/playlist/%d", id)
	if err := c.call(ctx, http.MethodPatch, path, nil, in, &out, "Failed to update playlist"); err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/playlist/%d", id)
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil, "Failed to delete playlist")
}

// AddSong appends a song to a playlist.
func (c *Client) AddSong(ctx context.Context, playlistID, songID int64) error {
	path := fmt.Sprintf("/api/playlist/add-song/%d", playlistID)
	return c.call(ctx, http.MethodPost, path, nil, map[string]int64{"song_id": songID}, nil, "Failed to add song to playlist")
}

// RemoveSong removes a song from a playlist.
func (c *Client) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	path := fmt.Sprintf("/api/playlist/remove-song/%d", playlistID)
	return c.call(ctx, http.MethodDelete, path, nil, map[string]int64{"song_id": songID}, nil, "Failed to remove song from playlist")
}

// UploadCover uploads an image and returns the stored filename.
func (c *Client) UploadCover(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/uploader/playlist-cover", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var out map[string]json.RawMessage
	if err := decodeResponse(resp, &out, "Failed to upload cover"); err != nil {
		return "", err
	}
	return CoverFilename(out)
}

// CoverFilename reads the filename out of an upload response: result as a string,
// a top-level filename, or result.filename.
func CoverFilename(body map[string]json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(body["result"], &s); err == nil {
		return s, nil
	}
	if err := json.Unmarshal(body["filename"], &s); err == nil {
		return s, nil
	}
	var nested struct {
		Filename *string `json:"filename"`
	}
	if err := json.Unmarshal(body["result"], &nested); err == nil && nested.Filename != nil {
		return *nested.Filename, nil
	}
	return "", fmt.Errorf("%w: Upload response missing filename", shared.ErrAPIRequest)
}

// Open streams an audio source. path is usually a song's proxy download path.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &APIError{Status: resp.StatusCode, Message: ErrorMessage(data, "Download failed")}
	}
	return resp.Body, nil
}

// Download copies a song's audio into w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, songID int64, w io.Writer) (int64, error) {
	body, err := c.Open(ctx, fmt.Sprintf("/api/songs/download/%d", songID))
	if err != nil {
		return 0, err
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("failed to write audio: %w", err)
	}
	return n, nil
}

// IsUnauthorized reports whether err is a 401 from the proxy.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
