package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
)

const maxUploadBytes = 32 << 20

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// upstream reports whether the API is configured, answering 500 when it is not.
func (s *Server) upstream(w http.ResponseWriter) bool {
	if !s.api.Configured() {
		writeError(w, http.StatusInternalServerError, shared.ErrMissingUpstream.Error())
		return false
	}
	return true
}

func (s *Server) token(r *http.Request) string {
	return SessionToken(r, s.now())
}

// relay writes an upstream response: JSON bodies verbatim with the upstream status,
// anything else as {} on success or the route default error.
func relay(w http.ResponseWriter, resp *services.APIResponse, fallback string) {
	switch {
	case resp.IsJSON:
		writeRaw(w, resp.StatusCode, resp.Body)
	case resp.OK():
		writeJSON(w, resp.StatusCode, map[string]any{})
	default:
		writeError(w, resp.StatusCode, fallback)
	}
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request, req services.Request, fallback string) {
	resp, err := s.api.Do(r.Context(), req)
	if err != nil {
		s.logger.Error("upstream request failed", "method", req.Method, "path", req.Path, "err", err)
		writeError(w, http.StatusBadGateway, fallback)
		return
	}
	relay(w, resp, fallback)
}

func (s *Server) forwardJSON(w http.ResponseWriter, r *http.Request, method, path, token string, body any, fallback string) {
	req, err := services.JSONRequest(method, path, token, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.forward(w, r, req, fallback)
}

// readObject decodes a JSON object body, keeping numbers as [json.Number].
func readObject(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("body is not an object")
	}
	return body, nil
}

// stringFields returns the named fields when every one is a string.
func stringFields(body map[string]any, names ...string) (map[string]string, bool) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, ok := body[name].(string)
		if !ok {
			return nil, false
		}
		out[name] = v
	}
	return out, true
}

// songID accepts a JSON number or a numeric string.
func songID(v any) (json.Number, bool) {
	var raw string
	switch v := v.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return "", false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), true
}

// flatQuery keeps the last value of every query parameter.
func flatQuery(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, vs := range in {
		if len(vs) > 0 {
			out.Set(k, vs[len(vs)-1])
		}
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSongs(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	req := services.Request{Method: http.MethodGet, Path: "/song", Query: flatQuery(r.URL.Query()), Token: s.token(r)}
	s.forward(w, r, req, "Failed to fetch songs")
}

func (s *Server) downloadSong(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	id := URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing song id")
		return
	}

	req := services.Request{Method: http.MethodGet, Path: "/song/download/" + url.PathEscape(id), Token: s.token(r)}
	resp, err := s.api.Stream(r.Context(), req)
	if err != nil {
		s.logger.Error("download failed", "id", id, "err", err)
		writeError(w, http.StatusBadGateway, "Download failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		writeError(w, resp.StatusCode, "Download failed")
		return
	}

	safeID := unsafeIDChars.ReplaceAllString(id, "")
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="song-`+safeID+`.mp3"`)
	if n := resp.Header.Get("Content-Length"); n != "" {
		w.Header().Set("Content-Length", n)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Warn("download interrupted", "id", id, "err", err)
	}
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	req := services.Request{Method: http.MethodGet, Path: "/playlist", Query: flatQuery(r.URL.Query()), Token: s.token(r)}
	s.forward(w, r, req, "Failed to fetch playlists")
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	body, err := readObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	title, ok := body["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid: title")
		return
	}

	out := map[string]string{"title": strings.TrimSpace(title)}
	if cover, ok := body["cover"].(string); ok && strings.TrimSpace(cover) != "" {
		out["cover"] = strings.TrimSpace(cover)
	}
	s.forwardJSON(w, r, http.MethodPost, "/playlist", s.token(r), out, "Failed to create playlist")
}

func (s *Server) playlistID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing playlist id")
		return "", false
	}
	return url.PathEscape(id), true
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	id, ok := s.playlistID(w, r)
	if !ok {
		return
	}
	req := services.Request{Method: http.MethodGet, Path: "/playlist/" + id, Token: s.token(r)}
	s.forward(w, r, req, "Failed to fetch playlist")
}

func (s *Server) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	id, ok := s.playlistID(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(data) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	req := services.Request{
		Method:      http.MethodPatch,
		Path:        "/playlist/" + id,
		Body:        bytes.NewReader(data),
		ContentType: "application/json",
		Token:       s.token(r),
	}
	s.forward(w, r, req, "Failed to update playlist")
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	id, ok := s.playlistID(w, r)
	if !ok {
		return
	}
	req := services.Request{Method: http.MethodDelete, Path: "/playlist/" + id, ContentType: "application/json", Token: s.token(r)}
	s.forward(w, r, req, "Failed to delete playlist")
}

func (s *Server) membership(method, action, fallback string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.upstream(w) {
			return
		}
		id, ok := s.playlistID(w, r)
		if !ok {
			return
		}
		body, err := readObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		sid, ok := songID(body["song_id"])
		if !ok {
			writeError(w, http.StatusBadRequest, "Missing or invalid: song_id")
			return
		}
		out := map[string]json.Number{"song_id": sid}
		s.forwardJSON(w, r, method, "/playlist/"+action+"/"+id, s.token(r), out, fallback)
	}
}

func (s *Server) addSong(w http.ResponseWriter, r *http.Request) {
	s.membership(http.MethodPost, "add-song", "Failed to add song to playlist")(w, r)
}

func (s *Server) removeSong(w http.ResponseWriter, r *http.Request) {
	s.membership(http.MethodDelete, "remove-song", "Failed to remove song from playlist")(w, r)
}

func (s *Server) uploadCover(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if len(r.MultipartForm.File["image"]) == 0 {
		writeError(w, http.StatusBadRequest, "Missing or invalid: image")
		return
	}

	body, contentType, err := rebuildForm(r.MultipartForm)
	if err != nil {
		s.logger.Error("failed to rebuild upload form", "err", err)
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	req := services.Request{
		Method:      http.MethodPost,
		Path:        "/uploader/playlist-cover",
		Body:        body,
		ContentType: contentType,
		Token:       s.token(r),
	}
	s.forward(w, r, req, "Failed to upload cover")
}

// rebuildForm re-encodes a parsed multipart form for the upstream request.
func rebuildForm(form *multipart.Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, values := range form.Value {
		for _, v := range values {
			if err := mw.WriteField(name, v); err != nil {
				return nil, "", err
			}
		}
	}

	for name, headers := range form.File {
		for _, fh := range headers {
			if err := copyFile(mw, name, fh); err != nil {
				return nil, "", err
			}
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func copyFile(mw *multipart.Writer, field string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	header := make(map[string][]string, len(fh.Header))
	for k, v := range fh.Header {
		header[k] = v
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	body, err := readObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	creds, ok := stringFields(body, "username", "password")
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or invalid: username, password")
		return
	}

	resp, err := s.api.Post(r.Context(), "/site/login", "", creds)
	if err != nil {
		s.logger.Error("login request failed", "err", err)
		writeError(w, http.StatusBadGateway, "Login failed")
		return
	}
	if !resp.OK() {
		relay(w, resp, "Login failed")
		return
	}

	data := map[string]any{}
	if resp.IsJSON {
		dec := json.NewDecoder(bytes.NewReader(resp.Body))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil || data == nil {
			data = map[string]any{}
		}
	}

	result := data
	if nested, ok := data["result"].(map[string]any); ok {
		result = nested
	}
	token, _ := result["access_token"].(string)
	if token == "" {
		writeError(w, http.StatusBadGateway, shared.ErrMissingToken.Error())
		return
	}

	now := s.now()
	expires := ResolveExpiration(result, token, now)
	s.logger.Info("login succeeded", "username", creds["username"], "expires", shared.FormatExpiry(expires))

	data["message"] = "Logged in successfully"
	setCookies(w, SessionCookies(token, expires, now, s.Secure()))
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	if !s.upstream(w) {
		return
	}
	body, err := readObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	in, ok := stringFields(body, "first_name", "last_name", "username", "password")
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or invalid: first_name, last_name, username, password")
		return
	}
	s.forwardJSON(w, r, http.MethodPost, "/site/register", "", in, "Registration failed")
}

func (s *Server) logoutUser(w http.ResponseWriter, r *http.Request) {
	setCookies(w, ClearCookies())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
