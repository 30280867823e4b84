// Package web serves the browser shell: server-rendered pages that talk to the proxy's /api routes.
//
// # Pages
//
//	GET /                 → now playing
//	GET /discovery        → song search with infinite scroll
//	GET /playlists        → the user's playlists
//	GET /playlists/{id}   → one playlist with its songs
//	GET /login            → sign in
//	GET /register         → create an account
//
// Every page shares base.gohtml, which carries the bottom sheet player. The scripts in static/
// mirror the terminal player: a 300ms search debounce, page-at-a-time loading and one audio
// element bound to the now-playing state.
//
// # Assets
//
// Static files live under /static and the default cover is served at [models.DefaultCoverURL].
// The route gate lets both through without a session because their paths contain a dot or the
// /static prefix.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/desertthunder/musix/internal/models"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// page is one rendered route.
type page struct {
	Title    string
	Template string
	Nav      string
	Auth     bool
}

var pages = map[string]page{
	"/":          {Title: "Now playing", Template: "home.gohtml", Nav: "home"},
	"/discovery": {Title: "Discover", Template: "discovery.gohtml", Nav: "discovery"},
	"/playlists": {Title: "Playlists", Template: "playlists.gohtml", Nav: "playlists"},
	"/login":     {Title: "Sign in", Template: "login.gohtml", Auth: true},
	"/register":  {Title: "Create account", Template: "register.gohtml", Auth: true},
}

var playlistPage = page{Title: "Playlist", Template: "playlist.gohtml", Nav: "playlists"}

// View is the data every template receives.
type View struct {
	Page       page
	PlaylistID string
	MediaURL   string
	DefaultArt string
	PerPage    map[string]int
}

// Shell renders the pages and serves static assets.
type Shell struct {
	templates map[string]*template.Template
	static    http.Handler
	mediaURL  string
	logger    *log.Logger
}

// New parses the embedded templates. mediaURL is the cover host handed to the scripts.
func New(mediaURL string, logger *log.Logger) (*Shell, error) {
	templates := make(map[string]*template.Template)
	all := append([]page{playlistPage}, lo.Values(pages)...)
	for _, p := range all {
		tpl, err := template.ParseFS(templateFS, "templates/base.gohtml", "templates/"+p.Template)
		if err != nil {
			return nil, err
		}
		templates[p.Template] = tpl
	}

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	return &Shell{
		templates: templates,
		static:    http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
		mediaURL:  strings.TrimRight(mediaURL, "/"),
		logger:    logger,
	}, nil
}

// Routes returns the path patterns this handler serves.
func (s *Shell) Routes() []string {
	return []string{"/", "/*"}
}

func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := path.Clean(r.URL.Path)
	switch {
	case strings.HasPrefix(p, "/static/"):
		s.static.ServeHTTP(w, r)
	case p == models.DefaultCoverURL:
		http.Redirect(w, r, "/static/default-cover.svg", http.StatusFound)
	case strings.HasPrefix(p, "/playlists/"):
		id := strings.TrimPrefix(p, "/playlists/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		s.render(w, playlistPage, id)
	default:
		pg, ok := pages[p]
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.render(w, pg, "")
	}
}

func (s *Shell) render(w http.ResponseWriter, p page, playlistID string) {
	view := View{
		Page:       p,
		PlaylistID: playlistID,
		MediaURL:   s.mediaURL,
		DefaultArt: models.DefaultCoverURL,
		PerPage: map[string]int{
			"songs":     models.DefaultSongsPerPage,
			"playlists": models.DefaultPlaylistPerPage,
		},
	}

	var buf bytes.Buffer
	if err := s.templates[p.Template].ExecuteTemplate(&buf, "base", view); err != nil {
		s.logger.Error("failed to render page", "template", p.Template, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
