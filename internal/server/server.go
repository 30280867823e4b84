package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Server proxies the upstream API and serves the gated web shell.
type Server struct {
	config shared.Config
	api    *services.APIService
	logger *log.Logger
	web    Handler
	now    func() time.Time
	login  *limiter
}

// Option configures a [Server].
type Option func(*Server)

// WithWeb mounts the page handler behind the route gate.
func WithWeb(h Handler) Option {
	return func(s *Server) { s.web = h }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithAPI replaces the upstream client built from the config.
func WithAPI(api *services.APIService) Option {
	return func(s *Server) { s.api = api }
}

// New creates a server for the given configuration.
func New(config shared.Config, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Server{config: config, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if s.api == nil {
		client := &http.Client{
			Timeout:   config.Upstream.Timeout(),
			Transport: services.NewRetryTransport(nil, logger),
		}
		s.api = services.NewAPIService(config.Upstream.APIBaseURL, client)
	}
	s.login = newLimiter(config.Server.LoginRatePerMinute, s.now)
	return s
}

// Secure reports whether cookies carry the Secure attribute.
func (s *Server) Secure() bool {
	return s.config.Server.Production()
}

// Routes builds the full handler.
func (s *Server) Routes() http.Handler {
	r := NewBasicRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(s.logger), Recoverer(s.logger))

	stream, api := r, r
	if timeout := s.config.Server.RequestTimeout(); timeout > 0 {
		api = r.With(middleware.Timeout(timeout))
	}

	api.HandleFunc(http.MethodGet, "/api/health", s.health)

	api.HandleFunc(http.MethodGet, "/api/songs", s.listSongs)
	stream.HandleFunc(http.MethodGet, "/api/songs/download/{id}", s.downloadSong)

	api.HandleFunc(http.MethodGet, "/api/playlist", s.listPlaylists)
	api.HandleFunc(http.MethodPost, "/api/playlist", s.createPlaylist)
	api.HandleFunc(http.MethodGet, "/api/playlist/{id}", s.getPlaylist)
	api.HandleFunc(http.MethodPatch, "/api/playlist/{id}", s.updatePlaylist)
	api.HandleFunc(http.MethodPut, "/api/playlist/{id}", s.updatePlaylist)
	api.HandleFunc(http.MethodDelete, "/api/playlist/{id}", s.deletePlaylist)
	api.HandleFunc(http.MethodPost, "/api/playlist/add-song/{id}", s.addSong)
	api.HandleFunc(http.MethodDelete, "/api/playlist/remove-song/{id}", s.removeSong)
	api.HandleFunc(http.MethodPost, "/api/uploader/playlist-cover", s.uploadCover)

	api.With(s.login.Middleware).HandleFunc(http.MethodPost, "/api/auth/login", s.loginUser)
	api.HandleFunc(http.MethodPost, "/api/auth/register", s.registerUser)
	api.HandleFunc(http.MethodPost, "/api/auth/logout", s.logoutUser)

	if s.web != nil {
		r.With(Gate(s.now)).Handler(s.web)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if !s.api.Configured() {
		s.logger.Warn("upstream not configured; API routes will answer 500", "env", "API_BASE_URL")
	}

	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr, "upstream", s.api.BaseURL(), "env", s.config.Server.Environment)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
