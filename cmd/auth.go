package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/formatter"
	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
)

// AuthLogin logs in through the proxy and stores the minted session for the configured base URL.
//
// With --curl-file the session cookies are lifted from a browser request instead.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}

	username := strings.TrimSpace(cmd.String("username"))

	var session *models.Session
	if path := cmd.String("curl-file"); path != "" {
		session, err = r.sessionFromCurl(path)
	} else {
		session, err = r.sessionFromLogin(ctx, client, username, cmd.String("password"))
	}
	if err != nil {
		return err
	}

	session.BaseURL = client.BaseURL()
	if session.Username == "" {
		session.Username = username
	}

	repo, err := r.sessions()
	if err != nil {
		return err
	}
	if err := repo.Save(session); err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", session.Username, "base_url", session.BaseURL)
	if session.ExpiresAt != nil {
		return r.writePlain("✓ Logged in as %s (session expires %s)\n", session.Username, session.ExpiresAt.Local().Format(time.DateTime))
	}
	return r.writePlain("✓ Logged in as %s\n", session.Username)
}

func (r *Runner) sessionFromLogin(ctx context.Context, client *services.Client, username, password string) (*models.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: --username and --password are required", shared.ErrMissingArgument)
	}

	r.logger.Info("logging in", "user", username, "base_url", client.BaseURL())
	if _, err := client.Login(ctx, username, password); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	token, expires, ok := client.Session()
	if !ok {
		return nil, fmt.Errorf("%w: proxy did not set a session cookie", shared.ErrAuthFailed)
	}
	return newSession(username, token, expires), nil
}

func (r *Runner) sessionFromCurl(path string) (*models.Session, error) {
	req, err := shared.ParseCurlFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cURL file: %w", err)
	}
	r.logger.Info("parsed cURL from file", "file", path, "url", req.URL)

	token, ok := req.Cookie(shared.TokenCookie)
	if !ok || token == "" {
		return nil, fmt.Errorf("%w: cURL command has no %s cookie", shared.ErrMissingToken, shared.TokenCookie)
	}
	token = queryUnescape(token)

	var expires time.Time
	if raw, ok := req.Cookie(shared.ExpiresCookie); ok {
		if t, ok := shared.ParseExpiry(queryUnescape(raw)); ok {
			expires = t
		} else {
			r.logger.Warn("ignoring unparseable expiration cookie", "value", raw)
		}
	}
	return newSession("", token, expires), nil
}

func newSession(username, token string, expires time.Time) *models.Session {
	s := &models.Session{Username: username, AccessToken: token}
	if !expires.IsZero() {
		exp := expires.UTC()
		s.ExpiresAt = &exp
	}
	return s
}

func queryUnescape(v string) string {
	if u, err := url.QueryUnescape(v); err == nil {
		return u
	}
	return v
}

// AuthRegister creates an account through the proxy.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}

	in := services.RegisterInput{
		FirstName: cmd.String("first-name"),
		LastName:  cmd.String("last-name"),
		Username:  cmd.String("username"),
		Password:  cmd.String("password"),
	}

	r.logger.Info("registering", "user", in.Username)
	if _, err := client.Register(ctx, in); err != nil {
		return r.apiError(err)
	}

	r.writePlain("✓ Account %s created\n", in.Username)
	return r.writePlain("Run 'musix auth login -u %s' to sign in\n", in.Username)
}

// AuthLogout clears the proxy session and forgets the stored one. A failing proxy call is only logged.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}

	if err := client.Logout(ctx); err != nil {
		r.logger.Warn("proxy logout failed", "error", err)
	}

	repo, err := r.sessions()
	if err != nil {
		return err
	}
	if err := repo.Delete(client.BaseURL()); err != nil {
		return err
	}

	return r.writePlain("✓ Logged out of %s\n", client.BaseURL())
}

type sessionStatus struct {
	BaseURL   string     `json:"base_url"`
	Username  string     `json:"username"`
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type authStatus struct {
	BaseURL  string          `json:"base_url"`
	Proxy    string          `json:"proxy"`
	Sessions []sessionStatus `json:"sessions"`
}

// AuthStatus prints the stored sessions and checks the proxy health endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}
	repo, err := r.sessions()
	if err != nil {
		return err
	}

	stored, err := repo.List()
	if err != nil {
		return err
	}

	now := r.now()
	status := authStatus{BaseURL: client.BaseURL(), Sessions: []sessionStatus{}}
	sessions := make([]models.Session, 0, len(stored))
	for _, s := range stored {
		sessions = append(sessions, *s)
		status.Sessions = append(status.Sessions, sessionStatus{
			BaseURL:   s.BaseURL,
			Username:  s.Username,
			Valid:     s.Valid(now),
			ExpiresAt: s.ExpiresAt,
		})
	}

	if health, err := client.Health(ctx); err != nil {
		r.logger.Warn("proxy health check failed", "error", err)
		status.Proxy = "unreachable"
	} else {
		status.Proxy = health
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Proxy " + status.BaseURL)
	r.writePlain("Status: %s\n\n", status.Proxy)
	if len(sessions) == 0 {
		return r.writePlain("No stored sessions. Run 'musix auth login'.\n")
	}
	formatter.SessionsTable(r.output, sessions, now)
	return nil
}
