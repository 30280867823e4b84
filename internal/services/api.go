// API service for making raw HTTP requests to the upstream music API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// APIService makes raw HTTP requests to the upstream music API on behalf of the proxy.
//
// Requests are authenticated per call: a non-empty token is attached as a bearer
// header through an [oauth2.Transport], an empty one sends the request anonymously.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the upstream at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: client,
	}
}

// BaseURL returns the upstream root without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// Configured reports whether an upstream URL is set.
func (a *APIService) Configured() bool {
	return a.baseURL != ""
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Request describes one upstream call.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        io.Reader
	ContentType string
	Token       string
}

// JSONRequest builds a request whose body is v encoded as JSON.
func JSONRequest(method, path, token string, v any) (Request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode request body: %w", err)
	}
	return Request{
		Method:      method,
		Path:        path,
		Body:        bytes.NewReader(data),
		ContentType: "application/json",
		Token:       token,
	}, nil
}

// clientFor returns a client that authenticates with token, or the base client when token is empty.
func (a *APIService) clientFor(token string) *http.Client {
	if token == "" {
		return a.httpClient
	}

	base := a.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	return &http.Client{
		Transport:     &oauth2.Transport{Source: src, Base: base},
		Timeout:       a.httpClient.Timeout,
		CheckRedirect: a.httpClient.CheckRedirect,
		Jar:           a.httpClient.Jar,
	}
}

func (a *APIService) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL := a.baseURL + r.Path
	if len(r.Query) > 0 {
		fullURL += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	return req, nil
}

// Do performs r and buffers the response body.
func (a *APIService) Do(ctx context.Context, r Request) (*APIResponse, error) {
	req, err := a.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := a.clientFor(r.Token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		IsJSON:     json.Valid(body),
	}, nil
}

// Stream performs r and returns the live response. The caller must close its body.
func (a *APIService) Stream(ctx context.Context, r Request) (*http.Response, error) {
	req, err := a.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")

	resp, err := a.clientFor(r.Token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Get performs a GET request to the specified path.
func (a *APIService) Get(ctx context.Context, path string, query url.Values, token string) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Token: token})
}

// Post performs a POST request with v encoded as JSON.
func (a *APIService) Post(ctx context.Context, path, token string, v any) (*APIResponse, error) {
	req, err := JSONRequest(http.MethodPost, path, token, v)
	if err != nil {
		return nil, err
	}
	return a.Do(ctx, req)
}
