package services

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// RetryTransport retries an idempotent request once when the first attempt fails
// at the transport level or the server answers 502, 503 or 504.
type RetryTransport struct {
	Base   http.RoundTripper
	Delay  time.Duration
	Logger *log.Logger
}

// NewRetryTransport wraps base (or [http.DefaultTransport]).
func NewRetryTransport(base http.RoundTripper, logger *log.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{Base: base, Delay: 200 * time.Millisecond, Logger: logger}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if !retryable(req, resp, err) {
		return resp, err
	}

	if resp != nil {
		resp.Body.Close()
	}
	if t.Logger != nil {
		t.Logger.Debug("retrying request", "method", req.Method, "url", req.URL.String(), "err", err)
	}

	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-time.After(t.Delay):
	}
	return t.Base.RoundTrip(req)
}

func retryable(req *http.Request, resp *http.Response, err error) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	if req.Context().Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
