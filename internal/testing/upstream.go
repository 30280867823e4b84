package testing

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is one request seen by an [Upstream].
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	Body          []byte
}

// Reply is a canned upstream answer.
type Reply struct {
	Status      int
	Body        string
	ContentType string
	Headers     map[string]string
}

// Upstream is a scriptable stand-in for the remote music API.
//
// Routes are keyed by "METHOD /path" and answer with a fixed [Reply];
// unknown routes answer 404 with a JSON error.
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]Reply
	requests []RecordedRequest
}

// NewUpstream starts an upstream server that is closed when the test ends.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	u := &Upstream{routes: make(map[string]Reply)}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

// URL returns the server root.
func (u *Upstream) URL() string {
	return u.Server.URL
}

// Handle registers reply for method and path.
func (u *Upstream) Handle(method, path string, reply Reply) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[method+" "+path] = reply
}

// JSON registers a JSON reply.
func (u *Upstream) JSON(method, path string, status int, body string) {
	u.Handle(method, path, Reply{Status: status, Body: body, ContentType: "application/json"})
}

// Requests returns a copy of everything received so far.
func (u *Upstream) Requests() []RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]RecordedRequest(nil), u.requests...)
}

// Last returns the most recent request, or the zero value when none arrived.
func (u *Upstream) Last() RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		return RecordedRequest{}
	}
	return u.requests[len(u.requests)-1]
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	})
	reply, ok := u.routes[r.Method+" "+r.URL.Path]
	u.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
		return
	}

	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	for k, v := range reply.Headers {
		w.Header().Set(k, v)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, reply.Body)
}
