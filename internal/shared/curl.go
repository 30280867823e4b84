// Utilities for importing a browser session from a copied cURL command.
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
	curlURLRe    = regexp.MustCompile(`https?://[^\s'"]+`)
)

// CurlRequest is the subset of a cURL command needed to reuse its session.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookies map[string]string
}

// ParseCurlFile reads a file containing a cURL command ("Copy as cURL" from browser devtools).
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the URL, headers and cookies of a cURL command.
//
// Cookies come from -b/--cookie or a Cookie header and are never kept in Headers.
func ParseCurlCommand(data []byte) (*CurlRequest, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	req := &CurlRequest{Headers: map[string]string{}, Cookies: map[string]string{}}
	req.URL = curlURLRe.FindString(cmd)

	var cookieLine string
	for _, m := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(m), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if cookieLine == "" {
				cookieLine = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := curlCookieRe.FindStringSubmatch(cmd); m != nil {
		cookieLine = firstGroup(m)
	}

	if cookieLine != "" {
		cookies, err := http.ParseCookie(cookieLine)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed cookie: %w", ErrInvalidInput, err)
		}
		for _, c := range cookies {
			req.Cookies[c.Name] = c.Value
		}
	}

	if len(req.Headers) == 0 && len(req.Cookies) == 0 {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return req, nil
}

// Cookie returns the value of the named cookie and whether it was present.
func (c *CurlRequest) Cookie(name string) (string, bool) {
	v, ok := c.Cookies[name]
	return v, ok
}

func firstGroup(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
