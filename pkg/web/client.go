package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SnippetSize caps how much of an error response body is kept for logs.
const SnippetSize = 500

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Snippet)
}

// Session holds the platform credentials and the browser identity every
// platform request is sent with.
type Session struct {
	Host      string
	Cookie    string
	CSRFToken string
	UserAgent string
}

// Origin is the platform origin, used for Referer and Origin headers.
func (s Session) Origin() string {
	return "https://" + s.Host
}

// SetPlatformHeaders sets the same-origin headers the platform web client sends.
func (s Session) SetPlatformHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", s.Cookie)
	req.Header.Set("csrf-token", s.CSRFToken)
	req.Header.Set("Priority", "u=3, i")
	req.Header.Set("Referer", s.Origin()+"/inbox/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("User-Agent", s.UserAgent)
}

// NewGet builds a GET request bound to ctx.
func NewGet(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// DoJSON sends req and decodes a 2xx JSON body into result. Other statuses
// produce a *StatusError carrying the start of the body.
func DoJSON(client HTTPClient, req *http.Request, result any) error {
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if !IsSuccess(res.StatusCode) {
		return &StatusError{StatusCode: res.StatusCode, Snippet: Snippet(res.Body)}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if err = json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding response: %w: %s", err, truncate(string(body)))
	}

	return nil
}

func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// Snippet reads at most SnippetSize bytes of r.
func Snippet(r io.Reader) string {
	buf, _ := io.ReadAll(io.LimitReader(r, SnippetSize))
	return strings.TrimSpace(string(buf))
}

func truncate(s string) string {
	if len(s) <= SnippetSize {
		return s
	}
	return s[:SnippetSize]
}
