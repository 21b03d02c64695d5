// Package campushub is a typed client for the campus housing marketplace API.
//
// Each Client owns its own cookie jar, so one Client corresponds to one
// upstream login. Mutating calls echo the csrf_token cookie back as the
// X-CSRF-Token header, the way the marketplace front end does.
package campushub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// ErrUnauthorized is returned for any 401; the caller is expected to send the
// operator back to the login screen.
var ErrUnauthorized = errors.New("campushub: unauthorized")

// APIError is a non-2xx response carrying a structured body.
type APIError struct {
	Status       int
	Message      string
	AttemptsLeft *int
	Body         map[string]any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("campushub: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("campushub: status %d", e.Status)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New returns a client for baseURL with a fresh cookie jar.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("campushub: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("campushub: base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// CSRFToken returns the csrf_token cookie the upstream last set, if any.
func (c *Client) CSRFToken() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("campushub: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet && method != http.MethodHead {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(csrfHeaderName, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("campushub: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("campushub: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, raw)
		log.Printf("[UPSTREAM] %s %s -> %d %s", method, path, resp.StatusCode, apiErr.Message)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("campushub: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Body = body
	for _, key := range []string{"error", "message", "msg"} {
		if s, ok := body[key].(string); ok && s != "" {
			apiErr.Message = s
			break
		}
	}
	if n, ok := body["attempts_left"].(float64); ok {
		left := int(n)
		apiErr.AttemptsLeft = &left
	}
	return apiErr
}
