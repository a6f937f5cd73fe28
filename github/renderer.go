// Package github provides an mdview.Renderer backed by the GitHub
// Markdown API, producing HTML identical to what github.com shows.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mdview/mdview"
	"golang.org/x/time/rate"
)

// DefaultRequestTimeout bounds a single render request.
const DefaultRequestTimeout = 15 * time.Second

// DefaultRequestsPerSecond is the client-side request budget. The API
// allows short bursts, so the limiter permits a small burst while keeping
// the steady rate low enough to stay clear of the unauthenticated quota.
const DefaultRequestsPerSecond = 2

// Ensure Renderer implements mdview.Renderer at compile time.
var _ mdview.Renderer = (*Renderer)(nil)

// Renderer renders Markdown by POSTing it to the GitHub API. In
// user-content mode GitHub applies its user-generated-content rules
// (hard breaks, @mentions, issue references against the context repo).
type Renderer struct {
	client      *http.Client
	limiter     *rate.Limiter
	apiURL      string
	userContent bool
	contextRepo string
	username    string
	password    string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAPIURL overrides the API base URL (e.g., a GitHub Enterprise host).
func WithAPIURL(url string) Option {
	return func(r *Renderer) {
		r.apiURL = strings.TrimRight(url, "/")
	}
}

// WithUserContent enables user-content rendering against the given
// context repository ("owner/repo"). The repository may be empty.
func WithUserContent(contextRepo string) Option {
	return func(r *Renderer) {
		r.userContent = true
		r.contextRepo = contextRepo
	}
}

// WithCredentials sets basic-auth credentials, raising the API quota.
// The password may be a personal access token.
func WithCredentials(username, password string) Option {
	return func(r *Renderer) {
		r.username = username
		r.password = password
	}
}

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Renderer) {
		r.client = client
	}
}

// NewRenderer creates a GitHub API renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		apiURL:  mdview.DefaultAPIURL,
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 5),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return r
}

// Render sends the Markdown text to the API and returns the HTML body.
// A 403 response maps to ERATELIMITED; any other non-200 response maps
// to EINTERNAL.
func (r *Renderer) Render(ctx context.Context, text string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := r.newRequest(ctx, text)
	if err != nil {
		return "", err
	}
	if r.username != "" || r.password != "" {
		req.SetBasicAuth(r.username, r.password)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return string(body), nil
	case http.StatusForbidden:
		return "", mdview.Errorf(mdview.ERATELIMITED, "GitHub API rate limit exceeded")
	default:
		return "", mdview.Errorf(mdview.EINTERNAL, "GitHub API returned HTTP %d", resp.StatusCode)
	}
}

func (r *Renderer) newRequest(ctx context.Context, text string) (*http.Request, error) {
	if !r.userContent {
		url := r.apiURL + "/markdown/raw"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(text))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/x-markdown; charset=UTF-8")
		return req, nil
	}

	payload := struct {
		Text    string `json:"text"`
		Mode    string `json:"mode"`
		Context string `json:"context,omitempty"`
	}{Text: text, Mode: "gfm", Context: r.contextRepo}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL+"/markdown", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return req, nil
}
