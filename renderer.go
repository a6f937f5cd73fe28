package mdview

import "context"

// Renderer converts Markdown text into HTML.
// Implementations may call remote services; the context controls timeout
// and cancellation.
type Renderer interface {
	// Render returns the HTML for the given Markdown text.
	// Returns ERATELIMITED if a remote dependency refused the request with
	// a rate-limit response.
	Render(ctx context.Context, text string) (string, error)
}
