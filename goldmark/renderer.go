// Package goldmark provides an offline mdview.Renderer built on the
// goldmark engine with GitHub-flavored Markdown extensions. Output is
// close to, but not byte-identical with, what the GitHub API produces.
package goldmark

import (
	"bytes"
	"context"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/mdview/mdview"
)

// Ensure Renderer implements mdview.Renderer at compile time.
var _ mdview.Renderer = (*Renderer)(nil)

// Renderer renders Markdown locally. The engine is stateless, so a single
// instance can be shared across concurrent refresh sessions without
// locking.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithUserContent enables user-content mode: raw HTML in the source is
// dropped by the engine and the rendered output is sanitized with a UGC
// policy, mirroring how GitHub treats untrusted content.
func WithUserContent() Option {
	return func(r *Renderer) {
		r.policy = bluemonday.UGCPolicy()
	}
}

// NewRenderer creates an offline renderer with GFM, autolinking, and task
// list support.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}

	rendererOptions := []goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	}
	if r.policy == nil {
		rendererOptions = append(rendererOptions,
			goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	r.md = goldmark.New(rendererOptions...)

	return r
}

// Render converts the Markdown text to HTML. The context is accepted for
// interface compatibility; rendering is purely local.
func (r *Renderer) Render(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", mdview.Errorf(mdview.EINTERNAL, "markdown conversion failed: %s", err)
	}
	if r.policy != nil {
		return r.policy.Sanitize(buf.String()), nil
	}
	return buf.String(), nil
}
