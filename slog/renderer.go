// Package slog provides logging decorators for mdview interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdview/mdview"
)

// Ensure LoggingRenderer implements mdview.Renderer.
var _ mdview.Renderer = (*LoggingRenderer)(nil)

// LoggingRenderer wraps a Renderer with debug logging of render latency
// and output size.
type LoggingRenderer struct {
	next   mdview.Renderer
	logger *slog.Logger
}

// NewLoggingRenderer creates a new LoggingRenderer.
func NewLoggingRenderer(next mdview.Renderer, logger *slog.Logger) *LoggingRenderer {
	return &LoggingRenderer{next: next, logger: logger}
}

// Render delegates to the wrapped renderer and logs the outcome.
func (r *LoggingRenderer) Render(ctx context.Context, text string) (string, error) {
	begin := time.Now()
	html, err := r.next.Render(ctx, text)
	if err != nil {
		r.logger.Debug("render failed",
			"code", mdview.ErrorCode(err),
			"duration", time.Since(begin),
		)
		return "", err
	}
	r.logger.Debug("render",
		"input_bytes", len(text),
		"output_bytes", len(html),
		"duration", time.Since(begin),
	)
	return html, nil
}
