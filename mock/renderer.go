package mock

import (
	"context"

	"github.com/mdview/mdview"
)

var _ mdview.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of mdview.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, text string) (string, error)
}

func (r *Renderer) Render(ctx context.Context, text string) (string, error) {
	return r.RenderFn(ctx, text)
}
