package goldmark_test

import (
	"context"
	"testing"

	"github.com/mdview/mdview/goldmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	r := goldmark.NewRenderer()

	html, err := r.Render(context.Background(), "# Title\n\nSome *emphasis*.")

	require.NoError(t, err)
	assert.Contains(t, html, `<h1 id="title">Title</h1>`)
	assert.Contains(t, html, "<em>emphasis</em>")
}

func TestRenderer_GFMTables(t *testing.T) {
	t.Parallel()

	r := goldmark.NewRenderer()

	html, err := r.Render(context.Background(), "| a | b |\n|---|---|\n| 1 | 2 |")

	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestRenderer_TaskLists(t *testing.T) {
	t.Parallel()

	r := goldmark.NewRenderer()

	html, err := r.Render(context.Background(), "- [x] done\n- [ ] todo")

	require.NoError(t, err)
	assert.Contains(t, html, `type="checkbox"`)
}

func TestRenderer_RawHTMLPassthrough(t *testing.T) {
	t.Parallel()

	// Trusted mode keeps raw HTML, like rendering your own README
	r := goldmark.NewRenderer()

	html, err := r.Render(context.Background(), `<p align="center">centered</p>`)

	require.NoError(t, err)
	assert.Contains(t, html, `<p align="center">`)
}

func TestRenderer_UserContentSanitizesHTML(t *testing.T) {
	t.Parallel()

	r := goldmark.NewRenderer(goldmark.WithUserContent())

	html, err := r.Render(context.Background(), "hello <script>alert(1)</script> world")

	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "hello")
}

func TestRenderer_CanceledContext(t *testing.T) {
	t.Parallel()

	r := goldmark.NewRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, "# Hi")

	assert.ErrorIs(t, err, context.Canceled)
}
