package http

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/mdview/mdview"
)

// pageData feeds the index template.
type pageData struct {
	Title          string
	Content        template.HTML
	StyleHrefs     []string
	Styles         []template.CSS
	AutorefreshURL string
	Wide           bool
}

// handlePage renders a document, or serves it raw when binary.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	subpath := chi.URLParam(r, "*")
	if normalized := s.Reader.NormalizeSubpath(subpath); normalized != subpath {
		http.Redirect(w, r, "/"+normalized, http.StatusFound)
		return
	}

	raw, err := s.Reader.Read(subpath)
	if err != nil {
		if mdview.ErrorCode(err) == mdview.ENOTFOUND {
			http.NotFound(w, r)
			return
		}
		http.Error(w, mdview.ErrorMessage(err), http.StatusInternalServerError)
		return
	}

	if s.Reader.IsBinary(subpath) {
		s.serveRaw(w, r, raw, s.Reader.MimetypeFor(subpath))
		return
	}

	text, metaTitle := stripFrontmatter(string(raw))

	content, err := s.Renderer.Render(r.Context(), text)
	if err != nil {
		if mdview.ErrorCode(err) == mdview.ERATELIMITED {
			s.renderRateLimitPage(w)
			return
		}
		http.Error(w, mdview.ErrorMessage(err), http.StatusInternalServerError)
		return
	}

	title := s.Title
	if title == "" {
		title = metaTitle
	}
	if title == "" {
		title = s.Reader.FilenameFor(subpath) + " - mdview"
	}

	var autorefreshURL string
	if s.Autorefresh {
		autorefreshURL = s.urlPrefix() + "/refresh/" + subpath
	}

	s.renderPage(w, pageData{
		Title:          title,
		Content:        template.HTML(content),
		StyleHrefs:     s.styleHrefs(r.Context()),
		AutorefreshURL: autorefreshURL,
		Wide:           s.WideStyle,
	})
}

// serveRaw writes a binary document with an xxhash-derived ETag so
// repeated loads of embedded images revalidate cheaply.
func (s *Server) serveRaw(w http.ResponseWriter, r *http.Request, raw []byte, mimetype string) {
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(raw))
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", mimetype)
	w.Header().Set("ETag", etag)
	_, _ = w.Write(raw)
}

// handleAsset serves a cached style asset by name.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if s.Assets == nil {
		http.NotFound(w, r)
		return
	}
	name := path.Base(chi.URLParam(r, "*"))
	b, mimetype, err := s.Assets.Open(name)
	if err != nil {
		if mdview.ErrorCode(err) == mdview.ENOTFOUND {
			http.NotFound(w, r)
			return
		}
		http.Error(w, mdview.ErrorMessage(err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mimetype)
	_, _ = w.Write(b)
}

// handleRateLimitPreview shows the rate-limit page without having to
// exhaust the API quota first.
func (s *Server) handleRateLimitPreview(w http.ResponseWriter, r *http.Request) {
	s.renderRateLimitPage(w)
}

func (s *Server) renderRateLimitPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	if err := pageTemplates.ExecuteTemplate(w, "limit.html.tmpl", nil); err != nil {
		s.logger().Error("render rate-limit page", "error", err)
	}
}

func (s *Server) renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		s.logger().Error("render page", "error", err)
	}
}

// Export renders a document as a standalone HTML page with all styles
// inlined, without starting a server. Binary documents cannot be
// exported.
func (s *Server) Export(ctx context.Context, subpath string, out io.Writer) error {
	raw, err := s.Reader.Read(subpath)
	if err != nil {
		return err
	}
	if s.Reader.IsBinary(subpath) {
		return mdview.Errorf(mdview.EINVALID, "cannot export binary document %q", subpath)
	}

	text, metaTitle := stripFrontmatter(string(raw))

	content, err := s.Renderer.Render(ctx, text)
	if err != nil {
		return err
	}

	var styles []template.CSS
	if s.Assets != nil {
		inlined, err := s.Assets.InlineStyles(ctx)
		if err != nil {
			return fmt.Errorf("inline styles: %w", err)
		}
		for _, css := range inlined {
			styles = append(styles, template.CSS(css))
		}
	}

	title := s.Title
	if title == "" {
		title = metaTitle
	}
	if title == "" {
		title = s.Reader.FilenameFor(subpath) + " - mdview"
	}

	return pageTemplates.ExecuteTemplate(out, "index.html.tmpl", pageData{
		Title:   title,
		Content: template.HTML(content),
		Styles:  styles,
		Wide:    s.WideStyle,
	})
}

// styleHrefs resolves the stylesheet links for a served page. Style
// failures degrade to an unstyled page rather than failing the request.
func (s *Server) styleHrefs(ctx context.Context) []string {
	if s.Assets == nil {
		return nil
	}
	hrefs, err := s.Assets.Retrieve(ctx, s.urlPrefix()+"/asset/")
	if err != nil {
		s.logger().Warn("style retrieval failed", "error", err)
		return nil
	}
	return hrefs
}

// stripFrontmatter removes a leading YAML frontmatter block and returns
// the remaining text plus the frontmatter title, if any. Malformed
// frontmatter is left in place so the document still renders.
func stripFrontmatter(text string) (string, string) {
	var meta struct {
		Title string `yaml:"title"`
	}
	rest, err := frontmatter.Parse(strings.NewReader(text), &meta)
	if err != nil {
		return text, ""
	}
	return string(rest), meta.Title
}
