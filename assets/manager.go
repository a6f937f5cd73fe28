// Package assets manages the stylesheets served alongside rendered pages.
// Style URLs are scraped from a live GitHub page so previews track the
// styles GitHub actually ships, then downloaded into a local cache.
package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"

	"github.com/mdview/mdview"
)

// DefaultPageURL is the page scraped for stylesheet links.
const DefaultPageURL = "https://github.com"

// DefaultFetchTimeout bounds style scraping and downloads.
const DefaultFetchTimeout = 15 * time.Second

// assetURLPattern matches url(...) references inside a stylesheet.
var assetURLPattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// fontMimetypes maps font extensions to the types used for data URLs.
var fontMimetypes = map[string]string{
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
	".svg":   "image/svg+xml",
}

// Manager downloads, caches, and serves the styles used by rendered
// pages. A Manager with an empty cache path works purely from memory.
type Manager struct {
	client    *http.Client
	cachePath string
	pageURL   string
	styleURLs []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithCachePath enables the on-disk style cache rooted at dir.
func WithCachePath(dir string) Option {
	return func(m *Manager) {
		m.cachePath = dir
	}
}

// WithStyleURLs pins the style URLs, skipping scraping entirely.
func WithStyleURLs(urls []string) Option {
	return func(m *Manager) {
		m.styleURLs = urls
	}
}

// WithPageURL overrides the page scraped for stylesheet links.
func WithPageURL(pageURL string) Option {
	return func(m *Manager) {
		m.pageURL = pageURL
	}
}

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// NewManager creates a style asset manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		pageURL: DefaultPageURL,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return m
}

// StyleURLs returns the stylesheet URLs for rendered pages, scraping the
// source page when none were pinned.
func (m *Manager) StyleURLs(ctx context.Context) ([]string, error) {
	if len(m.styleURLs) > 0 {
		return append([]string(nil), m.styleURLs...), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, mdview.Errorf(mdview.EINTERNAL, "style source returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse style source page: %w", err)
	}

	base, err := url.Parse(m.pageURL)
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		urls = append(urls, base.ResolveReference(ref).String())
	})

	return urls, nil
}

// Retrieve downloads every style into the cache and returns the hrefs
// pages should link: cached asset names under assetPrefix when caching is
// enabled, the remote URLs otherwise.
func (m *Manager) Retrieve(ctx context.Context, assetPrefix string) ([]string, error) {
	styleURLs, err := m.StyleURLs(ctx)
	if err != nil {
		return nil, err
	}
	if m.cachePath == "" {
		return styleURLs, nil
	}

	if err := os.MkdirAll(m.cachePath, 0755); err != nil {
		return nil, err
	}

	hrefs := make([]string, 0, len(styleURLs))
	for _, styleURL := range styleURLs {
		name := cacheFilename(styleURL)
		if _, err := os.Stat(filepath.Join(m.cachePath, name)); os.IsNotExist(err) {
			content, err := m.download(ctx, styleURL)
			if err != nil {
				return nil, err
			}
			if err := os.WriteFile(filepath.Join(m.cachePath, name), content, 0644); err != nil {
				return nil, err
			}
		}
		hrefs = append(hrefs, strings.TrimRight(assetPrefix, "/")+"/"+name)
	}
	return hrefs, nil
}

// Open returns the content and mimetype of a cached asset by name.
// Returns ENOTFOUND for unknown names or names escaping the cache dir.
func (m *Manager) Open(name string) ([]byte, string, error) {
	if m.cachePath == "" || name != filepath.Base(name) {
		return nil, "", mdview.Errorf(mdview.ENOTFOUND, "asset %q not found", name)
	}
	b, err := os.ReadFile(filepath.Join(m.cachePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", mdview.Errorf(mdview.ENOTFOUND, "asset %q not found", name)
		}
		return nil, "", err
	}
	return b, "text/css; charset=utf-8", nil
}

// InlineStyles returns the style contents with url(...) references to
// remote assets (fonts, images) replaced by data URLs, producing styles
// that work in a standalone exported page.
func (m *Manager) InlineStyles(ctx context.Context) ([]string, error) {
	styleURLs, err := m.StyleURLs(ctx)
	if err != nil {
		return nil, err
	}

	styles := make([]string, 0, len(styleURLs))
	for _, styleURL := range styleURLs {
		content, err := m.download(ctx, styleURL)
		if err != nil {
			return nil, err
		}
		base, err := url.Parse(styleURL)
		if err != nil {
			return nil, err
		}
		inlined, err := m.inlineAssetURLs(ctx, base, string(content))
		if err != nil {
			return nil, err
		}
		styles = append(styles, inlined)
	}
	return styles, nil
}

// Clear removes the style cache.
func (m *Manager) Clear() error {
	if m.cachePath == "" {
		return nil
	}
	return os.RemoveAll(m.cachePath)
}

func (m *Manager) inlineAssetURLs(ctx context.Context, base *url.URL, content string) (string, error) {
	var inlineErr error
	result := assetURLPattern.ReplaceAllStringFunc(content, func(match string) string {
		if inlineErr != nil {
			return match
		}
		ref := assetURLPattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(ref, "data:") {
			return match
		}
		refURL, err := url.Parse(ref)
		if err != nil {
			return match
		}
		assetURL := base.ResolveReference(refURL)

		b, err := m.download(ctx, assetURL.String())
		if err != nil {
			inlineErr = err
			return match
		}
		mt := fontMimetypes[strings.ToLower(filepath.Ext(stripURLParams(assetURL.Path)))]
		if mt == "" {
			mt = "application/octet-stream"
		}
		encoded := base64.StdEncoding.EncodeToString(b)
		return fmt.Sprintf("url(data:%s;base64,%s)", mt, encoded)
	})
	if inlineErr != nil {
		return "", inlineErr
	}
	return result, nil
}

func (m *Manager) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, mdview.Errorf(mdview.EINTERNAL, "download %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// cacheFilename derives a stable cache name from a style URL. Hashing the
// full URL keeps distinct query-versioned styles from colliding.
func cacheFilename(rawURL string) string {
	return fmt.Sprintf("%016x.css", xxhash.Sum64String(rawURL))
}

func stripURLParams(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}
