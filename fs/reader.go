// Package fs provides a filesystem-backed implementation of mdview.Reader
// for serving a local file or directory of Markdown documents.
package fs

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mdview/mdview"
)

// DefaultFilenames lists the filenames resolved when a request addresses a
// directory, in priority order, as defined by github/markup.
var DefaultFilenames = []string{
	"README.md", "README.markdown",
	"Readme.md", "Readme.markdown",
	"readme.md", "readme.markdown",
	"Home.md", "Home.markdown",
}

// markdownExtensions are extensions always treated as renderable text.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// mimetypeOverrides supplements the platform mime table with types the
// standard registry commonly lacks.
var mimetypeOverrides = map[string]string{
	".md":       "text/markdown; charset=utf-8",
	".markdown": "text/markdown; charset=utf-8",
	".woff":     "application/x-font-woff",
	".ttf":      "application/octet-stream",
}

// Ensure DirectoryReader implements mdview.Reader at compile time.
var _ mdview.Reader = (*DirectoryReader)(nil)

// DirectoryReader reads documents relative to a root directory. When the
// configured source is a single file, that file becomes the default
// document and its directory becomes the root.
type DirectoryReader struct {
	root        string
	defaultFile string // relative to root; empty means resolve per request
}

// NewDirectoryReader creates a reader for the given path. An empty path
// means the current directory. Returns ENOTFOUND if the path does not
// exist.
func NewDirectoryReader(sourcePath string) (*DirectoryReader, error) {
	if sourcePath == "" {
		sourcePath = "."
	}
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mdview.Errorf(mdview.ENOTFOUND, "no such file or directory: %s", sourcePath)
		}
		return nil, err
	}

	if info.IsDir() {
		return &DirectoryReader{root: abs}, nil
	}
	return &DirectoryReader{
		root:        filepath.Dir(abs),
		defaultFile: filepath.Base(abs),
	}, nil
}

// Root returns the absolute directory documents are served from.
func (r *DirectoryReader) Root() string {
	return r.root
}

// resolve maps a request subpath to an absolute file path under the root.
// Directory targets resolve to the first default filename present inside.
func (r *DirectoryReader) resolve(subpath string) (string, error) {
	if subpath == "" {
		if r.defaultFile != "" {
			return filepath.Join(r.root, r.defaultFile), nil
		}
		return r.findDefault(r.root)
	}

	// Root the path before cleaning so ".." segments cannot escape.
	cleaned := strings.TrimPrefix(path.Clean("/"+subpath), "/")
	full := filepath.Join(r.root, filepath.FromSlash(cleaned))

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", mdview.Errorf(mdview.ENOTFOUND, "document %q not found", subpath)
		}
		return "", err
	}
	if info.IsDir() {
		return r.findDefault(full)
	}
	return full, nil
}

func (r *DirectoryReader) findDefault(dir string) (string, error) {
	for _, name := range DefaultFilenames {
		full := filepath.Join(dir, name)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full, nil
		}
	}
	return "", mdview.Errorf(mdview.ENOTFOUND, "no README found in %s", dir)
}

// Read returns the raw content of the document.
func (r *DirectoryReader) Read(subpath string) ([]byte, error) {
	full, err := r.resolve(subpath)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mdview.Errorf(mdview.ENOTFOUND, "document %q not found", subpath)
		}
		return nil, err
	}
	return b, nil
}

// IsBinary reports whether the document would be served as a raw asset
// rather than rendered. Unknown extensions are treated as text, matching
// the behavior of serving an extensionless README.
func (r *DirectoryReader) IsBinary(subpath string) bool {
	full, err := r.resolve(subpath)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(full))
	if markdownExtensions[ext] {
		return false
	}
	mt := mime.TypeByExtension(ext)
	if mt == "" {
		return false
	}
	return !strings.HasPrefix(mt, "text/")
}

// LastUpdated derives a version marker from the file's modification time
// and size. Markers are opaque; only equality is meaningful.
func (r *DirectoryReader) LastUpdated(subpath string) (mdview.VersionMarker, error) {
	full, err := r.resolve(subpath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", mdview.Errorf(mdview.ENOTFOUND, "document %q not found", subpath)
		}
		return "", err
	}
	marker := fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())
	return mdview.VersionMarker(marker), nil
}

// NormalizeSubpath appends a trailing slash to subpaths that address a
// directory so document-relative links resolve correctly after redirect.
func (r *DirectoryReader) NormalizeSubpath(subpath string) string {
	if subpath == "" || strings.HasSuffix(subpath, "/") {
		return subpath
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+subpath), "/")
	full := filepath.Join(r.root, filepath.FromSlash(cleaned))
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return subpath + "/"
	}
	return subpath
}

// FilenameFor returns the resolved filename relative to the root, for
// display purposes. Returns the empty string if resolution fails.
func (r *DirectoryReader) FilenameFor(subpath string) string {
	full, err := r.resolve(subpath)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(r.root, full)
	if err != nil {
		return filepath.Base(full)
	}
	return filepath.ToSlash(rel)
}

// MimetypeFor returns the content type used when serving the document raw.
func (r *DirectoryReader) MimetypeFor(subpath string) string {
	full, err := r.resolve(subpath)
	if err != nil {
		return "application/octet-stream"
	}
	ext := strings.ToLower(filepath.Ext(full))
	if mt, ok := mimetypeOverrides[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
