package mock

import (
	"github.com/mdview/mdview"
)

var _ mdview.Reader = (*Reader)(nil)

// Reader is a mock implementation of mdview.Reader. Funcs left nil fall
// back to inert defaults so watcher tests only wire what they assert on.
type Reader struct {
	ReadFn             func(subpath string) ([]byte, error)
	IsBinaryFn         func(subpath string) bool
	LastUpdatedFn      func(subpath string) (mdview.VersionMarker, error)
	NormalizeSubpathFn func(subpath string) string
	FilenameForFn      func(subpath string) string
	MimetypeForFn      func(subpath string) string
}

func (r *Reader) Read(subpath string) ([]byte, error) {
	if r.ReadFn == nil {
		return nil, mdview.Errorf(mdview.ENOTFOUND, "document %q not found", subpath)
	}
	return r.ReadFn(subpath)
}

func (r *Reader) IsBinary(subpath string) bool {
	if r.IsBinaryFn == nil {
		return false
	}
	return r.IsBinaryFn(subpath)
}

func (r *Reader) LastUpdated(subpath string) (mdview.VersionMarker, error) {
	if r.LastUpdatedFn == nil {
		return "", mdview.Errorf(mdview.ENOTFOUND, "document %q not found", subpath)
	}
	return r.LastUpdatedFn(subpath)
}

func (r *Reader) NormalizeSubpath(subpath string) string {
	if r.NormalizeSubpathFn == nil {
		return subpath
	}
	return r.NormalizeSubpathFn(subpath)
}

func (r *Reader) FilenameFor(subpath string) string {
	if r.FilenameForFn == nil {
		return subpath
	}
	return r.FilenameForFn(subpath)
}

func (r *Reader) MimetypeFor(subpath string) string {
	if r.MimetypeForFn == nil {
		return "application/octet-stream"
	}
	return r.MimetypeForFn(subpath)
}
