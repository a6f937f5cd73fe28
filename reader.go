package mdview

// VersionMarker represents the observed state of a document's content at a
// point in time. Two markers are equal iff the content is known unchanged.
// No ordering beyond equality is defined; callers must only compare markers
// produced by the same Reader for the same subpath.
type VersionMarker string

// Reader provides access to renderable documents addressed by a relative
// subpath. An empty subpath means the default document (e.g., the README
// of the served directory).
//
// Readers must be side-effect free: repeated calls with the same subpath
// never modify the underlying source.
type Reader interface {
	// Read returns the raw content of the document.
	// Returns ENOTFOUND if the document does not exist.
	Read(subpath string) ([]byte, error)

	// IsBinary reports whether the document is a binary asset.
	// Binary assets are served raw and are never live-rendered.
	IsBinary(subpath string) bool

	// LastUpdated returns the current version marker for the document.
	// Returns ENOTFOUND if the document does not exist.
	LastUpdated(subpath string) (VersionMarker, error)

	// NormalizeSubpath resolves a requested subpath to its canonical form,
	// e.g. a path addressing a directory gains a trailing slash. Callers
	// redirect when the result differs from the input.
	NormalizeSubpath(subpath string) string

	// FilenameFor returns the display filename for the document, or the
	// empty string if it cannot be resolved.
	FilenameFor(subpath string) string

	// MimetypeFor returns the content type used when serving the document
	// as a raw asset.
	MimetypeFor(subpath string) string
}
