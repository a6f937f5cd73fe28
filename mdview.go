// Package mdview serves a local Markdown file (typically a README) as
// rendered HTML over a local web server, with optional live refresh when
// the source file changes on disk.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., fs/, goldmark/, github/).
package mdview
