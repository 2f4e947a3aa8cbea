// Package fsview is the filesystem seam for the scan engine.
//
// Two implementations exist: [Real] for production and test doubles that
// inject failures (unreachable shares, permission errors) without
// touching a real network mount. The surface is deliberately small: the
// engine only ever lists directories and stats paths.
package fsview

import "os"

// View lists directories and stats paths.
type View interface {
	// ReadDir reads a directory and returns its entries. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)
}

// Real implements [View] using the real filesystem.
type Real struct{}

// NewReal returns a new [Real] view.
func NewReal() *Real { return &Real{} }

// A passthrough wrapper for [os.ReadDir].
func (*Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

// A passthrough wrapper for [os.Stat].
func (*Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

var _ View = (*Real)(nil)
