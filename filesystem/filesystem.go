// Package filesystem routes every disk access through a swappable afero backend.
// Config, logs, favorites and the directory cache all go through it, so tests
// can redirect the whole application onto an in-memory filesystem.
package filesystem

import "github.com/spf13/afero"

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the afero.Afero instance currently backing all file operations.
func API() afero.Afero {
	return backend
}

// SetOsFs points the backend at the real operating system filesystem.
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs swaps in a volatile in-memory backend. Used by tests so that
// favorites, usage counters and caches never touch the host disk.
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}
