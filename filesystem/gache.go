package filesystem

import (
	"io"
	"os"
)

// GacheFs satisfies the gache.FileSystem interface on top of the swappable
// backend, so the channel-directory cache, favorites and usage counters all
// honor SetMemMapFs in tests.
type GacheFs struct{}

func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return API().OpenFile(name, flag, perm)
}

func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}
