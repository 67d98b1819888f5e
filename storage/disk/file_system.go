package disk

import (
	"io"
	"os"
)

// File is the subset of *os.File the storage layer uses
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Writer
	io.Closer
	Sync() error
}

// FileSystem abstracts directory and file handling so the storage layer can
// run against the OS or an in-memory emulation.
type FileSystem interface {
	// MkdirAll creates dir if absent. An existing directory is not an error.
	MkdirAll(dir string) error
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	// Size returns the file length. A missing file yields an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	Size(name string) (int64, error)
	Remove(name string) error
	// Rename moves oldpath over newpath, replacing any file there
	Rename(oldpath, newpath string) error
}

// OSFileSystem is the FileSystem backed by the os package
type OSFileSystem struct{}

func NewOSFileSystem() FileSystem {
	return OSFileSystem{}
}

func (OSFileSystem) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (OSFileSystem) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OSFileSystem) Size(name string) (int64, error) {
	fileInfo, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

func (OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
