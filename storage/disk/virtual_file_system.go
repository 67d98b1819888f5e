package disk

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dsnet/golib/memfile"
)

// VirtualFileSystem keeps every file in memory. Used for testing.
type VirtualFileSystem struct {
	mutex      *sync.Mutex
	files      map[string]*memfile.File
	dirs       map[string]bool
	writeFault error
}

func NewVirtualFileSystem() *VirtualFileSystem {
	return &VirtualFileSystem{new(sync.Mutex), make(map[string]*memfile.File), map[string]bool{".": true, "/": true}, nil}
}

// SetWriteFault makes every subsequent write fail with err. nil clears it.
func (v *VirtualFileSystem) SetWriteFault(err error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.writeFault = err
}

func (v *VirtualFileSystem) getWriteFault() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.writeFault
}

func (v *VirtualFileSystem) MkdirAll(dir string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	for d := filepath.Clean(dir); !v.dirs[d]; d = filepath.Dir(d) {
		if _, isFile := v.files[d]; isFile {
			return &fs.PathError{Op: "mkdir", Path: d, Err: fs.ErrExist}
		}
		v.dirs[d] = true
	}
	return nil
}

func (v *VirtualFileSystem) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	name = filepath.Clean(name)
	if !v.dirs[filepath.Dir(name)] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if v.dirs[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrExist}
	}

	mf, exists := v.files[name]
	switch {
	case !exists && flag&os.O_CREATE == 0:
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	case !exists || flag&os.O_TRUNC != 0:
		mf = memfile.New(make([]byte, 0))
		v.files[name] = mf
	}

	writable := flag&(os.O_WRONLY|os.O_RDWR) != 0
	return &virtualFile{v, mf, name, flag&os.O_APPEND != 0, writable, 0, false}, nil
}

func (v *VirtualFileSystem) Size(name string) (int64, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	mf, exists := v.files[filepath.Clean(name)]
	if !exists {
		return 0, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return int64(len(mf.Bytes())), nil
}

func (v *VirtualFileSystem) Remove(name string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	name = filepath.Clean(name)
	if _, exists := v.files[name]; !exists {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(v.files, name)
	return nil
}

func (v *VirtualFileSystem) Rename(oldpath, newpath string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	oldpath = filepath.Clean(oldpath)
	newpath = filepath.Clean(newpath)
	mf, exists := v.files[oldpath]
	if !exists {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
	}
	if v.dirs[newpath] || !v.dirs[filepath.Dir(newpath)] {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrInvalid}
	}
	delete(v.files, oldpath)
	v.files[newpath] = mf
	return nil
}

// virtualFile is one open handle. Handles keep their own write position.
type virtualFile struct {
	vfs      *VirtualFileSystem
	mf       *memfile.File
	name     string
	append   bool
	writable bool
	offset   int64
	closed   bool
}

func (f *virtualFile) checkWrite(op string) error {
	if f.closed {
		return &fs.PathError{Op: op, Path: f.name, Err: fs.ErrClosed}
	}
	if !f.writable {
		return &fs.PathError{Op: op, Path: f.name, Err: fs.ErrPermission}
	}
	if err := f.vfs.getWriteFault(); err != nil {
		return &fs.PathError{Op: op, Path: f.name, Err: err}
	}
	return nil
}

func (f *virtualFile) ReadAt(b []byte, off int64) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrClosed}
	}
	return f.mf.ReadAt(b, off)
}

func (f *virtualFile) WriteAt(b []byte, off int64) (int, error) {
	if err := f.checkWrite("write"); err != nil {
		return 0, err
	}
	return f.mf.WriteAt(b, off)
}

func (f *virtualFile) Write(b []byte) (int, error) {
	if err := f.checkWrite("write"); err != nil {
		return 0, err
	}
	if f.append {
		f.offset = int64(len(f.mf.Bytes()))
	}
	n, err := f.mf.WriteAt(b, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *virtualFile) Sync() error {
	if f.closed {
		return &fs.PathError{Op: "sync", Path: f.name, Err: fs.ErrClosed}
	}
	return nil
}

func (f *virtualFile) Close() error {
	if f.closed {
		return &fs.PathError{Op: "close", Path: f.name, Err: fs.ErrClosed}
	}
	f.closed = true
	return nil
}
