package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	testingpkg "github.com/ryogrid/SamehadaPager/testing/testing_assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualFileSystemDirs(t *testing.T) {
	vfs := NewVirtualFileSystem()

	// Scenario: a file can only be created inside an existing directory.
	_, err := vfs.OpenFile(filepath.Join("db", "a"), os.O_RDWR|os.O_CREATE, 0666)
	testingpkg.ErrorIs(t, err, fs.ErrNotExist)

	testingpkg.Ok(t, vfs.MkdirAll("db"))
	testingpkg.Ok(t, vfs.MkdirAll("db"))
	file, err := vfs.OpenFile(filepath.Join("db", "a"), os.O_RDWR|os.O_CREATE, 0666)
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, file.Close())

	// Scenario: a file standing where a directory should be.
	err = vfs.MkdirAll(filepath.Join("db", "a", "b"))
	testingpkg.ErrorIs(t, err, fs.ErrExist)
}

func TestVirtualFileSystemReadWrite(t *testing.T) {
	vfs := NewVirtualFileSystem()

	_, err := vfs.OpenFile("f", os.O_RDONLY, 0)
	testingpkg.ErrorIs(t, err, fs.ErrNotExist)
	_, err = vfs.Size("f")
	testingpkg.ErrorIs(t, err, fs.ErrNotExist)

	file, err := vfs.OpenFile("f", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	testingpkg.Ok(t, err)
	_, err = file.Write([]byte("abc"))
	testingpkg.Ok(t, err)
	_, err = file.Write([]byte("def"))
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, file.Sync())
	testingpkg.Ok(t, file.Close())
	testingpkg.Assert(t, file.Close() != nil, "second close must fail")

	size, err := vfs.Size("f")
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int64(6), size)

	reader, err := vfs.OpenFile("f", os.O_RDONLY, 0)
	testingpkg.Ok(t, err)
	buf := make([]byte, 6)
	n, err := reader.ReadAt(buf, 0)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, 6, n)
	testingpkg.Equals(t, []byte("abcdef"), buf)

	// read only handles refuse writes
	_, err = reader.WriteAt([]byte("x"), 0)
	testingpkg.ErrorIs(t, err, fs.ErrPermission)
	testingpkg.Ok(t, reader.Close())

	// truncate on open
	file, err = vfs.OpenFile("f", os.O_RDWR|os.O_TRUNC, 0)
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, file.Close())
	size, err = vfs.Size("f")
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int64(0), size)

	testingpkg.Ok(t, vfs.Remove("f"))
	testingpkg.ErrorIs(t, vfs.Remove("f"), fs.ErrNotExist)
}

func TestVirtualFileSystemWriteFault(t *testing.T) {
	vfs := NewVirtualFileSystem()
	file, err := vfs.OpenFile("f", os.O_RDWR|os.O_CREATE, 0666)
	require.NoError(t, err)
	defer file.Close()

	fault := errors.New("injected")
	vfs.SetWriteFault(fault)
	_, err = file.WriteAt([]byte("x"), 0)
	require.ErrorIs(t, err, fault)
	_, err = file.Write([]byte("x"))
	require.ErrorIs(t, err, fault)

	vfs.SetWriteFault(nil)
	n, err := file.WriteAt([]byte("x"), 3)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	size, err := vfs.Size("f")
	require.NoError(t, err)
	require.Equal(t, int64(4), size)
}

func TestVirtualFileSystemRename(t *testing.T) {
	vfs := NewVirtualFileSystem()
	testingpkg.ErrorIs(t, vfs.Rename("a", "b"), fs.ErrNotExist)

	for name, body := range map[string]string{"a": "new", "b": "old!"} {
		file, err := vfs.OpenFile(name, os.O_WRONLY|os.O_CREATE, 0666)
		testingpkg.Ok(t, err)
		_, err = file.Write([]byte(body))
		testingpkg.Ok(t, err)
		testingpkg.Ok(t, file.Close())
	}

	// Scenario: the source replaces an existing target.
	testingpkg.Ok(t, vfs.Rename("a", "b"))
	_, err := vfs.Size("a")
	testingpkg.ErrorIs(t, err, fs.ErrNotExist)
	size, err := vfs.Size("b")
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int64(3), size)

	// Scenario: the target directory must exist.
	testingpkg.ErrorIs(t, vfs.Rename("b", filepath.Join("missing", "b")), fs.ErrInvalid)
}
