package disk

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/storage/page"
	testingpkg "github.com/ryogrid/SamehadaPager/testing/testing_assert"
	"github.com/ryogrid/SamehadaPager/types"
)

func newTestPageManager() (*PageManager, *VirtualFileSystem) {
	vfs := NewVirtualFileSystem()
	return NewPageManager(vfs, common.DataFileName), vfs
}

func TestAllocateThenRead(t *testing.T) {
	pm, _ := newTestPageManager()

	for i := 1; i <= 3; i++ {
		pageID, err := pm.AllocatePage()
		testingpkg.Ok(t, err)
		testingpkg.Equals(t, types.PageID(i), pageID)

		size, err := pm.Size()
		testingpkg.Ok(t, err)
		testingpkg.Equals(t, int64(i*common.PageSize), size)
	}

	pg, err := pm.ReadPage(2)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(2), pg.GetPageId())
	testingpkg.Equals(t, uint32(common.PageHeaderSize), pg.GetFreeOffset())
	testingpkg.Equals(t, make([]byte, common.PagePayloadSize), pg.Payload())
	testingpkg.Equals(t, types.PageID(4), pm.NextPageID())
}

func TestFreeListReuseOrder(t *testing.T) {
	pm, _ := newTestPageManager()
	for i := 0; i < 4; i++ {
		_, err := pm.AllocatePage()
		testingpkg.Ok(t, err)
	}

	// Scenario: a single freed id is handed out again immediately.
	testingpkg.Ok(t, pm.DeallocatePage(2))
	pageID, err := pm.AllocatePage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(2), pageID)

	// Scenario: the oldest freed id comes back first.
	testingpkg.Ok(t, pm.DeallocatePage(3))
	testingpkg.Ok(t, pm.DeallocatePage(1))
	testingpkg.Equals(t, []types.PageID{3, 1}, pm.FreePageIDs())

	pageID, err = pm.AllocatePage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(3), pageID)
	pageID, err = pm.AllocatePage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(1), pageID)

	// Scenario: with an empty free list the file grows again.
	pageID, err = pm.AllocatePage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(5), pageID)
	size, err := pm.Size()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int64(5*common.PageSize), size)
}

func TestDeallocateValidation(t *testing.T) {
	pm, _ := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)

	testingpkg.ErrorIs(t, pm.DeallocatePage(types.InvalidPageID), types.ErrInvalidPageID)
	testingpkg.ErrorIs(t, pm.DeallocatePage(2), types.ErrPageNotAllocated)

	testingpkg.Ok(t, pm.DeallocatePage(1))
	testingpkg.ErrorIs(t, pm.DeallocatePage(1), types.ErrDoubleFree)
	testingpkg.Equals(t, []types.PageID{1}, pm.FreePageIDs())
}

func TestReadFreedPageFails(t *testing.T) {
	pm, vfs := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)

	pg, err := pm.ReadPage(1)
	testingpkg.Ok(t, err)
	pg.WriteData(0, []byte("stale"))
	testingpkg.Ok(t, pm.WritePage(1, pg))

	testingpkg.Ok(t, pm.DeallocatePage(1))
	_, err = pm.ReadPage(1)
	testingpkg.ErrorIs(t, err, types.ErrDeallocatedPage)
	testingpkg.ErrorIs(t, pm.WritePage(1, pg), types.ErrDeallocatedPage)

	// the slot on disk no longer holds the old content
	file, err := vfs.OpenFile(common.DataFileName, os.O_RDONLY, 0)
	testingpkg.Ok(t, err)
	raw := make([]byte, common.PageSize)
	_, err = file.ReadAt(raw, 0)
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, file.Close())
	testingpkg.Equals(t, page.NewEmpty(types.InvalidPageID).Serialize(), raw)
}

func TestReadPageValidation(t *testing.T) {
	pm, _ := newTestPageManager()

	_, err := pm.ReadPage(types.InvalidPageID)
	testingpkg.ErrorIs(t, err, types.ErrInvalidPageID)

	// nothing allocated yet
	_, err = pm.ReadPage(1)
	testingpkg.ErrorIs(t, err, types.ErrPageNotAllocated)

	_, err = pm.AllocatePage()
	testingpkg.Ok(t, err)
	_, err = pm.ReadPage(7)
	testingpkg.ErrorIs(t, err, types.ErrPageNotAllocated)
}

func TestReadTruncatedFile(t *testing.T) {
	pm, vfs := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)
	_, err = pm.AllocatePage()
	testingpkg.Ok(t, err)

	// Scenario: the file lost its last page behind our back.
	file, err := vfs.OpenFile(common.DataFileName, os.O_RDWR|os.O_TRUNC, 0)
	testingpkg.Ok(t, err)
	_, err = file.WriteAt(page.NewEmpty(1).Serialize(), 0)
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, file.Close())

	_, err = pm.ReadPage(1)
	testingpkg.Ok(t, err)
	_, err = pm.ReadPage(2)
	testingpkg.ErrorIs(t, err, types.ErrPageNotAllocated)
}

func TestReadCorruptPage(t *testing.T) {
	pm, vfs := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)

	file, err := vfs.OpenFile(common.DataFileName, os.O_RDWR, 0)
	testingpkg.Ok(t, err)
	// free offset 3 is inside the header
	_, err = file.WriteAt([]byte{3, 0, 0, 0}, page.OffsetFreeOffset)
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, file.Close())

	_, err = pm.ReadPage(1)
	testingpkg.ErrorIs(t, err, types.ErrCorruptPage)
}

func TestWritePageRoundTrip(t *testing.T) {
	pm, _ := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)
	_, err = pm.AllocatePage()
	testingpkg.Ok(t, err)

	pg := page.NewEmpty(2)
	pg.WriteData(100, []byte("samehada"))
	pg.SetPrevPageId(1)
	testingpkg.Ok(t, pm.WritePage(2, pg))
	testingpkg.Equals(t, uint64(3), pm.GetNumWrites())

	read, err := pm.ReadPage(2)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, pg.Serialize(), read.Serialize())
	testingpkg.Equals(t, types.PageID(1), read.GetPrevPageId())

	// page 1 is untouched
	other, err := pm.ReadPage(1)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, make([]byte, common.PagePayloadSize), other.Payload())
}

func TestWritePageIDMismatch(t *testing.T) {
	pm, _ := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)
	_, err = pm.AllocatePage()
	testingpkg.Ok(t, err)

	testingpkg.ErrorIs(t, pm.WritePage(1, page.NewEmpty(2)), types.ErrPageIDMismatch)
	testingpkg.ErrorIs(t, pm.WritePage(1, nil), types.ErrPageIDMismatch)
	testingpkg.ErrorIs(t, pm.WritePage(types.InvalidPageID, page.NewEmpty(0)), types.ErrInvalidPageID)
	testingpkg.ErrorIs(t, pm.WritePage(3, page.NewEmpty(3)), types.ErrPageNotAllocated)
}

func TestAllocateIsAllOrNothing(t *testing.T) {
	pm, vfs := newTestPageManager()
	_, err := pm.AllocatePage()
	testingpkg.Ok(t, err)

	// Scenario: the file cannot grow. No id is consumed.
	fault := errors.New("disk full")
	vfs.SetWriteFault(fault)
	_, err = pm.AllocatePage()
	testingpkg.ErrorIs(t, err, types.ErrAllocation)
	testingpkg.Equals(t, types.PageID(2), pm.NextPageID())
	testingpkg.Equals(t, 0, len(pm.FreePageIDs()))

	vfs.SetWriteFault(nil)
	pageID, err := pm.AllocatePage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(2), pageID)
}

func TestAllocateFromFreeListFailureKeepsID(t *testing.T) {
	pm, vfs := newTestPageManager()
	for i := 0; i < 3; i++ {
		_, err := pm.AllocatePage()
		testingpkg.Ok(t, err)
	}
	testingpkg.Ok(t, pm.DeallocatePage(2))
	testingpkg.Ok(t, pm.DeallocatePage(3))

	vfs.SetWriteFault(errors.New("io error"))
	_, err := pm.AllocatePage()
	testingpkg.ErrorIs(t, err, types.ErrAllocation)
	testingpkg.Equals(t, []types.PageID{2, 3}, pm.FreePageIDs())

	vfs.SetWriteFault(nil)
	pageID, err := pm.AllocatePage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(2), pageID)
}

func TestRestore(t *testing.T) {
	pm, _ := newTestPageManager()

	testingpkg.ErrorIs(t, pm.Restore(types.InvalidPageID, nil), types.ErrInvalidPageID)
	testingpkg.ErrorIs(t, pm.Restore(4, []types.PageID{4}), types.ErrPageNotAllocated)
	testingpkg.ErrorIs(t, pm.Restore(4, []types.PageID{2, 2}), types.ErrDoubleFree)
	// failed restores leave the fresh state
	testingpkg.Equals(t, types.PageID(common.FirstPageID), pm.NextPageID())

	testingpkg.Ok(t, pm.Restore(4, []types.PageID{3, 1}))
	testingpkg.Equals(t, types.PageID(4), pm.NextPageID())
	testingpkg.Equals(t, []types.PageID{3, 1}, pm.FreePageIDs())
	testingpkg.ErrorIs(t, pm.DeallocatePage(1), types.ErrDoubleFree)
}

func TestPageManagerOnOSFileSystem(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, common.DataFileName)
	pm := NewPageManager(NewOSFileSystem(), fileName)

	size, err := pm.Size()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int64(0), size)

	for i := 0; i < 2; i++ {
		_, err := pm.AllocatePage()
		testingpkg.Ok(t, err)
	}

	pg, err := pm.ReadPage(2)
	testingpkg.Ok(t, err)
	payload := bytes.Repeat([]byte{0xab}, 64)
	testingpkg.Assert(t, pg.WriteData(0, payload), "write payload")
	testingpkg.Ok(t, pm.WritePage(2, pg))

	// a second manager over the same file sees the write
	reopened := NewPageManager(NewOSFileSystem(), fileName)
	testingpkg.Ok(t, reopened.Restore(pm.NextPageID(), pm.FreePageIDs()))
	read, err := reopened.ReadPage(2)
	testingpkg.Ok(t, err)
	buf := make([]byte, 64)
	testingpkg.Assert(t, read.ReadData(0, buf), "read payload")
	testingpkg.Equals(t, payload, buf)

	size, err = reopened.Size()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int64(2*common.PageSize), size)
}
