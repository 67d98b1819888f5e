package disk

import (
	"io/fs"
	"os"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/storage/page"
	"github.com/ryogrid/SamehadaPager/types"
)

// PageManager is the DiskManager over a single data file. Page n lives at
// [(n-1)*PageSize, n*PageSize) and the file is always exactly
// (nextPageID-1)*PageSize long. Every call opens and closes the file.
type PageManager struct {
	fs         FileSystem
	fileName   string
	nextPageID types.PageID
	// freed ids, oldest first
	freeList  []types.PageID
	freeSet   mapset.Set[types.PageID]
	numWrites uint64
}

// NewPageManager returns a PageManager in the fresh database state
func NewPageManager(fileSystem FileSystem, dbFilename string) *PageManager {
	return &PageManager{
		fs:         fileSystem,
		fileName:   dbFilename,
		nextPageID: common.FirstPageID,
		freeList:   make([]types.PageID, 0),
		freeSet:    mapset.NewThreadUnsafeSet[types.PageID](),
	}
}

// Restore replaces the allocation state with one loaded from metadata
func (d *PageManager) Restore(nextPageID types.PageID, freePageIDs []types.PageID) error {
	if !nextPageID.IsValid() {
		return errors.Wrap(types.ErrInvalidPageID, "next page id")
	}
	freeSet := mapset.NewThreadUnsafeSet[types.PageID]()
	for _, id := range freePageIDs {
		if !id.IsValid() || id >= nextPageID {
			return errors.Wrapf(types.ErrPageNotAllocated, "free page %d with next page id %d", id, nextPageID)
		}
		if !freeSet.Add(id) {
			return errors.Wrapf(types.ErrDoubleFree, "free page %d listed twice", id)
		}
	}

	d.nextPageID = nextPageID
	d.freeList = append(make([]types.PageID, 0, len(freePageIDs)), freePageIDs...)
	d.freeSet = freeSet
	return nil
}

func (d *PageManager) NextPageID() types.PageID {
	return d.nextPageID
}

// FreePageIDs returns a copy of the free list, oldest first
func (d *PageManager) FreePageIDs() []types.PageID {
	return append(make([]types.PageID, 0, len(d.freeList)), d.freeList...)
}

func offsetOf(pageID types.PageID) int64 {
	return int64(pageID-1) * int64(common.PageSize)
}

// AllocatePage hands out the oldest freed id, or a new one after growing the
// file by one zero filled page. The blank page is on disk before the id is
// returned. On error no id is consumed.
func (d *PageManager) AllocatePage() (types.PageID, error) {
	var pageID types.PageID
	if len(d.freeList) > 0 {
		pageID = d.freeList[0]
		d.freeList = d.freeList[1:]
		d.freeSet.Remove(pageID)
	} else {
		pageID = d.nextPageID
		if err := d.extend(pageID); err != nil {
			return types.InvalidPageID, errors.Wrapf(types.ErrAllocation, "extend data file for page %d: %v", pageID, err)
		}
		d.nextPageID++
	}

	if err := d.writeRaw(pageID, page.NewEmpty(pageID).Serialize()); err != nil {
		// the slot exists, so the id stays reusable and is handed out first next time
		d.freeList = append([]types.PageID{pageID}, d.freeList...)
		d.freeSet.Add(pageID)
		return types.InvalidPageID, errors.Wrapf(types.ErrAllocation, "initialize page %d: %v", pageID, err)
	}

	common.ShPrintf(common.DEBUG_INFO, "PageManager::AllocatePage: pageID=%d\n", pageID)
	return pageID, nil
}

func (d *PageManager) extend(pageID types.PageID) error {
	file, err := d.fs.OpenFile(d.fileName, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	bytesWritten, err := file.WriteAt(make([]byte, common.PageSize), offsetOf(pageID))
	if err != nil {
		return err
	}
	if bytesWritten != common.PageSize {
		return types.ErrShortWrite
	}
	return nil
}

// DeallocatePage blanks the slot on disk and queues the id for reuse
func (d *PageManager) DeallocatePage(pageID types.PageID) error {
	if err := d.checkAllocated(pageID); err != nil {
		return err
	}
	if d.freeSet.Contains(pageID) {
		return errors.Wrapf(types.ErrDoubleFree, "page %d", pageID)
	}

	// the blank record carries the invalid id so stale reads fail
	if err := d.writeRaw(pageID, page.NewEmpty(types.InvalidPageID).Serialize()); err != nil {
		return errors.Wrapf(err, "blank freed page %d", pageID)
	}

	d.freeList = append(d.freeList, pageID)
	d.freeSet.Add(pageID)
	common.ShPrintf(common.DEBUG_INFO, "PageManager::DeallocatePage: pageID=%d free=%d\n", pageID, len(d.freeList))
	return nil
}

// ReadPage reads one page. Nothing is returned unless the whole page was read,
// decoded and carries the requested id.
func (d *PageManager) ReadPage(pageID types.PageID) (*page.Page, error) {
	if err := d.checkLive(pageID); err != nil {
		return nil, err
	}

	fileSize, err := d.Size()
	if err != nil {
		return nil, err
	}
	offset := offsetOf(pageID)
	if offset >= fileSize {
		return nil, errors.Wrapf(types.ErrPageNotAllocated, "page %d is past end of file (%d bytes)", pageID, fileSize)
	}

	file, err := d.fs.OpenFile(d.fileName, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", d.fileName)
	}
	defer file.Close()

	pageData := make([]byte, common.PageSize)
	bytesRead, err := file.ReadAt(pageData, offset)
	if bytesRead < common.PageSize {
		return nil, errors.Wrapf(types.ErrShortPage, "page %d: read %d bytes: %v", pageID, bytesRead, err)
	}

	pg, err := page.Deserialize(pageData)
	if err != nil {
		return nil, errors.Wrapf(err, "page %d", pageID)
	}
	if pg.GetPageId() != pageID {
		return nil, errors.Wrapf(types.ErrPageIDMismatch, "slot %d holds page %d", pageID, pg.GetPageId())
	}
	return pg, nil
}

// WritePage overwrites the slot of pageID with the serialized block
func (d *PageManager) WritePage(pageID types.PageID, pg page.Block) error {
	if err := d.checkLive(pageID); err != nil {
		return err
	}
	if pg == nil || pg.GetPageId() != pageID {
		return errors.Wrapf(types.ErrPageIDMismatch, "write to slot %d", pageID)
	}
	return d.writeRaw(pageID, pg.Serialize())
}

func (d *PageManager) writeRaw(pageID types.PageID, pageData []byte) error {
	file, err := d.fs.OpenFile(d.fileName, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", d.fileName)
	}
	defer file.Close()

	bytesWritten, err := file.WriteAt(pageData, offsetOf(pageID))
	if err != nil {
		return errors.Wrapf(err, "write page %d", pageID)
	}
	if bytesWritten != common.PageSize {
		return errors.Wrapf(types.ErrShortWrite, "page %d: wrote %d bytes", pageID, bytesWritten)
	}
	if err := file.Sync(); err != nil {
		return errors.Wrapf(err, "sync page %d", pageID)
	}

	d.numWrites++
	return nil
}

func (d *PageManager) checkAllocated(pageID types.PageID) error {
	if !pageID.IsValid() {
		return types.ErrInvalidPageID
	}
	if pageID >= d.nextPageID {
		return errors.Wrapf(types.ErrPageNotAllocated, "page %d, next page id %d", pageID, d.nextPageID)
	}
	return nil
}

func (d *PageManager) checkLive(pageID types.PageID) error {
	if err := d.checkAllocated(pageID); err != nil {
		return err
	}
	if d.freeSet.Contains(pageID) {
		return errors.Wrapf(types.ErrDeallocatedPage, "page %d", pageID)
	}
	return nil
}

// GetNumWrites returns the number of page writes that reached the file
func (d *PageManager) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the data file. A missing file has size 0.
func (d *PageManager) Size() (int64, error) {
	size, err := d.fs.Size(d.fileName)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return size, err
}
