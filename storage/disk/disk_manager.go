package disk

import (
	"github.com/ryogrid/SamehadaPager/storage/page"
	"github.com/ryogrid/SamehadaPager/types"
)

/**
 * DiskManager takes care of the allocation and deallocation of pages within a database. It performs the reading and
 * writing of pages to and from disk, providing a logical file layer within the context of a database management system.
 */
type DiskManager interface {
	AllocatePage() (types.PageID, error)
	DeallocatePage(types.PageID) error
	ReadPage(types.PageID) (*page.Page, error)
	WritePage(types.PageID, page.Block) error
	GetNumWrites() uint64
	Size() (int64, error)
}
