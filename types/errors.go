package types

import "github.com/ryogrid/SamehadaPager/errors"

const (
	ErrInvalidPageID    = errors.Error("invalid page id is passed")
	ErrPageNotAllocated = errors.Error("page id is beyond the highest allocated page")
	ErrDeallocatedPage  = errors.Error("deallocated page id is passed")
	ErrDoubleFree       = errors.Error("page is already in the free list")
	ErrPageIDMismatch   = errors.Error("page id does not match the page content")
	ErrShortPage        = errors.Error("page data is shorter than the page size")
	ErrCorruptPage      = errors.Error("page header is malformed")
	ErrShortWrite       = errors.Error("bytes written not equals page size")
	ErrAllocation       = errors.Error("page allocation failed")
	ErrBufferPoolFull   = errors.Error("buffer pool has no evictable page")
	ErrMetadataCorrupt  = errors.Error("metadata record is malformed")
	ErrClosed           = errors.Error("file manager is already closed")
)
