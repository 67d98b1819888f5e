package buffer

import (
	"github.com/golang-collections/collections/queue"
	pair "github.com/notEpsilon/go-pair"
	"github.com/ryogrid/SamehadaPager/types"
)

// Replacer keeps the bookkeeping of one eviction policy. The buffer pool
// reports every insertion, hit and removal. Victim only nominates a page,
// the pool calls Removed once the page is really gone.
type Replacer interface {
	Inserted(pageID types.PageID)
	Accessed(pageID types.PageID)
	Removed(pageID types.PageID)
	Victim() (types.PageID, bool)
}

func newReplacer(policy Policy, capacity uint32, entries map[types.PageID]*cacheEntry) Replacer {
	switch policy {
	case FIFO:
		return newFIFOReplacer(entries)
	case CLOCK:
		return NewClockReplacer(capacity)
	default:
		return newLRUReplacer(entries)
	}
}

// lruReplacer picks the entry with the smallest logical access time.
// Ties go to the lowest page id.
type lruReplacer struct {
	entries map[types.PageID]*cacheEntry
}

func newLRUReplacer(entries map[types.PageID]*cacheEntry) *lruReplacer {
	return &lruReplacer{entries}
}

func (r *lruReplacer) Inserted(types.PageID) {}
func (r *lruReplacer) Accessed(types.PageID) {}
func (r *lruReplacer) Removed(types.PageID)  {}

func (r *lruReplacer) Victim() (types.PageID, bool) {
	victim := types.InvalidPageID
	var oldest uint64
	for pageID, entry := range r.entries {
		if victim == types.InvalidPageID || entry.lastAccess < oldest ||
			(entry.lastAccess == oldest && pageID < victim) {
			victim = pageID
			oldest = entry.lastAccess
		}
	}
	return victim, victim != types.InvalidPageID
}

// fifoReplacer evicts in insertion order. Queue items are (page id,
// insertion marker) pairs. An item whose marker no longer matches the cached
// entry belongs to an earlier stay of that page in the pool. After every
// removal the queue holds exactly one item per cached page.
type fifoReplacer struct {
	entries map[types.PageID]*cacheEntry
	order   *queue.Queue
}

func newFIFOReplacer(entries map[types.PageID]*cacheEntry) *fifoReplacer {
	return &fifoReplacer{entries, queue.New()}
}

func (r *fifoReplacer) Inserted(pageID types.PageID) {
	entry, ok := r.entries[pageID]
	if !ok {
		return
	}
	r.order.Enqueue(pair.Pair[types.PageID, uint64]{First: pageID, Second: entry.insertionMarker})
}

func (r *fifoReplacer) Accessed(types.PageID) {}

func (r *fifoReplacer) Removed(types.PageID) {
	r.dropStale()
	if r.order.Len() > len(r.entries) {
		r.compact()
	}
}

func (r *fifoReplacer) isLive(item pair.Pair[types.PageID, uint64]) bool {
	entry, ok := r.entries[item.First]
	return ok && entry.insertionMarker == item.Second
}

func (r *fifoReplacer) dropStale() {
	for r.order.Len() > 0 && !r.isLive(r.order.Peek().(pair.Pair[types.PageID, uint64])) {
		r.order.Dequeue()
	}
}

// compact drops dead items behind the head, keeping the order of live ones
func (r *fifoReplacer) compact() {
	for n := r.order.Len(); n > 0; n-- {
		item := r.order.Dequeue().(pair.Pair[types.PageID, uint64])
		if r.isLive(item) {
			r.order.Enqueue(item)
		}
	}
}

func (r *fifoReplacer) Victim() (types.PageID, bool) {
	r.dropStale()
	if r.order.Len() == 0 {
		return types.InvalidPageID, false
	}
	return r.order.Peek().(pair.Pair[types.PageID, uint64]).First, true
}
