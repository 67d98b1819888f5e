// this code is derived from https://github.com/brunocalza/go-bustub

package buffer

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/storage/disk"
	"github.com/ryogrid/SamehadaPager/storage/page"
	"github.com/ryogrid/SamehadaPager/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type cacheEntry struct {
	page *page.Page
	// logical time of the last GetPage that returned this entry
	lastAccess      uint64
	dirty           bool
	insertionMarker uint64
}

// Stats is a snapshot of the buffer pool counters
type Stats struct {
	Hits       uint64
	Misses     uint64
	HitRate    float64
	Evictions  uint64
	WriteBacks uint64
	Cached     int
	Dirty      int
	Capacity   uint32
}

// BufferPoolManager caches up to capacity pages in front of a DiskManager.
// Writes are write-back: a dirty page reaches the disk on flush or eviction.
// It is not safe for concurrent use.
type BufferPoolManager struct {
	diskManager disk.DiskManager
	capacity    uint32
	policy      Policy
	entries     map[types.PageID]*cacheEntry
	replacer    Replacer
	// logical clock, advanced on every GetPage
	tick       uint64
	hits       uint64
	misses     uint64
	evictions  uint64
	writeBacks uint64
	sink       *zap.Logger
}

// GetPage returns the cached page, loading it from disk on a miss. The
// returned page is borrowed: it is only valid until the next call that
// may evict or drop entries (GetPage, Discard).
func (b *BufferPoolManager) GetPage(pageID types.PageID) (*page.Page, error) {
	b.tick++

	// if it is on buffer pool return it
	if entry, ok := b.entries[pageID]; ok {
		b.hits++
		entry.lastAccess = b.tick
		b.replacer.Accessed(pageID)
		return entry.page, nil
	}

	b.misses++
	pg, err := b.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, err
	}

	if uint32(len(b.entries)) >= b.capacity {
		if err := b.evictPage(); err != nil {
			return nil, err
		}
	}

	b.entries[pageID] = &cacheEntry{page: pg, lastAccess: b.tick, insertionMarker: b.tick}
	b.replacer.Inserted(pageID)
	common.SH_Assert(uint32(len(b.entries)) <= b.capacity, "BufferPoolManager::GetPage: pool exceeds capacity")

	return pg, nil
}

// evictPage removes exactly one entry, writing it back first when dirty.
// A failed write-back leaves the entry in place.
func (b *BufferPoolManager) evictPage() error {
	victim, ok := b.replacer.Victim()
	if !ok {
		return types.ErrBufferPoolFull
	}
	entry := b.entries[victim]
	common.SH_Assert(entry != nil, "BufferPoolManager::evictPage: victim is not cached")

	wasDirty := entry.dirty
	if wasDirty {
		if err := b.writeBack(victim, entry); err != nil {
			return errors.Wrapf(err, "evict page %d", victim)
		}
	}

	delete(b.entries, victim)
	b.replacer.Removed(victim)
	b.evictions++

	b.sink.Info("evict page",
		zap.Uint32("page_id", uint32(victim)),
		zap.Stringer("policy", b.policy),
		zap.Bool("dirty", wasDirty),
		zap.Uint64("checksum", entry.page.Checksum()))
	return nil
}

func (b *BufferPoolManager) writeBack(pageID types.PageID, entry *cacheEntry) error {
	if err := b.diskManager.WritePage(pageID, entry.page); err != nil {
		return err
	}
	entry.dirty = false
	b.writeBacks++
	return nil
}

// FlushPage writes a dirty cached page to disk. Clean or uncached pages are
// already current on disk, so nothing is written for them.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) error {
	entry, ok := b.entries[pageID]
	if !ok || !entry.dirty {
		return nil
	}

	if err := b.writeBack(pageID, entry); err != nil {
		return errors.Wrapf(err, "flush page %d", pageID)
	}
	b.sink.Info("flush page",
		zap.Uint32("page_id", uint32(pageID)),
		zap.Stringer("policy", b.policy),
		zap.Bool("dirty", true),
		zap.Uint64("checksum", entry.page.Checksum()))
	return nil
}

// FlushAllPages flushes every dirty page in page id order. A failure does not
// stop the remaining flushes; all failures are returned together.
func (b *BufferPoolManager) FlushAllPages() error {
	pageIDs := make([]types.PageID, 0, len(b.entries))
	for pageID, entry := range b.entries {
		if entry.dirty {
			pageIDs = append(pageIDs, pageID)
		}
	}
	sort.Slice(pageIDs, func(i, j int) bool { return pageIDs[i] < pageIDs[j] })

	var err error
	for _, pageID := range pageIDs {
		err = multierr.Append(err, b.FlushPage(pageID))
	}
	return err
}

// MarkDirty flags a cached page as modified. Uncached ids are ignored.
func (b *BufferPoolManager) MarkDirty(pageID types.PageID) {
	if entry, ok := b.entries[pageID]; ok {
		entry.dirty = true
	}
}

// Discard drops a cached page without writing it back. Used when the page
// was deallocated and its content must not reach the disk again.
func (b *BufferPoolManager) Discard(pageID types.PageID) bool {
	if _, ok := b.entries[pageID]; !ok {
		return false
	}
	delete(b.entries, pageID)
	b.replacer.Removed(pageID)
	return true
}

func (b *BufferPoolManager) IsDirty(pageID types.PageID) bool {
	entry, ok := b.entries[pageID]
	return ok && entry.dirty
}

func (b *BufferPoolManager) Contains(pageID types.PageID) bool {
	_, ok := b.entries[pageID]
	return ok
}

// CachedPageIDs returns the cached ids in ascending order
func (b *BufferPoolManager) CachedPageIDs() []types.PageID {
	pageIDs := make([]types.PageID, 0, len(b.entries))
	for pageID := range b.entries {
		pageIDs = append(pageIDs, pageID)
	}
	sort.Slice(pageIDs, func(i, j int) bool { return pageIDs[i] < pageIDs[j] })
	return pageIDs
}

func (b *BufferPoolManager) Len() int {
	return len(b.entries)
}

func (b *BufferPoolManager) Capacity() uint32 {
	return b.capacity
}

func (b *BufferPoolManager) Policy() Policy {
	return b.policy
}

func (b *BufferPoolManager) dirtyCount() int {
	count := 0
	for _, entry := range b.entries {
		if entry.dirty {
			count++
		}
	}
	return count
}

func hitRate(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// GetCacheStats returns hits, misses and hits/(hits+misses). The rate is 0
// before the first GetPage.
func (b *BufferPoolManager) GetCacheStats() (uint64, uint64, float64) {
	return b.hits, b.misses, hitRate(b.hits, b.misses)
}

func (b *BufferPoolManager) Stats() Stats {
	return Stats{
		Hits:       b.hits,
		Misses:     b.misses,
		HitRate:    hitRate(b.hits, b.misses),
		Evictions:  b.evictions,
		WriteBacks: b.writeBacks,
		Cached:     len(b.entries),
		Dirty:      b.dirtyCount(),
		Capacity:   b.capacity,
	}
}

// ResetStats zeroes the counters. Cached pages are kept.
func (b *BufferPoolManager) ResetStats() {
	b.hits = 0
	b.misses = 0
	b.evictions = 0
	b.writeBacks = 0
}

// NewBufferPoolManager returns an empty buffer pool manager. Eviction and
// flush records go to sink; nil discards them.
func NewBufferPoolManager(capacity uint32, policy Policy, diskManager disk.DiskManager, sink *zap.Logger) *BufferPoolManager {
	common.SH_Assert(capacity > 0, "NewBufferPoolManager: capacity must be positive")
	if sink == nil {
		sink = zap.NewNop()
	}

	entries := make(map[types.PageID]*cacheEntry, capacity)
	return &BufferPoolManager{
		diskManager: diskManager,
		capacity:    capacity,
		policy:      policy,
		entries:     entries,
		replacer:    newReplacer(policy, capacity, entries),
		sink:        sink,
	}
}
