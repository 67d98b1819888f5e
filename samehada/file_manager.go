package samehada

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/logger"
	"github.com/ryogrid/SamehadaPager/samehada/samehada_util"
	"github.com/ryogrid/SamehadaPager/storage/buffer"
	"github.com/ryogrid/SamehadaPager/storage/disk"
	"github.com/ryogrid/SamehadaPager/storage/page"
	"github.com/ryogrid/SamehadaPager/types"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Options struct {
	// buffer pool size in pages
	Capacity uint32
	Policy   buffer.Policy
	// nil means the OS file system
	FS disk.FileSystem
	// diagnostic logger. nil discards diagnostics.
	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{Capacity: common.DefaultBufferPoolCapacity, Policy: buffer.LRU}
}

// OptionsFromConfig builds Options with a diagnostic logger set up from cfg
func OptionsFromConfig(cfg *common.Config) (Options, error) {
	policy, err := buffer.ParsePolicy(cfg.EvictionPolicy)
	if err != nil {
		return Options{}, err
	}
	if cfg.BufferPoolCapacity <= 0 {
		return Options{}, errors.Errorf("buffer pool capacity must be positive, got %d", cfg.BufferPoolCapacity)
	}
	diag, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputFile: cfg.LogOutput})
	if err != nil {
		return Options{}, err
	}
	return Options{Capacity: uint32(cfg.BufferPoolCapacity), Policy: policy, Logger: diag}, nil
}

// FileManager owns one database directory: the data file, the metadata
// record and the eviction log. Page writes go through the buffer pool and
// reach the data file on flush, eviction or Close.
type FileManager struct {
	latch   deadlock.Mutex
	dir     string
	fs      disk.FileSystem
	pm      *disk.PageManager
	bpm     *buffer.BufferPoolManager
	logFile disk.File
	sink    *zap.Logger
	log     *zap.Logger
	closed  bool
}

// NewFileManager opens the database in dir, creating the directory when
// absent. The allocation state is restored from the metadata record if one
// exists.
func NewFileManager(dir string, opts Options) (*FileManager, error) {
	if opts.Capacity == 0 {
		return nil, errors.New("buffer pool capacity must be positive")
	}
	fs := opts.FS
	if fs == nil {
		fs = disk.NewOSFileSystem()
	}
	diag := opts.Logger
	if diag == nil {
		diag = zap.NewNop()
	}
	diag = diag.With(zap.String("dir", dir))

	if err := fs.MkdirAll(dir); err != nil {
		return nil, errors.Wrapf(err, "create database directory %s", dir)
	}

	metadata, err := loadMetadata(fs, filepath.Join(dir, common.MetaFileName))
	if err != nil {
		return nil, err
	}

	pm := disk.NewPageManager(fs, filepath.Join(dir, common.DataFileName))
	if err := pm.Restore(metadata.NextPageID, metadata.FreePageIDs); err != nil {
		return nil, errors.Wrap(types.ErrMetadataCorrupt, err.Error())
	}
	if size, err := pm.Size(); err == nil && size != int64(metadata.NextPageID-1)*common.PageSize {
		diag.Warn("data file size does not match metadata",
			zap.Int64("size", size), zap.Uint32("next_page_id", uint32(metadata.NextPageID)))
	}

	logFile, err := fs.OpenFile(filepath.Join(dir, common.LogFileName), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open eviction log in %s", dir)
	}
	sink := logger.NewSink(logFile)

	diag.Info("database opened",
		zap.Uint32("next_page_id", uint32(metadata.NextPageID)),
		zap.Int("free_pages", len(metadata.FreePageIDs)),
		zap.Uint32("capacity", opts.Capacity),
		zap.Stringer("policy", opts.Policy))

	return &FileManager{
		dir:     dir,
		fs:      fs,
		pm:      pm,
		bpm:     buffer.NewBufferPoolManager(opts.Capacity, opts.Policy, pm, sink),
		logFile: logFile,
		sink:    sink,
		log:     diag,
	}, nil
}

func (fm *FileManager) Dir() string {
	return fm.dir
}

// AllocatePage returns the id of a blank page that is already on disk.
// An error wraps types.ErrAllocation and no id was handed out.
func (fm *FileManager) AllocatePage() (types.PageID, error) {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return types.InvalidPageID, types.ErrClosed
	}

	pageID, err := fm.pm.AllocatePage()
	if err != nil {
		fm.log.Error("page allocation failed", zap.Error(err))
		return types.InvalidPageID, err
	}
	return pageID, nil
}

// FreePage returns pageID to the free list. A cached copy is dropped without
// being written back.
func (fm *FileManager) FreePage(pageID types.PageID) error {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return types.ErrClosed
	}

	if err := fm.pm.DeallocatePage(pageID); err != nil {
		return err
	}
	fm.bpm.Discard(pageID)
	return nil
}

// ReadPage returns a copy of the page. Later changes to the copy do not
// affect the database until it is passed to WritePage.
func (fm *FileManager) ReadPage(pageID types.PageID) (*page.Page, error) {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return nil, types.ErrClosed
	}

	pg, err := fm.bpm.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	return pg.Clone(), nil
}

// WritePage replaces the cached content of pageID with pg and marks it dirty.
// pg must carry pageID.
func (fm *FileManager) WritePage(pageID types.PageID, pg *page.Page) error {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return types.ErrClosed
	}
	if pg == nil || pg.GetPageId() != pageID {
		return errors.Wrapf(types.ErrPageIDMismatch, "write to page %d", pageID)
	}

	cached, err := fm.bpm.GetPage(pageID)
	if err != nil {
		return err
	}
	cached.Overwrite(pg)
	fm.bpm.MarkDirty(pageID)
	return nil
}

func (fm *FileManager) FlushPage(pageID types.PageID) error {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return types.ErrClosed
	}
	if !pageID.IsValid() {
		return types.ErrInvalidPageID
	}
	return fm.bpm.FlushPage(pageID)
}

func (fm *FileManager) FlushAllPages() error {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return types.ErrClosed
	}
	return fm.bpm.FlushAllPages()
}

// GetCacheStats returns buffer pool hits, misses and hit rate
func (fm *FileManager) GetCacheStats() (uint64, uint64, float64) {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	return fm.bpm.GetCacheStats()
}

func (fm *FileManager) CacheStats() buffer.Stats {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	return fm.bpm.Stats()
}

func (fm *FileManager) ResetCacheStats() {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	fm.bpm.ResetStats()
}

func (fm *FileManager) NextPageID() types.PageID {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	return fm.pm.NextPageID()
}

func (fm *FileManager) FreePageIDs() []types.PageID {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	return fm.pm.FreePageIDs()
}

// DataFileSize returns the size of the data file in bytes
func (fm *FileManager) DataFileSize() (int64, error) {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	return fm.pm.Size()
}

// RegisterMetrics exposes the buffer pool statistics on reg
func (fm *FileManager) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(buffer.NewStatsCollector("samehada", fm.CacheStats))
}

// Close flushes every dirty page, saves the metadata record and closes the
// eviction log. Every step is attempted even when an earlier one fails.
// Failures are logged and returned together. Calls after the first return nil.
func (fm *FileManager) Close() error {
	fm.latch.Lock()
	defer fm.latch.Unlock()
	if fm.closed {
		return nil
	}
	fm.closed = true

	var err error
	err = multierr.Append(err, fm.bpm.FlushAllPages())
	metadata := &Metadata{fm.pm.NextPageID(), fm.pm.FreePageIDs()}
	err = multierr.Append(err, saveMetadata(fm.fs, filepath.Join(fm.dir, common.MetaFileName), metadata))
	err = multierr.Append(err, fm.sink.Sync())
	err = multierr.Append(err, fm.logFile.Close())

	if err != nil {
		fm.log.Error("close database", zap.Error(err))
		return err
	}
	fm.log.Info("database closed",
		zap.Uint32("next_page_id", uint32(metadata.NextPageID)),
		zap.Int("free_pages", len(metadata.FreePageIDs)))
	return nil
}

// Exists reports whether dir already holds a database data file
func Exists(fs disk.FileSystem, dir string) bool {
	return samehada_util.FileExists(fs, filepath.Join(dir, common.DataFileName))
}
