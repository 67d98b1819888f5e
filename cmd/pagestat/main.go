// pagestat prints the allocation state of a database directory and, after an
// optional scan of every live page, the buffer pool statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/devlights/gomy/output"
	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/samehada"
	"github.com/ryogrid/SamehadaPager/storage/disk"
	"github.com/ryogrid/SamehadaPager/types"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pagestat:", err)
		os.Exit(1)
	}
}

func run() (err error) {
	configPath := flag.String("config", "", "ini config file")
	dir := flag.String("dir", "", "database directory, overrides the config")
	scan := flag.Bool("scan", false, "read every live page through the buffer pool")
	flag.Parse()

	cfg := common.DefaultConfig()
	if *configPath != "" {
		loaded, err := common.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *dir != "" {
		cfg.Dir = *dir
	}

	if !samehada.Exists(disk.NewOSFileSystem(), cfg.Dir) {
		return errors.Errorf("no database in %s", cfg.Dir)
	}

	opts, err := samehada.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	fm, err := samehada.NewFileManager(cfg.Dir, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, fm.Close())
	}()

	nextPageID := fm.NextPageID()
	freePageIDs := fm.FreePageIDs()
	size, err := fm.DataFileSize()
	if err != nil {
		return err
	}

	output.Stdoutl("[dir          ]", cfg.Dir)
	output.Stdoutl("[next page id ]", nextPageID)
	output.Stdoutl("[free pages   ]", len(freePageIDs), freePageIDs)
	output.Stdoutl("[data size    ]", size, "bytes", size/common.PageSize, "pages")

	if !*scan {
		return nil
	}

	free := mapset.NewThreadUnsafeSet(freePageIDs...)
	live := 0
	for pageID := types.PageID(common.FirstPageID); pageID < nextPageID; pageID++ {
		if free.Contains(pageID) {
			continue
		}
		if _, err := fm.ReadPage(pageID); err != nil {
			output.Stdoutl("[unreadable   ]", pageID, err)
			continue
		}
		live++
	}

	stats := fm.CacheStats()
	output.Stdoutl("[live pages   ]", live)
	output.Stdoutl("[cache        ]", fmt.Sprintf("hits=%d misses=%d hit_rate=%.3f evictions=%d cached=%d/%d",
		stats.Hits, stats.Misses, stats.HitRate, stats.Evictions, stats.Cached, stats.Capacity))
	return nil
}
