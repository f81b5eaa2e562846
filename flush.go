package lsmkv

import (
	"fmt"

	"github.com/lsm-kv/lsmkv/fsutil"
	"github.com/lsm-kv/lsmkv/memtable"
	"github.com/lsm-kv/lsmkv/sstable"
)

// flush serializes the current memtable into exactly one level-0
// SSTable, registers its cache, installs a fresh memtable, and checks
// whether level 0 now needs compacting. The caller's view of the store
// is unaffected: flush runs to completion before the triggering put.
func (e *Engine) flush() error {
	if e.mt.Size() == 0 {
		return nil
	}

	dir := fsutil.LevelDir(e.opts.Path, 0)
	c, err := sstable.WriteAll(dir, e.mt.Timestamp(), 0, e.mt.Enumerate(), e.mt.BloomFilter())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSSTWriteError, err)
	}

	e.caches = append(e.caches, c)
	sortByFreshness(e.caches)

	e.curTS = e.mt.Timestamp() + 1
	e.mt = memtable.New(e.curTS)
	e.opts.Logger.Debug("flushed memtable", "path", c.Path, "count", c.Header.Count, "timestamp", c.Header.TimeStamp)

	return e.checkLevel(0)
}
