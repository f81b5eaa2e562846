// Package lsmkv implements a persistent ordered key-value store on the
// Log-Structured Merge-tree design: a mutable memory table backed by a
// skip list and Bloom filter, flushed into immutable level-0 SSTables,
// with a multi-level compaction engine that merges runs between levels
// under either a tiering or leveling policy.
package lsmkv

import (
	"fmt"
	"sort"

	"github.com/lsm-kv/lsmkv/fsutil"
	"github.com/lsm-kv/lsmkv/memtable"
	"github.com/lsm-kv/lsmkv/sstable"
)

// Engine is the façade over the memory table and the on-disk SSTable
// caches. It is not safe for concurrent use: one logical writer/reader
// runs at a time and every public method runs to completion before the
// next begins.
type Engine struct {
	opts   *Options
	mt     *memtable.MemTable
	caches []*sstable.Cache // the active set, kept sorted by freshness
	curTS  uint64
}

// sortByFreshness orders caches from freshest to stalest: ascending
// level, then descending timestamp, then descending count as a final
// tiebreaker.
func sortByFreshness(caches []*sstable.Cache) {
	sort.SliceStable(caches, func(i, j int) bool {
		a, b := caches[i], caches[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Header.TimeStamp != b.Header.TimeStamp {
			return a.Header.TimeStamp > b.Header.TimeStamp
		}
		return a.Header.Count > b.Header.Count
	})
}

// Open boots an engine against a data root. Every level-N subdirectory
// under opts.Path is scanned for *.sst files, each loaded into a cache,
// and the active set is sorted by freshness. The current timestamp is
// set to one past the highest timestamp observed on disk.
func Open(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}
	if err := opts.Validate(); err != nil {
		opts.Logger.Error("options did not validate", "error", err)
		return nil, err
	}

	if !fsutil.Exists(opts.Path) {
		if !opts.CreateIfMissing {
			return nil, ErrDataRootMissing
		}
		if err := fsutil.EnsureDir(opts.Path); err != nil {
			return nil, fmt.Errorf("lsmkv: create data root %s: %w", opts.Path, err)
		}
	}

	levelDirs, err := fsutil.LevelDirs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: scan data root %s: %w", opts.Path, err)
	}

	var caches []*sstable.Cache
	var maxTS uint64
	for _, ld := range levelDirs {
		files, err := fsutil.ListSSTFiles(ld.Dir)
		if err != nil {
			return nil, fmt.Errorf("lsmkv: list sst files in %s: %w", ld.Dir, err)
		}
		for _, path := range files {
			c, err := sstable.Load(path, ld.Level)
			if err != nil || c.Level < 0 {
				return nil, fmt.Errorf("%w: %s: %v", ErrSSTReadError, path, err)
			}
			if c.Header.TimeStamp > maxTS {
				maxTS = c.Header.TimeStamp
			}
			caches = append(caches, c)
		}
	}
	sortByFreshness(caches)

	curTS := maxTS + 1
	opts.Logger.Debug("engine opened", "path", opts.Path, "caches", len(caches), "cur_ts", curTS)

	return &Engine{
		opts:   opts,
		mt:     memtable.New(curTS),
		caches: caches,
		curTS:  curTS,
	}, nil
}

// Put inserts or overwrites key's value, flushing the current memtable
// first if the write would push it past the configured memory budget.
func (e *Engine) Put(key uint64, value []byte) error {
	if e.mt.PredictByteSize(key, value) >= e.opts.MemoryMaxSize {
		if err := e.flush(); err != nil {
			return err
		}
	}
	e.mt.Put(key, value)
	return nil
}

// Get looks up key, consulting the memory table first and then the
// on-disk caches from freshest to stalest. A tombstone hit at any tier
// is reported as "not found".
func (e *Engine) Get(key uint64) ([]byte, bool, error) {
	if v, found := e.mt.Get(key); found {
		return translateTombstone(v)
	}
	for _, c := range e.caches {
		offset, found := c.Search(key, false)
		if !found {
			continue
		}
		v, err := c.ReadAt(offset)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrSSTReadError, err)
		}
		return translateTombstone(v)
	}
	return nil, false, nil
}

func translateTombstone(v []byte) ([]byte, bool, error) {
	if string(v) == TombstoneLiteral {
		return nil, false, nil
	}
	return v, true, nil
}

// Del marks key as deleted if a live, non-tombstone value is currently
// visible. It reports false if the key was already absent or already a
// tombstone, without writing anything in that case.
func (e *Engine) Del(key uint64) (bool, error) {
	_, found, err := e.Get(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := e.Put(key, []byte(TombstoneLiteral)); err != nil {
		return false, err
	}
	return true, nil
}

// Scan emits (key, value) pairs for lo <= key <= hi in ascending order
// via out, using the same freshness and tombstone rules as Get. See
// mergeScan for the merge-iteration implementation.
func (e *Engine) Scan(lo, hi uint64, out func(key uint64, value []byte)) error {
	return e.mergeScan(lo, hi, out)
}

// Reset removes every SSTable and its directory under the data root,
// drops all caches, and installs a fresh empty memtable at timestamp 1.
func (e *Engine) Reset() error {
	levelDirs, err := fsutil.LevelDirs(e.opts.Path)
	if err != nil {
		return fmt.Errorf("lsmkv: scan data root %s: %w", e.opts.Path, err)
	}
	for _, ld := range levelDirs {
		if err := fsutil.RemoveAll(ld.Dir); err != nil {
			return fmt.Errorf("lsmkv: remove %s: %w", ld.Dir, err)
		}
	}
	e.caches = nil
	e.curTS = 1
	e.mt = memtable.New(e.curTS)
	return nil
}

// Close flushes any pending writes in the current memtable. It is safe
// to call on an already-empty engine.
func (e *Engine) Close() error {
	if e.mt.Size() == 0 {
		return nil
	}
	return e.flush()
}
