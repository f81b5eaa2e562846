package lsmkv

import (
	"fmt"
	"sort"

	"github.com/lsm-kv/lsmkv/fsutil"
	"github.com/lsm-kv/lsmkv/sstable"
)

// cachesAtLevel returns the active-set caches belonging to level, in
// their current (freshness) order.
func (e *Engine) cachesAtLevel(level int) []*sstable.Cache {
	var out []*sstable.Cache
	for _, c := range e.caches {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// checkLevel recursively compacts level into level+1 while level holds
// more caches than its configured budget.
func (e *Engine) checkLevel(level int) error {
	lc := e.opts.LevelConfig(level)
	if len(e.cachesAtLevel(level)) <= lc.MaxFiles {
		return nil
	}
	if err := e.compact(level, level+1); err != nil {
		return err
	}
	return e.checkLevel(level + 1)
}

// rangeUnion returns the [min, max] key bound covering every cache in
// caches, which must be non-empty.
func rangeUnion(caches []*sstable.Cache) (uint64, uint64) {
	lo, hi := caches[0].Header.Lower, caches[0].Header.Upper
	for _, c := range caches[1:] {
		if c.Header.Lower < lo {
			lo = c.Header.Lower
		}
		if c.Header.Upper > hi {
			hi = c.Header.Upper
		}
	}
	return lo, hi
}

// selectL1 picks compact's input caches out of level l1: every cache
// under tiering, or the count(l1)-maxFiles oldest caches under
// leveling (smallest timestamp first, ties broken by smaller count).
func selectL1(atL1 []*sstable.Cache, lc LevelConfig) []*sstable.Cache {
	if lc.Policy == Tiering {
		return atL1
	}
	sorted := append([]*sstable.Cache(nil), atL1...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Header.TimeStamp != sorted[j].Header.TimeStamp {
			return sorted[i].Header.TimeStamp < sorted[j].Header.TimeStamp
		}
		return sorted[i].Header.Count < sorted[j].Header.Count
	})
	n := len(atL1) - lc.MaxFiles
	if n <= 0 {
		return nil
	}
	return sorted[:n]
}

// selectL2 adds every l2 cache whose range overlaps the union of the
// selected l1 ranges, expanding that union greedily until nothing new
// overlaps. Under tiering, l2 contributes no input: the selected l1
// caches simply form a new tier.
func selectL2(atL2 []*sstable.Cache, lc LevelConfig, l1 []*sstable.Cache) []*sstable.Cache {
	if lc.Policy != Leveling {
		return nil
	}
	lo, hi := rangeUnion(l1)
	taken := make(map[*sstable.Cache]bool, len(atL2))
	var selected []*sstable.Cache
	for {
		grew := false
		for _, c := range atL2 {
			if taken[c] || c.Header.Lower > hi || c.Header.Upper < lo {
				continue
			}
			taken[c] = true
			selected = append(selected, c)
			if c.Header.Lower < lo {
				lo = c.Header.Lower
				grew = true
			}
			if c.Header.Upper > hi {
				hi = c.Header.Upper
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	return selected
}

// compact merges the selected inputs from l1 (and any overlapping
// inputs from l2) into one or more new SSTables at l2, via a k-way
// merge keeping the highest-timestamp value per key. At the terminal
// level, surviving tombstones are dropped instead of written out.
func (e *Engine) compact(l1, l2 int) error {
	atL1 := e.cachesAtLevel(l1)
	if len(atL1) == 0 {
		return nil
	}
	lc1, lc2 := e.opts.LevelConfig(l1), e.opts.LevelConfig(l2)

	picked1 := selectL1(atL1, lc1)
	if len(picked1) == 0 {
		return nil
	}
	picked2 := selectL2(e.cachesAtLevel(l2), lc2, picked1)

	inputs := make([]*sstable.Cache, 0, len(picked1)+len(picked2))
	inputs = append(inputs, picked1...)
	inputs = append(inputs, picked2...)

	// Highest (timestamp, count) wins ties on a shared key; assigning
	// ascending priority numbers in that order makes the lowest number
	// the winner, matching mergeSources' tiebreak rule.
	sort.Slice(inputs, func(i, j int) bool {
		if inputs[i].Header.TimeStamp != inputs[j].Header.TimeStamp {
			return inputs[i].Header.TimeStamp > inputs[j].Header.TimeStamp
		}
		return inputs[i].Header.Count > inputs[j].Header.Count
	})

	var maxTS uint64
	sources := make([]*kvSource, 0, len(inputs))
	for i, c := range inputs {
		kvs, err := c.GetKV()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSSTReadError, err)
		}
		if c.Header.TimeStamp > maxTS {
			maxTS = c.Header.TimeStamp
		}
		sources = append(sources, &kvSource{kvs: kvs, priority: i})
	}

	terminal := l2 >= e.opts.TerminalLevel()
	builder := sstable.NewBuilder(fsutil.LevelDir(e.opts.Path, l2), l2, maxTS)
	var outputs []*sstable.Cache
	var mergeErr error
	mergeSources(sources, func(key uint64, value []byte) {
		if mergeErr != nil {
			return
		}
		if terminal && string(value) == TombstoneLiteral {
			return
		}
		c, err := builder.Append(key, value, e.opts.MemoryMaxSize)
		if err != nil {
			mergeErr = fmt.Errorf("%w: %v", ErrSSTWriteError, err)
			return
		}
		if c != nil {
			outputs = append(outputs, c)
		}
	})
	if mergeErr != nil {
		return mergeErr
	}
	final, err := builder.Finish()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSSTWriteError, err)
	}
	if final != nil {
		outputs = append(outputs, final)
	}

	if err := e.retireInputs(inputs); err != nil {
		return err
	}
	e.caches = append(e.caches, outputs...)
	sortByFreshness(e.caches)

	e.opts.Logger.Debug("compacted", "from", l1, "to", l2, "inputs", len(inputs), "outputs", len(outputs))
	return nil
}

// retireInputs drops inputs from the active set and unlinks their
// files, only after the merge has finished reading them.
func (e *Engine) retireInputs(inputs []*sstable.Cache) error {
	drop := make(map[*sstable.Cache]bool, len(inputs))
	for _, c := range inputs {
		drop[c] = true
	}
	kept := e.caches[:0]
	for _, c := range e.caches {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	e.caches = kept

	for _, c := range inputs {
		if err := fsutil.RemoveFile(c.Path); err != nil {
			return fmt.Errorf("lsmkv: remove compacted input %s: %w", c.Path, err)
		}
	}
	return nil
}
