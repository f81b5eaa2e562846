package lsmkv

import "fmt"

// mergeScan answers Scan by merge-iterating the memory table's range
// slice alongside every cache's range slice, instead of the naive
// approach of calling Get once per key in [lo, hi]. Priority follows
// freshness: the memory table always wins, then caches in the same
// freshest-to-stalest order Get consults them in.
func (e *Engine) mergeScan(lo, hi uint64, out func(key uint64, value []byte)) error {
	if lo > hi {
		return nil
	}

	sources := make([]*kvSource, 0, len(e.caches)+1)
	sources = append(sources, &kvSource{kvs: e.mt.RangeKV(lo, hi), priority: 0})

	for i, c := range e.caches {
		kvs, err := c.RangeKV(lo, hi)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSSTReadError, err)
		}
		sources = append(sources, &kvSource{kvs: kvs, priority: i + 1})
	}

	var emitErr error
	mergeSources(sources, func(key uint64, value []byte) {
		if emitErr != nil {
			return
		}
		if string(value) == TombstoneLiteral {
			return
		}
		out(key, value)
	})
	return emitErr
}
