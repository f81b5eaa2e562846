package lsmkv

import (
	"container/heap"

	"github.com/lsm-kv/lsmkv/skiplist"
)

// kvSource is one already-materialized, ascending-key sorted input to a
// k-way merge: the memory table's range slice, or one SSTable cache's
// range or full read. priority breaks ties between sources that both
// hold the same key — the lower number wins.
type kvSource struct {
	kvs      []skiplist.KV
	idx      int
	priority int
}

// mergeHeap is a min-heap over the sources' current head key, with
// priority as the tiebreaker so scan and compaction share one merge
// routine despite needing different dedup rules.
type mergeHeap []*kvSource

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	ka, kb := a.kvs[a.idx].Key, b.kvs[b.idx].Key
	if ka != kb {
		return ka < kb
	}
	return a.priority < b.priority
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*kvSource)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeSources performs a k-way merge over sources (each already sorted
// ascending by key) and calls emit once per distinct key, ascending,
// with the value from whichever source holding that key has the lowest
// priority number. The other sources holding the same key are skipped
// for that key, matching the "first arrival wins" dedup rule.
func mergeSources(sources []*kvSource, emit func(key uint64, value []byte)) {
	h := make(mergeHeap, 0, len(sources))
	for _, s := range sources {
		if len(s.kvs) > 0 {
			h = append(h, s)
		}
	}
	heap.Init(&h)

	for h.Len() > 0 {
		key := h[0].kvs[h[0].idx].Key

		var winner *kvSource
		var group []*kvSource
		for h.Len() > 0 && h[0].kvs[h[0].idx].Key == key {
			s := heap.Pop(&h).(*kvSource)
			group = append(group, s)
			if winner == nil || s.priority < winner.priority {
				winner = s
			}
		}

		emit(key, winner.kvs[winner.idx].Value)

		for _, s := range group {
			s.idx++
			if s.idx < len(s.kvs) {
				heap.Push(&h, s)
			}
		}
	}
}
