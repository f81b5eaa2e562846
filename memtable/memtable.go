// Package memtable implements the mutable, in-memory tier of the LSM
// tree: a skip list of live key-value pairs guarded by a Bloom filter,
// with running byte-size and key-range bookkeeping so the engine can
// decide when to flush before a write would overflow the memory budget.
package memtable

import (
	"sort"

	"github.com/lsm-kv/lsmkv/bloom"
	"github.com/lsm-kv/lsmkv/skiplist"
)

// HeaderSize is the size in bytes of an SSTable's fixed header, counted
// as part of every memtable's predicted serialized size.
const HeaderSize = 32

// entryOverhead is the per-entry cost of an SSTable index slot plus the
// value's null terminator: 8 bytes for the key, 4 for the offset, 1 for
// the terminating 0x00.
const entryOverhead = 8 + 4 + 1

// Range is an inclusive [Lower, Upper] key bound. An empty range is
// encoded as Lower=1, Upper=0 (Lower > Upper), matching the spec's
// convention rather than a separate "is empty" flag.
type Range struct {
	Lower uint64
	Upper uint64
}

// Empty reports whether the range contains no keys.
func (r Range) Empty() bool {
	return r.Lower > r.Upper
}

// MemTable is the mutable tier: a skip list of live pairs, a Bloom filter
// over present keys, an origin timestamp, a count of distinct keys, a key
// range, and a running byte size equal to what the table would occupy if
// serialized into an SSTable right now.
type MemTable struct {
	sl        *skiplist.SkipList
	bf        *bloom.Filter
	timestamp uint64
	count     int
	rng       Range
	byteSize  int
}

// New constructs an empty memtable with the given origin timestamp.
func New(timestamp uint64) *MemTable {
	return &MemTable{
		sl:        skiplist.New(),
		bf:        bloom.New(),
		timestamp: timestamp,
		rng:       Range{Lower: 1, Upper: 0},
		byteSize:  HeaderSize + bloom.Size,
	}
}

// Timestamp returns the table's origin timestamp.
func (mt *MemTable) Timestamp() uint64 {
	return mt.timestamp
}

// Size returns the number of distinct live keys.
func (mt *MemTable) Size() int {
	return mt.count
}

// Range returns the table's key range. If the table is empty, the
// returned range reports Empty() == true.
func (mt *MemTable) Range() Range {
	return mt.rng
}

// ByteSize returns the size the table would occupy if serialized as a
// single SSTable right now.
func (mt *MemTable) ByteSize() int {
	return mt.byteSize
}

// BloomFilter exposes the underlying Bloom filter so flush can write it
// out verbatim instead of rebuilding it from the key set.
func (mt *MemTable) BloomFilter() *bloom.Filter {
	return mt.bf
}

// PredictByteSize returns the byte size the table would occupy after
// Put(key, value), without mutating the table. The engine calls this
// before every write to decide whether a flush must happen first.
func (mt *MemTable) PredictByteSize(key uint64, value []byte) int {
	if prev, found := mt.sl.Search(key); found {
		return mt.byteSize + len(value) - len(prev)
	}
	return mt.byteSize + entryOverhead + len(value)
}

// Put inserts or overwrites key's value, updating byte size, the Bloom
// filter, the key range, and the distinct-key count.
func (mt *MemTable) Put(key uint64, value []byte) {
	if prev, found := mt.sl.Search(key); found {
		mt.byteSize += len(value) - len(prev)
	} else {
		mt.byteSize += entryOverhead + len(value)
		mt.count++
		mt.extendRange(key)
	}
	mt.sl.InsertOrAssign(key, value)
	mt.bf.Insert(key)
}

func (mt *MemTable) extendRange(key uint64) {
	if mt.rng.Empty() {
		mt.rng = Range{Lower: key, Upper: key}
		return
	}
	if key < mt.rng.Lower {
		mt.rng.Lower = key
	}
	if key > mt.rng.Upper {
		mt.rng.Upper = key
	}
}

// Get returns key's value and whether it was found, fast-rejecting on a
// range miss or a Bloom-filter miss before consulting the skip list.
func (mt *MemTable) Get(key uint64) ([]byte, bool) {
	if mt.rng.Empty() || key < mt.rng.Lower || key > mt.rng.Upper {
		return nil, false
	}
	if !mt.bf.Contains(key) {
		return nil, false
	}
	return mt.sl.Search(key)
}

// Enumerate returns the in-order (key, value) pairs currently live in the
// table.
func (mt *MemTable) Enumerate() []skiplist.KV {
	return mt.sl.Enumerate()
}

// RangeKV returns the in-order (key, value) pairs with Lower <= key <=
// Upper, for scan's merge iteration.
func (mt *MemTable) RangeKV(lower, upper uint64) []skiplist.KV {
	all := mt.sl.Enumerate()
	start := sort.Search(len(all), func(i int) bool { return all[i].Key >= lower })
	end := sort.Search(len(all), func(i int) bool { return all[i].Key > upper })
	if start >= end {
		return nil
	}
	return all[start:end]
}
