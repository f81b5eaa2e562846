// Package bloom implements the fixed-size Bloom filter used to skip
// negative lookups on the memory table and each SSTable cache. It trades
// a small, constant amount of memory for the ability to answer "key is
// definitely absent" without touching the skip list or a file.
package bloom

import "github.com/lsm-kv/lsmkv/hashutil"

// Size is the fixed size in bytes of every Bloom filter in the engine
// (BLF_SIZE in the spec). The bit count is Size*8.
const Size = 10240

// Seed is the Murmur3 seed used for every Bloom filter hash.
const Seed = 1

const bits = Size * 8

// Filter is a fixed-size bit array with no false negatives. insert and
// contains both compute four 32-bit hash lanes from Murmur3-128 of the
// key and set/test the corresponding four bits.
type Filter struct {
	table [Size]byte
}

// New returns an empty filter.
func New() *Filter {
	return &Filter{}
}

// lanes reduces the four Murmur3 lanes of key modulo the bit count.
func lanes(key uint64) [4]uint32 {
	l := hashutil.Lanes(key, Seed)
	for i := range l {
		l[i] %= bits
	}
	return l
}

// Insert marks key as present.
func (f *Filter) Insert(key uint64) {
	for _, bit := range lanes(key) {
		f.table[bit/8] |= 1 << (bit % 8)
	}
}

// Contains reports whether key might be present. False positives are
// possible; false negatives never occur.
func (f *Filter) Contains(key uint64) bool {
	for _, bit := range lanes(key) {
		if f.table[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// Bytes returns the raw backing array, suitable for writing verbatim into
// an SSTable's Bloom region.
func (f *Filter) Bytes() []byte {
	return f.table[:]
}

// Load replaces the filter's contents with raw bytes previously produced
// by Bytes, as read back from an SSTable file. It panics if the length
// doesn't match Size — a short read here means the caller read a
// corrupt or truncated file and has a bug upstream, not a condition to
// recover from silently.
func Load(raw []byte) *Filter {
	if len(raw) != Size {
		panic("bloom: Load requires exactly Size bytes")
	}
	f := &Filter{}
	copy(f.table[:], raw)
	return f
}
