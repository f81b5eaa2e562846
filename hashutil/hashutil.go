// Package hashutil wraps the Murmur3 x64-128 hash primitive the storage
// engine treats as a black box: a function from (bytes, seed) to four
// 32-bit lanes, used exclusively to drive the Bloom filter's bit
// selection.
package hashutil

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// Lanes hashes the little-endian 8-byte encoding of key with MurmurHash3's
// x64-128 variant seeded with seed, and splits the 128-bit result into
// four 32-bit lanes. This mirrors the reference C++ implementation, which
// hashes into a std::array<uint32_t, 4> via MurmurHash3_x64_128.
func Lanes(key uint64, seed uint32) [4]uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)

	h1, h2 := murmur3.Sum128WithSeed(buf[:], seed)

	return [4]uint32{
		uint32(h1),
		uint32(h1 >> 32),
		uint32(h2),
		uint32(h2 >> 32),
	}
}
