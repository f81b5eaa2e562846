// Package bufferpool provides reusable byte slices for the one scratch
// read that recurs on every SSTable load: the fixed-size Bloom filter
// region. The sparse index region that follows it varies in size with
// the table's key count, so it has no fixed shape to pool and is
// allocated directly instead.
package bufferpool

import (
	"sync"

	"github.com/lsm-kv/lsmkv/bloom"
)

// BufferPool hands out byte slices for the fixed-size Bloom region,
// reusing previously returned buffers. Requests of any other size
// bypass the pool entirely.
type BufferPool struct {
	blf sync.Pool
}

// New creates a buffer pool sized to the Bloom filter region.
func New() *BufferPool {
	return &BufferPool{
		blf: sync.Pool{
			New: func() any { return make([]byte, bloom.Size) },
		},
	}
}

// Get returns a byte slice with length exactly size. Only size ==
// bloom.Size is drawn from the pool; every other size is allocated
// directly, since the index region's size varies per SSTable.
func (p *BufferPool) Get(size int) []byte {
	if size != bloom.Size {
		return make([]byte, size)
	}
	return p.blf.Get().([]byte)
}

// Put returns buf to the pool if it's a Bloom-region buffer. Buffers of
// any other size are dropped for the GC.
func (p *BufferPool) Put(buf []byte) {
	if len(buf) != bloom.Size {
		return
	}
	p.blf.Put(buf)
}

var global = New()

// Get returns a byte slice from the global pool.
func Get(size int) []byte { return global.Get(size) }

// Put returns a byte slice to the global pool.
func Put(buf []byte) { global.Put(buf) }
