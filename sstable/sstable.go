// Package sstable implements the on-disk SSTable binary format: a fixed
// 32-byte header, a fixed-size Bloom filter region, a sparse index of
// (key, offset) pairs, and a null-terminated value region. Every byte
// offset in the layout is pinned — Write and Load must stay in lockstep.
package sstable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/lsm-kv/lsmkv/bloom"
	"github.com/lsm-kv/lsmkv/bufferpool"
	"github.com/lsm-kv/lsmkv/fsutil"
	"github.com/lsm-kv/lsmkv/skiplist"
)

// HeaderSize is the number of bytes occupied by the fixed header.
const HeaderSize = 32

// indexEntrySize is the on-disk width of one sparse index entry: an
// 8-byte key followed by a 4-byte offset.
const indexEntrySize = 12

// Header is the 32-byte prefix of every SSTable file.
type Header struct {
	TimeStamp uint64
	Count     uint64
	Lower     uint64
	Upper     uint64
}

// IndexEntry maps a key to the byte offset of its value within the file.
type IndexEntry struct {
	Key    uint64
	Offset uint32
}

// Cache is the in-memory representation of one SSTable: the header, the
// loaded Bloom filter, and the full sparse index. The value region is
// never preloaded — callers seek into Path on demand.
type Cache struct {
	Level   int
	Header  Header
	Bloom   *bloom.Filter
	Indices []IndexEntry
	Path    string
}

func errCache() *Cache { return &Cache{Level: -1} }

// Search looks up key against the sparse index, honoring the range and
// (unless bypassBloom) Bloom filter fast-reject checks first.
func (c *Cache) Search(key uint64, bypassBloom bool) (uint32, bool) {
	if c.Level < 0 {
		return 0, false
	}
	if key < c.Header.Lower || key > c.Header.Upper {
		return 0, false
	}
	if !bypassBloom && !c.Bloom.Contains(key) {
		return 0, false
	}
	i := sort.Search(len(c.Indices), func(i int) bool { return c.Indices[i].Key >= key })
	if i < len(c.Indices) && c.Indices[i].Key == key {
		return c.Indices[i].Offset, true
	}
	return 0, false
}

// ReadAt opens a fresh handle on Path and reads the null-terminated value
// starting at offset.
func (c *Cache) ReadAt(offset uint32) ([]byte, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", c.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("sstable: seek %s: %w", c.Path, err)
	}
	raw, err := bufio.NewReader(f).ReadBytes(0x00)
	if err != nil {
		return nil, fmt.Errorf("sstable: read value at %d in %s: %w", offset, c.Path, err)
	}
	return raw[:len(raw)-1], nil
}

// RangeKV reads the (key, value) pairs with lower <= key <= upper. Since
// Indices is sorted ascending and values are laid out in the same order,
// the matching indices are contiguous, so this is a single sequential
// read starting at the first match's offset.
func (c *Cache) RangeKV(lower, upper uint64) ([]skiplist.KV, error) {
	if c.Level < 0 || upper < c.Header.Lower || lower > c.Header.Upper {
		return nil, nil
	}
	start := sort.Search(len(c.Indices), func(i int) bool { return c.Indices[i].Key >= lower })
	end := sort.Search(len(c.Indices), func(i int) bool { return c.Indices[i].Key > upper })
	if start >= end {
		return nil, nil
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", c.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(c.Indices[start].Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("sstable: seek %s: %w", c.Path, err)
	}
	r := bufio.NewReader(f)
	out := make([]skiplist.KV, 0, end-start)
	for i := start; i < end; i++ {
		raw, err := r.ReadBytes(0x00)
		if err != nil {
			return nil, fmt.Errorf("sstable: read value for key %d in %s: %w", c.Indices[i].Key, c.Path, err)
		}
		out = append(out, skiplist.KV{Key: c.Indices[i].Key, Value: raw[:len(raw)-1]})
	}
	return out, nil
}

// GetKV reads every (key, value) pair out of the file in index order, for
// compaction's k-way merge input.
func (c *Cache) GetKV() ([]skiplist.KV, error) {
	if len(c.Indices) == 0 {
		return nil, nil
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", c.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(c.Indices[0].Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("sstable: seek %s: %w", c.Path, err)
	}
	r := bufio.NewReader(f)
	out := make([]skiplist.KV, 0, len(c.Indices))
	for _, idx := range c.Indices {
		raw, err := r.ReadBytes(0x00)
		if err != nil {
			return nil, fmt.Errorf("sstable: read value for key %d in %s: %w", idx.Key, c.Path, err)
		}
		out = append(out, skiplist.KV{Key: idx.Key, Value: raw[:len(raw)-1]})
	}
	return out, nil
}

// token generates a random six-hex-digit filename stem.
func token() string {
	return fmt.Sprintf("%06x", rand.Uint32()%0x1000000)
}

func writeFile(path string, h Header, bf *bloom.Filter, kvs []skiplist.KV) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sstable: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	var hbuf [HeaderSize]byte
	binary.LittleEndian.PutUint64(hbuf[0:8], h.TimeStamp)
	binary.LittleEndian.PutUint64(hbuf[8:16], h.Count)
	binary.LittleEndian.PutUint64(hbuf[16:24], h.Lower)
	binary.LittleEndian.PutUint64(hbuf[24:32], h.Upper)
	if _, err := w.Write(hbuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(bf.Bytes()); err != nil {
		return err
	}

	offset := uint32(HeaderSize + bloom.Size + len(kvs)*indexEntrySize)
	var ebuf [indexEntrySize]byte
	for _, kv := range kvs {
		binary.LittleEndian.PutUint64(ebuf[0:8], kv.Key)
		binary.LittleEndian.PutUint32(ebuf[8:12], offset)
		if _, err := w.Write(ebuf[:]); err != nil {
			return err
		}
		offset += uint32(len(kv.Value)) + 1
	}

	for _, kv := range kvs {
		if _, err := w.Write(kv.Value); err != nil {
			return err
		}
		if err := w.WriteByte(0x00); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("sstable: flush %s: %w", path, err)
	}
	return nil
}

// WriteAll writes kvs (already sorted ascending by key) as one SSTable
// file under dir, writing the caller's Bloom filter bf verbatim and
// building the sparse index, and returns the resulting Cache.
func WriteAll(dir string, timestamp uint64, level int, kvs []skiplist.KV, bf *bloom.Filter) (*Cache, error) {
	if len(kvs) == 0 {
		return nil, fmt.Errorf("sstable: cannot write an empty key set")
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("sstable: ensure dir %s: %w", dir, err)
	}

	h := Header{TimeStamp: timestamp, Count: uint64(len(kvs)), Lower: kvs[0].Key, Upper: kvs[len(kvs)-1].Key}
	path := filepath.Join(dir, token()+".sst")
	if err := writeFile(path, h, bf, kvs); err != nil {
		return nil, err
	}

	indices := make([]IndexEntry, len(kvs))
	offset := uint32(HeaderSize + bloom.Size + len(kvs)*indexEntrySize)
	for i, kv := range kvs {
		indices[i] = IndexEntry{Key: kv.Key, Offset: offset}
		offset += uint32(len(kv.Value)) + 1
	}

	return &Cache{Level: level, Header: h, Bloom: bf, Indices: indices, Path: path}, nil
}

// Load reads an SSTable's header, Bloom filter, and sparse index off
// disk without touching the value region. A failed load returns a
// Cache with Level -1, signalling to callers that the file is unusable.
func Load(path string, level int) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return errCache(), fmt.Errorf("sstable: open %s: %w", path, err)
	}
	defer f.Close()

	var hbuf [HeaderSize]byte
	if _, err := io.ReadFull(f, hbuf[:]); err != nil {
		return errCache(), fmt.Errorf("sstable: read header of %s: %w", path, err)
	}
	h := Header{
		TimeStamp: binary.LittleEndian.Uint64(hbuf[0:8]),
		Count:     binary.LittleEndian.Uint64(hbuf[8:16]),
		Lower:     binary.LittleEndian.Uint64(hbuf[16:24]),
		Upper:     binary.LittleEndian.Uint64(hbuf[24:32]),
	}

	blfBuf := bufferpool.Get(bloom.Size)
	defer bufferpool.Put(blfBuf)
	if _, err := io.ReadFull(f, blfBuf); err != nil {
		return errCache(), fmt.Errorf("sstable: read bloom region of %s: %w", path, err)
	}
	bf := bloom.Load(blfBuf)

	idxBuf := bufferpool.Get(int(h.Count) * indexEntrySize)
	defer bufferpool.Put(idxBuf)
	if _, err := io.ReadFull(f, idxBuf); err != nil {
		return errCache(), fmt.Errorf("sstable: read index region of %s: %w", path, err)
	}
	indices := make([]IndexEntry, h.Count)
	for i := range indices {
		off := i * indexEntrySize
		indices[i] = IndexEntry{
			Key:    binary.LittleEndian.Uint64(idxBuf[off : off+8]),
			Offset: binary.LittleEndian.Uint32(idxBuf[off+8 : off+12]),
		}
	}

	return &Cache{Level: level, Header: h, Bloom: bf, Indices: indices, Path: path}, nil
}

// Builder accumulates (key, value) pairs in ascending key order and
// splits them across multiple SSTable files whenever the running byte
// size would exceed a caller-supplied limit — compaction's output side
// of the size-triggered file split.
type Builder struct {
	dir       string
	level     int
	timestamp uint64
	kvs       []skiplist.KV
	byteSize  int
}

// NewBuilder starts a builder that will write into dir at level,
// stamping every emitted file with timestamp.
func NewBuilder(dir string, level int, timestamp uint64) *Builder {
	return &Builder{dir: dir, level: level, timestamp: timestamp, byteSize: HeaderSize + bloom.Size}
}

// Append adds (key, value) to the buffer. If doing so would push the
// buffer's byte size past maxBytes, the buffer accumulated so far is
// flushed to a new SSTable first and the returned Cache is non-nil.
func (b *Builder) Append(key uint64, value []byte, maxBytes int) (*Cache, error) {
	entrySize := indexEntrySize + len(value) + 1
	if len(b.kvs) > 0 && b.byteSize+entrySize > maxBytes {
		c, err := b.flush()
		if err != nil {
			return nil, err
		}
		b.kvs = nil
		b.byteSize = HeaderSize + bloom.Size
		b.kvs = append(b.kvs, skiplist.KV{Key: key, Value: value})
		b.byteSize += entrySize
		return c, nil
	}
	b.kvs = append(b.kvs, skiplist.KV{Key: key, Value: value})
	b.byteSize += entrySize
	return nil, nil
}

// Finish flushes any remaining buffered entries, or returns (nil, nil)
// if nothing was ever appended.
func (b *Builder) Finish() (*Cache, error) {
	if len(b.kvs) == 0 {
		return nil, nil
	}
	return b.flush()
}

func (b *Builder) flush() (*Cache, error) {
	bf := bloom.New()
	for _, kv := range b.kvs {
		bf.Insert(kv.Key)
	}
	return WriteAll(b.dir, b.timestamp, b.level, b.kvs, bf)
}
