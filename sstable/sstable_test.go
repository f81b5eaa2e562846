package sstable

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/lsm-kv/lsmkv/bloom"
	"github.com/lsm-kv/lsmkv/skiplist"
)

func sampleKVs() []skiplist.KV {
	return []skiplist.KV{
		{Key: 1, Value: []byte("one")},
		{Key: 5, Value: []byte("five")},
		{Key: 9, Value: []byte("nine")},
	}
}

func buildSample(t *testing.T, dir string) *Cache {
	t.Helper()
	kvs := sampleKVs()
	bf := bloom.New()
	for _, kv := range kvs {
		bf.Insert(kv.Key)
	}
	c, err := WriteAll(dir, 42, 0, kvs, bf)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	return c
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	written := buildSample(t, dir)

	loaded, err := Load(written.Path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Header != written.Header {
		t.Fatalf("header mismatch: wrote %+v, loaded %+v", written.Header, loaded.Header)
	}
	if len(loaded.Indices) != len(written.Indices) {
		t.Fatalf("index length mismatch: wrote %d, loaded %d", len(written.Indices), len(loaded.Indices))
	}
	for i := range written.Indices {
		if loaded.Indices[i] != written.Indices[i] {
			t.Fatalf("index %d mismatch: wrote %+v, loaded %+v", i, written.Indices[i], loaded.Indices[i])
		}
	}
}

func TestSearchAndReadAt(t *testing.T) {
	dir := t.TempDir()
	c := buildSample(t, dir)

	offset, found := c.Search(5, false)
	if !found {
		t.Fatal("expected key 5 to be found")
	}
	val, err := c.ReadAt(offset)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(val, []byte("five")) {
		t.Fatalf("expected five, got %q", val)
	}

	if _, found := c.Search(3, false); found {
		t.Fatal("expected miss for key absent from the index, inside range")
	}
	if _, found := c.Search(100, false); found {
		t.Fatal("expected range-miss for key above Upper")
	}
}

func TestSearchBloomRejectsAbsentKeyInsideRange(t *testing.T) {
	dir := t.TempDir()
	c := buildSample(t, dir)
	c.Header.Lower = 0
	c.Header.Upper = 1000 // widen range artificially so only bloom would reject 3

	if _, found := c.Search(3, false); found {
		t.Fatal("expected bloom to reject key never inserted")
	}
}

func TestGetKVSequential(t *testing.T) {
	dir := t.TempDir()
	c := buildSample(t, dir)

	kvs, err := c.GetKV()
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	want := sampleKVs()
	if len(kvs) != len(want) {
		t.Fatalf("expected %d kvs, got %d", len(want), len(kvs))
	}
	for i := range want {
		if kvs[i].Key != want[i].Key || !bytes.Equal(kvs[i].Value, want[i].Value) {
			t.Fatalf("kv %d mismatch: want %+v, got %+v", i, want[i], kvs[i])
		}
	}
}

func TestRangeKV(t *testing.T) {
	dir := t.TempDir()
	c := buildSample(t, dir)

	kvs, err := c.RangeKV(2, 9)
	if err != nil {
		t.Fatalf("RangeKV: %v", err)
	}
	if len(kvs) != 2 || kvs[0].Key != 5 || kvs[1].Key != 9 {
		t.Fatalf("expected keys [5,9], got %+v", kvs)
	}

	if kvs, err := c.RangeKV(100, 200); err != nil || kvs != nil {
		t.Fatalf("expected nil result for out-of-range query, got %+v, err %v", kvs, err)
	}
}

func TestLoadFailureReturnsLevelMinusOne(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.sst"), 3)
	if err == nil {
		t.Fatal("expected error loading a nonexistent file")
	}
	if c.Level != -1 {
		t.Fatalf("expected Level -1 on failed load, got %d", c.Level)
	}
}

func TestBuilderSplitsOnSizeLimit(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir, 1, 7)

	var flushed []*Cache
	entries := []skiplist.KV{
		{Key: 1, Value: bytes.Repeat([]byte("a"), 100)},
		{Key: 2, Value: bytes.Repeat([]byte("b"), 100)},
		{Key: 3, Value: bytes.Repeat([]byte("c"), 100)},
	}
	maxBytes := HeaderSize + bloom.Size + indexEntrySize + 101 // room for exactly one entry

	for _, kv := range entries {
		c, err := b.Append(kv.Key, kv.Value, maxBytes)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if c != nil {
			flushed = append(flushed, c)
		}
	}
	final, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if final != nil {
		flushed = append(flushed, final)
	}

	if len(flushed) != 3 {
		t.Fatalf("expected 3 split output files, got %d", len(flushed))
	}
	for i, c := range flushed {
		if c.Header.Count != 1 {
			t.Fatalf("file %d: expected 1 entry, got %d", i, c.Header.Count)
		}
	}
}

func TestBuilderFinishNoAppendsReturnsNil(t *testing.T) {
	b := NewBuilder(t.TempDir(), 0, 1)
	c, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if c != nil {
		t.Fatal("expected nil cache when nothing was appended")
	}
}
