package skiplist

import (
	"bytes"
	"testing"
)

func TestInsertAndSearch(t *testing.T) {
	sl := New()
	if ok := sl.Insert(5, []byte("five")); !ok {
		t.Fatal("expected first insert of 5 to succeed")
	}
	if ok := sl.Insert(5, []byte("again")); ok {
		t.Fatal("expected second insert of 5 to report already-present")
	}
	v, found := sl.Search(5)
	if !found || !bytes.Equal(v, []byte("five")) {
		t.Fatalf("expected (five, true), got (%s, %v)", v, found)
	}
	if _, found := sl.Search(6); found {
		t.Fatal("expected 6 to be absent")
	}
}

func TestInsertOrAssign(t *testing.T) {
	sl := New()
	inserted := sl.InsertOrAssign(10, []byte("a"))
	if !inserted {
		t.Fatal("expected first call to insert")
	}
	inserted = sl.InsertOrAssign(10, []byte("b"))
	if inserted {
		t.Fatal("expected second call to overwrite, not insert")
	}
	v, found := sl.Search(10)
	if !found || !bytes.Equal(v, []byte("b")) {
		t.Fatalf("expected overwritten value b, got %s", v)
	}
}

func TestEnumerateOrder(t *testing.T) {
	sl := New()
	keys := []uint64{50, 10, 30, 20, 40}
	for _, k := range keys {
		sl.Insert(k, []byte{byte(k)})
	}
	kvs := sl.Enumerate()
	if len(kvs) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(kvs))
	}
	for i := 1; i < len(kvs); i++ {
		if kvs[i-1].Key >= kvs[i].Key {
			t.Fatalf("enumerate not ascending at index %d: %d >= %d", i, kvs[i-1].Key, kvs[i].Key)
		}
	}
}

func TestSentinelKeyValues(t *testing.T) {
	sl := New()
	if ok := sl.Insert(0, []byte("min")); !ok {
		t.Fatal("expected insert of sentinel-valued key 0 to succeed")
	}
	if ok := sl.Insert(^uint64(0), []byte("max")); !ok {
		t.Fatal("expected insert of sentinel-valued key maxuint64 to succeed")
	}
	if v, found := sl.Search(0); !found || string(v) != "min" {
		t.Fatalf("expected to find key 0, got %v %v", v, found)
	}
	if v, found := sl.Search(^uint64(0)); !found || string(v) != "max" {
		t.Fatalf("expected to find key maxuint64, got %v %v", v, found)
	}
	kvs := sl.Enumerate()
	if kvs[0].Key != 0 || kvs[len(kvs)-1].Key != ^uint64(0) {
		t.Fatalf("expected sentinel keys at both ends of enumeration, got %+v", kvs)
	}
}

func TestManyInsertsStayOrderedAndFindable(t *testing.T) {
	sl := New()
	const n = 2000
	for i := uint64(0); i < n; i++ {
		k := (i * 2654435761) % 100000
		sl.Insert(k, []byte{byte(k), byte(k >> 8)})
	}
	kvs := sl.Enumerate()
	for i := 1; i < len(kvs); i++ {
		if kvs[i-1].Key >= kvs[i].Key {
			t.Fatalf("order violated at %d", i)
		}
	}
	for _, kv := range kvs {
		v, found := sl.Search(kv.Key)
		if !found || !bytes.Equal(v, kv.Value) {
			t.Fatalf("search mismatch for key %d", kv.Key)
		}
	}
}

func TestLenTracksDistinctKeys(t *testing.T) {
	sl := New()
	sl.Insert(1, []byte("a"))
	sl.Insert(2, []byte("b"))
	sl.Insert(1, []byte("c")) // no-op, already present
	if sl.Len() != 2 {
		t.Fatalf("expected Len()==2, got %d", sl.Len())
	}
	sl.InsertOrAssign(1, []byte("d"))
	if sl.Len() != 2 {
		t.Fatalf("expected Len()==2 after overwrite, got %d", sl.Len())
	}
	sl.InsertOrAssign(3, []byte("e"))
	if sl.Len() != 3 {
		t.Fatalf("expected Len()==3 after new insert, got %d", sl.Len())
	}
}
