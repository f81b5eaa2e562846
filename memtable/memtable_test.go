package memtable

import (
	"bytes"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	mt := New(1)
	mt.Put(7, []byte("a"))
	if v, found := mt.Get(7); !found || !bytes.Equal(v, []byte("a")) {
		t.Fatalf("expected (a, true), got (%s, %v)", v, found)
	}
}

func TestPutOverwrite(t *testing.T) {
	mt := New(1)
	mt.Put(7, []byte("a"))
	mt.Put(7, []byte("bb"))
	if v, found := mt.Get(7); !found || !bytes.Equal(v, []byte("bb")) {
		t.Fatalf("expected (bb, true), got (%s, %v)", v, found)
	}
	if mt.Size() != 1 {
		t.Fatalf("expected count 1 after overwrite, got %d", mt.Size())
	}
}

func TestByteSizeFormula(t *testing.T) {
	mt := New(1)
	expected := HeaderSize + 10240 // bloom.Size duplicated to avoid import cycle in expectation
	if mt.ByteSize() != expected {
		t.Fatalf("expected initial byte size %d, got %d", expected, mt.ByteSize())
	}

	mt.Put(1, []byte("hello"))
	expected += entryOverhead + len("hello")
	if mt.ByteSize() != expected {
		t.Fatalf("expected byte size %d after one put, got %d", expected, mt.ByteSize())
	}

	mt.Put(1, []byte("hi")) // overwrite, shorter value
	expected += len("hi") - len("hello")
	if mt.ByteSize() != expected {
		t.Fatalf("expected byte size %d after overwrite, got %d", expected, mt.ByteSize())
	}
}

func TestPredictByteSizeDoesNotMutate(t *testing.T) {
	mt := New(1)
	before := mt.ByteSize()
	predicted := mt.PredictByteSize(5, []byte("value"))
	if mt.ByteSize() != before {
		t.Fatalf("PredictByteSize must not mutate byte size, was %d now %d", before, mt.ByteSize())
	}
	mt.Put(5, []byte("value"))
	if mt.ByteSize() != predicted {
		t.Fatalf("predicted size %d did not match actual size %d after put", predicted, mt.ByteSize())
	}
}

func TestRangeTracking(t *testing.T) {
	mt := New(1)
	if !mt.Range().Empty() {
		t.Fatal("expected empty range initially")
	}
	mt.Put(10, []byte("a"))
	mt.Put(3, []byte("b"))
	mt.Put(7, []byte("c"))
	r := mt.Range()
	if r.Lower != 3 || r.Upper != 10 {
		t.Fatalf("expected range [3,10], got [%d,%d]", r.Lower, r.Upper)
	}
}

func TestGetMissesFastPath(t *testing.T) {
	mt := New(1)
	mt.Put(10, []byte("a"))
	mt.Put(20, []byte("b"))

	if _, found := mt.Get(5); found {
		t.Fatal("expected range-miss for key below range")
	}
	if _, found := mt.Get(25); found {
		t.Fatal("expected range-miss for key above range")
	}
	if _, found := mt.Get(15); found {
		t.Fatal("expected miss for key inside range but absent")
	}
}

func TestEnumerateAscending(t *testing.T) {
	mt := New(1)
	mt.Put(5, []byte("a"))
	mt.Put(1, []byte("b"))
	mt.Put(9, []byte("c"))
	kvs := mt.Enumerate()
	for i := 1; i < len(kvs); i++ {
		if kvs[i-1].Key >= kvs[i].Key {
			t.Fatalf("enumerate not ascending at %d", i)
		}
	}
}
