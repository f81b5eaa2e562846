package bloom

import "testing"

func TestInsertContains(t *testing.T) {
	f := New()
	f.Insert(42)
	if !f.Contains(42) {
		t.Fatal("expected 42 to be present after insert")
	}
}

func TestNoFalseNegatives(t *testing.T) {
	f := New()
	keys := []uint64{0, 1, 2, 100, 1 << 20, 1 << 40, ^uint64(0)}
	for _, k := range keys {
		f.Insert(k)
	}
	for _, k := range keys {
		if !f.Contains(k) {
			t.Fatalf("false negative for key %d", k)
		}
	}
}

func TestEmptyFilterRejectsEverything(t *testing.T) {
	f := New()
	for _, k := range []uint64{0, 1, 999999} {
		if f.Contains(k) {
			t.Fatalf("empty filter should not (usually) contain %d", k)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	f := New()
	f.Insert(7)
	f.Insert(12345)

	raw := append([]byte(nil), f.Bytes()...)
	if len(raw) != Size {
		t.Fatalf("expected %d bytes, got %d", Size, len(raw))
	}

	loaded := Load(raw)
	if !loaded.Contains(7) || !loaded.Contains(12345) {
		t.Fatal("round-tripped filter lost membership")
	}
}

func TestLoadPanicsOnWrongSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on short buffer")
		}
	}()
	Load(make([]byte, 10))
}
