// Package store is the thin public dispatcher over the engine façade,
// exposed as the out-of-scope "public wrapper API object" the storage
// engine itself assumes as an external collaborator.
package store

import lsmkv "github.com/lsm-kv/lsmkv"

// Store wraps an *lsmkv.Engine with no added semantics: every method
// forwards directly to the engine it was opened with.
type Store struct {
	engine *lsmkv.Engine
}

// Open boots a Store against opts, delegating to lsmkv.Open.
func Open(opts *lsmkv.Options) (*Store, error) {
	e, err := lsmkv.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{engine: e}, nil
}

// Put inserts or overwrites key's value.
func (s *Store) Put(key uint64, value []byte) error {
	return s.engine.Put(key, value)
}

// Get looks up key.
func (s *Store) Get(key uint64) ([]byte, bool, error) {
	return s.engine.Get(key)
}

// Delete removes key if a live value is currently visible.
func (s *Store) Delete(key uint64) (bool, error) {
	return s.engine.Del(key)
}

// Scan emits (key, value) pairs for lo <= key <= hi in ascending order.
func (s *Store) Scan(lo, hi uint64, out func(key uint64, value []byte)) error {
	return s.engine.Scan(lo, hi, out)
}

// Reset drops all data under the data root.
func (s *Store) Reset() error {
	return s.engine.Reset()
}

// Close flushes any pending writes.
func (s *Store) Close() error {
	return s.engine.Close()
}
