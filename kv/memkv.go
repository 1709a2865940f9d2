package kv

import "sync"

// MemStore is an in-memory Store backed by a map, guarded by a
// RWMutex. Modeled on the teacher pack's MemDB, generalized to the
// fuller Store contract (Has, Remove, batching, Flush/Compact as no-ops).
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Get(key []byte, _ ReadFlags) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, v...), nil
}

func (s *MemStore) Has(key []byte, _ ReadFlags) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *MemStore) Put(key, value []byte, _ WriteFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte{}, value...)
	return nil
}

func (s *MemStore) Remove(key []byte, _ WriteFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *MemStore) NewBatch() Batch {
	return &memBatch{store: s}
}

func (s *MemStore) Flush(bool) error           { return nil }
func (s *MemStore) Compact(_, _ []byte) error  { return nil }
func (s *MemStore) Close() error               { return nil }

type memOp struct {
	remove bool
	key    []byte
	value  []byte
}

type memBatch struct {
	store *MemStore
	ops   []memOp
}

func (b *memBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memOp{key: append([]byte{}, key...), value: append([]byte{}, value...)})
}

func (b *memBatch) Remove(key []byte) {
	b.ops = append(b.ops, memOp{remove: true, key: append([]byte{}, key...)})
}

func (b *memBatch) Clear() {
	b.ops = b.ops[:0]
}

func (b *memBatch) Len() int {
	return len(b.ops)
}

func (b *memBatch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.remove {
			delete(b.store.data, string(op.key))
			continue
		}
		b.store.data[string(op.key)] = op.value
	}
	b.ops = nil
	return nil
}
