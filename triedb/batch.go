package triedb

import (
	"github.com/ethereum/go-ethereum/common"

	"merklepatriciatrie/kv"
	"merklepatriciatrie/mpt"
	"merklepatriciatrie/nibble"
)

// Batch stages a sequence of node writes for a single atomic commit under
// the storage's active scheme at the time each op is staged.
type Batch struct {
	storage *Storage
	raw     kv.Batch
	staged  []batchOp
}

type batchOp struct {
	key    []byte
	value  []byte
	remove bool
}

// NewBatch starts a write batch over Storage.
func (s *Storage) NewBatch() *Batch {
	return &Batch{storage: s, raw: s.backing.NewBatch()}
}

// Set stages a write; EmptyTrieRoot is a no-op, matching Storage.Set.
func (b *Batch) Set(addressHash *common.Hash, path nibble.List, nodeHash common.Hash, value []byte) error {
	if nodeHash == mpt.EmptyTrieRoot {
		return nil
	}
	key, err := b.storage.activeKey(addressHash, path, nodeHash)
	if err != nil {
		return &TrieNodeStorageError{Op: "batch_set", Cause: err}
	}
	cloned := append([]byte{}, value...)
	b.raw.Put(key, cloned)
	b.staged = append(b.staged, batchOp{key: key, value: cloned})
	return nil
}

// Remove stages a deletion; EmptyTrieRoot is a no-op.
func (b *Batch) Remove(addressHash *common.Hash, path nibble.List, nodeHash common.Hash) error {
	if nodeHash == mpt.EmptyTrieRoot {
		return nil
	}
	key, err := b.storage.activeKey(addressHash, path, nodeHash)
	if err != nil {
		return &TrieNodeStorageError{Op: "batch_remove", Cause: err}
	}
	b.raw.Remove(key)
	b.staged = append(b.staged, batchOp{key: key, remove: true})
	return nil
}

// Clear discards every staged operation without committing them.
func (b *Batch) Clear() {
	b.raw.Clear()
	b.staged = b.staged[:0]
}

// Commit applies every staged operation atomically and updates the clean
// cache to match.
func (b *Batch) Commit() error {
	if err := b.raw.Commit(); err != nil {
		b.storage.log.WithError(err).Error("node storage batch commit failed")
		return &TrieNodeStorageError{Op: "batch_commit", Cause: err}
	}
	for _, op := range b.staged {
		if op.remove {
			b.storage.clean.Del(op.key)
			continue
		}
		b.storage.clean.Set(op.key, op.value)
	}
	b.storage.metrics.observeSet()
	b.staged = nil
	return nil
}
