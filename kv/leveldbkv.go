package kv

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelStore is an on-disk Store backed by goleveldb, grounded on the
// teacher pack's LevelDB wrapper and generalized to the full Store
// contract (Has, batching, Flush, Compact).
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (creating if absent) a LevelDB database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Get(key []byte, _ ReadFlags) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *LevelStore) Has(key []byte, _ ReadFlags) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *LevelStore) Put(key, value []byte, flags WriteFlags) error {
	return s.db.Put(key, value, writeOpts(flags))
}

func (s *LevelStore) Remove(key []byte, flags WriteFlags) error {
	return s.db.Delete(key, writeOpts(flags))
}

func (s *LevelStore) NewBatch() Batch {
	return &levelBatch{db: s.db, batch: new(leveldb.Batch)}
}

func (s *LevelStore) Flush(onlyWAL bool) error {
	if onlyWAL {
		return nil
	}
	return s.db.CompactRange(util.Range{})
}

func (s *LevelStore) Compact(start, limit []byte) error {
	return s.db.CompactRange(util.Range{Start: start, Limit: limit})
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}

func writeOpts(flags WriteFlags) *opt.WriteOptions {
	if !flags.Sync {
		return nil
	}
	return &opt.WriteOptions{Sync: true}
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *levelBatch) Remove(key []byte) {
	b.batch.Delete(key)
}

func (b *levelBatch) Clear() {
	b.batch.Reset()
}

func (b *levelBatch) Len() int {
	return b.batch.Len()
}

func (b *levelBatch) Commit() error {
	err := b.db.Write(b.batch, nil)
	b.batch.Reset()
	return err
}
