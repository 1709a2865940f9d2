package triedb

import (
	"errors"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"merklepatriciatrie/kv"
	"merklepatriciatrie/mpt"
	"merklepatriciatrie/nibble"
)

// Storage is the node storage service (C6): it persists and looks up
// RLP-encoded trie nodes in a backing kv.Store under either the Hash or
// HalfPath key scheme, with cross-scheme read fallback, fronted by a
// fastcache clean-node cache. Grounded on the clean-cache-in-front-of-disk
// shape of cerc-io's trie database.
type Storage struct {
	backing kv.Store
	scheme  Scheme
	clean   *fastcache.Cache
	metrics *storageMetrics
	log     *logrus.Entry
}

// NewStorage constructs a Storage over backing, with the given initial
// scheme and clean-cache byte budget.
func NewStorage(backing kv.Store, scheme Scheme, cleanCacheBytes int) *Storage {
	return &Storage{
		backing: backing,
		scheme:  scheme,
		clean:   fastcache.New(cleanCacheBytes),
		metrics: StorageMetrics(),
		log:     logrus.WithField("component", "triedb"),
	}
}

// GetScheme returns the currently active scheme (Current already resolved).
func (s *Storage) GetScheme() Scheme { return s.scheme.resolve() }

// SetScheme changes the active scheme: subsequent writes use its key, and
// reads try its key first (and apply its read-ahead hints) before falling
// back to the other scheme's key.
func (s *Storage) SetScheme(scheme Scheme) { s.scheme = scheme }

// Get resolves the bytes at (addressHash, path, nodeHash). It returns
// (nil, nil) when the node is genuinely absent, never an error, so
// callers can distinguish "not found" from a real backing-store failure.
func (s *Storage) Get(addressHash *common.Hash, path nibble.List, nodeHash common.Hash, flags kv.ReadFlags) ([]byte, error) {
	if nodeHash == mpt.EmptyTrieRoot {
		return append([]byte{}, mpt.EmptyNodeRLP...), nil
	}

	primary, fallback, err := s.schemeKeys(addressHash, path, nodeHash)
	if err != nil {
		return nil, &TrieNodeStorageError{Op: "get", Cause: err}
	}
	flags = s.combineReadAhead(addressHash, path, flags)

	if v, ok := s.clean.HasGet(nil, primary); ok {
		s.metrics.observeCache(true)
		s.metrics.observeGet("hit")
		return v, nil
	}
	s.metrics.observeCache(false)

	if v, hit, err := s.tryGet(primary, flags); err != nil {
		return nil, err
	} else if hit {
		s.clean.Set(primary, v)
		s.metrics.observeGet("hit")
		return v, nil
	}

	if v, hit, err := s.tryGet(fallback, flags); err != nil {
		return nil, err
	} else if hit {
		s.metrics.observeFallback()
		s.clean.Set(primary, v)
		s.metrics.observeGet("hit")
		return v, nil
	}

	s.metrics.observeGet("miss")
	return nil, nil
}

func (s *Storage) tryGet(key []byte, flags kv.ReadFlags) ([]byte, bool, error) {
	v, err := s.backing.Get(key, flags)
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	s.log.WithError(err).Error("node storage read failed")
	return nil, false, &TrieNodeStorageError{Op: "get", Cause: err}
}

// KeyExists mirrors Get's cross-scheme fallback but only reports presence.
func (s *Storage) KeyExists(addressHash *common.Hash, path nibble.List, nodeHash common.Hash, flags kv.ReadFlags) (bool, error) {
	if nodeHash == mpt.EmptyTrieRoot {
		return true, nil
	}
	primary, fallback, err := s.schemeKeys(addressHash, path, nodeHash)
	if err != nil {
		return false, &TrieNodeStorageError{Op: "key_exists", Cause: err}
	}
	flags = s.combineReadAhead(addressHash, path, flags)
	if s.clean.Has(primary) {
		return true, nil
	}
	if ok, err := s.backing.Has(primary, flags); err != nil {
		return false, &TrieNodeStorageError{Op: "key_exists", Cause: err}
	} else if ok {
		return true, nil
	}
	if ok, err := s.backing.Has(fallback, flags); err != nil {
		return false, &TrieNodeStorageError{Op: "key_exists", Cause: err}
	} else if ok {
		s.metrics.observeFallback()
		return true, nil
	}
	return false, nil
}

// Set persists value under (addressHash, path, nodeHash)'s key in the
// currently active scheme. It is a no-op for the empty-trie-root hash,
// which is never physically stored.
func (s *Storage) Set(addressHash *common.Hash, path nibble.List, nodeHash common.Hash, value []byte, flags kv.WriteFlags) error {
	if nodeHash == mpt.EmptyTrieRoot {
		return nil
	}
	key, err := s.activeKey(addressHash, path, nodeHash)
	if err != nil {
		return &TrieNodeStorageError{Op: "set", Cause: err}
	}
	cloned := append([]byte{}, value...)
	if err := s.backing.Put(key, cloned, flags); err != nil {
		s.log.WithError(err).Error("node storage write failed")
		return &TrieNodeStorageError{Op: "set", Cause: err}
	}
	s.clean.Set(key, cloned)
	s.metrics.observeSet()
	return nil
}

// Remove deletes the node at (addressHash, path, nodeHash) under the
// active scheme; it is a no-op for the empty-trie-root hash.
func (s *Storage) Remove(addressHash *common.Hash, path nibble.List, nodeHash common.Hash, flags kv.WriteFlags) error {
	if nodeHash == mpt.EmptyTrieRoot {
		return nil
	}
	key, err := s.activeKey(addressHash, path, nodeHash)
	if err != nil {
		return &TrieNodeStorageError{Op: "remove", Cause: err}
	}
	s.clean.Del(key)
	if err := s.backing.Remove(key, flags); err != nil {
		return &TrieNodeStorageError{Op: "remove", Cause: err}
	}
	return nil
}

// Persist computes h = keccak256(encoded), stores it keyed by its own
// hash at the trie root position (no address, empty path), and returns h.
func (s *Storage) Persist(encoded []byte) (common.Hash, error) {
	h := crypto.Keccak256Hash(encoded)
	if err := s.Set(nil, nil, h, encoded, kv.WriteFlags{}); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}

// Flush forces buffered writes to durable storage.
func (s *Storage) Flush(onlyWAL bool) error { return s.backing.Flush(onlyWAL) }

// Compact requests background compaction of the whole keyspace.
func (s *Storage) Compact() error { return s.backing.Compact(nil, nil) }

// schemeKeys returns the (primary, fallback) key pair for a read: the
// active scheme's key first, the other scheme's key as the fallback.
func (s *Storage) schemeKeys(addressHash *common.Hash, path nibble.List, nodeHash common.Hash) (primary, fallback []byte, err error) {
	hk := hashKey(nodeHash)
	pk, err := halfPathKey(addressHash, path, nodeHash)
	if err != nil {
		return nil, nil, err
	}
	if s.scheme.resolve() == SchemeHalfPath {
		return pk, hk, nil
	}
	return hk, pk, nil
}

// combineReadAhead layers the HalfPath-specific prefetch hints onto flags
// when HintReadAhead is set and the active scheme is HalfPath: HintReadAhead2
// for a top-level path longer than 5 nibbles, HintReadAhead3 whenever an
// address hash is present (an account storage trie read).
func (s *Storage) combineReadAhead(addressHash *common.Hash, path nibble.List, flags kv.ReadFlags) kv.ReadFlags {
	if !flags.HintReadAhead || s.scheme.resolve() != SchemeHalfPath {
		return flags
	}
	if addressHash == nil {
		if len(path) > 5 {
			flags.HintReadAhead2 = true
		}
	} else {
		flags.HintReadAhead3 = true
	}
	return flags
}

// activeKey returns the single key writes go to under the active scheme.
func (s *Storage) activeKey(addressHash *common.Hash, path nibble.List, nodeHash common.Hash) ([]byte, error) {
	if s.scheme.resolve() == SchemeHalfPath {
		return halfPathKey(addressHash, path, nodeHash)
	}
	return hashKey(nodeHash), nil
}
