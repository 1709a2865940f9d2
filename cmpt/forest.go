// Package cmpt implements the owner-scoped trie manager (spec C9, a
// supplement to the core spec): one global trie plus any number of
// address-scoped storage tries, each committing through a shared node
// storage handle under its own address hash. Adapted from the teacher's
// "Clustered Merkle Patricia Trie", which grouped keys by prefix into one
// sub-trie per cluster; here the grouping key is an owner's address hash
// instead of an arbitrary byte prefix, and commits go through the real
// C3/C6 hasher and storage rather than the teacher's ad hoc hashing.
package cmpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"merklepatriciatrie/kv"
	"merklepatriciatrie/mpt"
	"merklepatriciatrie/nibble"
	"merklepatriciatrie/triedb"
)

// Forest is one global trie (address_hash = nil) plus any number of
// address-scoped storage tries, all sharing one triedb.Storage handle.
type Forest struct {
	storage *triedb.Storage
	secured bool
	global  *mpt.Trie
	owners  map[common.Hash]*mpt.Trie
}

// NewForest constructs a Forest over storage. secured configures every
// sub-trie (global and per-owner alike) to keccak-hash its keys, matching
// Ethereum's account and storage trie convention.
func NewForest(storage *triedb.Storage, secured bool) *Forest {
	return &Forest{
		storage: storage,
		secured: secured,
		global:  mpt.NewTrie(secured, nil),
		owners:  make(map[common.Hash]*mpt.Trie),
	}
}

// trieFor returns the trie for ownerHash, creating it on first use.
// A nil ownerHash addresses the global trie.
func (f *Forest) trieFor(ownerHash *common.Hash) *mpt.Trie {
	if ownerHash == nil {
		return f.global
	}
	t, ok := f.owners[*ownerHash]
	if !ok {
		t = mpt.NewTrie(f.secured, nil)
		f.owners[*ownerHash] = t
	}
	return t
}

// Put stores value under key in ownerHash's trie (nil for the global trie).
func (f *Forest) Put(ownerHash *common.Hash, key, value []byte) {
	f.trieFor(ownerHash).Put(key, value)
}

// Get returns the value stored under key in ownerHash's trie.
func (f *Forest) Get(ownerHash *common.Hash, key []byte) []byte {
	return f.trieFor(ownerHash).Get(key)
}

// Remove deletes key from ownerHash's trie.
func (f *Forest) Remove(ownerHash *common.Hash, key []byte) {
	f.trieFor(ownerHash).Remove(key)
}

// Root computes ownerHash's trie root without persisting anything.
func (f *Forest) Root(ownerHash *common.Hash) (common.Hash, error) {
	return f.trieFor(ownerHash).Root()
}

// Commit computes ownerHash's trie root and, unlike Root, persists every
// node reachable from it into storage keyed under ownerHash, returning
// the root hash. Nodes whose encoding inlines (<32 bytes) are embedded in
// their parent and never separately persisted, matching the hasher's
// inline-vs-hash rule.
func (f *Forest) Commit(ownerHash *common.Hash) (common.Hash, error) {
	t := f.trieFor(ownerHash)
	entries := t.Entries()

	m := make(map[string][]byte, len(entries))
	for _, e := range entries {
		key := e.Key
		if f.secured {
			h := crypto.Keccak256Hash(key)
			key = h[:]
		}
		m[string(nibble.BytesToNibbles(key))] = e.Value
	}

	enc, err := f.persistPatricialize(ownerHash, nibble.List{}, m, 0)
	if err != nil {
		return common.Hash{}, fmt.Errorf("cmpt: commit: %w", err)
	}

	switch n := enc.(type) {
	case mpt.HashNode:
		return n.Hash, nil
	case mpt.RawNode:
		return crypto.Keccak256Hash(n.Encoded), nil
	case mpt.EmptyNode:
		return mpt.EmptyTrieRoot, nil
	default:
		return common.Hash{}, fmt.Errorf("cmpt: commit: unknown encoded node type %T", enc)
	}
}

// persistPatricialize mirrors mpt.Patricialize's recursion, but persists
// every non-inline node it produces into storage as it is built, keyed
// under ownerHash and the path nibbles consumed so far. Its structural
// decisions are identical to mpt.Patricialize; the only addition is the
// storage.Set call on the Hash branch.
func (f *Forest) persistPatricialize(ownerHash *common.Hash, path nibble.List, entries map[string][]byte, level int) (mpt.EncodedNode, error) {
	if level < 0 {
		return nil, mpt.ErrInvalidLevel
	}
	if len(entries) == 0 {
		return mpt.EmptyNode{}, nil
	}

	if len(entries) == 1 {
		for k, v := range entries {
			key := []byte(k)
			if len(key) < level {
				return nil, fmt.Errorf("%w: key length %d < level %d", mpt.ErrInvalidKeyLength, len(key), level)
			}
			leaf := &mpt.LeafNode{RestOfKey: append(nibble.List{}, key[level:]...), Value: v}
			return f.persistAndEncode(ownerHash, path, leaf)
		}
	}

	anchor := firstKey(entries)
	if len(anchor) < level {
		return nil, fmt.Errorf("%w: key length %d < level %d", mpt.ErrInvalidKeyLength, len(anchor), level)
	}
	prefixLen := len(anchor) - level

	for k := range entries {
		key := []byte(k)
		if len(key) < level {
			return nil, fmt.Errorf("%w: key length %d < level %d", mpt.ErrInvalidKeyLength, len(key), level)
		}
		matched := 0
		for matched < prefixLen && level+matched < len(key) {
			if key[level+matched] != anchor[level+matched] {
				break
			}
			matched++
		}
		if matched < prefixLen {
			prefixLen = matched
		}
		if prefixLen == 0 {
			break
		}
	}

	if prefixLen > 0 {
		childPath := append(append(nibble.List{}, path...), anchor[level:level+prefixLen]...)
		childEnc, err := f.persistPatricialize(ownerHash, childPath, entries, level+prefixLen)
		if err != nil {
			return nil, err
		}
		ext := &mpt.ExtensionNode{
			KeySegment: append(nibble.List{}, anchor[level:level+prefixLen]...),
			Subnode:    childEnc,
		}
		return f.persistAndEncode(ownerHash, path, ext)
	}

	branch := &mpt.BranchNode{}
	children := make([]map[string][]byte, 16)
	for k, v := range entries {
		key := []byte(k)
		if len(key) == level {
			branch.Value = v
			continue
		}
		nib := key[level]
		if nib > 0x0f {
			return nil, fmt.Errorf("%w: %#x", mpt.ErrInvalidNibble, nib)
		}
		if children[nib] == nil {
			children[nib] = make(map[string][]byte)
		}
		children[nib][k] = v
	}

	for i := 0; i < 16; i++ {
		childPath := append(append(nibble.List{}, path...), byte(i))
		childEnc, err := f.persistPatricialize(ownerHash, childPath, children[i], level+1)
		if err != nil {
			return nil, err
		}
		branch.Children[i] = childEnc
	}

	return f.persistAndEncode(ownerHash, path, branch)
}

// persistAndEncode RLP-encodes node, inlines it if under 32 bytes, or
// persists it to storage keyed by its own hash (under ownerHash and
// path) and returns a Hash reference.
func (f *Forest) persistAndEncode(ownerHash *common.Hash, path nibble.List, node mpt.TrieNode) (mpt.EncodedNode, error) {
	encoded, err := mpt.EncodeNodeBytes(node)
	if err != nil {
		return nil, err
	}
	if len(encoded) < 32 {
		return mpt.RawNode{Encoded: encoded}, nil
	}

	h := crypto.Keccak256Hash(encoded)
	if err := f.storage.Set(ownerHash, path, h, encoded, kv.WriteFlags{}); err != nil {
		return nil, err
	}
	return mpt.HashNode{Hash: h}, nil
}

func firstKey(entries map[string][]byte) []byte {
	for k := range entries {
		return []byte(k)
	}
	return nil
}

// Import is the batch-import helper: it routes each (ownerHash, key,
// value) triple into the right sub-trie. Mirrors the teacher's
// BuildMPTTree/BuildCMPTTree, generalized from a transaction list to the
// spec's generic key/value domain.
func (f *Forest) Import(triples []Triple) {
	for _, t := range triples {
		f.Put(t.OwnerHash, t.Key, t.Value)
	}
}

// Triple is one (owner, key, value) binding fed to Forest.Import.
// OwnerHash is nil for the global trie.
type Triple struct {
	OwnerHash *common.Hash
	Key       []byte
	Value     []byte
}
