package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"merklepatriciatrie/nibble"
)

// RootOptions configures TrieRoot. Secured keccak-hashes each key before
// it is converted to a nibble list, matching Ethereum's account/storage
// tries (which never index by a raw address or slot).
type RootOptions struct {
	Secured bool
}

// Entry is one key/value binding fed to TrieRoot.
type Entry struct {
	Key   []byte
	Value []byte
}

// TrieRoot computes the MPT root hash over entries (C8): it normalizes
// keys to nibble lists (optionally keccak-hashing them first), patricializes
// the resulting map, hashes the root node, and folds the three possible
// EncodedNode shapes (Hash, Raw, Empty) down to a single 32-byte hash.
func TrieRoot(entries []Entry, opts RootOptions) (common.Hash, error) {
	m := make(map[string][]byte, len(entries))
	for _, e := range entries {
		key := e.Key
		if opts.Secured {
			h := crypto.Keccak256Hash(key)
			key = h[:]
		}
		n := nibble.BytesToNibbles(key)
		m[string(n)] = e.Value
	}

	root, err := Patricialize(m, 0)
	if err != nil {
		return common.Hash{}, fmt.Errorf("mpt: trie root: %w", err)
	}

	enc, err := EncodeInternalNode(root)
	if err != nil {
		return common.Hash{}, fmt.Errorf("mpt: trie root: %w", err)
	}

	return finalizeRootHash(enc)
}

// finalizeRootHash converts a root's EncodedNode into its canonical hash:
// a Hash reference is already the root hash, a Raw reference (the whole
// trie encoded to under 32 bytes) must still be hashed, and Empty maps
// to the well-known empty-trie constant.
func finalizeRootHash(enc EncodedNode) (common.Hash, error) {
	switch n := enc.(type) {
	case HashNode:
		return n.Hash, nil
	case RawNode:
		return crypto.Keccak256Hash(n.Encoded), nil
	case EmptyNode:
		return EmptyTrieRoot, nil
	default:
		return common.Hash{}, fmt.Errorf("mpt: trie root: unknown encoded node type %T", enc)
	}
}

// Trie is an in-memory trie facade exposing Get/Put/Remove/Root with a
// configurable default value: a value equal to DefaultValue is treated
// as "key absent", mirroring Ethereum's zero-means-absent convention for
// storage slots and nil-means-absent for accounts.
type Trie struct {
	secured      bool
	defaultValue []byte
	entries      map[string]Entry
}

// NewTrie constructs an empty Trie. defaultValue may be nil, which is
// treated identically to an empty byte slice.
func NewTrie(secured bool, defaultValue []byte) *Trie {
	return &Trie{
		secured:      secured,
		defaultValue: append([]byte{}, defaultValue...),
		entries:      make(map[string]Entry),
	}
}

// Put stores a cloned copy of value under key. Storing DefaultValue
// removes the key instead, so the internal map holds only non-default
// entries.
func (t *Trie) Put(key, value []byte) {
	if bytesEqual(value, t.defaultValue) {
		t.Remove(key)
		return
	}
	t.entries[string(key)] = Entry{
		Key:   append([]byte{}, key...),
		Value: append([]byte{}, value...),
	}
}

// Get returns a clone of the value stored at key, or a clone of
// DefaultValue if key is absent.
func (t *Trie) Get(key []byte) []byte {
	if e, ok := t.entries[string(key)]; ok {
		return append([]byte{}, e.Value...)
	}
	return append([]byte{}, t.defaultValue...)
}

// Remove deletes key if present; it is a no-op otherwise.
func (t *Trie) Remove(key []byte) {
	delete(t.entries, string(key))
}

// Entries returns the trie's currently stored (key, value) pairs, each a
// clone, in no particular order. Used by callers that need to persist a
// trie's nodes rather than just its root hash (see cmpt.Forest.Commit).
func (t *Trie) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, Entry{Key: append([]byte{}, e.Key...), Value: append([]byte{}, e.Value...)})
	}
	return out
}

// Secured reports whether this trie keccak-hashes keys before indexing.
func (t *Trie) Secured() bool { return t.secured }

// Root computes the trie's root hash over its currently stored entries,
// using the facade's configured Secured flag.
func (t *Trie) Root() (common.Hash, error) {
	list := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		list = append(list, e)
	}
	return TrieRoot(list, RootOptions{Secured: t.secured})
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
