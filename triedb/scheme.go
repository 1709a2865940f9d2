// Package triedb implements node storage (spec C6) and the node loader
// (spec C7) on top of a pluggable kv.Store: persisting and looking up
// RLP-encoded trie nodes under either a Hash or HalfPath key scheme, with
// cross-scheme read fallback so a store can be migrated from one to the
// other without a one-shot rewrite.
package triedb

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"merklepatriciatrie/nibble"
)

// Scheme selects how a node's database key is derived from its hash and
// trie position. Current is a write-time alias that always resolves to
// HalfPath; it exists so callers can request "whatever the active
// default is" without hardcoding HalfPath themselves.
type Scheme int

const (
	SchemeHash Scheme = iota
	SchemeHalfPath
	SchemeCurrent
)

func (s Scheme) resolve() Scheme {
	if s == SchemeCurrent {
		return SchemeHalfPath
	}
	return s
}

const maxPathLength = 64

// hashKey is the Hash-scheme database key: the node hash, verbatim.
func hashKey(nodeHash common.Hash) []byte {
	return append([]byte{}, nodeHash[:]...)
}

// halfPathKey is the HalfPath-scheme database key: 42 bytes for a
// top-level (no account address) path, 74 bytes when an address hash is
// present (account storage trie).
func halfPathKey(addressHash *common.Hash, path nibble.List, nodeHash common.Hash) ([]byte, error) {
	pathLen := len(path)
	if pathLen < 0 || pathLen > maxPathLength {
		return nil, fmt.Errorf("%w: path length %d out of [0, %d]", ErrInvalidPathLength, pathLen, maxPathLength)
	}
	prefix := packPathPrefix(path)

	if addressHash == nil {
		flag := byte(0)
		if pathLen > 5 {
			flag = 1
		}
		key := make([]byte, 42)
		key[0] = flag
		copy(key[1:9], prefix[:])
		key[9] = byte(pathLen)
		copy(key[10:42], nodeHash[:])
		return key, nil
	}

	key := make([]byte, 74)
	key[0] = 2
	copy(key[1:33], addressHash[:])
	copy(key[33:41], prefix[:])
	key[41] = byte(pathLen)
	copy(key[42:74], nodeHash[:])
	return key, nil
}

// packPathPrefix packs the first 8 bytes' worth of the nibble path (16
// nibbles, high nibble first per byte) into a fixed 8-byte array, zero
// padding any nibbles beyond the path's actual length. Only this prefix
// participates in the HalfPath key; it is sufficient to group sibling
// nodes without needing the full path.
func packPathPrefix(path nibble.List) [8]byte {
	var out [8]byte
	for i := 0; i < 16; i++ {
		if i >= len(path) {
			break
		}
		b := i / 2
		if i%2 == 0 {
			out[b] |= path[i] << 4
		} else {
			out[b] |= path[i] & 0x0f
		}
	}
	return out
}
