// Package mpt implements the Ethereum-style Modified Merkle Patricia Trie:
// the structural node model, the patricialize algorithm that builds a
// canonical trie from a flat key/value map, the RLP-based structural
// hasher and decoder, and an in-memory trie facade.
package mpt

import (
	"github.com/ethereum/go-ethereum/common"

	"merklepatriciatrie/nibble"
)

// TrieNode is the tagged union Leaf | Extension | Branch. A nil TrieNode
// denotes the absent node (patricialize's result for an empty map).
type TrieNode interface {
	isTrieNode()
}

// LeafNode holds the remaining nibbles of a key and its value.
type LeafNode struct {
	RestOfKey nibble.List
	Value     []byte
}

// ExtensionNode holds a shared, non-empty nibble path and a single
// child reference.
type ExtensionNode struct {
	KeySegment nibble.List
	Subnode    EncodedNode
}

// BranchNode is the 17-wide node: 16 nibble-indexed child slots plus the
// value bound to the key that terminates exactly at this branch (nil if
// none does).
type BranchNode struct {
	Children [16]EncodedNode
	Value    []byte
}

func (*LeafNode) isTrieNode()      {}
func (*ExtensionNode) isTrieNode() {}
func (*BranchNode) isTrieNode()    {}

// EncodedNode is the tagged union Empty | Raw | Hash: the reference a
// parent node holds to one of its children, or the final form of a root.
type EncodedNode interface {
	isEncodedNode()
}

// EmptyNode denotes an absent child. There is exactly one meaningful
// value, EmptyNode{}.
type EmptyNode struct{}

// RawNode is a child embedded directly as its own RLP list because that
// list's encoding is shorter than 32 bytes. Encoded caches the bytes the
// hasher already produced; see DESIGN.md's Open Question decision.
type RawNode struct {
	Encoded []byte
}

// HashNode is a child replaced by the keccak256 of its RLP encoding; the
// actual bytes live in node storage keyed by this hash.
type HashNode struct {
	Hash common.Hash
}

func (EmptyNode) isEncodedNode() {}
func (RawNode) isEncodedNode()   {}
func (HashNode) isEncodedNode()  {}

// EmptyTrieRoot is keccak256(rlp_encode("")), the canonical hash of the
// empty trie. It is never physically persisted by node storage.
var EmptyTrieRoot = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// EmptyNodeRLP is the RLP encoding of the empty trie's logical content,
// the single byte 0x80 (RLP of the empty byte string).
var EmptyNodeRLP = []byte{0x80}
