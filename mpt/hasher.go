package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"merklepatriciatrie/nibble"
)

// inlineThreshold is the canonical Ethereum cutoff: an RLP-encoded node
// shorter than this many bytes is embedded (Raw) into its parent instead
// of being replaced by its hash.
const inlineThreshold = 32

// EncodeInternalNode is the structural hasher (C3): it converts a node
// into its RLP item shape, encodes it, and either inlines the encoding
// (Raw, when shorter than 32 bytes) or replaces it with its keccak256
// (Hash). A nil node (absent subtree) encodes to EmptyNode.
func EncodeInternalNode(n TrieNode) (EncodedNode, error) {
	if n == nil {
		return EmptyNode{}, nil
	}

	encoded, err := EncodeNodeBytes(n)
	if err != nil {
		return nil, err
	}

	kind := nodeKindLabel(n)
	if len(encoded) < inlineThreshold {
		HasherMetrics().observeEncode(kind, "inline")
		return RawNode{Encoded: encoded}, nil
	}
	HasherMetrics().observeEncode(kind, "hash")
	return HashNode{Hash: crypto.Keccak256Hash(encoded)}, nil
}

// nodeKindLabel names n's concrete type for the hasher metrics label.
func nodeKindLabel(n TrieNode) string {
	switch n.(type) {
	case *LeafNode:
		return "leaf"
	case *ExtensionNode:
		return "extension"
	case *BranchNode:
		return "branch"
	default:
		return "unknown"
	}
}

// EncodeNodeBytes produces a node's RLP-encoded bytes without making the
// inline-vs-hash decision. Exported for callers that make that decision
// themselves, such as cmpt.Forest's commit path, which inlines a node
// under 32 bytes and persists a larger one under its own hash.
func EncodeNodeBytes(n TrieNode) ([]byte, error) {
	var items []interface{}
	switch node := n.(type) {
	case *LeafNode:
		compact, err := nibble.NibblesToCompact(node.RestOfKey, true)
		if err != nil {
			return nil, fmt.Errorf("mpt: encode leaf: %w", err)
		}
		items = []interface{}{compact, node.Value}

	case *ExtensionNode:
		compact, err := nibble.NibblesToCompact(node.KeySegment, false)
		if err != nil {
			return nil, fmt.Errorf("mpt: encode extension: %w", err)
		}
		items = []interface{}{compact, childRLPItem(node.Subnode)}

	case *BranchNode:
		items = make([]interface{}, 17)
		for i := 0; i < 16; i++ {
			items[i] = childRLPItem(node.Children[i])
		}
		items[16] = node.Value

	default:
		return nil, fmt.Errorf("mpt: encode: unknown node type %T", n)
	}

	encoded, err := rlp.EncodeToBytes(items)
	if err != nil {
		return nil, fmt.Errorf("mpt: rlp encode node: %w", err)
	}
	return encoded, nil
}

// childRLPItem produces the RLP item a child reference contributes to
// its parent's item list: an empty string for Empty, the 32 raw hash
// bytes for Hash, or the child's own already-encoded list (embedded
// verbatim, never re-wrapped as a byte string) for Raw.
func childRLPItem(e EncodedNode) interface{} {
	switch c := e.(type) {
	case HashNode:
		return c.Hash[:]
	case RawNode:
		return rlp.RawValue(c.Encoded)
	case EmptyNode:
		return []byte{}
	default:
		return []byte{}
	}
}
