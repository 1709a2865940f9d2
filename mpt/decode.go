package mpt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"merklepatriciatrie/nibble"
)

// DecodeNode is the node codec's decoder (C5): it parses an RLP-encoded
// trie node back into its structural form, dispatching on whether the
// decoded list has 2 items (leaf or extension, disambiguated by the HP
// leaf flag) or 17 items (branch).
func DecodeNode(enc []byte) (TrieNode, error) {
	items, rest, err := rlp.SplitList(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopLevel, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidTopLevel, len(rest))
	}

	count, err := rlp.CountValues(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopLevel, err)
	}

	switch count {
	case 2:
		return decodeShort(items)
	case 17:
		return decodeFull(items)
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBranchArity, count)
	}
}

func decodeShort(items []byte) (TrieNode, error) {
	keyBytes, rest, err := rlp.SplitString(items)
	if err != nil {
		return nil, fmt.Errorf("mpt: decode short node key: %w", err)
	}
	n, isLeaf, err := nibble.CompactToNibbles(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("mpt: decode short node path: %w", err)
	}

	if isLeaf {
		value, valRest, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("mpt: decode leaf value: %w", err)
		}
		if len(valRest) != 0 {
			return nil, fmt.Errorf("%w: trailing bytes after leaf value", ErrInvalidTopLevel)
		}
		return &LeafNode{RestOfKey: n, Value: append([]byte{}, value...)}, nil
	}

	subnode, subRest, err := decodeChildRef(rest)
	if err != nil {
		return nil, err
	}
	if len(subRest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after extension child", ErrInvalidTopLevel)
	}
	return &ExtensionNode{KeySegment: n, Subnode: subnode}, nil
}

func decodeFull(items []byte) (TrieNode, error) {
	branch := &BranchNode{}
	rest := items
	for i := 0; i < 16; i++ {
		var child EncodedNode
		var err error
		child, rest, err = decodeChildRef(rest)
		if err != nil {
			return nil, err
		}
		branch.Children[i] = child
	}

	value, rest, err := rlp.SplitString(rest)
	if err != nil {
		return nil, fmt.Errorf("mpt: decode branch value: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after branch value", ErrInvalidTopLevel)
	}
	branch.Value = append([]byte{}, value...)
	return branch, nil
}

// decodeChildRef decodes one child reference from the front of buf,
// returning the reference and the remaining, as-yet-unconsumed bytes.
func decodeChildRef(buf []byte) (EncodedNode, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("mpt: decode child reference: %w", err)
	}

	switch kind {
	case rlp.List:
		// The full encoded list form, as produced by rlp.Split, includes
		// its own header bytes; re-slice it back out of buf so Raw holds
		// exactly the bytes the hasher would have inlined.
		listLen := len(buf) - len(rest)
		return RawNode{Encoded: append([]byte{}, buf[:listLen]...)}, rest, nil
	case rlp.String:
		switch len(val) {
		case 0:
			return EmptyNode{}, rest, nil
		case 32:
			return HashNode{Hash: common.BytesToHash(val)}, rest, nil
		default:
			return nil, nil, fmt.Errorf("%w: length %d", ErrInvalidChildRef, len(val))
		}
	default:
		return nil, nil, fmt.Errorf("%w: unknown RLP kind", ErrInvalidChildRef)
	}
}
