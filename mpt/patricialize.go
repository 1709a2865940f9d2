package mpt

import "fmt"

// Patricialize is the core tree-building algorithm (C4): given a map from
// nibble-list key to value bytes and a starting depth `level`, it
// recursively compresses the entries into the canonical leaf/extension/
// branch shape. It returns (nil, nil) for an empty map, mirroring
// patricialize's "subnode absent" result used by the hasher and by
// recursive calls over empty branch slots.
//
// The shape produced depends only on the (key, value) set, never on
// iteration order; Go's map already deduplicates by key content, so the
// "last write wins" normalization the spec calls for is the caller's
// responsibility before entries ever reach this function.
func Patricialize(entries map[string][]byte, level int) (TrieNode, error) {
	if level < 0 {
		return nil, ErrInvalidLevel
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if len(entries) == 1 {
		for k, v := range entries {
			key := []byte(k)
			if len(key) < level {
				return nil, fmt.Errorf("%w: key length %d < level %d", ErrInvalidKeyLength, len(key), level)
			}
			return &LeafNode{RestOfKey: append([]byte{}, key[level:]...), Value: v}, nil
		}
	}

	anchor := firstKey(entries)
	if len(anchor) < level {
		return nil, fmt.Errorf("%w: key length %d < level %d", ErrInvalidKeyLength, len(anchor), level)
	}
	prefixLen := len(anchor) - level

	for k := range entries {
		key := []byte(k)
		if len(key) < level {
			return nil, fmt.Errorf("%w: key length %d < level %d", ErrInvalidKeyLength, len(key), level)
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
		child, err := Patricialize(entries, level+prefixLen)
		if err != nil {
			return nil, err
		}
		encodedChild, err := EncodeInternalNode(child)
		if err != nil {
			return nil, err
		}
		return &ExtensionNode{
			KeySegment: append([]byte{}, anchor[level:level+prefixLen]...),
			Subnode:    encodedChild,
		}, nil
	}

	branch := &BranchNode{}
	children := make([]map[string][]byte, 16)

	for k, v := range entries {
		key := []byte(k)
		if len(key) == level {
			branch.Value = v
			continue
		}
		nib := key[level]
		if nib > 0x0f {
			return nil, fmt.Errorf("%w: %#x", ErrInvalidNibble, nib)
		}
		if children[nib] == nil {
			children[nib] = make(map[string][]byte)
		}
		children[nib][k] = v
	}

	for i := 0; i < 16; i++ {
		child, err := Patricialize(children[i], level+1)
		if err != nil {
			return nil, err
		}
		encodedChild, err := EncodeInternalNode(child)
		if err != nil {
			return nil, err
		}
		branch.Children[i] = encodedChild
	}

	return branch, nil
}

// firstKey returns an arbitrary key from entries, used as the anchor the
// common prefix is measured against and then sliced from.
func firstKey(entries map[string][]byte) []byte {
	for k := range entries {
		return []byte(k)
	}
	return nil
}

