package mpt

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"merklepatriciatrie/nibble"
)

// Scenario A: empty trie root matches the well-known constant.
func TestTrieRootEmpty(t *testing.T) {
	root, err := TrieRoot(nil, RootOptions{})
	require.NoError(t, err)
	require.Equal(t, EmptyTrieRoot, root)
}

// Scenario B: a single short key patricializes to one Leaf, and the root
// is keccak256 of its RLP encoding.
func TestTrieRootSingleShortKey(t *testing.T) {
	entries := []Entry{{Key: []byte{0xde, 0xad}, Value: []byte{0xbe, 0xef}}}

	m := map[string][]byte{string(nibble.BytesToNibbles(entries[0].Key)): entries[0].Value}
	node, err := Patricialize(m, 0)
	require.NoError(t, err)

	leaf, ok := node.(*LeafNode)
	require.True(t, ok)
	require.Equal(t, nibble.List{0xd, 0xe, 0xa, 0xd}, leaf.RestOfKey)
	require.Equal(t, []byte{0xbe, 0xef}, leaf.Value)

	compact, err := nibble.NibblesToCompact(leaf.RestOfKey, true)
	require.NoError(t, err)
	want, err := rlp.EncodeToBytes([]interface{}{compact, leaf.Value})
	require.NoError(t, err)
	wantHash := crypto.Keccak256Hash(want)

	root, err := TrieRoot(entries, RootOptions{})
	require.NoError(t, err)
	require.Equal(t, wantHash, root)
}

// Scenario D: two keys sharing a two-nibble prefix produce an
// Extension over a Branch with leaves at nibbles 3 and f.
func TestPatricializeExtensionAndBranch(t *testing.T) {
	entries := map[string][]byte{
		string(nibble.List{0x1, 0x2, 0x3, 0x4}): {0x01},
		string(nibble.List{0x1, 0x2, 0xf, 0xf}): {0x02},
	}
	node, err := Patricialize(entries, 0)
	require.NoError(t, err)

	ext, ok := node.(*ExtensionNode)
	require.True(t, ok)
	require.Equal(t, nibble.List{0x1, 0x2}, ext.KeySegment)

	branchEnc, ok := ext.Subnode.(RawNode)
	var branch *BranchNode
	if ok {
		decoded, err := DecodeNode(branchEnc.Encoded)
		require.NoError(t, err)
		branch, ok = decoded.(*BranchNode)
		require.True(t, ok)
	} else {
		// Large enough to hash instead of inline; re-derive the branch
		// structurally by patricializing the remainder directly.
		remainder := map[string][]byte{
			string(nibble.List{0x3, 0x4}): {0x01},
			string(nibble.List{0xf, 0xf}): {0x02},
		}
		raw, err := Patricialize(remainder, 0)
		require.NoError(t, err)
		branch, ok = raw.(*BranchNode)
		require.True(t, ok)
	}

	require.NotEqual(t, EmptyNode{}, branch.Children[0x3])
	require.NotEqual(t, EmptyNode{}, branch.Children[0xf])
	require.Equal(t, EmptyNode{}, branch.Children[0x0])
}

// Scenario E: securing the keys changes the root, for keys that are not
// already their own keccak256.
func TestTrieRootSecuredDiffersFromUnsecured(t *testing.T) {
	entries := []Entry{{Key: []byte("account-one"), Value: []byte{0x01}}}

	plain, err := TrieRoot(entries, RootOptions{Secured: false})
	require.NoError(t, err)
	secured, err := TrieRoot(entries, RootOptions{Secured: true})
	require.NoError(t, err)

	require.NotEqual(t, plain, secured)
}

// Property 4: the root is independent of entry order.
func TestTrieRootOrderIndependent(t *testing.T) {
	a := []Entry{
		{Key: []byte{0x01}, Value: []byte{0xaa}},
		{Key: []byte{0x02}, Value: []byte{0xbb}},
		{Key: []byte{0x03}, Value: []byte{0xcc}},
	}
	b := []Entry{a[2], a[0], a[1]}

	rootA, err := TrieRoot(a, RootOptions{})
	require.NoError(t, err)
	rootB, err := TrieRoot(b, RootOptions{})
	require.NoError(t, err)
	require.Equal(t, rootA, rootB)
}

// Property 7: encode_internal_node returns Raw iff the RLP encoding is
// under 32 bytes, Hash otherwise.
func TestEncodeInternalNodeInlineThreshold(t *testing.T) {
	small := &LeafNode{RestOfKey: nibble.List{0x1}, Value: []byte{0x01}}
	enc, err := EncodeInternalNode(small)
	require.NoError(t, err)
	_, isRaw := enc.(RawNode)
	require.True(t, isRaw)

	large := &LeafNode{RestOfKey: nibble.List{0x1}, Value: make([]byte, 64)}
	enc, err = EncodeInternalNode(large)
	require.NoError(t, err)
	_, isHash := enc.(HashNode)
	require.True(t, isHash)
}

// EncodeInternalNode's inline-vs-hash decision is counted per node kind.
func TestEncodeInternalNodeObservesMetrics(t *testing.T) {
	counter := HasherMetrics().DecisionsCounter()

	small := &LeafNode{RestOfKey: nibble.List{0x1}, Value: []byte{0x01}}
	before := testutil.ToFloat64(counter.WithLabelValues("leaf", "inline"))
	_, err := EncodeInternalNode(small)
	require.NoError(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(counter.WithLabelValues("leaf", "inline")))

	large := &LeafNode{RestOfKey: nibble.List{0x1}, Value: make([]byte, 64)}
	beforeHash := testutil.ToFloat64(counter.WithLabelValues("leaf", "hash"))
	_, err = EncodeInternalNode(large)
	require.NoError(t, err)
	require.Equal(t, beforeHash+1, testutil.ToFloat64(counter.WithLabelValues("leaf", "hash")))
}

// Property 3: decoding the encoding of any node whose RLP size is >= 32
// bytes reproduces its structure.
func TestDecodeNodeRoundTrip(t *testing.T) {
	leaf := &LeafNode{RestOfKey: nibble.List{0xa, 0xb, 0xc}, Value: make([]byte, 40)}
	compact, err := nibble.NibblesToCompact(leaf.RestOfKey, true)
	require.NoError(t, err)
	encoded, err := rlp.EncodeToBytes([]interface{}{compact, leaf.Value})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(encoded), 32)

	decoded, err := DecodeNode(encoded)
	require.NoError(t, err)
	got, ok := decoded.(*LeafNode)
	require.True(t, ok)
	require.Equal(t, leaf.RestOfKey, got.RestOfKey)
	require.Equal(t, leaf.Value, got.Value)
}

func TestDecodeNodeBranchRoundTrip(t *testing.T) {
	branch := &BranchNode{Value: []byte{0x09}}
	branch.Children[0x3] = HashNode{Hash: EmptyTrieRoot}
	for i := range branch.Children {
		if branch.Children[i] == nil {
			branch.Children[i] = EmptyNode{}
		}
	}

	items := make([]interface{}, 17)
	for i := 0; i < 16; i++ {
		if h, ok := branch.Children[i].(HashNode); ok {
			items[i] = h.Hash[:]
		} else {
			items[i] = []byte{}
		}
	}
	items[16] = branch.Value
	encoded, err := rlp.EncodeToBytes(items)
	require.NoError(t, err)

	decoded, err := DecodeNode(encoded)
	require.NoError(t, err)
	got, ok := decoded.(*BranchNode)
	require.True(t, ok)
	require.Equal(t, branch.Value, got.Value)
	require.Equal(t, HashNode{Hash: EmptyTrieRoot}, got.Children[0x3])
	require.Equal(t, EmptyNode{}, got.Children[0x0])
}

// Boundary: empty key and empty value are valid.
func TestTrieRootEmptyKeyAndValue(t *testing.T) {
	entries := []Entry{{Key: []byte{}, Value: []byte{}}}
	root, err := TrieRoot(entries, RootOptions{})
	require.NoError(t, err)
	require.NotEqual(t, EmptyTrieRoot, root)
}

// spec.md §7's PatricializeError conditions: negative level, a key shorter
// than the current level, and an out-of-range nibble at a branch split.
func TestPatricializeErrorKinds(t *testing.T) {
	t.Run("negative level", func(t *testing.T) {
		_, err := Patricialize(map[string][]byte{"k": {0x01}}, -1)
		require.ErrorIs(t, err, ErrInvalidLevel)
	})

	t.Run("key shorter than level, single entry", func(t *testing.T) {
		_, err := Patricialize(map[string][]byte{"a": {0x01}}, 2)
		require.ErrorIs(t, err, ErrInvalidKeyLength)
	})

	t.Run("key shorter than level, multiple entries", func(t *testing.T) {
		// Both keys are shorter than level so the error fires regardless of
		// which one map iteration visits first (as the anchor or in the
		// prefix-matching loop).
		entries := map[string][]byte{
			"ab": {0x01},
			"cd": {0x02},
		}
		_, err := Patricialize(entries, 5)
		require.ErrorIs(t, err, ErrInvalidKeyLength)
	})

	t.Run("out of range nibble at branch split", func(t *testing.T) {
		entries := map[string][]byte{
			string([]byte{0x01, 0x20}): {0x01},
			string([]byte{0x01, 0x02}): {0x02},
		}
		_, err := Patricialize(entries, 1)
		require.ErrorIs(t, err, ErrInvalidNibble)
	})
}

// spec.md §7's TrieNodeCodecError conditions: malformed top-level RLP, bad
// arity, and a child reference of the wrong byte length.
func TestDecodeNodeErrorKinds(t *testing.T) {
	t.Run("top level is not a list", func(t *testing.T) {
		enc, err := rlp.EncodeToBytes([]byte("not a list"))
		require.NoError(t, err)
		_, err = DecodeNode(enc)
		require.ErrorIs(t, err, ErrInvalidTopLevel)
	})

	t.Run("list has neither 2 nor 17 items", func(t *testing.T) {
		enc, err := rlp.EncodeToBytes([]interface{}{[]byte{0x01}, []byte{0x02}, []byte{0x03}})
		require.NoError(t, err)
		_, err = DecodeNode(enc)
		require.ErrorIs(t, err, ErrInvalidBranchArity)
	})

	t.Run("child reference has invalid byte length", func(t *testing.T) {
		compact, err := nibble.NibblesToCompact(nibble.List{0x1, 0x2}, false)
		require.NoError(t, err)
		badRef := make([]byte, 10)
		enc, err := rlp.EncodeToBytes([]interface{}{compact, badRef})
		require.NoError(t, err)
		_, err = DecodeNode(enc)
		require.ErrorIs(t, err, ErrInvalidChildRef)
	})
}

func TestTrieFacadeDefaultValueConvention(t *testing.T) {
	tr := NewTrie(false, []byte{})

	tr.Put([]byte("k1"), []byte("v1"))
	require.Equal(t, []byte("v1"), tr.Get([]byte("k1")))

	tr.Put([]byte("k1"), []byte("v2"))
	require.Equal(t, []byte("v2"), tr.Get([]byte("k1")))

	tr.Remove([]byte("k1"))
	require.Equal(t, []byte{}, tr.Get([]byte("k1")))

	tr.Put([]byte("k2"), []byte("v3"))
	tr.Put([]byte("k2"), []byte{})
	require.Equal(t, []byte{}, tr.Get([]byte("k2")))

	root, err := tr.Root()
	require.NoError(t, err)
	require.Equal(t, EmptyTrieRoot, root)
}
