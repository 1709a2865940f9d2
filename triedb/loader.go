package triedb

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"merklepatriciatrie/kv"
	"merklepatriciatrie/mpt"
	"merklepatriciatrie/nibble"
)

const defaultDecodedCacheSize = 4096

// Loader is the node loader (C7): it resolves an EncodedNode reference
// into a concrete TrieNode, consulting Storage only for Hash references.
// A decoded-node LRU sits in front of storage+decode, grounded on the
// codeSizeCache pattern in cerc-io's statedb.
type Loader struct {
	storage *Storage
	decoded *lru.Cache
	log     *logrus.Entry
}

// NewLoader constructs a Loader over storage with the default decoded
// node cache size.
func NewLoader(storage *Storage) *Loader {
	c, _ := lru.New(defaultDecodedCacheSize)
	return &Loader{storage: storage, decoded: c, log: logrus.WithField("component", "triedb.loader")}
}

// Load resolves ref to a TrieNode: Empty resolves to nil with no work,
// Raw decodes its own inlined bytes, and Hash fetches from storage
// (short-circuiting at the empty-trie-root hash) before decoding.
func (l *Loader) Load(addressHash *common.Hash, path nibble.List, ref mpt.EncodedNode, flags kv.ReadFlags) (mpt.TrieNode, error) {
	switch r := ref.(type) {
	case mpt.EmptyNode:
		return nil, nil

	case mpt.RawNode:
		node, err := mpt.DecodeNode(r.Encoded)
		if err != nil {
			return nil, &TrieNodeLoaderError{Cause: LoaderCauseCodec, Err: err}
		}
		return node, nil

	case mpt.HashNode:
		if r.Hash == mpt.EmptyTrieRoot {
			return nil, nil
		}
		if cached, ok := l.decoded.Get(r.Hash); ok {
			return cached.(mpt.TrieNode), nil
		}

		bytes, err := l.storage.Get(addressHash, path, r.Hash, flags)
		if err != nil {
			return nil, &TrieNodeLoaderError{Cause: LoaderCauseStorage, Err: err}
		}
		if bytes == nil {
			return nil, nil
		}

		node, err := mpt.DecodeNode(bytes)
		if err != nil {
			return nil, &TrieNodeLoaderError{Cause: LoaderCauseCodec, Err: err}
		}
		l.decoded.Add(r.Hash, node)
		return node, nil

	default:
		l.log.WithField("type", fmt.Sprintf("%T", ref)).Warn("load: unknown encoded node reference")
		return nil, nil
	}
}
