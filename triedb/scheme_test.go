package triedb

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"merklepatriciatrie/nibble"
)

func TestHalfPathKeyLengthsAndFlags(t *testing.T) {
	h := common.HexToHash("0x01")

	shortPath := nibble.List{0x1, 0x2, 0x3}
	key, err := halfPathKey(nil, shortPath, h)
	require.NoError(t, err)
	require.Len(t, key, 42)
	require.Equal(t, byte(0), key[0])
	require.Equal(t, byte(len(shortPath)), key[9])

	longPath := nibble.List{0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7}
	key, err = halfPathKey(nil, longPath, h)
	require.NoError(t, err)
	require.Len(t, key, 42)
	require.Equal(t, byte(1), key[0])

	addr := common.HexToHash("0xaa")
	key, err = halfPathKey(&addr, shortPath, h)
	require.NoError(t, err)
	require.Len(t, key, 74)
	require.Equal(t, byte(2), key[0])
	require.Equal(t, addr[:], key[1:33])

	_, err = halfPathKey(nil, make(nibble.List, 65), h)
	require.ErrorIs(t, err, ErrInvalidPathLength)
}

func TestHashKeyIsNodeHash(t *testing.T) {
	h := common.HexToHash("0xbeef")
	require.Equal(t, h[:], hashKey(h))
}
