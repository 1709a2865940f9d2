package nibble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToNibbles(t *testing.T) {
	cases := []struct {
		in  []byte
		out List
	}{
		{nil, List{}},
		{[]byte{0xde, 0xad}, List{0xd, 0xe, 0xa, 0xd}},
		{[]byte{0x00}, List{0x0, 0x0}},
	}
	for _, c := range cases {
		got := BytesToNibbles(c.in)
		require.Equal(t, len(c.in)*2, len(got))
		require.Equal(t, c.out, got)
		for _, nib := range got {
			require.LessOrEqual(t, nib, byte(0x0f))
		}
	}
}

func TestCompactRoundTrip(t *testing.T) {
	cases := []struct {
		n      List
		isLeaf bool
	}{
		{List{}, true},
		{List{}, false},
		{List{0x1, 0x2, 0x3}, true},
		{List{0x1, 0x2, 0x3, 0x4}, false},
		{List{0xd, 0xe, 0xa, 0xd}, true},
		{List{0xf}, false},
	}
	for _, c := range cases {
		enc, err := NibblesToCompact(c.n, c.isLeaf)
		require.NoError(t, err)
		gotN, gotLeaf, err := CompactToNibbles(enc)
		require.NoError(t, err)
		require.Equal(t, c.isLeaf, gotLeaf)
		require.Equal(t, append(List{}, c.n...), append(List{}, gotN...))
	}
}

func TestCompactVectors(t *testing.T) {
	enc, err := NibblesToCompact(List{}, true)
	require.NoError(t, err)
	require.Equal(t, []byte{0x20}, enc)

	enc, err = NibblesToCompact(List{}, false)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, enc)

	enc, err = NibblesToCompact(List{0x1, 0x2, 0x3}, true)
	require.NoError(t, err)
	require.Equal(t, []byte{0x31, 0x23}, enc)

	enc, err = NibblesToCompact(List{0x1, 0x2, 0x3, 0x4}, false)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x12, 0x34}, enc)
}

func TestCompactToNibblesRejectsReservedBits(t *testing.T) {
	_, _, err := CompactToNibbles([]byte{0x80})
	require.ErrorIs(t, err, ErrInvalidCompact)
}

func TestCompactToNibblesRejectsEmpty(t *testing.T) {
	_, _, err := CompactToNibbles(nil)
	require.ErrorIs(t, err, ErrInvalidCompact)
}

func TestNibblesToCompactRejectsInvalidNibble(t *testing.T) {
	_, err := NibblesToCompact(List{0x10}, false)
	require.ErrorIs(t, err, ErrInvalidNibble)
}

func TestNibblesToBytes(t *testing.T) {
	b, err := NibblesToBytes(List{0xd, 0xe, 0xa, 0xd})
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, b)

	_, err = NibblesToBytes(List{0x1})
	require.Error(t, err)
}
