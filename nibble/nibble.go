// Package nibble implements the nibble-list and hex-prefix (HP) compact
// path codecs used throughout the trie: every byte is expanded into two
// 4-bit nibbles, and nibble lists are packed back into the compact form
// that trie nodes store on the wire.
package nibble

import "fmt"

// List is a nibble list: one 4-bit value per byte, each in 0x00..0x0f.
type List []byte

// ErrInvalidNibble is returned when a byte outside 0x00..0x0f is found
// where a nibble was expected.
var ErrInvalidNibble = fmt.Errorf("nibble: value out of range")

// ErrInvalidCompact is returned by CompactToNibbles when the input bytes
// cannot be a valid hex-prefix encoding.
var ErrInvalidCompact = fmt.Errorf("nibble: invalid compact encoding")

// BytesToNibbles expands each byte of b into two nibbles, high nibble
// first. The result always has length 2*len(b).
func BytesToNibbles(b []byte) List {
	out := make(List, len(b)*2)
	for i, v := range b {
		out[i*2] = v >> 4
		out[i*2+1] = v & 0x0f
	}
	return out
}

// NibblesToBytes packs a nibble list of even length back into bytes,
// high nibble first. It does not validate nibble range; callers that
// built the list from BytesToNibbles or a validated source may use it
// directly.
func NibblesToBytes(n List) ([]byte, error) {
	if len(n)%2 != 0 {
		return nil, fmt.Errorf("nibble: odd-length nibble list %d cannot pack to bytes", len(n))
	}
	out := make([]byte, len(n)/2)
	for i := range out {
		out[i] = n[i*2]<<4 | n[i*2+1]
	}
	return out, nil
}

// validate reports ErrInvalidNibble if any element of n is >= 0x10.
func validate(n List) error {
	for _, v := range n {
		if v > 0x0f {
			return fmt.Errorf("%w: %#x", ErrInvalidNibble, v)
		}
	}
	return nil
}

// NibblesToCompact encodes n per the hex-prefix rule: the first byte
// carries a leaf flag (bit 0x20) and a parity flag (bit 0x10); an odd
// nibble count packs its first nibble into the low bits of that byte,
// the rest two-per-byte thereafter.
func NibblesToCompact(n List, isLeaf bool) ([]byte, error) {
	if err := validate(n); err != nil {
		return nil, err
	}

	odd := len(n)%2 == 1
	buf := make([]byte, len(n)/2+1)

	flags := byte(0)
	if isLeaf {
		flags |= 0x20
	}
	if odd {
		flags |= 0x10
		flags |= n[0]
		n = n[1:]
	}
	buf[0] = flags

	for i := 0; i < len(n); i += 2 {
		buf[i/2+1] = n[i]<<4 | n[i+1]
	}
	return buf, nil
}

// CompactToNibbles is the inverse of NibblesToCompact. It fails on an
// empty input, on a first byte with either of its top two bits set
// (first&0xc0 != 0), or on an even-parity first byte whose low nibble is
// not zero.
func CompactToNibbles(c []byte) (n List, isLeaf bool, err error) {
	if len(c) == 0 {
		return nil, false, fmt.Errorf("%w: empty input", ErrInvalidCompact)
	}
	first := c[0]
	if first&0xc0 != 0 {
		return nil, false, fmt.Errorf("%w: reserved flag bits set in %#x", ErrInvalidCompact, first)
	}

	isLeaf = first&0x20 != 0
	odd := first&0x10 != 0

	rest := BytesToNibbles(c[1:])
	if odd {
		n = make(List, 0, len(rest)+1)
		n = append(n, first&0x0f)
		n = append(n, rest...)
	} else {
		if first&0x0f != 0 {
			return nil, false, fmt.Errorf("%w: non-zero low nibble %#x on even-length flag byte", ErrInvalidCompact, first)
		}
		n = rest
	}
	return n, isLeaf, nil
}
