package mpt

import "errors"

// Sentinel errors for the core algorithmic packages. Each is wrapped with
// %w alongside contextual detail; callers compare with errors.Is.
var (
	// ErrInvalidBranch names a branch node whose Children are not exactly
	// 16 wide. Go's type system already enforces this ([16]EncodedNode), so
	// no function in this package returns it; kept for parity with the
	// spec's error catalogue.
	ErrInvalidBranch = errors.New("mpt: branch node must have exactly 16 children")

	// ErrInvalidLevel is returned by Patricialize for a negative level.
	ErrInvalidLevel = errors.New("mpt: level must be >= 0")

	// ErrInvalidKeyLength is returned by Patricialize when a key is
	// shorter than the current recursion level.
	ErrInvalidKeyLength = errors.New("mpt: key shorter than current level")

	// ErrInvalidNibble is returned by Patricialize when a key nibble at
	// the branching position is out of range.
	ErrInvalidNibble = errors.New("mpt: nibble out of range")

	// ErrInvalidTopLevel is returned by DecodeNode when the decoded RLP
	// value is not a list, or leaves a remainder.
	ErrInvalidTopLevel = errors.New("mpt: decoded value is not a bare RLP list")

	// ErrInvalidBranchArity is returned by DecodeNode for a list whose
	// item count is neither 2 nor 17.
	ErrInvalidBranchArity = errors.New("mpt: decoded list has neither 2 nor 17 items")

	// ErrInvalidChildRef is returned by DecodeNode when a child reference
	// is a byte string of a length other than 0 or 32.
	ErrInvalidChildRef = errors.New("mpt: child reference has invalid length")
)
