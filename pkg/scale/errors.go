// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedEOF     = errors.New("unexpected end of input")
	ErrInvalidBool       = errors.New("invalid bool byte")
	ErrInvalidOption     = errors.New("invalid option byte")
	ErrCompactOverflow   = errors.New("compact integer overflows target")
	ErrNonCanonical      = errors.New("compact integer is not canonically encoded")
	ErrNegativeCompact   = errors.New("negative value cannot be compact encoded")
	ErrUnsupportedType   = errors.New("unsupported type")
	ErrTrailingBytes     = errors.New("trailing bytes after decoding")
	ErrLengthTooLarge    = errors.New("length prefix exceeds remaining input")
	ErrUint128Overflow   = errors.New("value does not fit in 128 bits")
	ErrUnsupportedOption = errors.New("option of this type is not supported")
)

// MaxZeroSizedLength is the largest collection of zero sized elements
// a decoder accepts.
const MaxZeroSizedLength = 1 << 16

// LengthError is returned for a length prefix the decoder refuses. It
// matches ErrLengthTooLarge, and also ErrUnexpectedEOF when the input
// is too short to hold the declared elements.
type LengthError struct {
	Length    uint64
	Remaining int
	Truncated bool
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: length %d with %d bytes left", ErrLengthTooLarge, e.Length, e.Remaining)
}

// Is implements errors.Is.
func (e *LengthError) Is(target error) bool {
	return target == ErrLengthTooLarge || (e.Truncated && target == ErrUnexpectedEOF)
}
