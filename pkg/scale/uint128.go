// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Uint128 represents an unsigned 128 bit integer
type Uint128 struct {
	Upper uint64
	Lower uint64
}

// MaxUint128 is the maximum uint128 value
var MaxUint128 = &Uint128{
	Upper: ^uint64(0),
	Lower: ^uint64(0),
}

// NewUint128FromBigInt is constructor for Uint128 from a non negative *big.Int
func NewUint128FromBigInt(in *big.Int) (u Uint128, err error) {
	if in.Sign() < 0 || in.BitLen() > 128 {
		return u, fmt.Errorf("%w: %s", ErrUint128Overflow, in)
	}

	b := make([]byte, 16)
	in.FillBytes(b)
	return Uint128{
		Upper: binary.BigEndian.Uint64(b[:8]),
		Lower: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

// MustNewUint128FromBigInt will panic if the value does not fit
func MustNewUint128FromBigInt(in *big.Int) Uint128 {
	u, err := NewUint128FromBigInt(in)
	if err != nil {
		panic(err)
	}
	return u
}

// NewUint128FromLittleEndian decodes 16 little endian bytes
func NewUint128FromLittleEndian(b []byte) (u Uint128, err error) {
	if len(b) != 16 {
		return u, fmt.Errorf("%w: expected 16 bytes, got %d", ErrUnexpectedEOF, len(b))
	}
	return Uint128{
		Upper: binary.LittleEndian.Uint64(b[8:]),
		Lower: binary.LittleEndian.Uint64(b[:8]),
	}, nil
}

// BigInt returns the value as a *big.Int
func (u Uint128) BigInt() *big.Int {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], u.Upper)
	binary.BigEndian.PutUint64(b[8:], u.Lower)
	return new(big.Int).SetBytes(b)
}

// String returns the decimal representation
func (u Uint128) String() string {
	return u.BigInt().String()
}

// Compare returns 1 if u > other, -1 if u < other and 0 if equal
func (u Uint128) Compare(other Uint128) int {
	switch {
	case u.Upper > other.Upper:
		return 1
	case u.Upper < other.Upper:
		return -1
	case u.Lower > other.Lower:
		return 1
	case u.Lower < other.Lower:
		return -1
	}
	return 0
}
