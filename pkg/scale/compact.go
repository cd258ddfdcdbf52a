// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// maxCompactBytes is the largest payload of a big integer compact: 2**536 - 1
const maxCompactBytes = 67

// EncodeCompactUint64 performs the following on integer i:
// if i < 2^6 write [00 i^2...i^8 ] [ 8 bits = 1 byte encoded ]
// if 2^6 <= i < 2^14 write [01 i^2...i^16] [ 16 bits = 2 byte encoded ]
// if 2^14 <= i < 2^30 write [10 i^2...i^32] [ 32 bits = 4 byte encoded ]
// if i >= 2^30 write [lower 2 bits of first byte = 11] [upper 6 bits of first byte = # of bytes following less 4]
// [append i as a byte array to the first byte]
func EncodeCompactUint64(i uint64) []byte {
	switch {
	case i < 1<<6:
		return []byte{byte(i) << 2}
	case i < 1<<14:
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, uint16(i<<2)+1)
		return out
	case i < 1<<30:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(i<<2)+2)
		return out
	}

	o := make([]byte, 8)
	binary.LittleEndian.PutUint64(o, i)
	numBytes := 8
	for numBytes > 4 && o[numBytes-1] == 0 {
		numBytes--
	}

	lengthByte := byte(numBytes-4)<<2 + 3
	return append([]byte{lengthByte}, o[:numBytes]...)
}

// EncodeCompact performs the same encoding as EncodeCompactUint64 on a big.Int.
func EncodeCompact(i *big.Int) ([]byte, error) {
	switch {
	case i == nil:
		return nil, fmt.Errorf("%w: nil *big.Int", ErrUnsupportedType)
	case i.Sign() < 0:
		return nil, fmt.Errorf("%w: %s", ErrNegativeCompact, i)
	case i.IsUint64():
		return EncodeCompactUint64(i.Uint64()), nil
	}

	le := reverseBytes(i.Bytes())
	if len(le) > maxCompactBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrCompactOverflow, len(le))
	}

	lengthByte := byte(len(le)-4)<<2 + 3
	return append([]byte{lengthByte}, le...), nil
}

// readCompact decodes a compact integer and checks it uses the shortest mode.
func (d *Decoder) readCompact() (*big.Int, error) {
	b0, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch b0 & 3 {
	case 0:
		return new(big.Int).SetUint64(uint64(b0 >> 2)), nil
	case 1:
		b1, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		v := uint64(binary.LittleEndian.Uint16([]byte{b0, b1}) >> 2)
		if v < 1<<6 {
			return nil, fmt.Errorf("%w: %d in two byte mode", ErrNonCanonical, v)
		}
		return new(big.Int).SetUint64(v), nil
	case 2:
		rest, err := d.ReadN(3)
		if err != nil {
			return nil, err
		}
		v := uint64(binary.LittleEndian.Uint32(append([]byte{b0}, rest...)) >> 2)
		if v < 1<<14 {
			return nil, fmt.Errorf("%w: %d in four byte mode", ErrNonCanonical, v)
		}
		return new(big.Int).SetUint64(v), nil
	}

	n := int(b0>>2) + 4
	payload, err := d.ReadN(n)
	if err != nil {
		return nil, err
	}
	if payload[n-1] == 0 {
		return nil, fmt.Errorf("%w: trailing zero byte in big integer mode", ErrNonCanonical)
	}

	v := new(big.Int).SetBytes(reverseBytes(payload))
	if v.BitLen() <= 30 {
		return nil, fmt.Errorf("%w: %s in big integer mode", ErrNonCanonical, v)
	}
	return v, nil
}
