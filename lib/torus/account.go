// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package torus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/value"
)

// ErrInvalidAccountID is returned when an account id can not be parsed.
var ErrInvalidAccountID = errors.New("invalid account id")

// AccountID is a 32 byte sr25519 public key.
type AccountID [32]byte

// ParseAccountID parses an ss58 address with the Torus prefix or a
// 0x prefixed hex public key.
func ParseAccountID(s string) (id AccountID, err error) {
	if strings.HasPrefix(s, "0x") {
		b, err := common.HexToBytes(s)
		if err != nil {
			return id, fmt.Errorf("%w: %s", ErrInvalidAccountID, err)
		}
		if len(b) != len(id) {
			return id, fmt.Errorf("%w: %d bytes", ErrInvalidAccountID, len(b))
		}
		copy(id[:], b)
		return id, nil
	}

	b, err := common.DecodeSS58WithPrefix(s, common.TorusSS58Prefix)
	if err != nil {
		return id, fmt.Errorf("%w: %s", ErrInvalidAccountID, err)
	}
	copy(id[:], b)
	return id, nil
}

// MustParseAccountID is ParseAccountID panicking on error.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Value returns the dynamic value of the account id.
func (a AccountID) Value() value.Value {
	return value.Bytes(a[:])
}

// Hex returns the 0x prefixed hex public key.
func (a AccountID) Hex() string {
	return common.BytesToHex(a[:])
}

// String returns the ss58 address with the Torus prefix.
func (a AccountID) String() string {
	address, err := common.EncodeSS58(a[:], common.TorusSS58Prefix)
	if err != nil {
		return a.Hex()
	}
	return address
}

// AccountIDFromValue returns the account id held by a decoded value.
func AccountIDFromValue(v value.Value) (id AccountID, err error) {
	b, err := v.AsBytes()
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("%w: %d bytes", ErrInvalidAccountID, len(b))
	}
	copy(id[:], b)
	return id, nil
}
