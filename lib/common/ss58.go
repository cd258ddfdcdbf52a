// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// TorusSS58Prefix is the address format of the Torus chain.
const TorusSS58Prefix uint16 = 42

var (
	ErrInvalidSS58         = errors.New("invalid ss58 address")
	ErrSS58Checksum        = errors.New("ss58 checksum mismatch")
	ErrSS58PrefixMismatch  = errors.New("ss58 prefix mismatch")
	ErrSS58PrefixTooLarge  = errors.New("ss58 prefix exceeds 16383")
	ErrInvalidPublicKeyLen = errors.New("public key must be 32 bytes")
)

var ss58Context = []byte("SS58PRE")

const ss58ChecksumLen = 2

func ss58Checksum(payload []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, ss58Context...), payload...))
	return h[:ss58ChecksumLen]
}

func ss58PrefixBytes(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix < 16384:
		return []byte{
			byte((prefix&0xfc)>>2) | 0x40,
			byte(prefix>>8) | byte(prefix&0x03)<<6,
		}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrSS58PrefixTooLarge, prefix)
}

// EncodeSS58 returns the ss58 address of a 32 byte public key.
func EncodeSS58(publicKey []byte, prefix uint16) (string, error) {
	if len(publicKey) != 32 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidPublicKeyLen, len(publicKey))
	}
	payload, err := ss58PrefixBytes(prefix)
	if err != nil {
		return "", err
	}
	payload = append(payload, publicKey...)
	return base58.Encode(append(payload, ss58Checksum(payload)...)), nil
}

// DecodeSS58 returns the public key and prefix of an ss58 address.
func DecodeSS58(address string) (publicKey []byte, prefix uint16, err error) {
	raw := base58.Decode(address)
	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("%w: not base58: %q", ErrInvalidSS58, address)
	}

	prefixLen := 1
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
	case raw[0] < 128:
		if len(raw) < 2 {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidSS58, address)
		}
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return nil, 0, fmt.Errorf("%w: reserved prefix byte 0x%02x", ErrInvalidSS58, raw[0])
	}

	if len(raw) != prefixLen+32+ss58ChecksumLen {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrInvalidSS58, len(raw))
	}
	payload := raw[:prefixLen+32]
	if !bytes.Equal(ss58Checksum(payload), raw[prefixLen+32:]) {
		return nil, 0, fmt.Errorf("%w: %q", ErrSS58Checksum, address)
	}
	return append([]byte{}, payload[prefixLen:]...), prefix, nil
}

// DecodeSS58WithPrefix decodes an address and checks its prefix.
func DecodeSS58WithPrefix(address string, prefix uint16) ([]byte, error) {
	publicKey, got, err := DecodeSS58(address)
	if err != nil {
		return nil, err
	}
	if got != prefix {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrSS58PrefixMismatch, prefix, got)
	}
	return publicKey, nil
}
