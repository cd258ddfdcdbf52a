// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/crypto/blake2b"
)

// Blake2b128 returns the 128-bit blake2b hash of the input data
func Blake2b128(in []byte) ([]byte, error) {
	h, err := blake2b.New(16, nil)
	if err != nil {
		return nil, err
	}

	_, err = h.Write(in)
	if err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// Blake2bHash returns the 256-bit blake2b hash of the input data
func Blake2bHash(in []byte) (Hash, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}

	_, err = h.Write(in)
	if err != nil {
		return [32]byte{}, err
	}

	return NewHash(h.Sum(nil)), nil
}

// MustBlake2bHash returns the 256-bit blake2b hash of the input data. It panics if it fails to hash.
func MustBlake2bHash(in []byte) Hash {
	hash, err := Blake2bHash(in)
	if err != nil {
		panic(err)
	}

	return hash
}

// Twox64 returns the xx64 hash of the input data
func Twox64(in []byte) ([]byte, error) {
	return twox(in, 1)
}

// Twox128Hash computes xxHash64 twice with seeds 0 and 1 applied on given byte array
func Twox128Hash(msg []byte) ([]byte, error) {
	return twox(msg, 2)
}

// Twox256 returns the twox256 hash of the input data
func Twox256(in []byte) (Hash, error) {
	hash, err := twox(in, 4)
	if err != nil {
		return Hash{}, err
	}
	return NewHash(hash), nil
}

// twox concatenates the little endian xxHash64 digests of the input
// computed with seeds 0 to rounds-1.
func twox(in []byte, rounds int) ([]byte, error) {
	out := make([]byte, 0, 8*rounds)
	for seed := 0; seed < rounds; seed++ {
		hasher := xxhash.NewS64(uint64(seed))
		_, err := hasher.Write(in)
		if err != nil {
			return nil, err
		}

		digest := make([]byte, 8)
		binary.LittleEndian.PutUint64(digest, hasher.Sum64())
		out = append(out, digest...)
	}
	return out, nil
}
