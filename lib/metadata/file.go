// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/torus-network/torus-client-go/lib/common"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// DecodeBlob returns the raw SCALE metadata from b, which may be raw,
// 0x prefixed hex text as returned by state_getMetadata, or zstd
// compressed raw or hex metadata.
func DecodeBlob(b []byte) ([]byte, error) {
	if bytes.HasPrefix(b, zstdMagic) {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()

		b, err = decoder.DecodeAll(b, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing metadata: %w", err)
		}
	}

	trimmed := bytes.TrimSpace(b)
	if bytes.HasPrefix(trimmed, []byte("0x")) {
		raw, err := common.HexToBytes(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("decoding hex metadata: %w", err)
		}
		return raw, nil
	}
	return b, nil
}

// Compress returns the zstd compression of a metadata blob.
func Compress(b []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(b, nil), nil
}

// ReadFile reads and parses a metadata file.
func ReadFile(path string) (*Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}
	raw, err := DecodeBlob(b)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}
