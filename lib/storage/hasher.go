// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package storage

import (
	"fmt"

	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/metadata"
)

// hashKeyPart applies a storage hasher to an encoded key part.
func hashKeyPart(h metadata.Hasher, encoded []byte) ([]byte, error) {
	switch h {
	case metadata.Identity:
		return append([]byte{}, encoded...), nil
	case metadata.Twox64Concat:
		digest, err := common.Twox64(encoded)
		if err != nil {
			return nil, err
		}
		return append(digest, encoded...), nil
	case metadata.Blake2_128Concat:
		digest, err := common.Blake2b128(encoded)
		if err != nil {
			return nil, err
		}
		return append(digest, encoded...), nil
	case metadata.Twox128:
		return common.Twox128Hash(encoded)
	case metadata.Blake2_128:
		return common.Blake2b128(encoded)
	case metadata.Twox256:
		digest, err := common.Twox256(encoded)
		if err != nil {
			return nil, err
		}
		return digest.ToBytes(), nil
	case metadata.Blake2_256:
		digest, err := common.Blake2bHash(encoded)
		if err != nil {
			return nil, err
		}
		return digest.ToBytes(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownHasher, h)
}

// itemPrefix returns twox128(pallet prefix) ++ twox128(item name).
func itemPrefix(item *metadata.StorageItem) ([]byte, error) {
	palletHash, err := common.Twox128Hash([]byte(item.Prefix))
	if err != nil {
		return nil, err
	}
	itemHash, err := common.Twox128Hash([]byte(item.Name))
	if err != nil {
		return nil, err
	}
	return common.Concat(palletHash, itemHash), nil
}
