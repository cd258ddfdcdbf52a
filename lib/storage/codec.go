// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

var (
	ErrUnknownHasher = errors.New("unknown storage hasher")
	ErrMalformedKey  = errors.New("malformed storage key")
)

const keyKind = "storage key"

// Key is a storage key derived from metadata.
type Key struct {
	Bytes  []byte
	Pallet string
	Item   string
	// Parts is the number of key parts used to build the key.
	Parts int
	// Arity is the number of key parts of the item.
	Arity int
}

// IterationOnly returns true if the key is a strict prefix of full keys,
// which is the case when fewer parts than the item arity were given.
// Such a key addresses a key range and can not be fetched directly.
func (k Key) IterationOnly() bool {
	return k.Parts < k.Arity
}

// Hex returns the 0x prefixed hex encoding of the key bytes.
func (k Key) Hex() string {
	return common.BytesToHex(k.Bytes)
}

func (k Key) String() string {
	return fmt.Sprintf("%s.%s %s", k.Pallet, k.Item, k.Hex())
}

// RequireFullKey returns an error if the key is iteration only.
func RequireFullKey(k Key) error {
	if !k.IterationOnly() {
		return nil
	}
	return &metadata.ArityMismatchError{
		Kind:     keyKind,
		Pallet:   k.Pallet,
		Name:     k.Item,
		Expected: k.Arity,
		Got:      k.Parts,
	}
}

// Codec derives and decodes storage keys and values of a descriptor.
// It is safe for concurrent use.
type Codec struct {
	desc *metadata.Descriptor
}

// NewCodec returns a storage codec for the descriptor.
func NewCodec(desc *metadata.Descriptor) *Codec {
	return &Codec{desc: desc}
}

// Key builds the storage key of a pallet item from zero or more key parts.
// Giving fewer parts than the item arity yields an iteration only key.
func (c *Codec) Key(pallet, item string, parts ...value.Value) (Key, error) {
	entry, err := c.desc.StorageItem(pallet, item)
	if err != nil {
		return Key{}, err
	}

	if len(parts) > entry.Arity() {
		return Key{}, &metadata.ArityMismatchError{
			Kind:     keyKind,
			Pallet:   pallet,
			Name:     item,
			Expected: entry.Arity(),
			Got:      len(parts),
		}
	}

	b, err := itemPrefix(entry)
	if err != nil {
		return Key{}, err
	}

	registry := c.desc.Registry()
	for i, part := range parts {
		encoded, err := value.Encode(registry, entry.KeyTypes[i], part)
		if err != nil {
			return Key{}, &metadata.ArityMismatchError{
				Kind:     keyKind,
				Pallet:   pallet,
				Name:     item,
				Expected: entry.Arity(),
				Got:      len(parts),
				Position: i,
				Err:      err,
			}
		}

		hashed, err := hashKeyPart(entry.Hashers[i], encoded)
		if err != nil {
			return Key{}, err
		}
		b = append(b, hashed...)
	}

	return Key{
		Bytes:  b,
		Pallet: pallet,
		Item:   item,
		Parts:  len(parts),
		Arity:  entry.Arity(),
	}, nil
}

// Prefix returns the key of an item without any key part.
func (c *Codec) Prefix(pallet, item string) (Key, error) {
	return c.Key(pallet, item)
}

// CheckRecoverable returns a *metadata.CapabilityError if any key part
// from the given position onwards uses a hasher that can not be reversed.
func (c *Codec) CheckRecoverable(pallet, item string, from int) error {
	entry, err := c.desc.StorageItem(pallet, item)
	if err != nil {
		return err
	}
	return checkRecoverable(entry, from)
}

func checkRecoverable(entry *metadata.StorageItem, from int) error {
	for i := from; i < len(entry.Hashers); i++ {
		h := entry.Hashers[i]
		if !h.Recoverable() {
			return &metadata.CapabilityError{
				Pallet:   entry.Pallet,
				Item:     entry.Name,
				Position: i,
				Hasher:   h,
			}
		}
	}
	return nil
}

// DecodeKey recovers all key parts of a full storage key.
func (c *Codec) DecodeKey(pallet, item string, full []byte) ([]value.Value, error) {
	prefix, err := c.Prefix(pallet, item)
	if err != nil {
		return nil, err
	}
	return c.DecodeKeySuffix(prefix, full)
}

// DecodeKeySuffix recovers the key parts of a full storage key that
// follow the parts of prefix, as found when iterating keys under prefix.
func (c *Codec) DecodeKeySuffix(prefix Key, full []byte) ([]value.Value, error) {
	entry, err := c.desc.StorageItem(prefix.Pallet, prefix.Item)
	if err != nil {
		return nil, err
	}

	err = checkRecoverable(entry, prefix.Parts)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(full, prefix.Bytes) {
		return nil, fmt.Errorf("%w: %s does not start with %s",
			ErrMalformedKey, common.BytesToHex(full), prefix)
	}

	registry := c.desc.Registry()
	d := scale.NewDecoder(full[len(prefix.Bytes):])
	parts := make([]value.Value, 0, entry.Arity()-prefix.Parts)
	for i := prefix.Parts; i < entry.Arity(); i++ {
		h := entry.Hashers[i]
		digest, err := d.ReadN(h.HashLen())
		if err != nil {
			return nil, fmt.Errorf("%w: key part %d: %s", ErrMalformedKey, i, err)
		}

		start := d.Offset()
		part, err := value.Decode(registry, entry.KeyTypes[i], d)
		if err != nil {
			return nil, fmt.Errorf("%w: key part %d: %s", ErrMalformedKey, i, err)
		}

		if len(digest) > 0 {
			encoded := full[len(prefix.Bytes)+start : len(prefix.Bytes)+d.Offset()]
			expected, err := hashKeyPart(h, encoded)
			if err != nil {
				return nil, err
			}
			if !bytes.Equal(expected[:len(digest)], digest) {
				return nil, fmt.Errorf("%w: key part %d: %s digest does not match",
					ErrMalformedKey, i, h)
			}
		}
		parts = append(parts, part)
	}

	if d.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedKey, d.Len())
	}
	return parts, nil
}

// DecodeValue decodes a stored value of a pallet item.
func (c *Codec) DecodeValue(pallet, item string, b []byte) (value.Value, error) {
	entry, err := c.desc.StorageItem(pallet, item)
	if err != nil {
		return value.Value{}, err
	}
	v, err := value.DecodeBytes(c.desc.Registry(), entry.Value, b)
	if err != nil {
		return value.Value{}, fmt.Errorf("decoding value of %s.%s: %w", pallet, item, err)
	}
	return v, nil
}

// DefaultValue returns the declared default of a pallet item. The
// boolean is false for Optional items, which have no default.
func (c *Codec) DefaultValue(pallet, item string) (value.Value, bool, error) {
	entry, err := c.desc.StorageItem(pallet, item)
	if err != nil {
		return value.Value{}, false, err
	}
	if entry.Modifier != metadata.Default {
		return value.Value{}, false, nil
	}
	v, err := value.DecodeBytes(c.desc.Registry(), entry.Value, entry.Default)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("decoding default of %s.%s: %w", pallet, item, err)
	}
	return v, true, nil
}

// ValueType returns the registry type id of the values of a pallet item.
func (c *Codec) ValueType(pallet, item string) (metadata.TypeID, error) {
	entry, err := c.desc.StorageItem(pallet, item)
	if err != nil {
		return 0, err
	}
	return entry.Value, nil
}
