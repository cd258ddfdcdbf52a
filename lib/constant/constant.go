// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package constant

import (
	"fmt"

	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

// Resolver looks up pallet constants of a descriptor.
type Resolver struct {
	desc *metadata.Descriptor
}

// NewResolver returns a constant resolver for the descriptor.
func NewResolver(desc *metadata.Descriptor) *Resolver {
	return &Resolver{desc: desc}
}

// Get returns the encoded value of a constant and its registry type id.
// It does not decode anything.
func (r *Resolver) Get(pallet, name string) ([]byte, metadata.TypeID, error) {
	c, err := r.desc.Constant(pallet, name)
	if err != nil {
		return nil, 0, err
	}
	return append([]byte{}, c.Value...), c.Type, nil
}

// Decode returns the value of a constant decoded with its declared type.
func (r *Resolver) Decode(pallet, name string) (value.Value, error) {
	b, ty, err := r.Get(pallet, name)
	if err != nil {
		return value.Value{}, err
	}
	v, err := value.DecodeBytes(r.desc.Registry(), ty, b)
	if err != nil {
		return value.Value{}, fmt.Errorf("decoding constant %s.%s: %w", pallet, name, err)
	}
	return v, nil
}

// Into decodes the value of a constant into the Go value pointed to by dst.
func (r *Resolver) Into(pallet, name string, dst interface{}) error {
	b, _, err := r.Get(pallet, name)
	if err != nil {
		return err
	}
	err = scale.Unmarshal(b, dst)
	if err != nil {
		return fmt.Errorf("decoding constant %s.%s: %w", pallet, name, err)
	}
	return nil
}
