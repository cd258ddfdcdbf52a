// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package call

import (
	"fmt"
	"strings"

	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

const callKind = "call"

// Call is a dispatchable call addressed by pallet and call name, with its
// field values in declaration order.
type Call struct {
	Pallet string
	Name   string
	Fields []value.Value
}

// New returns a call with the given field values.
func New(pallet, name string, fields ...value.Value) Call {
	return Call{Pallet: pallet, Name: name, Fields: fields}
}

func (c Call) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s.%s(%s)", c.Pallet, c.Name, strings.Join(parts, ", "))
}

// Encoder builds call payloads from a descriptor. With expectations, every
// call is checked against its pinned validation hash before being encoded.
// It is safe for concurrent use.
type Encoder struct {
	desc *metadata.Descriptor
	exp  *metadata.Expectations
}

// NewEncoder returns a call encoder. A nil exp disables hash validation.
func NewEncoder(desc *metadata.Descriptor, exp *metadata.Expectations) *Encoder {
	return &Encoder{desc: desc, exp: exp}
}

// Validate compares the validation hash of a call computed from the live
// descriptor with the pinned one. It is a no-op without expectations.
func (e *Encoder) Validate(pallet, name string) error {
	live, err := e.desc.CallHash(pallet, name)
	if err != nil {
		return err
	}
	if e.exp == nil {
		return nil
	}

	pinned, err := e.exp.CallHash(pallet, name)
	if err != nil {
		return err
	}
	if pinned != live {
		return &metadata.HashMismatchError{
			Kind:     callKind,
			Pallet:   pallet,
			Name:     name,
			Expected: pinned,
			Actual:   live,
		}
	}
	return nil
}

// Encode returns pallet index ++ call index ++ fields for a call.
// Nothing is returned on error.
func (e *Encoder) Encode(pallet, name string, fields ...value.Value) ([]byte, error) {
	p, variant, err := e.desc.Call(pallet, name)
	if err != nil {
		return nil, err
	}

	err = e.Validate(pallet, name)
	if err != nil {
		return nil, err
	}

	if len(fields) != len(variant.Fields) {
		return nil, &metadata.ArityMismatchError{
			Kind:     callKind,
			Pallet:   pallet,
			Name:     name,
			Expected: len(variant.Fields),
			Got:      len(fields),
		}
	}

	enc := scale.NewEncoder()
	_ = enc.WriteByte(p.Index)
	_ = enc.WriteByte(variant.Index)
	for i, f := range variant.Fields {
		err = value.EncodeTo(enc, e.desc.Registry(), f.Type, fields[i])
		if err != nil {
			return nil, &metadata.ArityMismatchError{
				Kind:     callKind,
				Pallet:   pallet,
				Name:     name,
				Expected: len(variant.Fields),
				Got:      len(fields),
				Position: i,
				Err:      fmt.Errorf("field %s: %w", fieldName(f, i), err),
			}
		}
	}
	return enc.Bytes(), nil
}

// EncodeCall encodes c.
func (e *Encoder) EncodeCall(c Call) ([]byte, error) {
	return e.Encode(c.Pallet, c.Name, c.Fields...)
}

// Decode decodes a call payload. All of b must be consumed.
func (e *Encoder) Decode(b []byte) (Call, error) {
	d := scale.NewDecoder(b)
	c, err := e.DecodeFrom(d)
	if err != nil {
		return Call{}, err
	}
	if d.Len() != 0 {
		return Call{}, fmt.Errorf("%w: %d bytes after call %s.%s",
			scale.ErrTrailingBytes, d.Len(), c.Pallet, c.Name)
	}
	return c, nil
}

// DecodeFrom decodes a call from d.
func (e *Encoder) DecodeFrom(d *scale.Decoder) (Call, error) {
	palletIndex, err := d.ReadByte()
	if err != nil {
		return Call{}, err
	}
	callIndex, err := d.ReadByte()
	if err != nil {
		return Call{}, err
	}

	p, err := e.desc.PalletByIndex(palletIndex)
	if err != nil {
		return Call{}, err
	}
	var variant *metadata.Variant
	for i := range p.Calls {
		if p.Calls[i].Index == callIndex {
			variant = &p.Calls[i]
			break
		}
	}
	if variant == nil {
		return Call{}, &metadata.NotFoundError{
			Kind:   callKind,
			Pallet: p.Name,
			Name:   fmt.Sprintf("#%d", callIndex),
		}
	}

	c := Call{Pallet: p.Name, Name: variant.Name, Fields: make([]value.Value, len(variant.Fields))}
	for i, f := range variant.Fields {
		c.Fields[i], err = value.Decode(e.desc.Registry(), f.Type, d)
		if err != nil {
			return Call{}, fmt.Errorf("decoding call %s.%s field %s: %w",
				p.Name, variant.Name, fieldName(f, i), err)
		}
	}
	return c, nil
}

func fieldName(f metadata.Field, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprint(i)
}
