// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package value

import (
	"fmt"
	"math/big"

	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

const maxDepth = 256

// Encode encodes v as the registry type id.
func Encode(registry *metadata.Registry, id metadata.TypeID, v Value) ([]byte, error) {
	e := scale.NewEncoder()
	err := EncodeTo(e, registry, id, v)
	if err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeTo appends the encoding of v as the registry type id to e.
// Nothing is written if an error is returned.
func EncodeTo(e *scale.Encoder, registry *metadata.Registry, id metadata.TypeID, v Value) error {
	es := encodeState{Encoder: scale.NewEncoder(), registry: registry}
	err := es.encode(id, v, 0)
	if err != nil {
		return err
	}
	_, _ = e.Write(es.Bytes())
	return nil
}

type encodeState struct {
	*scale.Encoder
	registry *metadata.Registry
}

func mismatch(t *metadata.Type, v Value) error {
	return fmt.Errorf("%w: %s for %s type %d", ErrTypeMismatch, v.Kind, t.Def.Kind, t.ID)
}

func (es *encodeState) encode(id metadata.TypeID, v Value, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}

	t, err := es.registry.Type(id)
	if err != nil {
		return err
	}

	if v.Kind == KindRaw {
		_, err = DecodeBytes(es.registry, id, v.bytes)
		if err != nil {
			return fmt.Errorf("raw value for type %d: %w", id, err)
		}
		_, _ = es.Write(v.bytes)
		return nil
	}

	def := t.Def
	switch def.Kind {
	case metadata.KindComposite:
		return es.encodeComposite(t, def.Fields, v, depth)
	case metadata.KindVariant:
		return es.encodeVariant(t, v, depth)
	case metadata.KindSequence:
		return es.encodeSequence(t, v, depth)
	case metadata.KindArray:
		return es.encodeArray(t, v, depth)
	case metadata.KindTuple:
		fields := make([]metadata.Field, len(def.Tuple))
		for i, elem := range def.Tuple {
			fields[i] = metadata.Field{Type: elem}
		}
		return es.encodeComposite(t, fields, v, depth)
	case metadata.KindPrimitive:
		return es.encodePrimitive(t, v)
	case metadata.KindCompact:
		return es.encodeCompact(t, v)
	case metadata.KindBitSequence:
		return es.encodeBitSequence(t, v)
	}
	return mismatch(t, v)
}

// encodeComposite encodes struct and tuple types. A value for a single
// field type may be given without its wrapper.
func (es *encodeState) encodeComposite(t *metadata.Type, fields []metadata.Field, v Value, depth int) error {
	if len(fields) == 1 && (v.Kind != KindComposite || len(v.fields) != 1) {
		return es.encode(fields[0].Type, v, depth+1)
	}
	if v.Kind != KindComposite {
		return mismatch(t, v)
	}
	return es.encodeFields(t, fields, v.fields, depth)
}

func (es *encodeState) encodeFields(t *metadata.Type, fields []metadata.Field, values []Field, depth int) error {
	if len(values) != len(fields) {
		return fmt.Errorf("%w: %d fields for type %d with %d fields",
			ErrTypeMismatch, len(values), t.ID, len(fields))
	}

	byName := len(values) > 0 && values[0].Name != ""
	for i, f := range fields {
		fieldValue := values[i]
		if byName && f.Name != "" {
			found := false
			for _, candidate := range values {
				if candidate.Name == f.Name {
					fieldValue = candidate
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: missing field %q of type %d", ErrTypeMismatch, f.Name, t.ID)
			}
		}
		err := es.encode(f.Type, fieldValue.Value, depth+1)
		if err != nil {
			if f.Name != "" {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	return nil
}

func (es *encodeState) encodeVariant(t *metadata.Type, v Value, depth int) error {
	if v.Kind != KindVariant {
		return mismatch(t, v)
	}
	variant, ok := t.VariantByName(v.name)
	if !ok {
		return fmt.Errorf("%w: type %d has no variant %q", ErrTypeMismatch, t.ID, v.name)
	}
	_ = es.WriteByte(variant.Index)
	err := es.encodeFields(t, variant.Fields, v.fields, depth)
	if err != nil {
		return fmt.Errorf("variant %s: %w", variant.Name, err)
	}
	return nil
}

func (es *encodeState) isByte(id metadata.TypeID) bool {
	t, err := es.registry.Type(id)
	return err == nil && t.Def.Kind == metadata.KindPrimitive && t.Def.Primitive == metadata.U8
}

func (es *encodeState) encodeSequence(t *metadata.Type, v Value, depth int) error {
	switch {
	case v.Kind == KindBytes && es.isByte(t.Def.Elem):
		es.PutBytes(v.bytes)
		return nil
	case v.Kind == KindSequence:
		es.PutCompactUint64(uint64(len(v.items)))
		for i, item := range v.items {
			err := es.encode(t.Def.Elem, item, depth+1)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	}
	return mismatch(t, v)
}

func (es *encodeState) encodeArray(t *metadata.Type, v Value, depth int) error {
	switch {
	case v.Kind == KindBytes && es.isByte(t.Def.Elem):
		if len(v.bytes) != int(t.Def.Len) {
			return fmt.Errorf("%w: %d bytes for array of %d", ErrTypeMismatch, len(v.bytes), t.Def.Len)
		}
		_, _ = es.Write(v.bytes)
		return nil
	case v.Kind == KindSequence:
		if len(v.items) != int(t.Def.Len) {
			return fmt.Errorf("%w: %d items for array of %d", ErrTypeMismatch, len(v.items), t.Def.Len)
		}
		for i, item := range v.items {
			err := es.encode(t.Def.Elem, item, depth+1)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	}
	return mismatch(t, v)
}

func (es *encodeState) encodePrimitive(t *metadata.Type, v Value) error {
	p := t.Def.Primitive
	switch p {
	case metadata.Bool:
		if v.Kind != KindBool {
			return mismatch(t, v)
		}
		es.PutBool(v.bool)
		return nil
	case metadata.Char:
		if v.Kind != KindChar {
			return mismatch(t, v)
		}
		es.PutUint32(uint32(v.char))
		return nil
	case metadata.Str:
		if v.Kind != KindString {
			return mismatch(t, v)
		}
		es.PutString(v.str)
		return nil
	}

	if v.Kind != KindUint && v.Kind != KindInt {
		return mismatch(t, v)
	}
	b, err := fixedWidth(v.integer, p)
	if err != nil {
		return err
	}
	_, _ = es.Write(b)
	return nil
}

// fixedWidth returns the little endian two's complement encoding of i
// for an integer primitive, checking its range.
func fixedWidth(i *big.Int, p metadata.Primitive) ([]byte, error) {
	bits := p.BitSize()
	if bits == 0 {
		return nil, fmt.Errorf("%w: %s is not an integer", ErrTypeMismatch, p)
	}

	var lo, hi *big.Int
	if p.Signed() {
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	} else {
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
		lo = new(big.Int)
	}
	if i.Cmp(lo) < 0 || i.Cmp(hi) > 0 {
		return nil, fmt.Errorf("%w: %s for %s", ErrOutOfRange, i, p)
	}

	u := new(big.Int).Set(i)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}

	size := bits / 8
	be := u.FillBytes(make([]byte, size))
	le := make([]byte, size)
	for j := range be {
		le[size-1-j] = be[j]
	}
	return le, nil
}

// compactTarget resolves the primitive wrapped by a compact type,
// following single field composites.
func (es *encodeState) compactTarget(t *metadata.Type) (metadata.Primitive, error) {
	inner, err := es.registry.Resolve(t.Def.Elem)
	if err != nil {
		return 0, err
	}
	switch {
	case inner.Def.Kind == metadata.KindPrimitive && !inner.Def.Primitive.Signed() && inner.Def.Primitive.BitSize() > 0:
		return inner.Def.Primitive, nil
	case inner.Def.Kind == metadata.KindTuple && len(inner.Def.Tuple) == 0,
		inner.Def.Kind == metadata.KindComposite && len(inner.Def.Fields) == 0:
		// Compact<()> only ever holds zero.
		return metadata.U8, nil
	}
	return 0, fmt.Errorf("%w: compact of %s type %d", ErrTypeMismatch, inner.Def.Kind, inner.ID)
}

func (es *encodeState) encodeCompact(t *metadata.Type, v Value) error {
	p, err := es.compactTarget(t)
	if err != nil {
		return err
	}
	if v.Kind != KindUint && v.Kind != KindInt {
		return mismatch(t, v)
	}
	if _, err := fixedWidth(v.integer, p); err != nil {
		return err
	}
	return es.PutCompact(v.integer)
}

func (es *encodeState) bitLayout(t *metadata.Type) (wordBits int, msb0 bool, err error) {
	store, err := es.registry.Type(t.Def.BitStore)
	if err != nil {
		return 0, false, err
	}
	if store.Def.Kind != metadata.KindPrimitive || store.Def.Primitive.Signed() ||
		store.Def.Primitive.BitSize() == 0 || store.Def.Primitive.BitSize() > 64 {
		return 0, false, fmt.Errorf("%w: bit store type %d", ErrTypeMismatch, store.ID)
	}

	order, err := es.registry.Type(t.Def.BitOrder)
	if err != nil {
		return 0, false, err
	}
	msb0 = len(order.Path) > 0 && order.Path[len(order.Path)-1] == "Msb0"
	return store.Def.Primitive.BitSize(), msb0, nil
}

func (es *encodeState) encodeBitSequence(t *metadata.Type, v Value) error {
	if v.Kind != KindBitSequence {
		return mismatch(t, v)
	}
	wordBits, msb0, err := es.bitLayout(t)
	if err != nil {
		return err
	}

	es.PutCompactUint64(uint64(len(v.bits)))
	words := (len(v.bits) + wordBits - 1) / wordBits
	for w := 0; w < words; w++ {
		var word uint64
		for b := 0; b < wordBits; b++ {
			i := w*wordBits + b
			if i >= len(v.bits) || !v.bits[i] {
				continue
			}
			if msb0 {
				word |= 1 << uint(wordBits-1-b)
			} else {
				word |= 1 << uint(b)
			}
		}
		for k := 0; k < wordBits/8; k++ {
			_ = es.WriteByte(byte(word >> (8 * k)))
		}
	}
	return nil
}
