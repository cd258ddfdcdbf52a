// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package value

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

// DecodeBytes decodes b as the registry type id. All of b must be consumed.
func DecodeBytes(registry *metadata.Registry, id metadata.TypeID, b []byte) (Value, error) {
	d := scale.NewDecoder(b)
	v, err := Decode(registry, id, d)
	if err != nil {
		return Value{}, err
	}
	if d.Len() != 0 {
		return Value{}, fmt.Errorf("%w: %d bytes after type %d", scale.ErrTrailingBytes, d.Len(), id)
	}
	return v, nil
}

// Decode decodes a value of the registry type id from d.
//
// Sequences and arrays of u8 decode to bytes, tuples to composites with
// unnamed fields and compact integers to uints. Composites with a single
// unnamed field decode to the value of that field.
func Decode(registry *metadata.Registry, id metadata.TypeID, d *scale.Decoder) (Value, error) {
	ds := decodeState{Decoder: d, registry: registry}
	return ds.decode(id, 0)
}

type decodeState struct {
	*scale.Decoder
	registry *metadata.Registry
}

func (ds *decodeState) decode(id metadata.TypeID, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, ErrTooDeep
	}

	t, err := ds.registry.Type(id)
	if err != nil {
		return Value{}, err
	}

	def := t.Def
	switch def.Kind {
	case metadata.KindComposite:
		fields, err := ds.decodeFields(def.Fields, depth)
		if err != nil {
			return Value{}, err
		}
		if len(fields) == 1 && fields[0].Name == "" {
			return fields[0].Value, nil
		}
		return Value{Kind: KindComposite, fields: fields}, nil
	case metadata.KindVariant:
		index, err := ds.ReadByte()
		if err != nil {
			return Value{}, err
		}
		variant, ok := t.Variant(index)
		if !ok {
			return Value{}, fmt.Errorf("%w: type %d has no variant with index %d", ErrTypeMismatch, id, index)
		}
		fields, err := ds.decodeFields(variant.Fields, depth)
		if err != nil {
			return Value{}, fmt.Errorf("variant %s: %w", variant.Name, err)
		}
		return Value{Kind: KindVariant, name: variant.Name, index: index, fields: fields}, nil
	case metadata.KindSequence:
		if ds.isByte(def.Elem) {
			b, err := ds.ReadBytes()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindBytes, bytes: b}, nil
		}
		minElemSize := 1
		if ds.zeroSized(def.Elem, nil) {
			minElemSize = 0
		}
		n, err := ds.ReadLength(minElemSize)
		if err != nil {
			return Value{}, err
		}
		return ds.decodeItems(def.Elem, n, depth)
	case metadata.KindArray:
		if ds.isByte(def.Elem) {
			b, err := ds.ReadN(int(def.Len))
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindBytes, bytes: b}, nil
		}
		return ds.decodeItems(def.Elem, int(def.Len), depth)
	case metadata.KindTuple:
		fields := make([]Field, len(def.Tuple))
		for i, elem := range def.Tuple {
			fields[i].Value, err = ds.decode(elem, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("tuple item %d: %w", i, err)
			}
		}
		return Value{Kind: KindComposite, fields: fields}, nil
	case metadata.KindPrimitive:
		return ds.decodePrimitive(def.Primitive)
	case metadata.KindCompact:
		es := encodeState{registry: ds.registry}
		p, err := es.compactTarget(t)
		if err != nil {
			return Value{}, err
		}
		i, err := ds.ReadCompact()
		if err != nil {
			return Value{}, err
		}
		if i.BitLen() > p.BitSize() {
			return Value{}, fmt.Errorf("%w: compact %s for %s", ErrOutOfRange, i, p)
		}
		return Value{Kind: KindUint, integer: i}, nil
	case metadata.KindBitSequence:
		return ds.decodeBitSequence(t)
	}
	return Value{}, fmt.Errorf("%w: type %d of kind %s", ErrTypeMismatch, id, def.Kind)
}

func (ds *decodeState) isByte(id metadata.TypeID) bool {
	t, err := ds.registry.Type(id)
	return err == nil && t.Def.Kind == metadata.KindPrimitive && t.Def.Primitive == metadata.U8
}

// zeroSized reports whether values of the type encode to no bytes at all.
func (ds *decodeState) zeroSized(id metadata.TypeID, seen map[metadata.TypeID]bool) bool {
	if seen[id] {
		return false
	}
	t, err := ds.registry.Type(id)
	if err != nil {
		return false
	}
	if seen == nil {
		seen = make(map[metadata.TypeID]bool)
	}
	seen[id] = true
	defer delete(seen, id)

	def := t.Def
	switch def.Kind {
	case metadata.KindComposite:
		for _, f := range def.Fields {
			if !ds.zeroSized(f.Type, seen) {
				return false
			}
		}
		return true
	case metadata.KindTuple:
		for _, elem := range def.Tuple {
			if !ds.zeroSized(elem, seen) {
				return false
			}
		}
		return true
	case metadata.KindArray:
		return def.Len == 0 || ds.zeroSized(def.Elem, seen)
	default:
		return false
	}
}

func (ds *decodeState) decodeFields(fields []metadata.Field, depth int) ([]Field, error) {
	out := make([]Field, len(fields))
	for i, f := range fields {
		v, err := ds.decode(f.Type, depth+1)
		if err != nil {
			if f.Name != "" {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = Field{Name: f.Name, Value: v}
	}
	return out, nil
}

func (ds *decodeState) decodeItems(elem metadata.TypeID, n, depth int) (Value, error) {
	capacity := n
	if capacity > ds.Len() {
		capacity = ds.Len()
	}
	items := make([]Value, 0, capacity)
	for i := 0; i < n; i++ {
		item, err := ds.decode(elem, depth+1)
		if err != nil {
			return Value{}, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return Value{Kind: KindSequence, items: items}, nil
}

func (ds *decodeState) decodePrimitive(p metadata.Primitive) (Value, error) {
	switch p {
	case metadata.Bool:
		b, err := ds.ReadBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case metadata.Char:
		u, err := ds.ReadUint32()
		if err != nil {
			return Value{}, err
		}
		r := rune(u)
		if u > utf8.MaxRune || !utf8.ValidRune(r) {
			return Value{}, fmt.Errorf("%w: 0x%x", ErrInvalidChar, u)
		}
		return Char(r), nil
	case metadata.Str:
		s, err := ds.ReadString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	}

	size := p.BitSize() / 8
	if size == 0 {
		return Value{}, fmt.Errorf("%w: primitive %s", ErrTypeMismatch, p)
	}
	le, err := ds.ReadN(size)
	if err != nil {
		return Value{}, err
	}
	be := make([]byte, size)
	for i := range le {
		be[size-1-i] = le[i]
	}
	i := new(big.Int).SetBytes(be)

	if !p.Signed() {
		return Value{Kind: KindUint, integer: i}, nil
	}
	if i.Bit(p.BitSize()-1) == 1 {
		i.Sub(i, new(big.Int).Lsh(big.NewInt(1), uint(p.BitSize())))
	}
	return Value{Kind: KindInt, integer: i}, nil
}

func (ds *decodeState) decodeBitSequence(t *metadata.Type) (Value, error) {
	es := encodeState{registry: ds.registry}
	wordBits, msb0, err := es.bitLayout(t)
	if err != nil {
		return Value{}, err
	}

	n, err := ds.ReadCompactUint64()
	if err != nil {
		return Value{}, err
	}
	words := (n + uint64(wordBits) - 1) / uint64(wordBits)
	wordBytes := wordBits / 8
	if words*uint64(wordBytes) > uint64(ds.Len()) {
		return Value{}, fmt.Errorf("%d bits: %w", n, &scale.LengthError{Length: words, Remaining: ds.Len(), Truncated: true})
	}

	bits := make([]bool, 0, n)
	for w := uint64(0); w < words; w++ {
		raw, err := ds.ReadN(wordBytes)
		if err != nil {
			return Value{}, err
		}
		var word uint64
		for k, b := range raw {
			word |= uint64(b) << (8 * k)
		}
		for b := 0; b < wordBits && uint64(len(bits)) < n; b++ {
			shift := b
			if msb0 {
				shift = wordBits - 1 - b
			}
			bits = append(bits, word&(1<<uint(shift)) != 0)
		}
	}
	return Value{Kind: KindBitSequence, bits: bits}, nil
}
