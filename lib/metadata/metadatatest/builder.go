// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package metadatatest builds SCALE encoded V14 and V15 metadata blobs
// for tests.
package metadatatest

import (
	"sort"

	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

// Storage describes a storage entry. A nil Key makes it a plain entry.
type Storage struct {
	Name     string
	Modifier metadata.Modifier
	Hashers  []metadata.Hasher
	Key      *metadata.TypeID
	Value    metadata.TypeID
	Default  []byte
	Docs     []string
}

// Constant describes a pallet constant.
type Constant struct {
	Name  string
	Type  metadata.TypeID
	Value []byte
	Docs  []string
}

// Pallet describes a pallet. StoragePrefix defaults to Name.
type Pallet struct {
	Name          string
	Index         uint8
	StoragePrefix string
	Storage       []Storage
	Calls         *metadata.TypeID
	Events        *metadata.TypeID
	Constants     []Constant
	Errors        *metadata.TypeID
	Docs          []string
}

// Method describes a runtime API method.
type Method struct {
	Name   string
	Inputs []metadata.RuntimeAPIParam
	Output metadata.TypeID
	Docs   []string
}

// API describes a runtime API.
type API struct {
	Name    string
	Methods []Method
	Docs    []string
}

// Builder accumulates types, pallets and runtime APIs and encodes them
// as a metadata blob.
type Builder struct {
	Version uint8
	Pallets []Pallet
	APIs    []API
	Custom  map[string]metadata.CustomValue

	types      []metadata.Type
	primitives map[metadata.Primitive]metadata.TypeID
	unit       *metadata.TypeID
}

// New returns an empty builder for the given metadata version.
func New(version uint8) *Builder {
	return &Builder{
		Version:    version,
		primitives: make(map[metadata.Primitive]metadata.TypeID),
	}
}

// Ptr returns a pointer to id.
func Ptr(id metadata.TypeID) *metadata.TypeID { return &id }

// F returns a named field.
func F(name string, ty metadata.TypeID) metadata.Field {
	return metadata.Field{Name: name, Type: ty}
}

// V returns a variant.
func V(name string, index uint8, fields ...metadata.Field) metadata.Variant {
	return metadata.Variant{Name: name, Index: index, Fields: fields}
}

func (b *Builder) add(path []string, def metadata.TypeDef) metadata.TypeID {
	id := metadata.TypeID(len(b.types))
	b.types = append(b.types, metadata.Type{ID: id, Path: path, Def: def})
	return id
}

// Reserve adds a placeholder type to be set later with Define, which
// allows building recursive types.
func (b *Builder) Reserve() metadata.TypeID {
	return b.add(nil, metadata.TypeDef{Kind: metadata.KindTuple})
}

// Define sets the path and definition of a reserved type.
func (b *Builder) Define(id metadata.TypeID, path []string, def metadata.TypeDef) {
	b.types[id].Path = path
	b.types[id].Def = def
}

// SetDocs sets the documentation of a type.
func (b *Builder) SetDocs(id metadata.TypeID, docs ...string) {
	b.types[id].Docs = docs
}

// Types returns a copy of the types added so far.
func (b *Builder) Types() []metadata.Type {
	return append([]metadata.Type(nil), b.types...)
}

// Primitive returns the id of a primitive type, adding it once.
func (b *Builder) Primitive(p metadata.Primitive) metadata.TypeID {
	if id, ok := b.primitives[p]; ok {
		return id
	}
	id := b.add(nil, metadata.TypeDef{Kind: metadata.KindPrimitive, Primitive: p})
	b.primitives[p] = id
	return id
}

// Unit returns the id of the empty tuple.
func (b *Builder) Unit() metadata.TypeID {
	if b.unit == nil {
		id := b.Tuple()
		b.unit = &id
	}
	return *b.unit
}

// Composite adds a struct type.
func (b *Builder) Composite(path []string, fields ...metadata.Field) metadata.TypeID {
	return b.add(path, metadata.TypeDef{Kind: metadata.KindComposite, Fields: fields})
}

// Variant adds an enum type.
func (b *Builder) Variant(path []string, variants ...metadata.Variant) metadata.TypeID {
	return b.add(path, metadata.TypeDef{Kind: metadata.KindVariant, Variants: variants})
}

// Sequence adds a vector type.
func (b *Builder) Sequence(elem metadata.TypeID) metadata.TypeID {
	return b.add(nil, metadata.TypeDef{Kind: metadata.KindSequence, Elem: elem})
}

// Array adds a fixed length array type.
func (b *Builder) Array(length uint32, elem metadata.TypeID) metadata.TypeID {
	return b.add(nil, metadata.TypeDef{Kind: metadata.KindArray, Len: length, Elem: elem})
}

// Tuple adds a tuple type.
func (b *Builder) Tuple(elems ...metadata.TypeID) metadata.TypeID {
	return b.add(nil, metadata.TypeDef{Kind: metadata.KindTuple, Tuple: elems})
}

// Compact adds a compact wrapper type.
func (b *Builder) Compact(elem metadata.TypeID) metadata.TypeID {
	return b.add(nil, metadata.TypeDef{Kind: metadata.KindCompact, Elem: elem})
}

// BitSequence adds a bit vector type.
func (b *Builder) BitSequence(store, order metadata.TypeID) metadata.TypeID {
	return b.add(nil, metadata.TypeDef{Kind: metadata.KindBitSequence, BitStore: store, BitOrder: order})
}

// Build encodes the metadata blob.
func (b *Builder) Build() []byte {
	e := scale.NewEncoder()
	e.PutUint32(metadata.Magic)
	_ = e.WriteByte(b.Version)

	unit := b.Unit()

	e.PutCompactUint64(uint64(len(b.types)))
	for _, t := range b.types {
		encodeType(e, t)
	}

	e.PutCompactUint64(uint64(len(b.Pallets)))
	for _, p := range b.Pallets {
		b.encodePallet(e, p)
	}

	// extrinsic
	if b.Version == metadata.V14 {
		e.PutCompactUint64(uint64(unit))
		_ = e.WriteByte(4)
	} else {
		_ = e.WriteByte(4)
		for i := 0; i < 4; i++ {
			e.PutCompactUint64(uint64(unit))
		}
	}
	e.PutCompactUint64(1)
	e.PutString("CheckNonce")
	e.PutCompactUint64(uint64(unit))
	e.PutCompactUint64(uint64(unit))

	// runtime type
	e.PutCompactUint64(uint64(unit))

	if b.Version >= metadata.V15 {
		e.PutCompactUint64(uint64(len(b.APIs)))
		for _, api := range b.APIs {
			encodeAPI(e, api)
		}

		for i := 0; i < 3; i++ {
			e.PutCompactUint64(uint64(unit))
		}

		names := sortedKeys(b.Custom)
		e.PutCompactUint64(uint64(len(names)))
		for _, name := range names {
			e.PutString(name)
			e.PutCompactUint64(uint64(b.Custom[name].Type))
			e.PutBytes(b.Custom[name].Value)
		}
	}

	return e.Bytes()
}

func putStrings(e *scale.Encoder, ss []string) {
	e.PutCompactUint64(uint64(len(ss)))
	for _, s := range ss {
		e.PutString(s)
	}
}

func putOptionString(e *scale.Encoder, s string) {
	if s == "" {
		_ = e.WriteByte(0)
		return
	}
	_ = e.WriteByte(1)
	e.PutString(s)
}

func putOptionTypeID(e *scale.Encoder, id *metadata.TypeID) {
	if id == nil {
		_ = e.WriteByte(0)
		return
	}
	_ = e.WriteByte(1)
	e.PutCompactUint64(uint64(*id))
}

func encodeFields(e *scale.Encoder, fields []metadata.Field) {
	e.PutCompactUint64(uint64(len(fields)))
	for _, f := range fields {
		putOptionString(e, f.Name)
		e.PutCompactUint64(uint64(f.Type))
		putOptionString(e, f.TypeName)
		putStrings(e, f.Docs)
	}
}

func encodeType(e *scale.Encoder, t metadata.Type) {
	e.PutCompactUint64(uint64(t.ID))
	putStrings(e, t.Path)
	e.PutCompactUint64(uint64(len(t.Params)))
	for _, p := range t.Params {
		e.PutString(p.Name)
		putOptionTypeID(e, p.Type)
	}

	def := t.Def
	_ = e.WriteByte(byte(def.Kind))
	switch def.Kind {
	case metadata.KindComposite:
		encodeFields(e, def.Fields)
	case metadata.KindVariant:
		e.PutCompactUint64(uint64(len(def.Variants)))
		for _, v := range def.Variants {
			e.PutString(v.Name)
			encodeFields(e, v.Fields)
			_ = e.WriteByte(v.Index)
			putStrings(e, v.Docs)
		}
	case metadata.KindSequence, metadata.KindCompact:
		e.PutCompactUint64(uint64(def.Elem))
	case metadata.KindArray:
		e.PutUint32(def.Len)
		e.PutCompactUint64(uint64(def.Elem))
	case metadata.KindTuple:
		e.PutCompactUint64(uint64(len(def.Tuple)))
		for _, id := range def.Tuple {
			e.PutCompactUint64(uint64(id))
		}
	case metadata.KindPrimitive:
		_ = e.WriteByte(byte(def.Primitive))
	case metadata.KindBitSequence:
		e.PutCompactUint64(uint64(def.BitStore))
		e.PutCompactUint64(uint64(def.BitOrder))
	}

	putStrings(e, t.Docs)
}

func (b *Builder) encodePallet(e *scale.Encoder, p Pallet) {
	e.PutString(p.Name)

	if len(p.Storage) == 0 {
		_ = e.WriteByte(0)
	} else {
		_ = e.WriteByte(1)
		prefix := p.StoragePrefix
		if prefix == "" {
			prefix = p.Name
		}
		e.PutString(prefix)
		e.PutCompactUint64(uint64(len(p.Storage)))
		for _, s := range p.Storage {
			e.PutString(s.Name)
			_ = e.WriteByte(byte(s.Modifier))
			if s.Key == nil {
				_ = e.WriteByte(0)
				e.PutCompactUint64(uint64(s.Value))
			} else {
				_ = e.WriteByte(1)
				e.PutCompactUint64(uint64(len(s.Hashers)))
				for _, h := range s.Hashers {
					_ = e.WriteByte(byte(h))
				}
				e.PutCompactUint64(uint64(*s.Key))
				e.PutCompactUint64(uint64(s.Value))
			}
			e.PutBytes(s.Default)
			putStrings(e, s.Docs)
		}
	}

	putOptionTypeID(e, p.Calls)
	putOptionTypeID(e, p.Events)

	e.PutCompactUint64(uint64(len(p.Constants)))
	for _, c := range p.Constants {
		e.PutString(c.Name)
		e.PutCompactUint64(uint64(c.Type))
		e.PutBytes(c.Value)
		putStrings(e, c.Docs)
	}

	putOptionTypeID(e, p.Errors)
	_ = e.WriteByte(p.Index)

	if b.Version >= metadata.V15 {
		putStrings(e, p.Docs)
	}
}

func encodeAPI(e *scale.Encoder, api API) {
	e.PutString(api.Name)
	e.PutCompactUint64(uint64(len(api.Methods)))
	for _, m := range api.Methods {
		e.PutString(m.Name)
		e.PutCompactUint64(uint64(len(m.Inputs)))
		for _, in := range m.Inputs {
			e.PutString(in.Name)
			e.PutCompactUint64(uint64(in.Type))
		}
		e.PutCompactUint64(uint64(m.Output))
		putStrings(e, m.Docs)
	}
	putStrings(e, api.Docs)
}

func sortedKeys(m map[string]metadata.CustomValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pallet returns the pallet with the given name for modification,
// or nil if there is none.
func (b *Builder) Pallet(name string) *Pallet {
	for i := range b.Pallets {
		if b.Pallets[i].Name == name {
			return &b.Pallets[i]
		}
	}
	return nil
}

// Def returns the definition of a type.
func (b *Builder) Def(id metadata.TypeID) metadata.TypeDef {
	return b.types[id].Def
}
