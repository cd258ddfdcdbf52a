// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import "fmt"

// TypeID is the index of a type in the portable type registry.
type TypeID uint32

// TypeDefKind is the shape of a registry type.
type TypeDefKind uint8

const (
	// KindComposite is a struct or tuple struct.
	KindComposite TypeDefKind = iota
	// KindVariant is an enum.
	KindVariant
	// KindSequence is a compact length prefixed vector.
	KindSequence
	// KindArray is a fixed length array.
	KindArray
	// KindTuple is an anonymous tuple.
	KindTuple
	// KindPrimitive is a primitive type.
	KindPrimitive
	// KindCompact is a compact encoded integer wrapper.
	KindCompact
	// KindBitSequence is a bit vector.
	KindBitSequence
)

func (k TypeDefKind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindVariant:
		return "variant"
	case KindSequence:
		return "sequence"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindPrimitive:
		return "primitive"
	case KindCompact:
		return "compact"
	case KindBitSequence:
		return "bitsequence"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Primitive is a primitive type of the registry.
type Primitive uint8

const (
	Bool Primitive = iota
	Char
	Str
	U8
	U16
	U32
	U64
	U128
	U256
	I8
	I16
	I32
	I64
	I128
	I256
)

var primitiveNames = [...]string{
	"bool", "char", "str",
	"u8", "u16", "u32", "u64", "u128", "u256",
	"i8", "i16", "i32", "i64", "i128", "i256",
}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return fmt.Sprintf("primitive(%d)", uint8(p))
}

// Signed returns true for the signed integer primitives.
func (p Primitive) Signed() bool {
	return p >= I8 && p <= I256
}

// BitSize returns the bit width of integer primitives and 0 otherwise.
func (p Primitive) BitSize() int {
	switch p {
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32:
		return 32
	case U64, I64:
		return 64
	case U128, I128:
		return 128
	case U256, I256:
		return 256
	default:
		return 0
	}
}

// Field is a named or unnamed field of a composite or variant.
type Field struct {
	Name     string
	Type     TypeID
	TypeName string
	Docs     []string
}

// Variant is one variant of an enum type. Calls, events and
// errors of a pallet are the variants of their enum type.
type Variant struct {
	Name   string
	Index  uint8
	Fields []Field
	Docs   []string
}

// TypeParam is a generic parameter of a registry type.
type TypeParam struct {
	Name string
	Type *TypeID
}

// TypeDef is the definition of a registry type. Only the members
// relevant to Kind are set.
type TypeDef struct {
	Kind      TypeDefKind
	Fields    []Field
	Variants  []Variant
	Elem      TypeID
	Len       uint32
	Tuple     []TypeID
	Primitive Primitive
	BitStore  TypeID
	BitOrder  TypeID
}

// Type is an entry of the portable type registry.
type Type struct {
	ID     TypeID
	Path   []string
	Params []TypeParam
	Def    TypeDef
	Docs   []string
}

// Variant returns the variant with the given index.
func (t *Type) Variant(index uint8) (v *Variant, ok bool) {
	for i := range t.Def.Variants {
		if t.Def.Variants[i].Index == index {
			return &t.Def.Variants[i], true
		}
	}
	return nil, false
}

// VariantByName returns the variant with the given name.
func (t *Type) VariantByName(name string) (v *Variant, ok bool) {
	for i := range t.Def.Variants {
		if t.Def.Variants[i].Name == name {
			return &t.Def.Variants[i], true
		}
	}
	return nil, false
}

// PathString returns the :: joined path of the type.
func (t *Type) PathString() string {
	s := ""
	for i, segment := range t.Path {
		if i > 0 {
			s += "::"
		}
		s += segment
	}
	return s
}

// Registry is the portable type registry of a metadata blob.
// Type ids are positions in the registry.
type Registry struct {
	types []Type
}

// NewRegistry creates a registry from types whose ids match their positions.
func NewRegistry(types []Type) (*Registry, error) {
	for i, t := range types {
		if t.ID != TypeID(i) {
			return nil, fmt.Errorf("%w: type at position %d has id %d", ErrMetadataParse, i, t.ID)
		}
	}
	r := &Registry{types: types}
	err := r.validate()
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Len returns the number of types in the registry.
func (r *Registry) Len() int {
	return len(r.types)
}

// Type returns the type with the given id.
func (r *Registry) Type(id TypeID) (*Type, error) {
	if int(id) >= len(r.types) {
		return nil, &NotFoundError{Kind: "type", Name: fmt.Sprint(id)}
	}
	return &r.types[id], nil
}

// Resolve returns the type with the given id, following single field
// composites and one element tuples to the innermost type.
func (r *Registry) Resolve(id TypeID) (*Type, error) {
	for depth := 0; depth < len(r.types); depth++ {
		t, err := r.Type(id)
		if err != nil {
			return nil, err
		}
		switch {
		case t.Def.Kind == KindComposite && len(t.Def.Fields) == 1:
			id = t.Def.Fields[0].Type
		case t.Def.Kind == KindTuple && len(t.Def.Tuple) == 1:
			id = t.Def.Tuple[0]
		default:
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: type %d is an unbounded wrapper", ErrMetadataParse, id)
}

func (r *Registry) validate() error {
	check := func(owner TypeID, id TypeID) error {
		if int(id) >= len(r.types) {
			return fmt.Errorf("%w: type %d references dangling type id %d", ErrMetadataParse, owner, id)
		}
		return nil
	}

	for _, t := range r.types {
		var ids []TypeID
		for _, p := range t.Params {
			if p.Type != nil {
				ids = append(ids, *p.Type)
			}
		}
		def := t.Def
		switch def.Kind {
		case KindComposite:
			for _, f := range def.Fields {
				ids = append(ids, f.Type)
			}
		case KindVariant:
			seen := make(map[uint8]struct{}, len(def.Variants))
			for _, v := range def.Variants {
				if _, ok := seen[v.Index]; ok {
					return fmt.Errorf("%w: type %d has duplicate variant index %d", ErrMetadataParse, t.ID, v.Index)
				}
				seen[v.Index] = struct{}{}
				for _, f := range v.Fields {
					ids = append(ids, f.Type)
				}
			}
		case KindSequence, KindArray, KindCompact:
			ids = append(ids, def.Elem)
		case KindTuple:
			ids = append(ids, def.Tuple...)
		case KindBitSequence:
			ids = append(ids, def.BitStore, def.BitOrder)
		case KindPrimitive:
			if int(def.Primitive) >= len(primitiveNames) {
				return fmt.Errorf("%w: type %d has unknown primitive %d", ErrMetadataParse, t.ID, def.Primitive)
			}
		default:
			return fmt.Errorf("%w: type %d has unknown kind %d", ErrMetadataParse, t.ID, def.Kind)
		}

		for _, id := range ids {
			err := check(t.ID, id)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
