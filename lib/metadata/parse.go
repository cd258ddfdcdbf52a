// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"errors"
	"fmt"

	"github.com/torus-network/torus-client-go/pkg/scale"
)

// Magic is the little endian u32 prefix "meta" of every metadata blob.
const Magic uint32 = 0x6174656d

var (
	ErrBadMagic           = errors.New("bad magic number")
	ErrUnsupportedVersion = errors.New("unsupported metadata version")
	ErrInvalidEnum        = errors.New("invalid enum discriminant")
	ErrDuplicatePallet    = errors.New("duplicate pallet")
	ErrWrongTypeKind      = errors.New("wrong type kind")
)

// Supported metadata versions.
const (
	V14 uint8 = 14
	V15 uint8 = 15
)

// Parse parses a SCALE encoded metadata blob. It never returns a
// partially populated descriptor: any malformed input, unsupported
// version or dangling reference gives a *ParseError.
func Parse(b []byte) (*Descriptor, error) {
	p := &parser{Decoder: scale.NewDecoder(b)}
	d, err := p.parse()
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr
		}
		return nil, &ParseError{Offset: p.Offset(), Err: err}
	}
	return d, nil
}

type parser struct {
	*scale.Decoder
	version uint8
}

func (p *parser) parse() (d *Descriptor, err error) {
	magic, err := p.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}

	p.version, err = p.ReadByte()
	if err != nil {
		return nil, err
	}
	if p.version != V14 && p.version != V15 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.version)
	}

	types, err := p.readTypes()
	if err != nil {
		return nil, fmt.Errorf("reading type registry: %w", err)
	}
	registry, err := NewRegistry(types)
	if err != nil {
		return nil, err
	}

	d = &Descriptor{
		version:  p.version,
		registry: registry,
	}

	d.pallets, err = p.readPallets()
	if err != nil {
		return nil, fmt.Errorf("reading pallets: %w", err)
	}

	d.extrinsic, err = p.readExtrinsic()
	if err != nil {
		return nil, fmt.Errorf("reading extrinsic: %w", err)
	}

	runtimeType, err := p.readTypeID()
	if err != nil {
		return nil, fmt.Errorf("reading runtime type: %w", err)
	}
	d.runtimeType = runtimeType

	if p.version >= V15 {
		d.apis, err = p.readRuntimeAPIs()
		if err != nil {
			return nil, fmt.Errorf("reading runtime apis: %w", err)
		}

		outer, err := p.readOuterEnums()
		if err != nil {
			return nil, fmt.Errorf("reading outer enums: %w", err)
		}
		d.outerEnums = &outer

		d.custom, err = p.readCustom()
		if err != nil {
			return nil, fmt.Errorf("reading custom metadata: %w", err)
		}
	}

	if p.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", scale.ErrTrailingBytes, p.Len())
	}

	err = d.link()
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *parser) readTypeID() (TypeID, error) {
	v, err := p.ReadCompactUint64()
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: type id %d", scale.ErrCompactOverflow, v)
	}
	return TypeID(v), nil
}

func (p *parser) readOptionTypeID() (*TypeID, error) {
	some, err := p.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	id, err := p.readTypeID()
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (p *parser) readOptionString() (string, error) {
	some, err := p.ReadOption()
	if err != nil || !some {
		return "", err
	}
	return p.ReadString()
}

func (p *parser) readStrings() ([]string, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = p.ReadString()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) readTypes() ([]Type, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	types := make([]Type, n)
	for i := range types {
		types[i], err = p.readType()
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
	}
	return types, nil
}

func (p *parser) readType() (t Type, err error) {
	t.ID, err = p.readTypeID()
	if err != nil {
		return t, err
	}

	t.Path, err = p.readStrings()
	if err != nil {
		return t, err
	}

	n, err := p.ReadLength(1)
	if err != nil {
		return t, err
	}
	for i := 0; i < n; i++ {
		var param TypeParam
		param.Name, err = p.ReadString()
		if err != nil {
			return t, err
		}
		param.Type, err = p.readOptionTypeID()
		if err != nil {
			return t, err
		}
		t.Params = append(t.Params, param)
	}

	t.Def, err = p.readTypeDef()
	if err != nil {
		return t, err
	}

	t.Docs, err = p.readStrings()
	return t, err
}

func (p *parser) readTypeDef() (def TypeDef, err error) {
	kind, err := p.ReadByte()
	if err != nil {
		return def, err
	}
	def.Kind = TypeDefKind(kind)

	switch def.Kind {
	case KindComposite:
		def.Fields, err = p.readFields()
	case KindVariant:
		def.Variants, err = p.readVariants()
	case KindSequence, KindCompact:
		def.Elem, err = p.readTypeID()
	case KindArray:
		def.Len, err = p.ReadUint32()
		if err != nil {
			return def, err
		}
		def.Elem, err = p.readTypeID()
	case KindTuple:
		var n int
		n, err = p.ReadLength(1)
		if err != nil {
			return def, err
		}
		def.Tuple = make([]TypeID, n)
		for i := range def.Tuple {
			def.Tuple[i], err = p.readTypeID()
			if err != nil {
				return def, err
			}
		}
	case KindPrimitive:
		var prim byte
		prim, err = p.ReadByte()
		def.Primitive = Primitive(prim)
	case KindBitSequence:
		def.BitStore, err = p.readTypeID()
		if err != nil {
			return def, err
		}
		def.BitOrder, err = p.readTypeID()
	default:
		return def, fmt.Errorf("%w: type definition %d", ErrInvalidEnum, kind)
	}
	return def, err
}

func (p *parser) readFields() ([]Field, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, n)
	for i := range fields {
		f := &fields[i]
		f.Name, err = p.readOptionString()
		if err != nil {
			return nil, err
		}
		f.Type, err = p.readTypeID()
		if err != nil {
			return nil, err
		}
		f.TypeName, err = p.readOptionString()
		if err != nil {
			return nil, err
		}
		f.Docs, err = p.readStrings()
		if err != nil {
			return nil, err
		}
	}
	return fields, nil
}

func (p *parser) readVariants() ([]Variant, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	variants := make([]Variant, n)
	for i := range variants {
		v := &variants[i]
		v.Name, err = p.ReadString()
		if err != nil {
			return nil, err
		}
		v.Fields, err = p.readFields()
		if err != nil {
			return nil, err
		}
		v.Index, err = p.ReadByte()
		if err != nil {
			return nil, err
		}
		v.Docs, err = p.readStrings()
		if err != nil {
			return nil, err
		}
	}
	return variants, nil
}

func (p *parser) readPallets() ([]*Pallet, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	pallets := make([]*Pallet, n)
	for i := range pallets {
		pallets[i], err = p.readPallet()
		if err != nil {
			return nil, fmt.Errorf("pallet %d: %w", i, err)
		}
	}
	return pallets, nil
}

func (p *parser) readPallet() (pallet *Pallet, err error) {
	pallet = new(Pallet)
	pallet.Name, err = p.ReadString()
	if err != nil {
		return nil, err
	}

	hasStorage, err := p.ReadOption()
	if err != nil {
		return nil, err
	}
	if hasStorage {
		pallet.StoragePrefix, err = p.ReadString()
		if err != nil {
			return nil, err
		}
		pallet.Storage, err = p.readStorageItems(pallet.Name, pallet.StoragePrefix)
		if err != nil {
			return nil, fmt.Errorf("storage of %s: %w", pallet.Name, err)
		}
	}

	pallet.CallType, err = p.readOptionTypeID()
	if err != nil {
		return nil, err
	}
	pallet.EventType, err = p.readOptionTypeID()
	if err != nil {
		return nil, err
	}

	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	pallet.Constants = make([]Constant, n)
	for i := range pallet.Constants {
		c := &pallet.Constants[i]
		c.Pallet = pallet.Name
		c.Name, err = p.ReadString()
		if err != nil {
			return nil, err
		}
		c.Type, err = p.readTypeID()
		if err != nil {
			return nil, err
		}
		c.Value, err = p.ReadBytes()
		if err != nil {
			return nil, err
		}
		c.Docs, err = p.readStrings()
		if err != nil {
			return nil, err
		}
	}

	pallet.ErrorType, err = p.readOptionTypeID()
	if err != nil {
		return nil, err
	}

	pallet.Index, err = p.ReadByte()
	if err != nil {
		return nil, err
	}

	if p.version >= V15 {
		pallet.Docs, err = p.readStrings()
		if err != nil {
			return nil, err
		}
	}
	return pallet, nil
}

func (p *parser) readStorageItems(palletName, prefix string) ([]StorageItem, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	items := make([]StorageItem, n)
	for i := range items {
		item := &items[i]
		item.Pallet = palletName
		item.Prefix = prefix

		item.Name, err = p.ReadString()
		if err != nil {
			return nil, err
		}

		modifier, err := p.ReadByte()
		if err != nil {
			return nil, err
		}
		if modifier > byte(Default) {
			return nil, fmt.Errorf("%w: storage modifier %d", ErrInvalidEnum, modifier)
		}
		item.Modifier = Modifier(modifier)

		entryType, err := p.ReadByte()
		if err != nil {
			return nil, err
		}
		switch entryType {
		case 0:
			item.Value, err = p.readTypeID()
			if err != nil {
				return nil, err
			}
		case 1:
			hashersLen, err := p.ReadLength(1)
			if err != nil {
				return nil, err
			}
			item.Hashers = make([]Hasher, hashersLen)
			for j := range item.Hashers {
				h, err := p.ReadByte()
				if err != nil {
					return nil, err
				}
				if h > byte(Identity) {
					return nil, fmt.Errorf("%w: storage hasher %d", ErrInvalidEnum, h)
				}
				item.Hashers[j] = Hasher(h)
			}
			key, err := p.readTypeID()
			if err != nil {
				return nil, err
			}
			item.KeyType = &key
			item.Value, err = p.readTypeID()
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: storage entry type %d", ErrInvalidEnum, entryType)
		}

		item.Default, err = p.ReadBytes()
		if err != nil {
			return nil, err
		}
		item.Docs, err = p.readStrings()
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (p *parser) readExtrinsic() (e Extrinsic, err error) {
	if p.version == V14 {
		ty, err := p.readTypeID()
		if err != nil {
			return e, err
		}
		e.Type = &ty
		e.Version, err = p.ReadByte()
		if err != nil {
			return e, err
		}
	} else {
		e.Version, err = p.ReadByte()
		if err != nil {
			return e, err
		}
		for _, dst := range []**TypeID{&e.AddressType, &e.CallType, &e.SignatureType, &e.ExtraType} {
			id, err := p.readTypeID()
			if err != nil {
				return e, err
			}
			*dst = &id
		}
	}

	n, err := p.ReadLength(1)
	if err != nil {
		return e, err
	}
	e.SignedExtensions = make([]SignedExtension, n)
	for i := range e.SignedExtensions {
		ext := &e.SignedExtensions[i]
		ext.Identifier, err = p.ReadString()
		if err != nil {
			return e, err
		}
		ext.Type, err = p.readTypeID()
		if err != nil {
			return e, err
		}
		ext.AdditionalSigned, err = p.readTypeID()
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

func (p *parser) readRuntimeAPIs() ([]*RuntimeAPI, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	apis := make([]*RuntimeAPI, n)
	for i := range apis {
		api := new(RuntimeAPI)
		api.Name, err = p.ReadString()
		if err != nil {
			return nil, err
		}

		methodsLen, err := p.ReadLength(1)
		if err != nil {
			return nil, err
		}
		api.Methods = make([]RuntimeAPIMethod, methodsLen)
		for j := range api.Methods {
			m := &api.Methods[j]
			m.Name, err = p.ReadString()
			if err != nil {
				return nil, err
			}
			inputsLen, err := p.ReadLength(1)
			if err != nil {
				return nil, err
			}
			m.Inputs = make([]RuntimeAPIParam, inputsLen)
			for k := range m.Inputs {
				m.Inputs[k].Name, err = p.ReadString()
				if err != nil {
					return nil, err
				}
				m.Inputs[k].Type, err = p.readTypeID()
				if err != nil {
					return nil, err
				}
			}
			m.Output, err = p.readTypeID()
			if err != nil {
				return nil, err
			}
			m.Docs, err = p.readStrings()
			if err != nil {
				return nil, err
			}
		}

		api.Docs, err = p.readStrings()
		if err != nil {
			return nil, err
		}
		apis[i] = api
	}
	return apis, nil
}

func (p *parser) readOuterEnums() (o OuterEnums, err error) {
	o.Call, err = p.readTypeID()
	if err != nil {
		return o, err
	}
	o.Event, err = p.readTypeID()
	if err != nil {
		return o, err
	}
	o.Error, err = p.readTypeID()
	return o, err
}

func (p *parser) readCustom() (map[string]CustomValue, error) {
	n, err := p.ReadLength(1)
	if err != nil {
		return nil, err
	}
	custom := make(map[string]CustomValue, n)
	for i := 0; i < n; i++ {
		name, err := p.ReadString()
		if err != nil {
			return nil, err
		}
		var v CustomValue
		v.Type, err = p.readTypeID()
		if err != nil {
			return nil, err
		}
		v.Value, err = p.ReadBytes()
		if err != nil {
			return nil, err
		}
		custom[name] = v
	}
	return custom, nil
}
