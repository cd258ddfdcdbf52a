// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"fmt"

	"github.com/torus-network/torus-client-go/lib/common"
)

// Descriptor is the parsed runtime metadata. It is immutable once
// returned by Parse and safe for concurrent use.
type Descriptor struct {
	version     uint8
	registry    *Registry
	pallets     []*Pallet
	extrinsic   Extrinsic
	runtimeType TypeID
	apis        []*RuntimeAPI
	outerEnums  *OuterEnums
	custom      map[string]CustomValue

	palletsByName  map[string]*Pallet
	palletsByIndex map[uint8]*Pallet
	apisByName     map[string]*RuntimeAPI

	callHashes map[string]map[string]common.Hash
}

// link resolves pallet enums against the registry, builds the lookup
// indexes and computes the call hashes.
func (d *Descriptor) link() (err error) {
	d.palletsByName = make(map[string]*Pallet, len(d.pallets))
	d.palletsByIndex = make(map[uint8]*Pallet, len(d.pallets))
	for _, p := range d.pallets {
		if _, ok := d.palletsByName[p.Name]; ok {
			return fmt.Errorf("%w: name %s", ErrDuplicatePallet, p.Name)
		}
		if other, ok := d.palletsByIndex[p.Index]; ok {
			return fmt.Errorf("%w: index %d used by %s and %s", ErrDuplicatePallet, p.Index, other.Name, p.Name)
		}
		d.palletsByName[p.Name] = p
		d.palletsByIndex[p.Index] = p

		p.Calls, err = d.enumVariants(p.CallType)
		if err != nil {
			return fmt.Errorf("calls of %s: %w", p.Name, err)
		}
		p.Events, err = d.enumVariants(p.EventType)
		if err != nil {
			return fmt.Errorf("events of %s: %w", p.Name, err)
		}
		p.Errors, err = d.enumVariants(p.ErrorType)
		if err != nil {
			return fmt.Errorf("errors of %s: %w", p.Name, err)
		}

		for i := range p.Storage {
			err = d.linkStorageItem(&p.Storage[i])
			if err != nil {
				return err
			}
		}
		for _, c := range p.Constants {
			if _, err := d.registry.Type(c.Type); err != nil {
				return fmt.Errorf("%w: constant %s.%s: %s", ErrMetadataParse, p.Name, c.Name, err)
			}
		}

		err = p.buildIndexes()
		if err != nil {
			return err
		}
	}

	d.apisByName = make(map[string]*RuntimeAPI, len(d.apis))
	for _, api := range d.apis {
		if _, ok := d.apisByName[api.Name]; ok {
			return fmt.Errorf("%w: duplicate runtime api %s", ErrMetadataParse, api.Name)
		}
		for _, m := range api.Methods {
			for _, in := range m.Inputs {
				if _, err := d.registry.Type(in.Type); err != nil {
					return fmt.Errorf("%w: runtime api %s.%s: %s", ErrMetadataParse, api.Name, m.Name, err)
				}
			}
			if _, err := d.registry.Type(m.Output); err != nil {
				return fmt.Errorf("%w: runtime api %s.%s: %s", ErrMetadataParse, api.Name, m.Name, err)
			}
		}
		d.apisByName[api.Name] = api
	}

	d.callHashes, err = computeCallHashes(d)
	return err
}

func (d *Descriptor) enumVariants(id *TypeID) ([]Variant, error) {
	if id == nil {
		return nil, nil
	}
	t, err := d.registry.Type(*id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataParse, err)
	}
	if t.Def.Kind != KindVariant {
		return nil, fmt.Errorf("%w: type %d is a %s, expected variant", ErrWrongTypeKind, *id, t.Def.Kind)
	}
	return t.Def.Variants, nil
}

func (d *Descriptor) linkStorageItem(item *StorageItem) error {
	if _, err := d.registry.Type(item.Value); err != nil {
		return fmt.Errorf("%w: storage %s.%s: %s", ErrMetadataParse, item.Pallet, item.Name, err)
	}
	if item.KeyType == nil {
		return nil
	}

	key, err := d.registry.Type(*item.KeyType)
	if err != nil {
		return fmt.Errorf("%w: storage %s.%s: %s", ErrMetadataParse, item.Pallet, item.Name, err)
	}

	switch {
	case len(item.Hashers) == 1:
		item.KeyTypes = []TypeID{*item.KeyType}
	case key.Def.Kind == KindTuple && len(key.Def.Tuple) == len(item.Hashers):
		item.KeyTypes = append([]TypeID(nil), key.Def.Tuple...)
	default:
		return fmt.Errorf("%w: storage %s.%s has %d hashers for key type %d",
			ErrMetadataParse, item.Pallet, item.Name, len(item.Hashers), *item.KeyType)
	}
	return nil
}

// Version returns the metadata version, 14 or 15.
func (d *Descriptor) Version() uint8 { return d.version }

// Registry returns the portable type registry.
func (d *Descriptor) Registry() *Registry { return d.registry }

// Extrinsic returns the extrinsic format description.
func (d *Descriptor) Extrinsic() Extrinsic { return d.extrinsic }

// RuntimeType returns the type id of the runtime.
func (d *Descriptor) RuntimeType() TypeID { return d.runtimeType }

// OuterEnums returns the outer enums of V15 metadata and false for V14.
func (d *Descriptor) OuterEnums() (OuterEnums, bool) {
	if d.outerEnums == nil {
		return OuterEnums{}, false
	}
	return *d.outerEnums, true
}

// Custom returns the V15 custom metadata value for the given name.
func (d *Descriptor) Custom(name string) (CustomValue, error) {
	v, ok := d.custom[name]
	if !ok {
		return CustomValue{}, &NotFoundError{Kind: "custom value", Name: name}
	}
	return v, nil
}

// Pallets returns the pallets in metadata order.
func (d *Descriptor) Pallets() []*Pallet {
	return append([]*Pallet(nil), d.pallets...)
}

// RuntimeAPIs returns the runtime APIs in metadata order.
func (d *Descriptor) RuntimeAPIs() []*RuntimeAPI {
	return append([]*RuntimeAPI(nil), d.apis...)
}

// Pallet returns the pallet with the given name.
func (d *Descriptor) Pallet(name string) (*Pallet, error) {
	p, ok := d.palletsByName[name]
	if !ok {
		return nil, &NotFoundError{Kind: "pallet", Name: name}
	}
	return p, nil
}

// PalletByIndex returns the pallet with the given dispatch index.
func (d *Descriptor) PalletByIndex(index uint8) (*Pallet, error) {
	p, ok := d.palletsByIndex[index]
	if !ok {
		return nil, &NotFoundError{Kind: "pallet", Name: fmt.Sprintf("#%d", index)}
	}
	return p, nil
}

// StorageItem returns a storage item of a pallet.
func (d *Descriptor) StorageItem(pallet, item string) (*StorageItem, error) {
	p, err := d.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	i, ok := p.storageByName[item]
	if !ok {
		return nil, &NotFoundError{Kind: "storage item", Pallet: pallet, Name: item}
	}
	return &p.Storage[i], nil
}

// Call returns the pallet together with the call variant.
func (d *Descriptor) Call(pallet, name string) (*Pallet, *Variant, error) {
	p, err := d.Pallet(pallet)
	if err != nil {
		return nil, nil, err
	}
	i, ok := p.callsByName[name]
	if !ok {
		return nil, nil, &NotFoundError{Kind: "call", Pallet: pallet, Name: name}
	}
	return p, &p.Calls[i], nil
}

// Event returns the event variant with the given index of a pallet.
func (d *Descriptor) Event(pallet string, index uint8) (*Variant, error) {
	p, err := d.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	i, ok := p.eventsByIndex[index]
	if !ok {
		return nil, &NotFoundError{Kind: "event", Pallet: pallet, Name: fmt.Sprintf("#%d", index)}
	}
	return &p.Events[i], nil
}

// EventByName returns the event variant with the given name of a pallet.
func (d *Descriptor) EventByName(pallet, name string) (*Variant, error) {
	p, err := d.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	i, ok := p.eventsByName[name]
	if !ok {
		return nil, &NotFoundError{Kind: "event", Pallet: pallet, Name: name}
	}
	return &p.Events[i], nil
}

// Constant returns a constant of a pallet.
func (d *Descriptor) Constant(pallet, name string) (*Constant, error) {
	p, err := d.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	i, ok := p.constantsByName[name]
	if !ok {
		return nil, &NotFoundError{Kind: "constant", Pallet: pallet, Name: name}
	}
	return &p.Constants[i], nil
}

// RuntimeAPI returns the runtime API with the given name.
func (d *Descriptor) RuntimeAPI(name string) (*RuntimeAPI, error) {
	api, ok := d.apisByName[name]
	if !ok {
		return nil, &NotFoundError{Kind: "runtime api", Name: name}
	}
	return api, nil
}
