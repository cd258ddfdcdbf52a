// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import "fmt"

// Modifier tells what a storage query returns for a missing value.
type Modifier uint8

const (
	// Optional items return nothing when absent.
	Optional Modifier = iota
	// Default items return their declared default when absent.
	Default
)

func (m Modifier) String() string {
	switch m {
	case Optional:
		return "Optional"
	case Default:
		return "Default"
	default:
		return fmt.Sprintf("Modifier(%d)", uint8(m))
	}
}

// Hasher is the hasher applied to a storage map key part.
type Hasher uint8

const (
	Blake2_128 Hasher = iota //nolint:revive,stylecheck
	Blake2_256               //nolint:revive,stylecheck
	Blake2_128Concat         //nolint:revive,stylecheck
	Twox128
	Twox256
	Twox64Concat
	Identity
)

var hasherNames = [...]string{
	"Blake2_128", "Blake2_256", "Blake2_128Concat",
	"Twox128", "Twox256", "Twox64Concat", "Identity",
}

func (h Hasher) String() string {
	if int(h) < len(hasherNames) {
		return hasherNames[h]
	}
	return fmt.Sprintf("Hasher(%d)", uint8(h))
}

// Recoverable returns true if the key part can be read back from
// the hashed output, which is the case for the concat hashers and Identity.
func (h Hasher) Recoverable() bool {
	switch h {
	case Blake2_128Concat, Twox64Concat, Identity:
		return true
	default:
		return false
	}
}

// HashLen returns the number of hash bytes the hasher outputs before
// any concatenated key bytes.
func (h Hasher) HashLen() int {
	switch h {
	case Blake2_128, Blake2_128Concat, Twox128:
		return 16
	case Blake2_256, Twox256:
		return 32
	case Twox64Concat:
		return 8
	default:
		return 0
	}
}

// StorageItem describes a storage entry of a pallet.
// Hashers and KeyTypes have one entry per key part.
type StorageItem struct {
	Pallet   string
	Prefix   string
	Name     string
	Modifier Modifier
	Hashers  []Hasher
	KeyType  *TypeID
	KeyTypes []TypeID
	Value    TypeID
	Default  []byte
	Docs     []string
}

// Arity returns the number of key parts of a full key.
func (s *StorageItem) Arity() int {
	return len(s.Hashers)
}

// Constant is a pallet constant with its encoded value.
type Constant struct {
	Pallet string
	Name   string
	Type   TypeID
	Value  []byte
	Docs   []string
}

// Pallet describes one pallet of the runtime.
type Pallet struct {
	Name          string
	Index         uint8
	StoragePrefix string
	Storage       []StorageItem
	CallType      *TypeID
	Calls         []Variant
	EventType     *TypeID
	Events        []Variant
	Constants     []Constant
	ErrorType     *TypeID
	Errors        []Variant
	Docs          []string

	storageByName   map[string]int
	callsByName     map[string]int
	eventsByIndex   map[uint8]int
	eventsByName    map[string]int
	constantsByName map[string]int
}

func (p *Pallet) buildIndexes() error {
	p.storageByName = make(map[string]int, len(p.Storage))
	for i, item := range p.Storage {
		if _, ok := p.storageByName[item.Name]; ok {
			return fmt.Errorf("%w: duplicate storage item %s.%s", ErrMetadataParse, p.Name, item.Name)
		}
		p.storageByName[item.Name] = i
	}

	p.callsByName = make(map[string]int, len(p.Calls))
	for i, c := range p.Calls {
		if _, ok := p.callsByName[c.Name]; ok {
			return fmt.Errorf("%w: duplicate call %s.%s", ErrMetadataParse, p.Name, c.Name)
		}
		p.callsByName[c.Name] = i
	}

	p.eventsByIndex = make(map[uint8]int, len(p.Events))
	p.eventsByName = make(map[string]int, len(p.Events))
	for i, e := range p.Events {
		if _, ok := p.eventsByName[e.Name]; ok {
			return fmt.Errorf("%w: duplicate event %s.%s", ErrMetadataParse, p.Name, e.Name)
		}
		p.eventsByIndex[e.Index] = i
		p.eventsByName[e.Name] = i
	}

	p.constantsByName = make(map[string]int, len(p.Constants))
	for i, c := range p.Constants {
		if _, ok := p.constantsByName[c.Name]; ok {
			return fmt.Errorf("%w: duplicate constant %s.%s", ErrMetadataParse, p.Name, c.Name)
		}
		p.constantsByName[c.Name] = i
	}
	return nil
}

// RuntimeAPIParam is a named input of a runtime API method.
type RuntimeAPIParam struct {
	Name string
	Type TypeID
}

// RuntimeAPIMethod is a method of a runtime API.
type RuntimeAPIMethod struct {
	Name   string
	Inputs []RuntimeAPIParam
	Output TypeID
	Docs   []string
}

// RuntimeAPI is a runtime API trait exposed by the runtime. Only V15
// metadata carries runtime APIs.
type RuntimeAPI struct {
	Name    string
	Methods []RuntimeAPIMethod
	Docs    []string
}

// Method returns the method with the given name.
func (a *RuntimeAPI) Method(name string) (*RuntimeAPIMethod, error) {
	for i := range a.Methods {
		if a.Methods[i].Name == name {
			return &a.Methods[i], nil
		}
	}
	return nil, &NotFoundError{Kind: "runtime api method", Pallet: a.Name, Name: name}
}

// SignedExtension is a transaction extension declared by the runtime.
type SignedExtension struct {
	Identifier       string
	Type             TypeID
	AdditionalSigned TypeID
}

// Extrinsic describes the extrinsic format. V14 metadata sets Type,
// V15 sets the address, call, signature and extra types instead.
type Extrinsic struct {
	Version          uint8
	Type             *TypeID
	AddressType      *TypeID
	CallType         *TypeID
	SignatureType    *TypeID
	ExtraType        *TypeID
	SignedExtensions []SignedExtension
}

// OuterEnums holds the aggregated runtime call, event and error types.
type OuterEnums struct {
	Call  TypeID
	Event TypeID
	Error TypeID
}

// CustomValue is an entry of the V15 custom metadata map.
type CustomValue struct {
	Type  TypeID
	Value []byte
}
