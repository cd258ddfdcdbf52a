// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"fmt"
	"io"
	"os"

	"github.com/naoina/toml"
	"github.com/torus-network/torus-client-go/lib/common"
)

// Expectations holds the hashes pinned from a known good metadata blob:
// the compatibility hash of the selected pallets and runtime APIs and the
// validation hash of every call of the selected pallets.
type Expectations struct {
	Metadata    string                       `toml:"metadata"`
	Pallets     []string                     `toml:"pallets"`
	RuntimeAPIs []string                     `toml:"runtime_apis"`
	Calls       map[string]map[string]string `toml:"calls"`
}

// Pin computes the expectations for the selected pallets and runtime
// APIs of the given descriptor.
func Pin(d *Descriptor, pallets, apis []string) (*Expectations, error) {
	compat, err := d.CompatibilityHash(pallets, apis)
	if err != nil {
		return nil, err
	}

	e := &Expectations{
		Metadata:    compat.String(),
		Pallets:     sortedUnique(pallets),
		RuntimeAPIs: sortedUnique(apis),
		Calls:       make(map[string]map[string]string),
	}

	for _, name := range e.Pallets {
		p, err := d.Pallet(name)
		if err != nil {
			return nil, err
		}
		if len(p.Calls) == 0 {
			continue
		}
		calls := make(map[string]string, len(p.Calls))
		for _, c := range p.Calls {
			hash, err := d.CallHash(name, c.Name)
			if err != nil {
				return nil, err
			}
			calls[c.Name] = hash.String()
		}
		e.Calls[name] = calls
	}
	return e, nil
}

// MetadataHash returns the pinned compatibility hash.
func (e *Expectations) MetadataHash() (common.Hash, error) {
	hash, err := common.HexToHash(e.Metadata)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pinned metadata hash: %w", err)
	}
	return hash, nil
}

// CallHash returns the pinned validation hash of a call.
func (e *Expectations) CallHash(pallet, name string) (common.Hash, error) {
	s, ok := e.Calls[pallet][name]
	if !ok {
		return common.Hash{}, &NotFoundError{Kind: "call hash", Pallet: pallet, Name: name}
	}
	hash, err := common.HexToHash(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pinned hash of call %s.%s: %w", pallet, name, err)
	}
	return hash, nil
}

// Write writes the expectations as TOML.
func (e *Expectations) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(e)
}

// ParseExpectations decodes TOML expectations and checks their hashes.
func ParseExpectations(b []byte) (*Expectations, error) {
	e := new(Expectations)
	err := toml.Unmarshal(b, e)
	if err != nil {
		return nil, fmt.Errorf("decoding expectations: %w", err)
	}

	_, err = e.MetadataHash()
	if err != nil {
		return nil, err
	}
	for pallet, calls := range e.Calls {
		for name := range calls {
			_, err = e.CallHash(pallet, name)
			if err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

// LoadExpectations reads expectations from a TOML file.
func LoadExpectations(path string) (*Expectations, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading expectations: %w", err)
	}
	return ParseExpectations(b)
}
