// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package compat

import (
	"errors"
	"sort"

	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/metadata"
)

// IsCompatible returns true if the compatibility hash of the selected
// pallets and runtime APIs of the live metadata equals expected.
// A selected name missing from the live metadata makes it incompatible.
func IsCompatible(live *metadata.Descriptor, pallets, apis []string, expected common.Hash) bool {
	hash, err := live.CompatibilityHash(pallets, apis)
	if err != nil {
		return false
	}
	return hash == expected
}

// Validator gates a client on the compatibility of live metadata with
// pinned expectations.
type Validator struct {
	exp      *metadata.Expectations
	expected common.Hash
}

// NewValidator returns a validator for the pinned expectations.
func NewValidator(exp *metadata.Expectations) (*Validator, error) {
	expected, err := exp.MetadataHash()
	if err != nil {
		return nil, err
	}
	return &Validator{exp: exp, expected: expected}, nil
}

// Validate returns a *metadata.HashMismatchError if the live metadata
// diverges from the pinned one for the selected pallets and runtime APIs,
// or a *metadata.NotFoundError if one of them is gone.
func (v *Validator) Validate(live *metadata.Descriptor) error {
	actual, err := live.CompatibilityHash(v.exp.Pallets, v.exp.RuntimeAPIs)
	if err != nil {
		return err
	}
	if actual != v.expected {
		return &metadata.HashMismatchError{
			Kind:     "metadata",
			Expected: v.expected,
			Actual:   actual,
		}
	}
	return nil
}

// DivergedCalls returns the sorted "Pallet.call" names of the pinned calls
// that are missing from the live metadata or whose validation hash changed.
func (v *Validator) DivergedCalls(live *metadata.Descriptor) ([]string, error) {
	var diverged []string
	for pallet, calls := range v.exp.Calls {
		for name := range calls {
			pinned, err := v.exp.CallHash(pallet, name)
			if err != nil {
				return nil, err
			}

			actual, err := live.CallHash(pallet, name)
			switch {
			case errors.Is(err, metadata.ErrLookupNotFound):
				diverged = append(diverged, pallet+"."+name)
			case err != nil:
				return nil, err
			case actual != pinned:
				diverged = append(diverged, pallet+"."+name)
			}
		}
	}
	sort.Strings(diverged)
	return diverged, nil
}
