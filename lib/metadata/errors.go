// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"errors"
	"fmt"

	"github.com/torus-network/torus-client-go/lib/common"
)

var (
	ErrMetadataParse  = errors.New("metadata parse error")
	ErrLookupNotFound = errors.New("not found")
	ErrArityMismatch  = errors.New("arity mismatch")
	ErrHashMismatch   = errors.New("hash mismatch")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrCapability     = errors.New("capability error")
)

// ParseError is returned when a metadata blob is malformed or of an
// unsupported version.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing metadata at offset %d: %s", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMetadataParse) succeed.
func (e *ParseError) Is(target error) bool { return target == ErrMetadataParse }

// NotFoundError is returned by lookups of unknown pallets, items,
// calls, events, constants and runtime APIs.
type NotFoundError struct {
	Kind   string
	Pallet string
	Name   string
}

func (e *NotFoundError) Error() string {
	if e.Pallet == "" {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Name, ErrLookupNotFound)
	}
	return fmt.Sprintf("%s %s.%s: %s", e.Kind, e.Pallet, e.Name, ErrLookupNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrLookupNotFound }

// ArityMismatchError is returned when the count or the type of
// storage key parts or call fields does not match the declaration.
type ArityMismatchError struct {
	Kind     string
	Pallet   string
	Name     string
	Expected int
	Got      int
	// Position is the offending part when the count matches
	// but a part does not fit its declared type.
	Position int
	Err      error
}

func (e *ArityMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s.%s: %s at position %d: %s",
			e.Kind, e.Pallet, e.Name, ErrArityMismatch, e.Position, e.Err)
	}
	return fmt.Sprintf("%s %s.%s: %s: expected %d, got %d",
		e.Kind, e.Pallet, e.Name, ErrArityMismatch, e.Expected, e.Got)
}

func (e *ArityMismatchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrArityMismatch) succeed.
func (e *ArityMismatchError) Is(target error) bool { return target == ErrArityMismatch }

// HashMismatchError is returned when a pinned hash diverges from the
// hash computed from live metadata.
type HashMismatchError struct {
	Kind     string
	Pallet   string
	Name     string
	Expected common.Hash
	Actual   common.Hash
}

func (e *HashMismatchError) Error() string {
	subject := e.Kind
	if e.Name != "" {
		subject += " " + e.Pallet + "." + e.Name
	}
	return fmt.Sprintf("%s: %s: expected %s, got %s",
		subject, ErrHashMismatch, e.Expected.Short(), e.Actual.Short())
}

func (e *HashMismatchError) Unwrap() error { return ErrHashMismatch }

// UnknownEventError is returned when no event matches a pallet and
// variant index. It is expected after runtime upgrades and should be
// skipped by callers.
type UnknownEventError struct {
	PalletIndex  uint8
	VariantIndex uint8
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("%s: pallet index %d, variant index %d",
		ErrUnknownEvent, e.PalletIndex, e.VariantIndex)
}

func (e *UnknownEventError) Unwrap() error { return ErrUnknownEvent }

// CapabilityError is returned when key recovery is requested for a
// key part hashed with a non recoverable hasher.
type CapabilityError struct {
	Pallet   string
	Item     string
	Position int
	Hasher   Hasher
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: key part %d of %s.%s uses %s which cannot be recovered",
		ErrCapability, e.Position, e.Pallet, e.Item, e.Hasher)
}

func (e *CapabilityError) Unwrap() error { return ErrCapability }
