// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package scale implements the SCALE codec used for every value exchanged
// with a Substrate based chain.
//
// Go values are encoded with Marshal and decoded with Unmarshal using
// reflection. Struct fields are encoded in declaration order, a field tagged
// `scale:"-"` is skipped and a field tagged `scale:"compact"` is compact
// encoded. Pointers are encoded as Option, except *big.Int and *Uint128
// which are plain values.
//
// Encoder and Decoder expose the primitive operations for callers driving the
// codec from runtime type information instead of Go types.
package scale

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// package level cache for struct field plans
var cache = &fieldScaleIndicesCache{
	cache: make(map[reflect.Type]fieldScaleIndices),
}

// fieldScaleIndex maps a struct field to how it is encoded
type fieldScaleIndex struct {
	fieldIndex int
	compact    bool
}
type fieldScaleIndices []fieldScaleIndex

// fieldScaleIndicesCache stores the encoding plan of the fields per struct type
type fieldScaleIndicesCache struct {
	cache map[reflect.Type]fieldScaleIndices
	sync.RWMutex
}

func (fsic *fieldScaleIndicesCache) fieldScaleIndices(t reflect.Type) (indices fieldScaleIndices, err error) {
	fsic.RLock()
	indices, ok := fsic.cache[t]
	fsic.RUnlock()
	if ok {
		return indices, nil
	}

	indices = make(fieldScaleIndices, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			// unexported
			continue
		}

		tag := strings.TrimSpace(field.Tag.Get("scale"))
		switch tag {
		case "-":
			continue
		case "":
			indices = append(indices, fieldScaleIndex{fieldIndex: i})
		case "compact":
			indices = append(indices, fieldScaleIndex{fieldIndex: i, compact: true})
		default:
			return nil, fmt.Errorf("%w: scale tag %q on field %s of %s",
				ErrUnsupportedType, tag, field.Name, t)
		}
	}

	fsic.Lock()
	fsic.cache[t] = indices
	fsic.Unlock()
	return indices, nil
}

func reverseBytes(a []byte) []byte {
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}
	return a
}
