// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/torus-network/torus-client-go/lib/common"
)

// Structural hashes are blake2b-256 digests of a canonical serialisation
// of names, indices and type shapes. Documentation, type paths and type
// names never contribute. A reference back to a type that is being hashed
// contributes recursiveMarker in place of its hash.

const (
	tagComposite byte = iota
	tagVariant
	tagSequence
	tagArray
	tagTuple
	tagPrimitive
	tagCompact
	tagBitSequence
)

var recursiveMarker = common.MustBlake2bHash([]byte("recursive"))

type hashWriter struct {
	bytes.Buffer
}

func (w *hashWriter) str(s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	_, _ = w.Write(n[:])
	_, _ = w.WriteString(s)
}

func (w *hashWriter) u32(v uint32) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], v)
	_, _ = w.Write(n[:])
}

func (w *hashWriter) hash(h common.Hash) {
	_, _ = w.Write(h[:])
}

func (w *hashWriter) sum() common.Hash {
	return common.MustBlake2bHash(w.Bytes())
}

// typeHasher hashes registry types, memoising results which do not
// depend on the path they were reached from.
type typeHasher struct {
	registry *Registry
	memo     map[TypeID]common.Hash
	// stack maps the types being hashed to their depth.
	stack map[TypeID]int
}

func newTypeHasher(registry *Registry) *typeHasher {
	return &typeHasher{
		registry: registry,
		memo:     make(map[TypeID]common.Hash),
		stack:    make(map[TypeID]int),
	}
}

func (h *typeHasher) typeHash(id TypeID) (common.Hash, error) {
	hash, _, err := h.hashAt(id)
	return hash, err
}

// hashAt returns the hash of the type together with the smallest stack
// depth referenced by a recursive back reference inside it. noBackRef
// means the hash is context free. A type that reaches a cycle hashes
// differently depending on which member of the cycle was entered first,
// so only types that reach no cycle are memoised.
func (h *typeHasher) hashAt(id TypeID) (hash common.Hash, minRef int, err error) {
	if hash, ok := h.memo[id]; ok {
		return hash, noBackRef, nil
	}
	if depth, ok := h.stack[id]; ok {
		return recursiveMarker, depth, nil
	}

	t, err := h.registry.Type(id)
	if err != nil {
		return common.Hash{}, 0, err
	}

	depth := len(h.stack)
	h.stack[id] = depth
	defer delete(h.stack, id)

	minRef = noBackRef
	child := func(id TypeID) (common.Hash, error) {
		hash, ref, err := h.hashAt(id)
		if ref < minRef {
			minRef = ref
		}
		return hash, err
	}

	var w hashWriter
	def := t.Def
	switch def.Kind {
	case KindComposite:
		_ = w.WriteByte(tagComposite)
		err = writeFields(&w, def.Fields, child)
	case KindVariant:
		_ = w.WriteByte(tagVariant)
		err = writeVariants(&w, def.Variants, child)
	case KindSequence, KindCompact:
		tag := tagSequence
		if def.Kind == KindCompact {
			tag = tagCompact
		}
		_ = w.WriteByte(tag)
		var elem common.Hash
		elem, err = child(def.Elem)
		w.hash(elem)
	case KindArray:
		_ = w.WriteByte(tagArray)
		w.u32(def.Len)
		var elem common.Hash
		elem, err = child(def.Elem)
		w.hash(elem)
	case KindTuple:
		_ = w.WriteByte(tagTuple)
		w.u32(uint32(len(def.Tuple)))
		for _, elemID := range def.Tuple {
			var elem common.Hash
			elem, err = child(elemID)
			if err != nil {
				break
			}
			w.hash(elem)
		}
	case KindPrimitive:
		_ = w.WriteByte(tagPrimitive)
		_ = w.WriteByte(byte(def.Primitive))
	case KindBitSequence:
		_ = w.WriteByte(tagBitSequence)
		var store, order common.Hash
		store, err = child(def.BitStore)
		if err == nil {
			order, err = child(def.BitOrder)
		}
		w.hash(store)
		w.hash(order)
	}
	if err != nil {
		return common.Hash{}, 0, err
	}

	hash = w.sum()
	if minRef == noBackRef {
		h.memo[id] = hash
	}
	return hash, minRef, nil
}

const noBackRef = int(^uint(0) >> 1)

func writeFields(w *hashWriter, fields []Field, child func(TypeID) (common.Hash, error)) error {
	w.u32(uint32(len(fields)))
	for _, f := range fields {
		w.str(f.Name)
		fieldHash, err := child(f.Type)
		if err != nil {
			return err
		}
		w.hash(fieldHash)
	}
	return nil
}

func writeVariants(w *hashWriter, variants []Variant, child func(TypeID) (common.Hash, error)) error {
	sorted := append([]Variant(nil), variants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	w.u32(uint32(len(sorted)))
	for _, v := range sorted {
		_ = w.WriteByte(v.Index)
		w.str(v.Name)
		err := writeFields(w, v.Fields, child)
		if err != nil {
			return err
		}
	}
	return nil
}

// TypeHash returns the structural hash of a registry type.
func (d *Descriptor) TypeHash(id TypeID) (common.Hash, error) {
	return newTypeHasher(d.registry).typeHash(id)
}

func callHash(h *typeHasher, p *Pallet, call *Variant) (common.Hash, error) {
	var w hashWriter
	w.str("call")
	w.str(p.Name)
	_ = w.WriteByte(p.Index)
	w.str(call.Name)
	_ = w.WriteByte(call.Index)
	err := writeFields(&w, call.Fields, h.typeHash)
	if err != nil {
		return common.Hash{}, err
	}
	return w.sum(), nil
}

func computeCallHashes(d *Descriptor) (map[string]map[string]common.Hash, error) {
	h := newTypeHasher(d.registry)
	hashes := make(map[string]map[string]common.Hash, len(d.pallets))
	for _, p := range d.pallets {
		if len(p.Calls) == 0 {
			continue
		}
		calls := make(map[string]common.Hash, len(p.Calls))
		for i := range p.Calls {
			hash, err := callHash(h, p, &p.Calls[i])
			if err != nil {
				return nil, fmt.Errorf("hashing call %s.%s: %w", p.Name, p.Calls[i].Name, err)
			}
			calls[p.Calls[i].Name] = hash
		}
		hashes[p.Name] = calls
	}
	return hashes, nil
}

// CallHash returns the validation hash of a call, computed from its
// pallet name and index, its own name and index, and its ordered fields.
func (d *Descriptor) CallHash(pallet, name string) (common.Hash, error) {
	if _, _, err := d.Call(pallet, name); err != nil {
		return common.Hash{}, err
	}
	return d.callHashes[pallet][name], nil
}

// PalletHash returns the structural hash of a whole pallet: its storage
// items, calls, events, constant types and errors. Constant values and
// storage defaults do not contribute.
func (d *Descriptor) PalletHash(name string) (common.Hash, error) {
	p, err := d.Pallet(name)
	if err != nil {
		return common.Hash{}, err
	}
	return palletHash(newTypeHasher(d.registry), p)
}

func palletHash(h *typeHasher, p *Pallet) (common.Hash, error) {
	var w hashWriter
	w.str("pallet")
	w.str(p.Name)
	_ = w.WriteByte(p.Index)

	items := append([]StorageItem(nil), p.Storage...)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	w.str(p.StoragePrefix)
	w.u32(uint32(len(items)))
	for _, item := range items {
		w.str(item.Name)
		_ = w.WriteByte(byte(item.Modifier))
		w.u32(uint32(len(item.Hashers)))
		for i, hasher := range item.Hashers {
			_ = w.WriteByte(byte(hasher))
			keyHash, err := h.typeHash(item.KeyTypes[i])
			if err != nil {
				return common.Hash{}, err
			}
			w.hash(keyHash)
		}
		valueHash, err := h.typeHash(item.Value)
		if err != nil {
			return common.Hash{}, err
		}
		w.hash(valueHash)
	}

	for _, enum := range []struct {
		tag      string
		variants []Variant
	}{
		{tag: "calls", variants: p.Calls},
		{tag: "events", variants: p.Events},
		{tag: "errors", variants: p.Errors},
	} {
		w.str(enum.tag)
		err := writeVariants(&w, enum.variants, h.typeHash)
		if err != nil {
			return common.Hash{}, err
		}
	}

	constants := append([]Constant(nil), p.Constants...)
	sort.Slice(constants, func(i, j int) bool { return constants[i].Name < constants[j].Name })
	w.str("constants")
	w.u32(uint32(len(constants)))
	for _, c := range constants {
		w.str(c.Name)
		typeHash, err := h.typeHash(c.Type)
		if err != nil {
			return common.Hash{}, err
		}
		w.hash(typeHash)
	}

	return w.sum(), nil
}

// RuntimeAPIHash returns the structural hash of a runtime API, covering
// its method names, inputs and outputs.
func (d *Descriptor) RuntimeAPIHash(name string) (common.Hash, error) {
	api, err := d.RuntimeAPI(name)
	if err != nil {
		return common.Hash{}, err
	}
	return runtimeAPIHash(newTypeHasher(d.registry), api)
}

func runtimeAPIHash(h *typeHasher, api *RuntimeAPI) (common.Hash, error) {
	var w hashWriter
	w.str("api")
	w.str(api.Name)

	methods := append([]RuntimeAPIMethod(nil), api.Methods...)
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	w.u32(uint32(len(methods)))
	for _, m := range methods {
		w.str(m.Name)
		w.u32(uint32(len(m.Inputs)))
		for _, in := range m.Inputs {
			w.str(in.Name)
			inputHash, err := h.typeHash(in.Type)
			if err != nil {
				return common.Hash{}, err
			}
			w.hash(inputHash)
		}
		outputHash, err := h.typeHash(m.Output)
		if err != nil {
			return common.Hash{}, err
		}
		w.hash(outputHash)
	}
	return w.sum(), nil
}

// CompatibilityHash hashes the view of the metadata restricted to the
// selected pallets and runtime APIs. Selection order and duplicates do
// not matter. A selected name missing from the metadata is an error.
func (d *Descriptor) CompatibilityHash(pallets, apis []string) (common.Hash, error) {
	h := newTypeHasher(d.registry)

	var w hashWriter
	w.str("compatibility")

	palletNames := sortedUnique(pallets)
	w.u32(uint32(len(palletNames)))
	for _, name := range palletNames {
		p, err := d.Pallet(name)
		if err != nil {
			return common.Hash{}, err
		}
		hash, err := palletHash(h, p)
		if err != nil {
			return common.Hash{}, err
		}
		w.hash(hash)
	}

	apiNames := sortedUnique(apis)
	w.u32(uint32(len(apiNames)))
	for _, name := range apiNames {
		api, err := d.RuntimeAPI(name)
		if err != nil {
			return common.Hash{}, err
		}
		hash, err := runtimeAPIHash(h, api)
		if err != nil {
			return common.Hash{}, err
		}
		w.hash(hash)
	}

	return w.sum(), nil
}

func sortedUnique(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	unique := out[:0]
	for i, name := range out {
		if i > 0 && name == out[i-1] {
			continue
		}
		unique = append(unique, name)
	}
	return unique
}
