// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata

import (
	"fmt"
	"strings"

	"github.com/qdm12/gotree"
)

// String returns a printable tree of the pallets and runtime APIs.
func (d *Descriptor) String() string {
	return d.Tree().String()
}

// Tree returns a gotree node listing pallets with their storage items,
// calls, events and constants, followed by the runtime APIs.
func (d *Descriptor) Tree() *gotree.Node {
	root := gotree.New("Metadata V%d", d.version)

	pallets := root.Appendf("Pallets (%d)", len(d.pallets))
	for _, p := range d.pallets {
		palletNode := pallets.Appendf("%s #%d", p.Name, p.Index)

		if len(p.Storage) > 0 {
			storageNode := palletNode.Appendf("Storage (%d)", len(p.Storage))
			for _, item := range p.Storage {
				storageNode.Appendf("%s: %s %s", item.Name, item.Modifier, d.storageSignature(&item))
			}
		}

		appendVariants(palletNode, "Calls", d, p.Calls)
		appendVariants(palletNode, "Events", d, p.Events)

		if len(p.Constants) > 0 {
			constantsNode := palletNode.Appendf("Constants (%d)", len(p.Constants))
			for _, c := range p.Constants {
				constantsNode.Appendf("%s: %s = 0x%x", c.Name, d.TypeName(c.Type), c.Value)
			}
		}
	}

	if len(d.apis) > 0 {
		apis := root.Appendf("Runtime APIs (%d)", len(d.apis))
		for _, api := range d.apis {
			apiNode := apis.Appendf("%s", api.Name)
			for _, m := range api.Methods {
				inputs := make([]string, len(m.Inputs))
				for i, in := range m.Inputs {
					inputs[i] = in.Name + ": " + d.TypeName(in.Type)
				}
				apiNode.Appendf("%s(%s) -> %s", m.Name, strings.Join(inputs, ", "), d.TypeName(m.Output))
			}
		}
	}
	return root
}

func appendVariants(parent *gotree.Node, title string, d *Descriptor, variants []Variant) {
	if len(variants) == 0 {
		return
	}
	node := parent.Appendf("%s (%d)", title, len(variants))
	for _, v := range variants {
		node.Appendf("%d %s%s", v.Index, v.Name, d.fieldsSignature(v.Fields))
	}
}

func (d *Descriptor) storageSignature(item *StorageItem) string {
	if len(item.Hashers) == 0 {
		return d.TypeName(item.Value)
	}
	keys := make([]string, len(item.Hashers))
	for i, h := range item.Hashers {
		keys[i] = fmt.Sprintf("%s(%s)", h, d.TypeName(item.KeyTypes[i]))
	}
	return fmt.Sprintf("map[%s] %s", strings.Join(keys, ", "), d.TypeName(item.Value))
}

func (d *Descriptor) fieldsSignature(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		typeName := f.TypeName
		if typeName == "" {
			typeName = d.TypeName(f.Type)
		}
		if f.Name == "" {
			parts[i] = typeName
			continue
		}
		parts[i] = f.Name + ": " + typeName
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TypeName returns a short human readable name for a registry type.
func (d *Descriptor) TypeName(id TypeID) string {
	return typeName(d.registry, id, 0)
}

func typeName(r *Registry, id TypeID, depth int) string {
	const maxDepth = 8
	t, err := r.Type(id)
	if err != nil {
		return fmt.Sprintf("<%d?>", id)
	}
	if depth > maxDepth {
		return "..."
	}

	if len(t.Path) > 0 {
		return t.Path[len(t.Path)-1]
	}

	switch t.Def.Kind {
	case KindPrimitive:
		return t.Def.Primitive.String()
	case KindSequence:
		return "Vec<" + typeName(r, t.Def.Elem, depth+1) + ">"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", typeName(r, t.Def.Elem, depth+1), t.Def.Len)
	case KindCompact:
		return "Compact<" + typeName(r, t.Def.Elem, depth+1) + ">"
	case KindTuple:
		elems := make([]string, len(t.Def.Tuple))
		for i, e := range t.Def.Tuple {
			elems[i] = typeName(r, e, depth+1)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case KindBitSequence:
		return "BitVec"
	default:
		return fmt.Sprintf("<%s %d>", t.Def.Kind, id)
	}
}
