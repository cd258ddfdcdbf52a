// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/metadata/metadatatest"
)

func parse(t *testing.T, b *metadatatest.Builder) *metadata.Descriptor {
	t.Helper()
	d, err := metadata.Parse(b.Build())
	require.NoError(t, err)
	return d
}

func Test_TypeHash_IgnoresDocsAndPaths(t *testing.T) {
	t.Parallel()

	build := func(path []string, docs bool, fieldName string) (*metadata.Descriptor, metadata.TypeID) {
		b := metadatatest.New(metadata.V14)
		u32 := b.Primitive(metadata.U32)
		id := b.Composite(path, metadata.Field{Name: fieldName, Type: u32, TypeName: "BlockNumber"})
		if docs {
			b.SetDocs(id, " Some documentation.")
		}
		return parse(t, b), id
	}

	base, id := build([]string{"a", "Thing"}, false, "number")
	baseHash, err := base.TypeHash(id)
	require.NoError(t, err)

	documented, id := build([]string{"a", "Thing"}, true, "number")
	documentedHash, err := documented.TypeHash(id)
	require.NoError(t, err)
	assert.Equal(t, baseHash, documentedHash)

	moved, id := build([]string{"b", "Other"}, false, "number")
	movedHash, err := moved.TypeHash(id)
	require.NoError(t, err)
	assert.Equal(t, baseHash, movedHash)

	renamed, id := build([]string{"a", "Thing"}, false, "height")
	renamedHash, err := renamed.TypeHash(id)
	require.NoError(t, err)
	assert.NotEqual(t, baseHash, renamedHash)
}

func Test_TypeHash_Recursive(t *testing.T) {
	t.Parallel()

	b := metadatatest.New(metadata.V14)
	u32 := b.Primitive(metadata.U32)

	tree := b.Reserve()
	b.Define(tree, []string{"Tree"}, metadata.TypeDef{
		Kind:   metadata.KindComposite,
		Fields: []metadata.Field{{Name: "value", Type: u32}, {Name: "children", Type: b.Sequence(tree)}},
	})

	// mutually recursive pair
	left := b.Reserve()
	right := b.Composite([]string{"Right"}, metadatatest.F("left", b.Sequence(left)))
	b.Define(left, []string{"Left"}, metadata.TypeDef{
		Kind:   metadata.KindComposite,
		Fields: []metadata.Field{{Name: "right", Type: right}},
	})

	d := parse(t, b)

	treeHash, err := d.TypeHash(tree)
	require.NoError(t, err)
	again, err := d.TypeHash(tree)
	require.NoError(t, err)
	assert.Equal(t, treeHash, again)

	leftHash, err := d.TypeHash(left)
	require.NoError(t, err)
	rightHash, err := d.TypeHash(right)
	require.NoError(t, err)
	assert.NotEqual(t, leftHash, rightHash)
	assert.NotEqual(t, treeHash, leftHash)
}

func Test_CallHash_RecursiveIndependentOfOtherPallets(t *testing.T) {
	t.Parallel()

	build := func(withOther bool) *metadata.Descriptor {
		b := metadatatest.New(metadata.V14)

		// node = enum { Leaf, Node(branch) }, branch = { inner: Vec<node> }
		node := b.Reserve()
		branch := b.Composite([]string{"Branch"}, metadatatest.F("inner", b.Sequence(node)))
		b.Define(node, []string{"Node"}, metadata.TypeDef{
			Kind: metadata.KindVariant,
			Variants: []metadata.Variant{
				metadatatest.V("Leaf", 0),
				metadatatest.V("Node", 1, metadata.Field{Type: branch}),
			},
		})

		if withOther {
			otherCalls := b.Variant([]string{"other", "Call"}, metadatatest.V("use_node", 0, metadatatest.F("a", node)))
			b.Pallets = append(b.Pallets, metadatatest.Pallet{Name: "Other", Index: 0, Calls: metadatatest.Ptr(otherCalls)})
		}
		targetCalls := b.Variant([]string{"target", "Call"}, metadatatest.V("use_branch", 0, metadatatest.F("b", branch)))
		b.Pallets = append(b.Pallets, metadatatest.Pallet{Name: "Target", Index: 1, Calls: metadatatest.Ptr(targetCalls)})
		return parse(t, b)
	}

	alone, err := build(false).CallHash("Target", "use_branch")
	require.NoError(t, err)

	withOther := build(true)
	hash, err := withOther.CallHash("Target", "use_branch")
	require.NoError(t, err)
	assert.Equal(t, alone, hash)

	otherHash, err := withOther.CallHash("Other", "use_node")
	require.NoError(t, err)
	assert.NotEqual(t, alone, otherHash)
}

func Test_CallHash(t *testing.T) {
	t.Parallel()

	base := metadatatest.MustTorus(metadata.V15)
	baseHash, err := base.CallHash("Balances", "transfer_allow_death")
	require.NoError(t, err)

	v14 := metadatatest.MustTorus(metadata.V14)
	v14Hash, err := v14.CallHash("Balances", "transfer_allow_death")
	require.NoError(t, err)
	assert.Equal(t, baseHash, v14Hash)

	keepAlive, err := base.CallHash("Balances", "transfer_keep_alive")
	require.NoError(t, err)
	assert.NotEqual(t, baseHash, keepAlive)

	_, err = base.CallHash("Balances", "transfer")
	assert.ErrorIs(t, err, metadata.ErrLookupNotFound)

	testCases := map[string]func(f *metadatatest.Fixture){
		"swapped_fields": func(f *metadatatest.Fixture) {
			f.MutateCall("Balances", 0, func(v *metadata.Variant) {
				v.Fields = []metadata.Field{v.Fields[1], v.Fields[0]}
			})
		},
		"plain_value": func(f *metadatatest.Fixture) {
			f.MutateCall("Balances", 0, func(v *metadata.Variant) {
				v.Fields = []metadata.Field{v.Fields[0], metadatatest.F("value", f.U128)}
			})
		},
		"call_index": func(f *metadatatest.Fixture) {
			f.MutateCall("Balances", 0, func(v *metadata.Variant) {
				v.Index = 1
			})
		},
		"pallet_index": func(f *metadatatest.Fixture) {
			f.Pallet("Balances").Index = 5
		},
	}

	for name, mutate := range testCases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f := metadatatest.Torus(metadata.V15)
			mutate(f)
			d := parse(t, f.Builder)

			hash, err := d.CallHash("Balances", "transfer_allow_death")
			require.NoError(t, err)
			assert.NotEqual(t, baseHash, hash)
		})
	}
}

func Test_PalletHash(t *testing.T) {
	t.Parallel()

	d := metadatatest.MustTorus(metadata.V15)
	systemHash, err := d.PalletHash("System")
	require.NoError(t, err)
	balancesHash, err := d.PalletHash("Balances")
	require.NoError(t, err)
	assert.NotEqual(t, systemHash, balancesHash)

	f := metadatatest.Torus(metadata.V15)
	f.Pallet("Balances").Constants[0].Value = []byte{1}
	f.Pallet("Balances").Storage[0].Default = []byte{1}
	f.Pallet("Balances").Docs = []string{" Docs do not matter."}
	changedValues := parse(t, f.Builder)
	hash, err := changedValues.PalletHash("Balances")
	require.NoError(t, err)
	assert.Equal(t, balancesHash, hash)

	f = metadatatest.Torus(metadata.V15)
	f.Pallet("Balances").Storage[1].Hashers = []metadata.Hasher{metadata.Twox64Concat}
	changedHasher := parse(t, f.Builder)
	hash, err = changedHasher.PalletHash("Balances")
	require.NoError(t, err)
	assert.NotEqual(t, balancesHash, hash)

	_, err = d.PalletHash("Staking")
	assert.ErrorIs(t, err, metadata.ErrLookupNotFound)
}

func Test_RuntimeAPIHash(t *testing.T) {
	t.Parallel()

	d := metadatatest.MustTorus(metadata.V15)
	core, err := d.RuntimeAPIHash("Core")
	require.NoError(t, err)
	nonce, err := d.RuntimeAPIHash("AccountNonceApi")
	require.NoError(t, err)
	assert.NotEqual(t, core, nonce)

	f := metadatatest.Torus(metadata.V15)
	f.APIs[1].Methods[0].Output = f.U64
	changed := parse(t, f.Builder)
	hash, err := changed.RuntimeAPIHash("AccountNonceApi")
	require.NoError(t, err)
	assert.NotEqual(t, nonce, hash)
}

func Test_CompatibilityHash(t *testing.T) {
	t.Parallel()

	d := metadatatest.MustTorus(metadata.V15)

	hash, err := d.CompatibilityHash([]string{"Balances", "System"}, []string{"Core"})
	require.NoError(t, err)

	reordered, err := d.CompatibilityHash([]string{"System", "Balances", "System"}, []string{"Core", "Core"})
	require.NoError(t, err)
	assert.Equal(t, hash, reordered)

	fewer, err := d.CompatibilityHash([]string{"System"}, []string{"Core"})
	require.NoError(t, err)
	assert.NotEqual(t, hash, fewer)

	_, err = d.CompatibilityHash([]string{"Staking"}, nil)
	assert.ErrorIs(t, err, metadata.ErrLookupNotFound)

	_, err = d.CompatibilityHash(nil, []string{"BabeApi"})
	assert.ErrorIs(t, err, metadata.ErrLookupNotFound)
}
