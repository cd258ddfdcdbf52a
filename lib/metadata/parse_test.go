// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadata_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/metadata/metadatatest"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

func Test_Parse(t *testing.T) {
	t.Parallel()

	for _, version := range []uint8{metadata.V14, metadata.V15} {
		version := version
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			t.Parallel()

			d, err := metadata.Parse(metadatatest.Torus(version).Build())
			require.NoError(t, err)

			assert.Equal(t, version, d.Version())
			require.Len(t, d.Pallets(), 6)

			balances, err := d.Pallet("Balances")
			require.NoError(t, err)
			assert.Equal(t, uint8(4), balances.Index)

			torus0, err := d.PalletByIndex(metadatatest.Torus0Index)
			require.NoError(t, err)
			assert.Equal(t, "Torus0", torus0.Name)

			account, err := d.StorageItem("System", "Account")
			require.NoError(t, err)
			assert.Equal(t, []metadata.Hasher{metadata.Blake2_128Concat}, account.Hashers)
			assert.Equal(t, 1, account.Arity())
			assert.Equal(t, metadata.Default, account.Modifier)
			assert.Equal(t, "System", account.Prefix)
			assert.Len(t, account.Default, 80)

			stakingTo, err := d.StorageItem("Torus0", "StakingTo")
			require.NoError(t, err)
			assert.Len(t, stakingTo.KeyTypes, 2)

			number, err := d.StorageItem("System", "Number")
			require.NoError(t, err)
			assert.Equal(t, 0, number.Arity())
			assert.Nil(t, number.KeyType)

			pallet, call, err := d.Call("Balances", "transfer_allow_death")
			require.NoError(t, err)
			assert.Equal(t, uint8(4), pallet.Index)
			assert.Equal(t, uint8(0), call.Index)
			require.Len(t, call.Fields, 2)
			assert.Equal(t, "dest", call.Fields[0].Name)
			assert.Equal(t, "value", call.Fields[1].Name)

			event, err := d.Event("Balances", 2)
			require.NoError(t, err)
			assert.Equal(t, "Transfer", event.Name)

			event, err = d.EventByName("Torus0", "StakeAdded")
			require.NoError(t, err)
			assert.Equal(t, uint8(0), event.Index)

			constant, err := d.Constant("System", "SS58Prefix")
			require.NoError(t, err)
			assert.Equal(t, []byte{42, 0}, constant.Value)

			typ, err := d.Registry().Type(constant.Type)
			require.NoError(t, err)
			assert.Equal(t, metadata.KindPrimitive, typ.Def.Kind)
			assert.Equal(t, metadata.U16, typ.Def.Primitive)

			extrinsic := d.Extrinsic()
			assert.Equal(t, uint8(4), extrinsic.Version)
			require.Len(t, extrinsic.SignedExtensions, 1)
			assert.Equal(t, "CheckNonce", extrinsic.SignedExtensions[0].Identifier)
		})
	}
}

func Test_Parse_V15Only(t *testing.T) {
	t.Parallel()

	v15 := metadatatest.MustTorus(metadata.V15)
	api, err := v15.RuntimeAPI("AccountNonceApi")
	require.NoError(t, err)
	method, err := api.Method("account_nonce")
	require.NoError(t, err)
	require.Len(t, method.Inputs, 1)
	assert.Equal(t, "account", method.Inputs[0].Name)
	assert.Len(t, v15.RuntimeAPIs(), 2)

	_, err = api.Method("account_nonces")
	assert.ErrorIs(t, err, metadata.ErrLookupNotFound)

	custom, err := v15.Custom("network")
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x14}, "torus"...), custom.Value)

	_, ok := v15.OuterEnums()
	assert.True(t, ok)

	balances, err := v15.Pallet("Balances")
	require.NoError(t, err)
	assert.Nil(t, balances.Docs)

	v14 := metadatatest.MustTorus(metadata.V14)
	_, err = v14.RuntimeAPI("Core")
	var notFound *metadata.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "runtime api", notFound.Kind)
	assert.Empty(t, v14.RuntimeAPIs())

	_, ok = v14.OuterEnums()
	assert.False(t, ok)
}

func Test_Parse_Errors(t *testing.T) {
	t.Parallel()

	valid := metadatatest.Torus(metadata.V15).Build()

	testCases := map[string]struct {
		blob       func() []byte
		errWrapped error
	}{
		"empty": {
			blob:       func() []byte { return nil },
			errWrapped: scale.ErrUnexpectedEOF,
		},
		"bad_magic": {
			blob: func() []byte {
				b := append([]byte(nil), valid...)
				b[0] = 'x'
				return b
			},
			errWrapped: metadata.ErrBadMagic,
		},
		"unsupported_version": {
			blob: func() []byte {
				b := append([]byte(nil), valid...)
				b[4] = 13
				return b
			},
			errWrapped: metadata.ErrUnsupportedVersion,
		},
		"truncated": {
			blob:       func() []byte { return valid[:len(valid)-1] },
			errWrapped: scale.ErrUnexpectedEOF,
		},
		"trailing_bytes": {
			blob:       func() []byte { return append(append([]byte(nil), valid...), 0) },
			errWrapped: scale.ErrTrailingBytes,
		},
		"dangling_type_id": {
			blob: func() []byte {
				b := metadatatest.New(metadata.V14)
				b.Composite(nil, metadatatest.F("x", 999))
				return b.Build()
			},
		},
		"duplicate_pallet_name": {
			blob: func() []byte {
				b := metadatatest.New(metadata.V14)
				b.Pallets = []metadatatest.Pallet{{Name: "System", Index: 0}, {Name: "System", Index: 1}}
				return b.Build()
			},
			errWrapped: metadata.ErrDuplicatePallet,
		},
		"duplicate_pallet_index": {
			blob: func() []byte {
				b := metadatatest.New(metadata.V14)
				b.Pallets = []metadatatest.Pallet{{Name: "System", Index: 0}, {Name: "Balances", Index: 0}}
				return b.Build()
			},
			errWrapped: metadata.ErrDuplicatePallet,
		},
		"call_type_not_variant": {
			blob: func() []byte {
				b := metadatatest.New(metadata.V14)
				u32 := b.Primitive(metadata.U32)
				b.Pallets = []metadatatest.Pallet{{Name: "System", Calls: metadatatest.Ptr(u32)}}
				return b.Build()
			},
			errWrapped: metadata.ErrWrongTypeKind,
		},
		"hashers_do_not_match_key": {
			blob: func() []byte {
				b := metadatatest.New(metadata.V14)
				u32 := b.Primitive(metadata.U32)
				b.Pallets = []metadatatest.Pallet{{
					Name: "System",
					Storage: []metadatatest.Storage{{
						Name:    "Pairs",
						Hashers: []metadata.Hasher{metadata.Identity, metadata.Identity},
						Key:     metadatatest.Ptr(u32),
						Value:   u32,
					}},
				}}
				return b.Build()
			},
		},
		"duplicate_variant_index": {
			blob: func() []byte {
				b := metadatatest.New(metadata.V14)
				b.Variant(nil, metadatatest.V("A", 0), metadatatest.V("B", 0))
				return b.Build()
			},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d, err := metadata.Parse(testCase.blob())

			assert.Nil(t, d)
			assert.ErrorIs(t, err, metadata.ErrMetadataParse)
			var parseErr *metadata.ParseError
			assert.True(t, errors.As(err, &parseErr))
			if testCase.errWrapped != nil {
				assert.ErrorIs(t, err, testCase.errWrapped)
			}
		})
	}
}

func Test_Descriptor_NotFound(t *testing.T) {
	t.Parallel()

	d := metadatatest.MustTorus(metadata.V15)

	testCases := map[string]struct {
		lookup func() error
		kind   string
	}{
		"pallet": {
			lookup: func() error { _, err := d.Pallet("Staking"); return err },
			kind:   "pallet",
		},
		"pallet_index": {
			lookup: func() error { _, err := d.PalletByIndex(200); return err },
			kind:   "pallet",
		},
		"storage_item": {
			lookup: func() error { _, err := d.StorageItem("System", "Accounts"); return err },
			kind:   "storage item",
		},
		"storage_item_unknown_pallet": {
			lookup: func() error { _, err := d.StorageItem("Staking", "Ledger"); return err },
			kind:   "pallet",
		},
		"call": {
			lookup: func() error { _, _, err := d.Call("Balances", "transfer"); return err },
			kind:   "call",
		},
		"call_on_pallet_without_calls": {
			lookup: func() error { _, _, err := d.Call("Permission0", "grant"); return err },
			kind:   "call",
		},
		"event": {
			lookup: func() error { _, err := d.Event("Balances", 99); return err },
			kind:   "event",
		},
		"event_by_name": {
			lookup: func() error { _, err := d.EventByName("Balances", "Minted"); return err },
			kind:   "event",
		},
		"constant": {
			lookup: func() error { _, err := d.Constant("Balances", "MaxReserves"); return err },
			kind:   "constant",
		},
		"runtime_api": {
			lookup: func() error { _, err := d.RuntimeAPI("BabeApi"); return err },
			kind:   "runtime api",
		},
		"custom": {
			lookup: func() error { _, err := d.Custom("unknown"); return err },
			kind:   "custom value",
		},
		"type": {
			lookup: func() error { _, err := d.Registry().Type(100000); return err },
			kind:   "type",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := testCase.lookup()

			assert.ErrorIs(t, err, metadata.ErrLookupNotFound)
			var notFound *metadata.NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, testCase.kind, notFound.Kind)
		})
	}
}

func Test_Registry_Resolve(t *testing.T) {
	t.Parallel()

	f := metadatatest.Torus(metadata.V14)
	d, err := metadata.Parse(f.Build())
	require.NoError(t, err)

	resolved, err := d.Registry().Resolve(f.AccountID)
	require.NoError(t, err)
	assert.Equal(t, metadata.KindArray, resolved.Def.Kind)
	assert.Equal(t, uint32(32), resolved.Def.Len)

	typ, err := d.Registry().Type(f.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "sp_core::crypto::AccountId32", typ.PathString())
	assert.Equal(t, "AccountId32", d.TypeName(f.AccountID))
	assert.Equal(t, "Vec<u8>", d.TypeName(f.Bytes))
	assert.Equal(t, "Compact<u128>", d.TypeName(f.CompactU128))
	assert.Equal(t, "(AccountId32, AccountId32)", d.TypeName(f.StakeTuple))
}

func Test_Hasher(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		hasher      metadata.Hasher
		recoverable bool
		hashLen     int
	}{
		"blake2_128":        {hasher: metadata.Blake2_128, hashLen: 16},
		"blake2_256":        {hasher: metadata.Blake2_256, hashLen: 32},
		"blake2_128_concat": {hasher: metadata.Blake2_128Concat, recoverable: true, hashLen: 16},
		"twox128":           {hasher: metadata.Twox128, hashLen: 16},
		"twox256":           {hasher: metadata.Twox256, hashLen: 32},
		"twox64_concat":     {hasher: metadata.Twox64Concat, recoverable: true, hashLen: 8},
		"identity":          {hasher: metadata.Identity, recoverable: true},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.recoverable, testCase.hasher.Recoverable())
			assert.Equal(t, testCase.hashLen, testCase.hasher.HashLen())
		})
	}
}
