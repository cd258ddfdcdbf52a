// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package storage_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/xxhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/metadata/metadatatest"
	"github.com/torus-network/torus-client-go/lib/storage"
	"github.com/torus-network/torus-client-go/lib/value"
)

var (
	alice = common.MustHexToBytes("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	bob   = bytes.Repeat([]byte{0x8e}, 32)
)

func newCodec(t *testing.T) *storage.Codec {
	t.Helper()
	return storage.NewCodec(metadatatest.MustTorus(metadata.V14))
}

func Test_Codec_Key(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	testCases := map[string]struct {
		pallet        string
		item          string
		parts         []value.Value
		key           string
		iterationOnly bool
	}{
		"plain": {
			pallet: "System",
			item:   "Number",
			key:    "0x26aa394eea5630e07c48ae0c9558cef702a5c1b19ab7a04f536c519aca4983ac",
		},
		"blake2_128_concat": {
			pallet: "System",
			item:   "Account",
			parts:  []value.Value{value.Bytes(alice)},
			key: "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9" +
				"de1e86a9a8c739864cf3cc5ec2bea59f" +
				"d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d",
		},
		"twox64_concat": {
			pallet: "System",
			item:   "BlockHash",
			parts:  []value.Value{value.Uint(0)},
			key: "0x26aa394eea5630e07c48ae0c9558cef7a44704b568d21667356a5a050c118746" +
				"b4def25cfda6ef3a00000000",
		},
		"map_prefix": {
			pallet:        "System",
			item:          "Account",
			key:           "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9",
			iterationOnly: true,
		},
		"double_map_identity": {
			pallet: "Torus0",
			item:   "StakingTo",
			parts:  []value.Value{value.Bytes(alice), value.Bytes(bob)},
			key: "0xbe80e2632675a1c622584cb6639ea3e602ad22bf3ce60a7c67413dd9fd7ad4b9" +
				common.BytesToHex(alice)[2:] + common.BytesToHex(bob)[2:],
		},
		"double_map_first_part": {
			pallet: "Torus0",
			item:   "StakingTo",
			parts:  []value.Value{value.Bytes(alice)},
			key: "0xbe80e2632675a1c622584cb6639ea3e602ad22bf3ce60a7c67413dd9fd7ad4b9" +
				common.BytesToHex(alice)[2:],
			iterationOnly: true,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			key, err := codec.Key(testCase.pallet, testCase.item, testCase.parts...)
			require.NoError(t, err)

			assert.Equal(t, testCase.key, key.Hex())
			assert.Equal(t, testCase.iterationOnly, key.IterationOnly())
			assert.Equal(t, len(testCase.parts), key.Parts)
			if testCase.iterationOnly {
				assert.ErrorIs(t, storage.RequireFullKey(key), metadata.ErrArityMismatch)
			} else {
				assert.NoError(t, storage.RequireFullKey(key))
			}
		})
	}
}

func Test_Codec_Key_PrefixMatchesReferenceHasher(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)
	key, err := codec.Prefix("Balances", "TotalIssuance")
	require.NoError(t, err)

	expected := append(
		xxhash.New128([]byte("Balances")).Sum(nil),
		xxhash.New128([]byte("TotalIssuance")).Sum(nil)...)
	assert.Equal(t, expected, key.Bytes)
}

func Test_Codec_Key_StrictPrefix(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	full, err := codec.Key("Torus0", "StakedBy", value.Bytes(alice), value.Bytes(bob))
	require.NoError(t, err)
	partial, err := codec.Key("Torus0", "StakedBy", value.Bytes(alice))
	require.NoError(t, err)
	prefix, err := codec.Prefix("Torus0", "StakedBy")
	require.NoError(t, err)

	for _, k := range []storage.Key{prefix, partial} {
		assert.True(t, bytes.HasPrefix(full.Bytes, k.Bytes))
		assert.Less(t, len(k.Bytes), len(full.Bytes))
		assert.True(t, k.IterationOnly())
	}
	assert.False(t, full.IterationOnly())
	assert.Equal(t, 2, full.Arity)
}

func Test_Codec_Key_Errors(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	testCases := map[string]struct {
		pallet     string
		item       string
		parts      []value.Value
		errWrapped error
		errMessage string
	}{
		"too_many_parts": {
			pallet:     "Torus0",
			item:       "StakingTo",
			parts:      []value.Value{value.Bytes(alice), value.Bytes(bob), value.Bytes(alice)},
			errWrapped: metadata.ErrArityMismatch,
			errMessage: "storage key Torus0.StakingTo: arity mismatch: expected 2, got 3",
		},
		"part_for_plain_item": {
			pallet:     "System",
			item:       "Number",
			parts:      []value.Value{value.Uint(1)},
			errWrapped: metadata.ErrArityMismatch,
			errMessage: "storage key System.Number: arity mismatch: expected 0, got 1",
		},
		"part_type_mismatch": {
			pallet:     "System",
			item:       "Account",
			parts:      []value.Value{value.String("alice")},
			errWrapped: value.ErrTypeMismatch,
		},
		"part_length_mismatch": {
			pallet:     "System",
			item:       "Account",
			parts:      []value.Value{value.Bytes([]byte{1, 2, 3})},
			errWrapped: metadata.ErrArityMismatch,
		},
		"unknown_item": {
			pallet:     "System",
			item:       "Nope",
			errWrapped: metadata.ErrLookupNotFound,
			errMessage: "storage item System.Nope: not found",
		},
		"unknown_pallet": {
			pallet:     "Nope",
			item:       "Account",
			errWrapped: metadata.ErrLookupNotFound,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			key, err := codec.Key(testCase.pallet, testCase.item, testCase.parts...)
			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Nil(t, key.Bytes)
			if testCase.errMessage != "" {
				assert.EqualError(t, err, testCase.errMessage)
			}
		})
	}
}

func Test_Codec_Key_PartPosition(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)
	_, err := codec.Key("Torus0", "StakingTo", value.Bytes(alice), value.Uint(1))

	var arityErr *metadata.ArityMismatchError
	require.True(t, errors.As(err, &arityErr))
	assert.Equal(t, 1, arityErr.Position)
	assert.ErrorIs(t, err, metadata.ErrArityMismatch)
	assert.ErrorIs(t, err, value.ErrTypeMismatch)
}

func Test_Codec_DecodeKey(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	testCases := map[string]struct {
		pallet string
		item   string
		parts  []value.Value
	}{
		"blake2_128_concat": {
			pallet: "System",
			item:   "Account",
			parts:  []value.Value{value.Bytes(alice)},
		},
		"twox64_concat": {
			pallet: "System",
			item:   "BlockHash",
			parts:  []value.Value{value.Uint(7)},
		},
		"identity_double_map": {
			pallet: "Torus0",
			item:   "StakingTo",
			parts:  []value.Value{value.Bytes(alice), value.Bytes(bob)},
		},
		"identity_u64": {
			pallet: "Governance",
			item:   "Proposals",
			parts:  []value.Value{value.Uint(42)},
		},
		"plain": {
			pallet: "System",
			item:   "Number",
			parts:  []value.Value{},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			key, err := codec.Key(testCase.pallet, testCase.item, testCase.parts...)
			require.NoError(t, err)

			parts, err := codec.DecodeKey(testCase.pallet, testCase.item, key.Bytes)
			require.NoError(t, err)
			require.Len(t, parts, len(testCase.parts))
			for i := range parts {
				assert.True(t, testCase.parts[i].Equal(parts[i]), "part %d: %s", i, parts[i])
			}
		})
	}
}

func Test_Codec_DecodeKeySuffix(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	prefix, err := codec.Key("Torus0", "StakingTo", value.Bytes(alice))
	require.NoError(t, err)
	full, err := codec.Key("Torus0", "StakingTo", value.Bytes(alice), value.Bytes(bob))
	require.NoError(t, err)

	parts, err := codec.DecodeKeySuffix(prefix, full.Bytes)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.True(t, value.Bytes(bob).Equal(parts[0]))

	other, err := codec.Key("Torus0", "StakingTo", value.Bytes(bob), value.Bytes(bob))
	require.NoError(t, err)
	_, err = codec.DecodeKeySuffix(prefix, other.Bytes)
	assert.ErrorIs(t, err, storage.ErrMalformedKey)
}

func Test_Codec_DecodeKey_Errors(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	account, err := codec.Key("System", "Account", value.Bytes(alice))
	require.NoError(t, err)

	corrupted := append([]byte{}, account.Bytes...)
	corrupted[32] ^= 0xff

	testCases := map[string]struct {
		pallet     string
		item       string
		key        []byte
		errWrapped error
	}{
		"wrong_prefix": {
			pallet:     "Balances",
			item:       "Account",
			key:        account.Bytes,
			errWrapped: storage.ErrMalformedKey,
		},
		"digest_mismatch": {
			pallet:     "System",
			item:       "Account",
			key:        corrupted,
			errWrapped: storage.ErrMalformedKey,
		},
		"truncated": {
			pallet:     "System",
			item:       "Account",
			key:        account.Bytes[:len(account.Bytes)-1],
			errWrapped: storage.ErrMalformedKey,
		},
		"trailing_bytes": {
			pallet:     "System",
			item:       "Account",
			key:        append(append([]byte{}, account.Bytes...), 0),
			errWrapped: storage.ErrMalformedKey,
		},
		"bare_hasher": {
			pallet:     "Permission0",
			item:       "PermissionsByParticipants",
			key:        make([]byte, 32),
			errWrapped: metadata.ErrCapability,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			parts, err := codec.DecodeKey(testCase.pallet, testCase.item, testCase.key)
			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Nil(t, parts)
		})
	}
}

func Test_Codec_CheckRecoverable(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	err := codec.CheckRecoverable("Permission0", "PermissionsByParticipants", 0)
	var capabilityErr *metadata.CapabilityError
	require.True(t, errors.As(err, &capabilityErr))
	assert.Equal(t, 1, capabilityErr.Position)
	assert.Equal(t, metadata.Blake2_256, capabilityErr.Hasher)
	assert.EqualError(t, err, "capability error: key part 1 of "+
		"Permission0.PermissionsByParticipants uses Blake2_256 which cannot be recovered")

	assert.NoError(t, codec.CheckRecoverable("Permission0", "PermissionsByParticipants", 2))
	assert.NoError(t, codec.CheckRecoverable("System", "Account", 0))
	assert.ErrorIs(t, codec.CheckRecoverable("System", "Nope", 0), metadata.ErrLookupNotFound)
}

func Test_Codec_DecodeValue(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	encoded := make([]byte, 80)
	encoded[0] = 3   // nonce
	encoded[12] = 1  // sufficients
	encoded[16] = 10 // data.free

	v, err := codec.DecodeValue("System", "Account", encoded)
	require.NoError(t, err)

	nonce, err := v.Field("nonce")
	require.NoError(t, err)
	assert.True(t, value.Uint(3).Equal(nonce))

	data, err := v.Field("data")
	require.NoError(t, err)
	free, err := data.Field("free")
	require.NoError(t, err)
	assert.True(t, value.Uint(10).Equal(free))

	_, err = codec.DecodeValue("System", "Account", encoded[:79])
	assert.Error(t, err)

	id, err := codec.ValueType("System", "Number")
	require.NoError(t, err)
	registry := metadatatest.MustTorus(metadata.V14).Registry()
	ty, err := registry.Type(id)
	require.NoError(t, err)
	assert.Equal(t, metadata.U32, ty.Def.Primitive)
}

func Test_Codec_DefaultValue(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)

	v, ok, err := codec.DefaultValue("Emission0", "IncentivesRatio")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, value.Uint(50).Equal(v))

	v, ok, err = codec.DefaultValue("System", "Account")
	require.NoError(t, err)
	assert.True(t, ok)
	nonce, err := v.Field("nonce")
	require.NoError(t, err)
	assert.True(t, value.Uint(0).Equal(nonce))

	_, ok, err = codec.DefaultValue("Torus0", "Agents")
	require.NoError(t, err)
	assert.False(t, ok)
}
