// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torus-network/torus-client-go/config"
	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/event"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/metadata/metadatatest"
	"github.com/torus-network/torus-client-go/lib/torus"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

const (
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceHex  = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, b, 0o600)
	require.NoError(t, err)
	return path
}

func writeMetadata(t *testing.T, f *metadatatest.Fixture) string {
	t.Helper()
	return writeFile(t, "metadata.scale", f.Build())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	app := newApp(context.Background(), &stdout, io.Discard)
	err := app.Run(append([]string{"torusmeta"}, args...))
	return stdout.String(), err
}

func Test_Offline(t *testing.T) {
	t.Parallel()

	path := writeMetadata(t, metadatatest.Torus(metadata.V15))

	depositEvent, err := event.NewDecoder(metadatatest.MustTorus(metadata.V15)).EncodeFields(
		"Balances", "Deposit", torus.MustParseAccountID(aliceSS58).Value(), value.Uint(7))
	require.NoError(t, err)

	testCases := map[string]struct {
		args   []string
		output string
	}{
		"storage_key": {
			args: []string{"storage-key", "System", "Account", aliceSS58},
			output: "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9" +
				"de1e86a9a8c739864cf3cc5ec2bea59f" + aliceHex[2:] + "\n",
		},
		"storage_key_prefix": {
			args: []string{"storage-key", "Torus0", "StakingTo", aliceHex},
			output: "0xbe80e2632675a1c622584cb6639ea3e602ad22bf3ce60a7c67413dd9fd7ad4b9" +
				aliceHex[2:] + "\n",
		},
		"storage_key_plain": {
			args:   []string{"storage-key", "System", "Events"},
			output: "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7\n",
		},
		"encode_remark": {
			args:   []string{"encode-call", "System", "remark", "0x6869"},
			output: "0x0000086869\n",
		},
		"encode_transfer": {
			args:   []string{"encode-call", "Balances", "transfer_keep_alive", aliceSS58, "1000"},
			output: "0x0403" + aliceHex[2:] + "a10f\n",
		},
		"decode_call": {
			args:   []string{"decode-call", "0x0000086869"},
			output: "System.remark(0x6869)\n",
		},
		"decode_event": {
			args:   []string{"decode-event", "4", "7", common.BytesToHex(depositEvent)},
			output: "Balances.Deposit{who: " + aliceHex + ", amount: 7}\n",
		},
		"decode_no_records": {
			args:   []string{"decode-event", "--records", "0x00"},
			output: "",
		},
		"constant": {
			args:   []string{"constant", "Balances", "ExistentialDeposit"},
			output: "1000000000000\n",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"--metadata", path}, testCase.args...)
			output, err := run(t, args...)
			require.NoError(t, err)
			assert.Equal(t, testCase.output, output)
		})
	}
}

func Test_Offline_Errors(t *testing.T) {
	t.Parallel()

	path := writeMetadata(t, metadatatest.Torus(metadata.V14))

	testCases := map[string]struct {
		args       []string
		errWrapped error
		errMessage string
	}{
		"missing_arguments": {
			args:       []string{"--metadata", path, "storage-key", "System"},
			errWrapped: errMissingArguments,
			errMessage: "missing arguments: usage: storage-key <pallet> <item> [key parts...]",
		},
		"unknown_item": {
			args:       []string{"--metadata", path, "storage-key", "System", "Nope"},
			errWrapped: metadata.ErrLookupNotFound,
		},
		"too_many_key_parts": {
			args:       []string{"--metadata", path, "storage-key", "System", "Account", aliceSS58, aliceSS58},
			errWrapped: metadata.ErrArityMismatch,
		},
		"call_arity": {
			args:       []string{"--metadata", path, "encode-call", "Balances", "transfer_keep_alive", aliceSS58},
			errWrapped: metadata.ErrArityMismatch,
		},
		"unknown_event": {
			args:       []string{"--metadata", path, "decode-event", "99", "0", "0x"},
			errWrapped: metadata.ErrUnknownEvent,
		},
		"bad_pallet_index": {
			args:       []string{"--metadata", path, "decode-event", "256", "0", "0x"},
			errMessage: `parsing pallet index: strconv.ParseUint: parsing "256": value out of range`,
		},
		"truncated_records": {
			args:       []string{"--metadata", path, "decode-event", "--records", "0x04"},
			errWrapped: scale.ErrUnexpectedEOF,
		},
		"check_without_expectations": {
			args:       []string{"--metadata", path, "check"},
			errWrapped: errNoExpectations,
		},
		"missing_metadata_file": {
			args:       []string{"--metadata", filepath.Join(t.TempDir(), "nope"), "inspect"},
			errMessage: "reading metadata file: ",
		},
		"bad_log_level": {
			args:       []string{"--log", "loud", "inspect"},
			errWrapped: config.ErrInvalidConfig,
		},
		"bad_log_format": {
			args:       []string{"--log-format", "xml", "inspect"},
			errWrapped: config.ErrInvalidConfig,
		},
		"bad_endpoint": {
			args:       []string{"--endpoint", "ftp://127.0.0.1", "inspect"},
			errWrapped: config.ErrInvalidConfig,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := run(t, testCase.args...)
			require.Error(t, err)
			if testCase.errWrapped != nil {
				assert.ErrorIs(t, err, testCase.errWrapped)
			}
			if testCase.errMessage != "" {
				assert.Contains(t, err.Error(), testCase.errMessage)
			}
		})
	}
}

func Test_Inspect(t *testing.T) {
	t.Parallel()

	path := writeMetadata(t, metadatatest.Torus(metadata.V15))
	output, err := run(t, "--metadata", path, "inspect")
	require.NoError(t, err)

	assert.Contains(t, output, "Metadata V15")
	assert.Contains(t, output, "Torus0 #12")
	assert.Contains(t, output, "Runtime APIs (2)")
}

func Test_PinCheck(t *testing.T) {
	t.Parallel()

	path := writeMetadata(t, metadatatest.Torus(metadata.V15))
	expected, err := metadata.Pin(metadatatest.MustTorus(metadata.V15),
		torus.DefaultPallets(), torus.DefaultRuntimeAPIs())
	require.NoError(t, err)

	output, err := run(t, "--metadata", path, "pin")
	require.NoError(t, err)
	assert.Contains(t, output, expected.Metadata)

	expectations := filepath.Join(t.TempDir(), "expectations.toml")
	output, err = run(t, "--metadata", path, "pin", "--output", expectations)
	require.NoError(t, err)
	assert.Empty(t, output)

	exp, err := metadata.LoadExpectations(expectations)
	require.NoError(t, err)
	assert.Equal(t, expected, exp)

	output, err = run(t, "--metadata", path, "--expectations", expectations, "check")
	require.NoError(t, err)
	assert.Equal(t, "compatible "+expected.Metadata+"\n", output)

	mutated := metadatatest.Torus(metadata.V15)
	mutated.MutateCall("Balances", 0, func(v *metadata.Variant) {
		v.Fields = []metadata.Field{v.Fields[0], metadatatest.F("value", mutated.U128)}
	})
	mutatedPath := writeMetadata(t, mutated)

	output, err = run(t, "--metadata", mutatedPath, "--expectations", expectations, "check")
	assert.ErrorIs(t, err, metadata.ErrHashMismatch)
	assert.Equal(t, "diverged call Balances.transfer_allow_death\n", output)

	// a pinned encoder refuses the changed call but encodes the others
	_, err = run(t, "--metadata", mutatedPath, "--expectations", expectations,
		"encode-call", "Balances", "transfer_allow_death", aliceSS58, "1")
	assert.ErrorIs(t, err, metadata.ErrHashMismatch)

	output, err = run(t, "--metadata", mutatedPath, "--expectations", expectations,
		"encode-call", "System", "remark", "0x")
	require.NoError(t, err)
	assert.Equal(t, "0x000000\n", output)
}

func Test_ConfigFile(t *testing.T) {
	t.Parallel()

	path := writeMetadata(t, metadatatest.Torus(metadata.V14))
	configPath := writeFile(t, "config.toml", []byte(`
[log]
level = "warn"

[metadata]
file = "`+filepath.ToSlash(path)+`"

[compatibility]
pallets = ["Balances"]
`))

	expected, err := metadata.Pin(metadatatest.MustTorus(metadata.V14), []string{"Balances"}, nil)
	require.NoError(t, err)

	output, err := run(t, "--config", configPath, "pin")
	require.NoError(t, err)
	assert.Contains(t, output, expected.Metadata)
	assert.NotContains(t, output, "Torus0")
}
