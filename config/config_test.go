// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torus-network/torus-client-go/internal/log"
)

func Test_Default(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, log.Info, level)
	format, err := cfg.LogFormat()
	require.NoError(t, err)
	assert.Equal(t, log.FormatConsole, format)
	assert.Equal(t, []string{"System", "Balances", "Torus0", "Emission0", "Governance", "Permission0"},
		cfg.Compatibility.Pallets)
}

func Test_Parse(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		toml       string
		check      func(t *testing.T, cfg *Config)
		errWrapped error
		wantErr    bool
	}{
		"empty": {
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		"full": {
			toml: `
[log]
level = "dbug"
format = "json"

[rpc]
endpoint = "wss://api.torus.network"
timeout = "5s"
page_size = 100

[metadata]
file = "torus.scale"
cache_dir = "/var/cache/torusmeta"

[compatibility]
expectations = "expectations.toml"
pallets = ["Balances", "Torus0"]
runtime_apis = ["Core"]
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, &Config{
					Log: LogConfig{Level: "dbug", Format: "json"},
					RPC: RPCConfig{
						Endpoint: "wss://api.torus.network",
						Timeout:  Duration(5 * time.Second),
						PageSize: 100,
					},
					Metadata: MetadataConfig{
						File:     "torus.scale",
						CacheDir: "/var/cache/torusmeta",
					},
					Compatibility: CompatibilityConfig{
						Expectations: "expectations.toml",
						Pallets:      []string{"Balances", "Torus0"},
						RuntimeAPIs:  []string{"Core"},
					},
				}, cfg)
			},
		},
		"partial_keeps_defaults": {
			toml: "[rpc]\nendpoint = \"http://localhost:9933\"\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://localhost:9933", cfg.RPC.Endpoint)
				assert.Equal(t, uint32(512), cfg.RPC.PageSize)
				assert.Equal(t, Duration(30*time.Second), cfg.RPC.Timeout)
			},
		},
		"bad_log_level": {
			toml:       "[log]\nlevel = \"loud\"\n",
			errWrapped: ErrInvalidConfig,
		},
		"bad_log_format": {
			toml:       "[log]\nformat = \"xml\"\n",
			errWrapped: ErrInvalidConfig,
		},
		"bad_endpoint_scheme": {
			toml:       "[rpc]\nendpoint = \"ftp://localhost\"\n",
			errWrapped: ErrInvalidConfig,
		},
		"endpoint_without_host": {
			toml:       "[rpc]\nendpoint = \"ws://\"\n",
			errWrapped: ErrInvalidConfig,
		},
		"page_size_too_large": {
			toml:       "[rpc]\npage_size = 5000\n",
			errWrapped: ErrInvalidConfig,
		},
		"empty_pallet_name": {
			toml:       "[compatibility]\npallets = [\"\"]\n",
			errWrapped: ErrInvalidConfig,
		},
		"bad_duration": {
			toml:    "[rpc]\ntimeout = \"soon\"\n",
			wantErr: true,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse([]byte(testCase.toml))
			if testCase.errWrapped != nil || testCase.wantErr {
				assert.Nil(t, cfg)
				require.Error(t, err)
				if testCase.errWrapped != nil {
					assert.ErrorIs(t, err, testCase.errWrapped)
				}
				return
			}

			require.NoError(t, err)
			testCase.check(t, cfg)
		})
	}
}

func Test_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o600)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, log.Warn, level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Duration_MarshalText(t *testing.T) {
	t.Parallel()

	text, err := Duration(90 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
