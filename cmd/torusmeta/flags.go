// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"github.com/urfave/cli"
)

// Global flags, overriding the configuration file.
var (
	// ConfigFlag TOML configuration file
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	// LogFlag cli service settings
	LogFlag = cli.StringFlag{
		Name:  "log",
		Usage: "Log level. Supports levels crit (silent), eror, warn, info, dbug and trce (trace)",
	}
	LogFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format, console or json",
	}
	EndpointFlag = cli.StringFlag{
		Name:  "endpoint",
		Usage: "Node RPC endpoint, eg. ws://127.0.0.1:9944",
	}
	MetadataFlag = cli.StringFlag{
		Name:  "metadata",
		Usage: "Metadata file (raw, hex or zstd) used instead of the node metadata",
	}
	CacheDirFlag = cli.StringFlag{
		Name:  "cache-dir",
		Usage: "Metadata cache directory",
	}
	ExpectationsFlag = cli.StringFlag{
		Name:  "expectations",
		Usage: "Pinned expectations TOML file gating the runtime compatibility",
	}
	MetricsAddressFlag = cli.StringFlag{
		Name:  "metrics-address",
		Usage: "Serve RPC metrics on this address while the command runs, eg. :9876",
	}
)

var globalFlags = []cli.Flag{
	ConfigFlag,
	LogFlag,
	LogFormatFlag,
	EndpointFlag,
	MetadataFlag,
	CacheDirFlag,
	ExpectationsFlag,
	MetricsAddressFlag,
}

// Command flags
var (
	// OutputFlag is the file written by the command instead of stdout.
	OutputFlag = cli.StringFlag{
		Name:  "output",
		Usage: "Output file, stdout if unset",
	}
	// CompressFlag writes zstd compressed metadata.
	CompressFlag = cli.BoolFlag{
		Name:  "compress",
		Usage: "Compress the metadata with zstd",
	}
	// RecordsFlag decodes a full System.Events value.
	RecordsFlag = cli.BoolFlag{
		Name:  "records",
		Usage: "Decode the hex argument as a System.Events storage value",
	}
	// AtFlag selects the block state to read.
	AtFlag = cli.StringFlag{
		Name:  "at",
		Usage: "Block hash to read the state at, best block if unset",
	}
	// PageSizeFlag overrides the configured iteration page size.
	PageSizeFlag = cli.UintFlag{
		Name:  "page-size",
		Usage: "Number of keys fetched per request when iterating",
	}
	// LimitFlag stops iterating after this many entries.
	LimitFlag = cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of entries to print, 0 for all",
	}
)
