// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"context"

	"github.com/torus-network/torus-client-go/lib/common"
)

// Transport is the node connection used by the client. A nil block hash
// means the best block.
type Transport interface {
	// BlockHash returns the hash of the best block.
	BlockHash(ctx context.Context) (common.Hash, error)
	// Metadata returns the raw SCALE metadata of the runtime.
	Metadata(ctx context.Context, at *common.Hash) ([]byte, error)
	// RuntimeVersion returns the version of the runtime.
	RuntimeVersion(ctx context.Context, at *common.Hash) (RuntimeVersion, error)
	// Storage returns the value stored under key. found is false when
	// nothing is stored.
	Storage(ctx context.Context, key []byte, at *common.Hash) (value []byte, found bool, err error)
	// StorageKeysPaged returns up to count keys starting with prefix, in
	// order, strictly after startKey when it is not empty.
	StorageKeysPaged(ctx context.Context, prefix []byte, count uint32,
		startKey []byte, at *common.Hash) ([][]byte, error)
}

// RuntimeVersion is the version of a runtime as reported by the node.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	AuthoringVersion   uint32 `json:"authoringVersion"`
	SpecVersion        uint32 `json:"specVersion"`
	ImplVersion        uint32 `json:"implVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
	StateVersion       uint8  `json:"stateVersion"`
}

// MetadataCache stores raw metadata by runtime version.
type MetadataCache interface {
	Get(specName string, specVersion uint32) (raw []byte, found bool, err error)
	Put(specName string, specVersion uint32, raw []byte) error
}
