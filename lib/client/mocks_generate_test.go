// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

//go:generate mockgen -destination=mocks_test.go -package=$GOPACKAGE . Transport,MetadataCache
