// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"context"
	"fmt"

	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/storage"
	"github.com/torus-network/torus-client-go/lib/value"
)

// FetchRaw returns the bytes stored under the full key of a pallet item.
// When nothing is stored, found is false and the declared default is
// returned for Default items, nil for Optional ones.
func (c *Client) FetchRaw(ctx context.Context, pallet, item string, parts ...value.Value) (
	b []byte, found bool, err error) {
	key, err := c.codec.Key(pallet, item, parts...)
	if err != nil {
		return nil, false, err
	}
	err = storage.RequireFullKey(key)
	if err != nil {
		return nil, false, err
	}

	b, found, err = c.transport.Storage(ctx, key.Bytes, nil)
	if err != nil {
		return nil, false, fmt.Errorf("fetching %s: %w", key, err)
	}
	if found {
		return b, true, nil
	}

	entry, err := c.desc.StorageItem(pallet, item)
	if err != nil {
		return nil, false, err
	}
	if entry.Modifier == metadata.Default {
		return append([]byte{}, entry.Default...), false, nil
	}
	return nil, false, nil
}

// Fetch returns the decoded value stored under the full key of a pallet
// item. Iteration only keys are rejected with a *metadata.ArityMismatchError
// before any request. When nothing is stored, found is false and the
// value is the declared default of Default items, or the zero Value for
// Optional items.
func (c *Client) Fetch(ctx context.Context, pallet, item string, parts ...value.Value) (
	v value.Value, found bool, err error) {
	b, found, err := c.FetchRaw(ctx, pallet, item, parts...)
	if err != nil {
		return value.Value{}, false, err
	}
	if !found && b == nil {
		return value.Value{}, false, nil
	}

	v, err = c.codec.DecodeValue(pallet, item, b)
	if err != nil {
		return value.Value{}, false, err
	}
	return v, found, nil
}

// Entry is a storage entry found when iterating.
type Entry struct {
	Key []byte
	// Parts holds the key parts following the iteration prefix.
	Parts []value.Value
	Value value.Value
}

// Iterate calls fn for every entry of a pallet item whose key starts with
// the given prefix parts, in key order, fetching pageSize keys per request.
// A zero pageSize uses the configured one. All pages and values are read
// at the best block when the iteration starts. Iterating fails with a
// *metadata.CapabilityError before any request when a key part after the
// prefix can not be recovered. An error returned by fn stops the iteration
// and is returned as is.
func (c *Client) Iterate(ctx context.Context, pallet, item string, prefix []value.Value,
	pageSize uint32, fn func(Entry) error) error {
	key, err := c.codec.Key(pallet, item, prefix...)
	if err != nil {
		return err
	}
	err = c.codec.CheckRecoverable(pallet, item, key.Parts)
	if err != nil {
		return err
	}

	if pageSize == 0 {
		pageSize = c.pageSize
	}

	at, err := c.transport.BlockHash(ctx)
	if err != nil {
		return fmt.Errorf("fetching best block hash: %w", err)
	}

	var start []byte
	for {
		keys, err := c.transport.StorageKeysPaged(ctx, key.Bytes, pageSize, start, &at)
		if err != nil {
			return fmt.Errorf("fetching keys of %s: %w", key, err)
		}
		c.logger.Debugf("fetched %d keys of %s.%s at %s", len(keys), pallet, item, at)

		for _, k := range keys {
			parts, err := c.codec.DecodeKeySuffix(key, k)
			if err != nil {
				return err
			}

			b, found, err := c.transport.Storage(ctx, k, &at)
			if err != nil {
				return fmt.Errorf("fetching %s.%s: %w", pallet, item, err)
			}
			if !found {
				// removed since the keys were listed
				continue
			}

			v, err := c.codec.DecodeValue(pallet, item, b)
			if err != nil {
				return err
			}

			err = fn(Entry{Key: k, Parts: parts, Value: v})
			if err != nil {
				return err
			}
		}

		if uint32(len(keys)) < pageSize {
			return nil
		}
		start = keys[len(keys)-1]
	}
}
