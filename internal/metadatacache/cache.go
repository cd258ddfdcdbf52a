// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package metadatacache stores runtime metadata on disk by runtime version,
// compressed with zstd, in a badger database.
package metadatacache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/torus-network/torus-client-go/internal/log"
	"github.com/torus-network/torus-client-go/lib/client"
)

var logger log.LeveledLogger = log.NewFromGlobal(log.AddContext("pkg", "metadatacache"))

var _ client.MetadataCache = (*Cache)(nil)

const keyPrefix = "metadata/"

// Cache is a metadata cache. It is safe for concurrent use.
type Cache struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New opens the cache with the given settings.
func New(settings Settings) (cache *Cache, err error) {
	settings.SetDefaults()
	err = settings.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	options := badger.DefaultOptions(*settings.Path)
	options = options.WithLogger(nil)
	options = options.WithInMemory(*settings.InMemory)
	if *settings.InMemory {
		options = options.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	logger.Debugf("opened metadata cache at %q", *settings.Path)
	return &Cache{
		db:      db,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func makeKey(specName string, specVersion uint32) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(specName)+1+4)
	key = append(key, keyPrefix...)
	key = append(key, specName...)
	key = append(key, '/', 0, 0, 0, 0)
	binary.BigEndian.PutUint32(key[len(key)-4:], specVersion)
	return key
}

// Get returns the metadata cached for a runtime version.
func (c *Cache) Get(specName string, specVersion uint32) (raw []byte, found bool, err error) {
	var compressed []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(specName, specVersion))
		if err != nil {
			return fmt.Errorf("getting item from transaction: %w", err)
		}

		compressed, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copying value: %w", err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	raw, err = c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing metadata of %s v%d: %w", specName, specVersion, err)
	}
	return raw, true, nil
}

// Put caches the metadata of a runtime version.
func (c *Cache) Put(specName string, specVersion uint32, raw []byte) error {
	compressed := c.encoder.EncodeAll(raw, nil)
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(specName, specVersion), compressed)
	})
	if err != nil {
		return fmt.Errorf("caching metadata of %s v%d: %w", specName, specVersion, err)
	}
	logger.Debugf("cached metadata of %s v%d (%d bytes compressed to %d)",
		specName, specVersion, len(raw), len(compressed))
	return nil
}

// Version identifies a cached runtime.
type Version struct {
	SpecName    string
	SpecVersion uint32
}

// Versions returns the cached runtime versions in key order.
func (c *Cache) Versions() (versions []Version, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()[len(keyPrefix):]
			if len(key) < 5 {
				continue
			}
			versions = append(versions, Version{
				SpecName:    string(key[:len(key)-5]),
				SpecVersion: binary.BigEndian.Uint32(key[len(key)-4:]),
			})
		}
		return nil
	})
	return versions, err
}

// Close closes the cache.
func (c *Cache) Close() error {
	c.decoder.Close()
	err := c.encoder.Close()
	if err != nil {
		_ = c.db.Close()
		return fmt.Errorf("closing zstd encoder: %w", err)
	}
	return c.db.Close()
}
