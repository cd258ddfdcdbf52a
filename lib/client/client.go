// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/torus-network/torus-client-go/internal/log"
	"github.com/torus-network/torus-client-go/lib/call"
	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/compat"
	"github.com/torus-network/torus-client-go/lib/constant"
	"github.com/torus-network/torus-client-go/lib/event"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/storage"
	"github.com/torus-network/torus-client-go/lib/value"
)

// DefaultPageSize is the number of keys fetched per page when iterating.
const DefaultPageSize uint32 = 512

var logger = log.NewFromGlobal(log.AddContext("pkg", "client"))

// Config is the client configuration.
type Config struct {
	// Expectations gates the client on the compatibility hash and the
	// call hashes they pin. Nil disables both checks.
	Expectations *metadata.Expectations
	// Metadata, if set, is used instead of the node metadata. It may be
	// raw, hex or zstd compressed.
	Metadata []byte
	// Cache, if set, keeps fetched metadata by runtime version.
	Cache MetadataCache
	// PageSize is the default number of keys per page when iterating.
	PageSize uint32
	// Logger defaults to the package logger.
	Logger log.LeveledLogger
}

// Client binds a node transport to the metadata of its runtime.
type Client struct {
	transport Transport
	logger    log.LeveledLogger
	pageSize  uint32
	version   RuntimeVersion

	desc     *metadata.Descriptor
	codec    *storage.Codec
	encoder  *call.Encoder
	resolver *constant.Resolver
	events   *event.Decoder
}

// New loads the runtime metadata, checks it against the configured
// expectations and returns a client for it. An incompatible runtime
// fails with a *metadata.HashMismatchError.
func New(ctx context.Context, transport Transport, cfg Config) (*Client, error) {
	c := &Client{
		transport: transport,
		logger:    cfg.Logger,
		pageSize:  cfg.PageSize,
	}
	if c.logger == nil {
		c.logger = logger
	}
	if c.pageSize == 0 {
		c.pageSize = DefaultPageSize
	}

	raw, err := c.loadMetadata(ctx, cfg)
	if err != nil {
		return nil, err
	}

	desc, err := metadata.Parse(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("parsed metadata v%d with %d pallets", desc.Version(), len(desc.Pallets()))

	if cfg.Expectations != nil {
		err = checkCompatibility(desc, cfg.Expectations, c.logger)
		if err != nil {
			return nil, err
		}
	}

	c.desc = desc
	c.codec = storage.NewCodec(desc)
	c.encoder = call.NewEncoder(desc, cfg.Expectations)
	c.resolver = constant.NewResolver(desc)
	c.events = event.NewDecoder(desc)
	return c, nil
}

func checkCompatibility(desc *metadata.Descriptor, exp *metadata.Expectations, logger log.LeveledLogger) error {
	validator, err := compat.NewValidator(exp)
	if err != nil {
		return err
	}

	err = validator.Validate(desc)
	if err != nil {
		diverged, divergedErr := validator.DivergedCalls(desc)
		if divergedErr == nil && len(diverged) > 0 {
			logger.Warnf("calls diverging from pinned metadata: %s", strings.Join(diverged, ", "))
		}
		return fmt.Errorf("checking runtime compatibility: %w", err)
	}

	logger.Infof("runtime compatible with pinned metadata for pallets %s",
		strings.Join(exp.Pallets, ", "))
	return nil
}

func (c *Client) loadMetadata(ctx context.Context, cfg Config) ([]byte, error) {
	if cfg.Metadata != nil {
		return metadata.DecodeBlob(cfg.Metadata)
	}

	if cfg.Cache == nil {
		raw, err := c.transport.Metadata(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching metadata: %w", err)
		}
		return raw, nil
	}

	// version and metadata must come from the same runtime
	at, err := c.transport.BlockHash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching best block hash: %w", err)
	}

	version, err := c.transport.RuntimeVersion(ctx, &at)
	if err != nil {
		return nil, fmt.Errorf("fetching runtime version: %w", err)
	}
	c.version = version

	raw, found, err := cfg.Cache.Get(version.SpecName, version.SpecVersion)
	switch {
	case err != nil:
		c.logger.Warnf("reading metadata cache: %s", err)
	case found:
		c.logger.Debugf("using cached metadata of %s v%d", version.SpecName, version.SpecVersion)
		return raw, nil
	}

	raw, err = c.transport.Metadata(ctx, &at)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}

	err = cfg.Cache.Put(version.SpecName, version.SpecVersion, raw)
	if err != nil {
		c.logger.Warnf("writing metadata cache: %s", err)
	}
	return raw, nil
}

// Descriptor returns the runtime metadata.
func (c *Client) Descriptor() *metadata.Descriptor { return c.desc }

// Codec returns the storage codec of the runtime.
func (c *Client) Codec() *storage.Codec { return c.codec }

// Encoder returns the call encoder of the runtime.
func (c *Client) Encoder() *call.Encoder { return c.encoder }

// EventDecoder returns the event decoder of the runtime.
func (c *Client) EventDecoder() *event.Decoder { return c.events }

// RuntimeVersion returns the runtime version fetched when loading
// metadata, which is only known when a cache is configured.
func (c *Client) RuntimeVersion() RuntimeVersion { return c.version }

// EncodeCall returns the payload of a call.
func (c *Client) EncodeCall(cl call.Call) ([]byte, error) {
	return c.encoder.EncodeCall(cl)
}

// Constant returns the decoded value of a pallet constant.
func (c *Client) Constant(pallet, name string) (value.Value, error) {
	return c.resolver.Decode(pallet, name)
}

// Events returns the event records of the block at the given hash, or of
// the best block if at is nil. Records decoded before an unknown event are
// returned along with the *metadata.UnknownEventError.
func (c *Client) Events(ctx context.Context, at *common.Hash) ([]event.Record, error) {
	key, err := c.codec.Key("System", "Events")
	if err != nil {
		return nil, err
	}

	raw, found, err := c.transport.Storage(ctx, key.Bytes, at)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	if !found {
		return nil, nil
	}
	return c.events.DecodeRecords(raw)
}
