// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/torus-network/torus-client-go/config"
	"github.com/torus-network/torus-client-go/internal/log"
	"github.com/torus-network/torus-client-go/internal/metadatacache"
	"github.com/torus-network/torus-client-go/internal/metrics"
	"github.com/torus-network/torus-client-go/internal/rpc"
	"github.com/torus-network/torus-client-go/lib/client"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/urfave/cli"
)

var errNoExpectations = errors.New("no expectations file configured")

// env holds what commands share during a single run: the configuration
// and the lazily opened node connection, metadata cache and client.
type env struct {
	ctx context.Context
	cfg *config.Config
	exp *metadata.Expectations

	registry  *prometheus.Registry
	server    *metrics.Server
	transport *rpc.Client
	cache     *metadatacache.Cache
	client    *client.Client
}

// setup loads the configuration, applies the global flags on top of it
// and patches the global logger.
func (e *env) setup(c *cli.Context) (err error) {
	cfg := config.Default()
	if path := c.String(ConfigFlag.Name); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
	}

	if s := c.String(LogFlag.Name); s != "" {
		cfg.Log.Level = s
	}
	if s := c.String(LogFormatFlag.Name); s != "" {
		cfg.Log.Format = s
	}
	if s := c.String(EndpointFlag.Name); s != "" {
		cfg.RPC.Endpoint = s
	}
	if s := c.String(MetadataFlag.Name); s != "" {
		cfg.Metadata.File = s
	}
	if s := c.String(CacheDirFlag.Name); s != "" {
		cfg.Metadata.CacheDir = s
	}
	if s := c.String(ExpectationsFlag.Name); s != "" {
		cfg.Compatibility.Expectations = s
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	format, err := cfg.LogFormat()
	if err != nil {
		return err
	}
	log.Patch(log.SetLevel(level), log.SetFormat(format), log.SetWriter(c.App.ErrWriter))

	if cfg.Compatibility.Expectations != "" {
		e.exp, err = metadata.LoadExpectations(cfg.Compatibility.Expectations)
		if err != nil {
			return err
		}
	}

	if address := c.String(MetricsAddressFlag.Name); address != "" {
		e.registry = prometheus.NewRegistry()
		e.server = metrics.NewServer(address, e.registry)
		err = e.server.Start()
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
	}

	e.cfg = cfg
	return nil
}

// dial connects to the configured node.
func (e *env) dial() (*rpc.Client, error) {
	if e.transport != nil {
		return e.transport, nil
	}

	options := rpc.Options{Timeout: time.Duration(e.cfg.RPC.Timeout)}
	if e.registry != nil {
		options.Metrics = rpc.NewMetrics(e.registry)
	}

	logger.Debugf("connecting to %s", e.cfg.RPC.Endpoint)
	transport, err := rpc.New(e.ctx, e.cfg.RPC.Endpoint, options)
	if err != nil {
		return nil, err
	}
	e.transport = transport
	return transport, nil
}

// openCache opens the configured metadata cache, or returns nil if
// caching is disabled.
func (e *env) openCache() (*metadatacache.Cache, error) {
	if e.cache != nil || e.cfg.Metadata.CacheDir == "" {
		return e.cache, nil
	}

	path := e.cfg.Metadata.CacheDir
	cache, err := metadatacache.New(metadatacache.Settings{Path: &path})
	if err != nil {
		return nil, fmt.Errorf("opening metadata cache: %w", err)
	}
	e.cache = cache
	return cache, nil
}

// connect returns a client for the configured node. If gated is true and
// expectations are configured, an incompatible runtime is an error.
func (e *env) connect(gated bool) (*client.Client, error) {
	if e.client != nil {
		return e.client, nil
	}

	transport, err := e.dial()
	if err != nil {
		return nil, err
	}

	clientCfg := client.Config{PageSize: e.cfg.RPC.PageSize}
	if gated {
		clientCfg.Expectations = e.exp
	}

	if e.cfg.Metadata.File != "" {
		clientCfg.Metadata, err = os.ReadFile(e.cfg.Metadata.File)
		if err != nil {
			return nil, fmt.Errorf("reading metadata file: %w", err)
		}
	} else {
		cache, err := e.openCache()
		if err != nil {
			return nil, err
		}
		if cache != nil {
			clientCfg.Cache = cache
		}
	}

	e.client, err = client.New(e.ctx, transport, clientCfg)
	if err != nil {
		return nil, err
	}
	return e.client, nil
}

// descriptor returns the metadata of the configured file, or of the node
// if no file is configured. It never applies the compatibility gate.
func (e *env) descriptor() (*metadata.Descriptor, error) {
	if e.cfg.Metadata.File != "" {
		return metadata.ReadFile(e.cfg.Metadata.File)
	}

	c, err := e.connect(false)
	if err != nil {
		return nil, err
	}
	return c.Descriptor(), nil
}

// close releases whatever the command opened.
func (e *env) close(*cli.Context) error {
	var errs []error
	if e.transport != nil {
		errs = append(errs, e.transport.Close())
	}
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	if e.server != nil {
		errs = append(errs, e.server.Stop())
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
