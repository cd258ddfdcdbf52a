// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package rpc implements the node transport over JSON-RPC, on HTTP or
// websocket endpoints.
package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/torus-network/torus-client-go/internal/log"
	"github.com/torus-network/torus-client-go/lib/client"
	"github.com/torus-network/torus-client-go/lib/common"
)

var (
	// ErrUnsupportedScheme is returned for endpoints which are not http(s) or ws(s).
	ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")
	// ErrResponseError is returned for JSON-RPC error responses.
	ErrResponseError = errors.New("response error received")
	// ErrHTTPStatus is returned for non 2xx HTTP responses.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrConnectionClosed is returned for calls on a closed client.
	ErrConnectionClosed = errors.New("connection closed")
)

const (
	methodBlockHash      = "chain_getBlockHash"
	methodMetadata       = "state_getMetadata"
	methodRuntimeVersion = "state_getRuntimeVersion"
	methodStorage        = "state_getStorage"
	methodKeysPaged      = "state_getKeysPaged"
)

var logger log.LeveledLogger = log.NewFromGlobal(log.AddContext("pkg", "rpc"))

var _ client.Transport = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// Timeout bounds HTTP requests. Zero means no timeout.
	Timeout time.Duration
	// Metrics records requests if set.
	Metrics *Metrics
}

// Client is a node JSON-RPC client. It is safe for concurrent use.
type Client struct {
	rpc     *gethrpc.Client
	metrics *Metrics
}

// New connects to a node endpoint. Websocket endpoints are dialed right
// away, HTTP endpoints on every request.
func New(ctx context.Context, endpoint string, options Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}

	c := &Client{metrics: options.Metrics}
	switch u.Scheme {
	case "http", "https":
		c.rpc, err = gethrpc.DialHTTPWithClient(endpoint, &http.Client{Timeout: options.Timeout})
	case "ws", "wss":
		dialer := websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		}
		c.rpc, err = gethrpc.DialWebsocketWithDialer(ctx, endpoint, "", dialer)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", u.Redacted(), err)
	}

	logger.Debugf("connected to %s", u.Redacted())
	return c, nil
}

// Close closes the connection to the node.
func (c *Client) Close() error {
	c.rpc.Close()
	return nil
}

func (c *Client) call(ctx context.Context, method string, result interface{}, params ...interface{}) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(method, start, err)
	}()

	err = c.rpc.CallContext(ctx, result, method, params...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, wrapError(err))
	}
	logger.Debugf("%s succeeded", method)
	return nil
}

// wrapError maps go-ethereum rpc errors to the errors of this package.
func wrapError(err error) error {
	var rpcErr gethrpc.Error
	var httpErr gethrpc.HTTPError
	switch {
	case errors.As(err, &rpcErr):
		return fmt.Errorf("%w: %s (error code %d)", ErrResponseError, rpcErr.Error(), rpcErr.ErrorCode())
	case errors.As(err, &httpErr):
		return fmt.Errorf("%w: %d %s", ErrHTTPStatus, httpErr.StatusCode, bytes.TrimSpace(httpErr.Body))
	case errors.Is(err, gethrpc.ErrClientQuit):
		return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	default:
		return err
	}
}

func (c *Client) callHex(ctx context.Context, method string, params ...interface{}) (
	b []byte, found bool, err error) {
	var result *string
	err = c.call(ctx, method, &result, params...)
	if err != nil {
		return nil, false, err
	}
	if result == nil {
		return nil, false, nil
	}

	b, err = common.HexToBytes(*result)
	if err != nil {
		return nil, false, fmt.Errorf("%s: malformed hex result: %w", method, err)
	}
	return b, true, nil
}

func atParams(params []interface{}, at *common.Hash) []interface{} {
	if at != nil {
		params = append(params, at.String())
	}
	return params
}

// BlockHash returns the hash of the best block.
func (c *Client) BlockHash(ctx context.Context) (common.Hash, error) {
	b, found, err := c.callHex(ctx, methodBlockHash)
	if err != nil {
		return common.Hash{}, err
	}
	if !found || len(b) != len(common.Hash{}) {
		return common.Hash{}, fmt.Errorf("%s: malformed block hash 0x%x", methodBlockHash, b)
	}
	return common.NewHash(b), nil
}

// Metadata returns the raw SCALE metadata of the runtime at the given
// block, or at the best block if at is nil.
func (c *Client) Metadata(ctx context.Context, at *common.Hash) ([]byte, error) {
	b, found, err := c.callHex(ctx, methodMetadata, atParams(nil, at)...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: empty result", methodMetadata)
	}
	return b, nil
}

// RuntimeVersion returns the version of the runtime at the given block,
// or at the best block if at is nil.
func (c *Client) RuntimeVersion(ctx context.Context, at *common.Hash) (version client.RuntimeVersion, err error) {
	err = c.call(ctx, methodRuntimeVersion, &version, atParams(nil, at)...)
	return version, err
}

// Storage returns the value stored under key at the given block, or at
// the best block if at is nil.
func (c *Client) Storage(ctx context.Context, key []byte, at *common.Hash) ([]byte, bool, error) {
	params := atParams([]interface{}{common.BytesToHex(key)}, at)
	return c.callHex(ctx, methodStorage, params...)
}

// StorageKeysPaged returns up to count keys starting with prefix, strictly
// after startKey when it is not empty.
func (c *Client) StorageKeysPaged(ctx context.Context, prefix []byte, count uint32,
	startKey []byte, at *common.Hash) ([][]byte, error) {
	params := []interface{}{common.BytesToHex(prefix), count}
	if len(startKey) > 0 || at != nil {
		var start interface{}
		if len(startKey) > 0 {
			start = common.BytesToHex(startKey)
		}
		params = append(params, start)
	}
	params = atParams(params, at)

	var result []string
	err := c.call(ctx, methodKeysPaged, &result, params...)
	if err != nil {
		return nil, err
	}

	keys := make([][]byte, len(result))
	for i, s := range result {
		keys[i], err = common.HexToBytes(s)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed key %q: %w", methodKeysPaged, s, err)
		}
	}
	return keys, nil
}
