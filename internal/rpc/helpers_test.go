// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Version string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type testError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type testResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *testError      `json:"error,omitempty"`
}

const testBlockHash = "0x0101010101010101010101010101010101010101010101010101010101010101"

// fakeNode answers the state methods from in memory data.
type fakeNode struct {
	metadata string
	version  map[string]interface{}
	storage  map[string]string

	mu       sync.Mutex
	requests []testRequest
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		metadata: "0x6d65746110",
		version: map[string]interface{}{
			"specName":           "torus-runtime",
			"implName":           "torus-runtime",
			"authoringVersion":   1,
			"specVersion":        21,
			"implVersion":        1,
			"transactionVersion": 1,
			"stateVersion":       1,
			"apis":               [][]interface{}{{"0xdf6acb689907609b", 5}},
		},
		storage: map[string]string{
			"0xaa01": "0x05",
			"0xaa02": "0x",
			"0xaa03": "0x07",
			"0xbb01": "0x09",
		},
	}
}

func (n *fakeNode) handle(req testRequest) testResponse {
	n.mu.Lock()
	n.requests = append(n.requests, req)
	n.mu.Unlock()

	res := testResponse{Version: "2.0", ID: req.ID}
	params := make([]string, len(req.Params))
	for i, p := range req.Params {
		params[i] = strings.Trim(string(p), `"`)
	}

	switch req.Method {
	case methodBlockHash:
		res.Result = testBlockHash
	case methodMetadata:
		res.Result = n.metadata
	case methodRuntimeVersion:
		res.Result = n.version
	case methodStorage:
		value, ok := n.storage[params[0]]
		if !ok {
			res.Result = json.RawMessage("null")
			break
		}
		res.Result = value
	case methodKeysPaged:
		keys := []string{}
		for k := range n.storage {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var count int
		_ = json.Unmarshal(req.Params[1], &count)
		start := ""
		if len(params) > 2 && params[2] != "null" {
			start = params[2]
		}

		page := []string{}
		for _, k := range keys {
			if strings.HasPrefix(k, params[0]) && k > start && len(page) < count {
				page = append(page, k)
			}
		}
		res.Result = page
	default:
		res.Error = &testError{Code: -32601, Message: "Method not found"}
	}
	return res
}

func (n *fakeNode) lastParams(t *testing.T) []string {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.requests)
	last := n.requests[len(n.requests)-1]
	params := make([]string, len(last.Params))
	for i, p := range last.Params {
		params[i] = string(p)
	}
	return params
}

func (n *fakeNode) httpHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var req testRequest
		err = json.Unmarshal(body, &req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(n.handle(req))
	})
}

func (n *fakeNode) websocketHandler() http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req testRequest
			err := conn.ReadJSON(&req)
			if err != nil {
				return
			}
			err = conn.WriteJSON(n.handle(req))
			if err != nil {
				return
			}
		}
	})
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func websocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func counterValue(t *testing.T, registry *prometheus.Registry, method, outcome string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "torus_client_rpc_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if hasLabels(metric, map[string]string{"method": method, "outcome": outcome}) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func histogramCount(t *testing.T, registry *prometheus.Registry, method string) uint64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "torus_client_rpc_request_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if hasLabels(metric, map[string]string{"method": method}) {
				return metric.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if value, ok := labels[pair.GetName()]; ok {
			if value != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}
