// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"bytes"
	"testing"

	gsscale "github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	ctypes "github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/require"
)

// Test_CompactMatchesGoSubstrateRPCClient checks the compact integer
// encoding is byte for byte the one of the go-substrate-rpc-client.
func Test_CompactMatchesGoSubstrateRPCClient(t *testing.T) {
	t.Parallel()

	values := []uint64{0, 1, 63, 64, 1000, 16383, 16384, 1<<30 - 1, 1 << 30, 1 << 32, 1<<56 + 7}
	for _, v := range values {
		buffer := bytes.NewBuffer(nil)
		err := gsscale.NewEncoder(buffer).Encode(ctypes.NewUCompactFromUInt(v))
		require.NoError(t, err)

		require.Equal(t, buffer.Bytes(), EncodeCompactUint64(v), "value %d", v)
	}
}
