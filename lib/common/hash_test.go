// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToHash(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		in         string
		hash       Hash
		errWrapped error
	}{
		"valid": {
			in:   "0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
			hash: NewHash(MustHexToBytes("0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8")),
		},
		"no prefix": {
			in:         "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
			errWrapped: ErrNoPrefix,
		},
		"too short": {
			in:         "0x0102",
			errWrapped: ErrHashLength,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			hash, err := HexToHash(testCase.in)

			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Equal(t, testCase.hash, hash)
		})
	}
}

func TestHash_TextRoundTrip(t *testing.T) {
	hash := MustBlake2bHash([]byte("torus"))

	text, err := hash.MarshalText()
	require.NoError(t, err)

	var decoded Hash
	err = decoded.UnmarshalText(text)
	require.NoError(t, err)
	assert.Equal(t, hash, decoded)
	assert.Equal(t, string(text), hash.String())
}

func TestHexToBytes_OddLength(t *testing.T) {
	b, err := HexToBytes("0x102")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, b)
}

func TestConcat(t *testing.T) {
	a := []byte{1, 2}
	b := []byte{3}

	c := Concat(a, b, nil, []byte{4})

	assert.Equal(t, []byte{1, 2, 3, 4}, c)
	assert.Equal(t, []byte{1, 2}, a)
}
