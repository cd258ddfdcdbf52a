// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/torus"
	"github.com/torus-network/torus-client-go/lib/value"
)

const valuesUsage = `Values are given as:
   true, false       booleans
   42, -7            integers of any width
   0x00ff            bytes, for byte arrays and vectors
   5Grw...           SS58 addresses, as 32 account bytes
   "text"            strings
   text              any other text is taken as its UTF-8 bytes`

// parseValue converts a command line argument to a dynamic value.
func parseValue(s string) (value.Value, error) {
	switch s {
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}

	if strings.HasPrefix(s, "0x") {
		b, err := common.HexToBytes(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("parsing bytes %q: %w", s, err)
		}
		return value.Bytes(b), nil
	}

	if isInteger(s) {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return value.Value{}, fmt.Errorf("parsing integer %q", s)
		}
		switch {
		case i.Sign() >= 0 && i.IsUint64():
			return value.Uint(i.Uint64()), nil
		case i.Sign() >= 0:
			return value.BigUint(i), nil
		case i.IsInt64():
			return value.Int(i.Int64()), nil
		default:
			return value.BigInt(i), nil
		}
	}

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("parsing string %s: %w", s, err)
		}
		return value.String(unquoted), nil
	}

	account, err := torus.ParseAccountID(s)
	if err == nil {
		return account.Value(), nil
	}

	return value.Bytes([]byte(s)), nil
}

func parseValues(args []string) ([]value.Value, error) {
	values := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := parseValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

func isInteger(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
