// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the format of the logs.
type Format uint8

const (
	// FormatConsole writes one human readable line per log.
	FormatConsole Format = iota
	// FormatJSON writes one JSON object per log.
	FormatJSON
)

var ErrFormatNotValid = errors.New("log format is not valid")

func (f Format) String() string {
	switch f {
	case FormatConsole:
		return "console"
	case FormatJSON:
		return "json"
	default:
		return "format(" + fmt.Sprint(uint8(f)) + ")"
	}
}

// ParseFormat parses a case insensitive format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "console":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrFormatNotValid, s)
}
