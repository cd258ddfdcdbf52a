// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

type callerSettings struct {
	file *bool
	line *bool
	funC *bool
}

func (c *callerSettings) mergeWith(other callerSettings) {
	if c.file == nil && other.file != nil {
		c.file = boolPtr(*other.file)
	}

	if c.line == nil && other.line != nil {
		c.line = boolPtr(*other.line)
	}

	if c.funC == nil && other.funC != nil {
		c.funC = boolPtr(*other.funC)
	}
}

func (c *callerSettings) overrideWith(other callerSettings) {
	if other.file != nil {
		c.file = boolPtr(*other.file)
	}

	if other.line != nil {
		c.line = boolPtr(*other.line)
	}

	if other.funC != nil {
		c.funC = boolPtr(*other.funC)
	}
}

func (c *callerSettings) setDefaults() {
	if c.file == nil {
		c.file = boolPtr(false)
	}

	if c.line == nil {
		c.line = boolPtr(false)
	}

	if c.funC == nil {
		c.funC = boolPtr(false)
	}
}

// getCallerString returns the file:Lline:function of the caller
// at the given stack depth, with parts omitted as configured.
func getCallerString(settings callerSettings, depth int) (s string) {
	if !*settings.file && !*settings.line && !*settings.funC {
		return ""
	}

	pc, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "error"
	}

	var fields []string

	if *settings.file {
		fields = append(fields, filepath.Base(file))
	}

	if *settings.line {
		fields = append(fields, "L"+fmt.Sprint(line))
	}

	if *settings.funC {
		details := runtime.FuncForPC(pc)
		if details != nil {
			funcName := strings.TrimLeft(filepath.Ext(details.Name()), ".")
			fields = append(fields, funcName)
		}
	}

	return strings.Join(fields, ":")
}
