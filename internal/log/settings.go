// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
)

type contextKeyValues struct {
	key    string
	values []string
}

type settings struct {
	writer  io.Writer
	level   *Level
	format  *Format
	caller  callerSettings
	context []contextKeyValues
}

func newSettings(options []Option) (settings settings) {
	for _, option := range options {
		option(&settings)
	}
	return settings
}

// mergeWith sets all the unset fields of s with the fields of other.
// Context values of other come first.
func (s *settings) mergeWith(other settings) {
	if s.writer == nil {
		s.writer = other.writer
	}

	if s.level == nil && other.level != nil {
		s.level = levelPtr(*other.level)
	}

	if s.format == nil && other.format != nil {
		s.format = formatPtr(*other.format)
	}

	s.caller.mergeWith(other.caller)

	if len(other.context) == 0 {
		return
	}

	merged := make([]contextKeyValues, 0, len(other.context)+len(s.context))
	for _, kv := range other.context {
		merged = append(merged, contextKeyValues{
			key:    kv.key,
			values: append([]string(nil), kv.values...),
		})
	}
	for _, kv := range s.context {
		merged = addContext(merged, kv.key, kv.values...)
	}
	s.context = merged
}

// overrideWith sets all the fields of s which are set in other.
func (s *settings) overrideWith(other settings) {
	if other.writer != nil {
		s.writer = other.writer
	}

	if other.level != nil {
		s.level = levelPtr(*other.level)
	}

	if other.format != nil {
		s.format = formatPtr(*other.format)
	}

	s.caller.overrideWith(other.caller)

	for _, kv := range other.context {
		s.context = addContext(s.context, kv.key, kv.values...)
	}
}

func (s *settings) setDefaults() {
	if s.writer == nil {
		s.writer = os.Stdout
	}

	if s.level == nil {
		s.level = levelPtr(Info)
	}

	if s.format == nil {
		s.format = formatPtr(FormatConsole)
	}

	s.caller.setDefaults()
}

func addContext(context []contextKeyValues, key string, values ...string) []contextKeyValues {
	for i := range context {
		if context[i].key == key {
			context[i].values = append(context[i].values, values...)
			return context
		}
	}
	return append(context, contextKeyValues{
		key:    key,
		values: append([]string(nil), values...),
	})
}

func levelPtr(level Level) *Level    { return &level }
func formatPtr(format Format) *Format { return &format }
func boolPtr(b bool) *bool            { return &b }
