// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadatacache

import (
	"errors"
	"fmt"
	"path/filepath"
)

var ErrPathNotSet = errors.New("cache path is not set")

// Settings is the cache settings.
type Settings struct {
	// Path is the cache directory path to use.
	// It must be set unless InMemory is true.
	Path *string
	// InMemory keeps the cache in memory only.
	// It defaults to false if left unset.
	InMemory *bool
}

// SetDefaults sets the default values on the settings.
func (s *Settings) SetDefaults() {
	if s.Path == nil {
		s.Path = new(string)
	}
	if s.InMemory == nil {
		s.InMemory = new(bool)
	}
}

// Validate validates the settings.
func (s Settings) Validate() (err error) {
	if *s.InMemory {
		return nil
	}

	if *s.Path == "" {
		return ErrPathNotSet
	}

	_, err = filepath.Abs(*s.Path)
	if err != nil {
		return fmt.Errorf("changing path to absolute path: %w", err)
	}

	return nil
}
