// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// ErrInvalidPath is returned when a derivation path cannot be parsed.
var ErrInvalidPath = errors.New("invalid derivation path")

// IsHardened reports whether the child index is hardened.
func IsHardened(index uint32) bool {
	return index >= hdkeychain.HardenedKeyStart
}

// FormatIndex renders a single child index, using the "h" suffix for hardened
// indexes.
func FormatIndex(index uint32) string {
	if IsHardened(index) {
		return strconv.FormatUint(
			uint64(index-hdkeychain.HardenedKeyStart), 10,
		) + "h"
	}

	return strconv.FormatUint(uint64(index), 10)
}

// FormatPath renders a derivation path without the leading "m/", e.g.
// "48h/1h/0h/2h".
func FormatPath(path []uint32) string {
	parts := make([]string, len(path))
	for i, index := range path {
		parts[i] = FormatIndex(index)
	}

	return strings.Join(parts, "/")
}

// ParseIndex parses a single child index. Both "h" and "'" mark a hardened
// index.
func ParseIndex(s string) (uint32, error) {
	hardened := strings.HasSuffix(s, "h") || strings.HasSuffix(s, "H") ||
		strings.HasSuffix(s, "'")
	if hardened {
		s = s[:len(s)-1]
	}

	index, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad index %q", ErrInvalidPath, s)
	}
	if index >= hdkeychain.HardenedKeyStart {
		return 0, fmt.Errorf("%w: index %d out of range",
			ErrInvalidPath, index)
	}

	if hardened {
		index += hdkeychain.HardenedKeyStart
	}

	return uint32(index), nil
}

// ParsePath parses a derivation path. A leading "m" component is accepted
// and ignored.
func ParsePath(s string) ([]uint32, error) {
	s = strings.TrimPrefix(s, "m")
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, "/")
	path := make([]uint32, 0, len(parts))
	for _, part := range parts {
		index, err := ParseIndex(part)
		if err != nil {
			return nil, err
		}
		path = append(path, index)
	}

	return path, nil
}
