// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

const (
	checksumInputCharset = "0123456789()[],'/*abcdefgh@:$%{}" +
		"IJKLMNOPQRSTUVWXYZ&+-.;<=>?!^_|~" +
		"ijklmnopqrstuvwxyzABCDEFGH`#\"\\ "

	checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

	checksumLen = 8
)

var (
	// ErrChecksumMismatch is returned when a descriptor carries a checksum
	// that does not match its content.
	ErrChecksumMismatch = errors.New("descriptor checksum mismatch")

	// ErrInvalidCharacter is returned for a descriptor containing a
	// character outside of the descriptor character set.
	ErrInvalidCharacter = errors.New("invalid character in descriptor")
)

var checksumGenerator = [5]uint64{
	0xf5dee51989, 0xa9fdca3312, 0x1bab10e32d, 0x3706b1677a, 0x644d626ffd,
}

func polyMod(c uint64, val int) uint64 {
	c0 := c >> 35
	c = ((c & 0x7ffffffff) << 5) ^ uint64(val)
	for i, gen := range checksumGenerator {
		if (c0>>uint(i))&1 == 1 {
			c ^= gen
		}
	}

	return c
}

// Checksum computes the BIP-380 checksum of a descriptor without its "#"
// suffix.
func Checksum(desc string) (string, error) {
	var (
		c        uint64 = 1
		cls      int
		clsCount int
	)

	for _, ch := range desc {
		pos := strings.IndexRune(checksumInputCharset, ch)
		if pos < 0 {
			return "", fmt.Errorf("%w: %q", ErrInvalidCharacter, ch)
		}

		c = polyMod(c, pos&31)
		cls = cls*3 + (pos >> 5)
		clsCount++
		if clsCount == 3 {
			c = polyMod(c, cls)
			cls = 0
			clsCount = 0
		}
	}
	if clsCount > 0 {
		c = polyMod(c, cls)
	}
	for i := 0; i < checksumLen; i++ {
		c = polyMod(c, 0)
	}
	c ^= 1

	var b strings.Builder
	for i := 0; i < checksumLen; i++ {
		b.WriteByte(checksumCharset[(c>>(5*(7-uint(i))))&31])
	}

	return b.String(), nil
}

// AddChecksum appends "#checksum" to the descriptor.
func AddChecksum(desc string) (string, error) {
	sum, err := Checksum(desc)
	if err != nil {
		return "", err
	}

	return desc + "#" + sum, nil
}

// StripChecksum verifies and removes a trailing checksum, if there is one.
func StripChecksum(desc string) (string, error) {
	body, sum, found := strings.Cut(desc, "#")
	if !found {
		return desc, nil
	}

	want, err := Checksum(body)
	if err != nil {
		return "", err
	}
	if sum != want {
		return "", fmt.Errorf("%w: got %s, want %s",
			ErrChecksumMismatch, sum, want)
	}

	return body, nil
}
