// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoWildcard is returned for a terminal path without wildcards.
	ErrNoWildcard = errors.New("terminal path must contain a wildcard")

	// ErrTooManyWildcards is returned for a terminal path with more than
	// the two wildcards that change and index can fill.
	ErrTooManyWildcards = errors.New("terminal path contains more than " +
		"two wildcards")
)

// TerminalStep is a single step of the unhardened derivation below an
// account key: either a fixed index or a wildcard.
type TerminalStep struct {
	// Wildcard is set when the step is filled in at derivation time.
	Wildcard bool

	// Index is the fixed child index of a non-wildcard step.
	Index uint32
}

// WildcardStep returns a wildcard step.
func WildcardStep() TerminalStep {
	return TerminalStep{Wildcard: true}
}

// IndexStep returns a fixed step.
func IndexStep(index uint32) TerminalStep {
	return TerminalStep{Index: index}
}

// String renders the step in descriptor syntax.
func (s TerminalStep) String() string {
	if s.Wildcard {
		return "*"
	}

	return FormatIndex(s.Index)
}

// Terminal is the derivation below an account key.
type Terminal []TerminalStep

// DefaultTerminal returns the change/index terminal "/*/*".
func DefaultTerminal() Terminal {
	return Terminal{WildcardStep(), WildcardStep()}
}

// ParseTerminal parses a terminal path such as "/*/*" or "/0/*".
func ParseTerminal(s string) (Terminal, error) {
	s = strings.TrimPrefix(s, "/")

	var terminal Terminal
	for _, part := range strings.Split(s, "/") {
		if part == "*" {
			terminal = append(terminal, WildcardStep())
			continue
		}

		index, err := ParseIndex(part)
		if err != nil {
			return nil, err
		}
		if IsHardened(index) {
			return nil, fmt.Errorf("%w: hardened terminal step %s",
				ErrInvalidPath, part)
		}
		terminal = append(terminal, IndexStep(index))
	}

	return terminal, terminal.Validate()
}

// Wildcards returns the number of wildcard steps.
func (t Terminal) Wildcards() int {
	var n int
	for _, step := range t {
		if step.Wildcard {
			n++
		}
	}

	return n
}

// Validate checks that the terminal has one or two wildcards and no hardened
// steps.
func (t Terminal) Validate() error {
	switch n := t.Wildcards(); {
	case n == 0:
		return ErrNoWildcard
	case n > 2:
		return ErrTooManyWildcards
	}

	for _, step := range t {
		if !step.Wildcard && IsHardened(step.Index) {
			return fmt.Errorf("%w: hardened terminal step %v",
				ErrInvalidPath, step)
		}
	}

	return nil
}

// String renders the terminal with a leading slash, e.g. "/*/*".
func (t Terminal) String() string {
	var b strings.Builder
	for _, step := range t {
		b.WriteByte('/')
		b.WriteString(step.String())
	}

	return b.String()
}

// Fill returns the concrete path for the given change and address index.
// With two wildcards the first one takes the change and the second the
// index; a single wildcard takes the index.
func (t Terminal) Fill(change, index uint32) ([]uint32, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if IsHardened(change) || IsHardened(index) {
		return nil, fmt.Errorf("%w: hardened wildcard value",
			ErrInvalidPath)
	}

	values := []uint32{change, index}
	values = values[len(values)-t.Wildcards():]

	path := make([]uint32, len(t))
	for i, step := range t {
		if !step.Wildcard {
			path[i] = step.Index
			continue
		}

		path[i] = values[0]
		values = values[1:]
	}

	return path, nil
}
