// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrColumnRange is returned when a stored integer does not fit the
	// field it is read into.
	ErrColumnRange = errors.New("column value out of range")

	// ErrBranchExhausted is returned by NextIndex for a branch whose last
	// possible index is already stored.
	ErrBranchExhausted = errors.New("address branch exhausted")
)

// unsigned are the field types of integer columns.
type unsigned interface {
	~uint8 | ~uint32
}

// readColumn converts the value of an integer column to the field type.
func readColumn[T unsigned](column string, v int64) (T, error) {
	if v < 0 || uint64(v) > uint64(^T(0)) {
		return 0, fmt.Errorf("%s = %d: %w", column, v, ErrColumnRange)
	}

	return T(v), nil
}

// nextIndex returns the index after the highest stored index of a branch.
// NULL is the maximum of an empty branch.
func nextIndex(maxIndex sql.NullInt64) (uint32, error) {
	if !maxIndex.Valid {
		return 0, nil
	}

	index, err := readColumn[uint32]("address_index", maxIndex.Int64)
	if err != nil {
		return 0, err
	}
	if index == ^uint32(0) {
		return 0, ErrBranchExhausted
	}

	return index + 1, nil
}
