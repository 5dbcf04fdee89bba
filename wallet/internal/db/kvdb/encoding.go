// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvdb

import (
	"encoding/binary"
	"errors"
	"time"
)

// errBadTime is returned for a malformed stored timestamp.
var errBadTime = errors.New("malformed timestamp")

// putTime encodes a time as big endian unix seconds.
func putTime(t time.Time) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(t.Unix()))

	return b[:]
}

// getTime decodes a time written by putTime.
func getTime(b []byte) (time.Time, error) {
	if len(b) != 8 {
		return time.Time{}, errBadTime
	}

	return time.Unix(int64(binary.BigEndian.Uint64(b)), 0).UTC(), nil
}
