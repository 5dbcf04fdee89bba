// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// Fingerprint is the BIP-32 fingerprint of a key: the first four bytes of
// the HASH160 of its compressed public key.
type Fingerprint [4]byte

// FingerprintOf returns the fingerprint of the given public key.
func FingerprintOf(pubKey *btcec.PublicKey) Fingerprint {
	var fp Fingerprint
	copy(fp[:], btcutil.Hash160(pubKey.SerializeCompressed()))

	return fp
}

// ParseFingerprint parses a fingerprint from its eight hex digit form.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint

	b, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if len(b) != len(fp) {
		return fp, fmt.Errorf("invalid fingerprint %q: expected %d "+
			"bytes, got %d", s, len(fp), len(b))
	}
	copy(fp[:], b)

	return fp, nil
}

// String returns the fingerprint as eight lower case hex digits.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Uint32 returns the fingerprint in the little endian integer form used by
// the psbt package.
func (f Fingerprint) Uint32() uint32 {
	return binary.LittleEndian.Uint32(f[:])
}

// FingerprintFromUint32 is the inverse of Fingerprint.Uint32.
func FingerprintFromUint32(v uint32) Fingerprint {
	var fp Fingerprint
	binary.LittleEndian.PutUint32(fp[:], v)

	return fp
}
