// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package docfile reads and writes documents wrapped in a file envelope: a
// four byte magic number followed by the strict encoding of the document.
package docfile

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// Extension is the file extension of wallet documents.
const Extension = ".mcw"

// Magic identifies the kind of document stored in a file.
type Magic [4]byte

// WalletMagic is the magic of wallet documents, the first four bytes of
// sha256("mycitadel:wallet:v1").
var WalletMagic = Magic{0xa4, 0x54, 0x6a, 0x8e}

// String returns the magic in hex.
func (m Magic) String() string {
	return hex.EncodeToString(m[:])
}

// ErrDataNotEntirelyConsumed is returned when a document was decoded but
// bytes remain in the file after it.
var ErrDataNotEntirelyConsumed = errors.New("data not entirely consumed")

// MagicError is returned when a file does not start with the expected magic.
type MagicError struct {
	Expected Magic
	Actual   Magic
}

// Error implements the error interface.
func (e *MagicError) Error() string {
	return fmt.Sprintf("wrong file magic: expected %v, found %v",
		e.Expected, e.Actual)
}

// Encoder is a document with a strict binary encoding.
type Encoder interface {
	Encode(w io.Writer) error
}

// Decoder is a document that can be decoded from its strict encoding.
type Decoder interface {
	Decode(r io.Reader) error
}

// Write writes the magic and the document.
func Write(w io.Writer, magic Magic, doc Encoder) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}

	return doc.Encode(w)
}

// Read reads the magic and the document, failing if the magic differs or if
// any data follows the document.
func Read(r io.Reader, magic Magic, doc Decoder) error {
	var actual Magic
	if _, err := io.ReadFull(r, actual[:]); err != nil {
		return fmt.Errorf("unable to read file magic: %w", err)
	}
	if actual != magic {
		return &MagicError{Expected: magic, Actual: actual}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	reader := bytes.NewReader(data)
	if err := doc.Decode(reader); err != nil {
		return err
	}
	if reader.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes",
			ErrDataNotEntirelyConsumed, reader.Len())
	}

	return nil
}

// WriteFile creates or truncates the file and writes the document to it.
func WriteFile(path string, magic Magic, doc Encoder) error {
	var buf bytes.Buffer
	if err := Write(&buf, magic, doc); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0600)
}

// ReadFile reads the document from the file.
func ReadFile(path string, magic Magic, doc Decoder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return Read(f, magic, doc)
}
