// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of descriptor error.
type ErrorCode int

// These constants are used to identify a specific DescriptorError.
const (
	// ErrDuplicateSigner indicates a signer whose key is already used by
	// another signer of the wallet.
	ErrDuplicateSigner ErrorCode = iota

	// ErrUnknownConditionSigner indicates a condition requiring the
	// signature of a signer the wallet does not have.
	ErrUnknownConditionSigner

	// ErrInsufficientSignerCount indicates a condition requiring more
	// signatures than there are signers.
	ErrInsufficientSignerCount

	// ErrDuplicateCondition indicates a condition already present at the
	// same depth.
	ErrDuplicateCondition

	// ErrNoSigners indicates a wallet without signers.
	ErrNoSigners

	// ErrNoConditions indicates a wallet without spending conditions.
	ErrNoConditions

	// ErrNoDescriptorClasses indicates a wallet without descriptor
	// classes.
	ErrNoDescriptorClasses

	// ErrInvalidTimelock indicates a condition whose timelock cannot be
	// expressed in script.
	ErrInvalidTimelock

	// ErrInvalidThreshold indicates a condition requiring zero
	// signatures.
	ErrInvalidThreshold

	// ErrInvalidClass indicates an unknown descriptor class.
	ErrInvalidClass
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateSigner:         "ErrDuplicateSigner",
	ErrUnknownConditionSigner:  "ErrUnknownConditionSigner",
	ErrInsufficientSignerCount: "ErrInsufficientSignerCount",
	ErrDuplicateCondition:      "ErrDuplicateCondition",
	ErrNoSigners:               "ErrNoSigners",
	ErrNoConditions:            "ErrNoConditions",
	ErrNoDescriptorClasses:     "ErrNoDescriptorClasses",
	ErrInvalidTimelock:         "ErrInvalidTimelock",
	ErrInvalidThreshold:        "ErrInvalidThreshold",
	ErrInvalidClass:            "ErrInvalidClass",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}

	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// DescriptorError is returned when signers, spending conditions or
// descriptor classes do not form a valid wallet descriptor.
type DescriptorError struct {
	Code ErrorCode
	Desc string
	Err  error
}

// Error satisfies the error interface and prints human-readable errors.
func (e DescriptorError) Error() string {
	if e.Err != nil {
		return e.Desc + ": " + e.Err.Error()
	}

	return e.Desc
}

// Unwrap returns the underlying error, if any.
func (e DescriptorError) Unwrap() error {
	return e.Err
}

func descriptorError(c ErrorCode, err error, format string,
	args ...any) DescriptorError {

	return DescriptorError{
		Code: c,
		Desc: fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// IsError returns whether the error is a DescriptorError with a matching
// error code.
func IsError(err error, code ErrorCode) bool {
	var e DescriptorError
	return errors.As(err, &e) && e.Code == code
}
