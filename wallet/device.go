// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
)

// ErrNoDevices is returned by an enumerator that finds no usable device.
var ErrNoDevices = errors.New("no devices detected or all devices are " +
	"locked")

// HardwareDevice is a connected hardware signer together with the key of its
// default account.
type HardwareDevice struct {
	Fingerprint    descriptor.Fingerprint
	DeviceType     string
	Model          string
	DefaultAccount uint32
	DefaultXpub    *hdkeychain.ExtendedKey
}

// HardwareList is the set of connected devices by master fingerprint.
type HardwareList map[descriptor.Fingerprint]HardwareDevice

// Fingerprints returns the fingerprints of the devices in ascending order.
func (l HardwareList) Fingerprints() []descriptor.Fingerprint {
	fps := make([]descriptor.Fingerprint, 0, len(l))
	for fp := range l {
		fps = append(fps, fp)
	}
	slices.SortFunc(fps, func(a, b descriptor.Fingerprint) int {
		return bytes.Compare(a[:], b[:])
	})

	return fps
}

// DerivationNotSupportedError is reported for a device that cannot provide
// the key of the requested derivation.
type DerivationNotSupportedError struct {
	Fingerprint descriptor.Fingerprint
	DeviceType  string
	Model       string
	Standard    keyorigin.DerivationStandard
	Network     Network
	Err         error
}

// Error implements the error interface.
func (e *DerivationNotSupportedError) Error() string {
	return fmt.Sprintf("device %s (%s, master fingerprint %v) does not "+
		"support derivation standard %v on %v: %v", e.Model,
		e.DeviceType, e.Fingerprint, e.Standard, e.Network, e.Err)
}

// Unwrap returns the device error.
func (e *DerivationNotSupportedError) Unwrap() error {
	return e.Err
}

// DeviceEnumerator finds the connected hardware signers.
type DeviceEnumerator interface {
	// Enumerate returns the devices able to provide the key of the
	// account, and for every other device the reason it cannot.
	Enumerate(ctx context.Context, std keyorigin.DerivationStandard,
		network Network, account uint32) (HardwareList, []error, error)
}

// SignersFromDevices returns a signer for every device whose key is not
// used by any of the known signers, in fingerprint order.
func SignersFromDevices(devices HardwareList, std keyorigin.DerivationStandard,
	network Network, known []Signer) ([]Signer, error) {

	cores := make(map[keyorigin.XpubkeyCore]struct{}, len(known))
	for i := range known {
		core, err := known[i].Core()
		if err != nil {
			return nil, err
		}
		cores[core] = struct{}{}
	}

	var signers []Signer
	for _, fp := range devices.Fingerprints() {
		device := devices[fp]

		core, err := keyorigin.CoreOf(device.DefaultXpub)
		if err != nil {
			return nil, err
		}
		if _, ok := cores[core]; ok {
			continue
		}

		signers = append(signers, SignerWithDevice(device, std, network))
	}

	return signers, nil
}
