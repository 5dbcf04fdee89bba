// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/policy"
)

var (
	// ErrTemplateSigners is returned when the number of signers does not
	// fit a template.
	ErrTemplateSigners = errors.New("signer count not allowed by template")

	// ErrTemplateDevice is returned when a signer violates the hardware
	// or watch-only requirement of a template.
	ErrTemplateDevice = errors.New("signer not allowed by template")

	// ErrTemplateThreshold is returned for a preset with fewer required
	// signatures than it supports.
	ErrTemplateThreshold = errors.New("invalid number of required " +
		"signatures for template")
)

// Requirement tells whether signers of a kind may, must or must not take
// part in a wallet.
type Requirement uint8

const (
	// Allow permits signers of the kind.
	Allow Requirement = iota

	// Require demands every signer to be of the kind.
	Require

	// Deny forbids signers of the kind.
	Deny
)

// String returns the name of the requirement.
func (r Requirement) String() string {
	switch r {
	case Allow:
		return "allow"
	case Require:
		return "require"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// check returns false if the signers violate the requirement.
func (r Requirement) check(signers []Signer, is func(Signer) bool) bool {
	for _, signer := range signers {
		switch {
		case r == Require && !is(signer):
			return false
		case r == Deny && is(signer):
			return false
		}
	}

	return true
}

// WalletTemplate is a wallet preset: a derivation standard, the spending
// conditions and constraints on the signers. Unlike WalletSettings a template
// does not check its conditions against the signers until it is built.
type WalletTemplate struct {
	// Standard is the derivation standard of the signer keys.
	Standard keyorigin.DerivationStandard

	// MinSigners is the minimum number of signers, if limited.
	MinSigners fn.Option[uint16]

	// MaxSigners is the maximum number of signers, if limited.
	MaxSigners fn.Option[uint16]

	// Hardware constrains signers held by hardware devices.
	Hardware Requirement

	// WatchOnly constrains signers without a device.
	WatchOnly Requirement

	// Conditions are the spending conditions of the wallet.
	Conditions []policy.DepthCondition

	// Network is the network of the wallet.
	Network Network
}

// yearsFrom returns the same instant n years after now.
func yearsFrom(now time.Time, n int) time.Time {
	return now.AddDate(n, 0, 0)
}

func anybodyAfter(t time.Time) policy.Condition {
	return policy.Sigs(policy.Any(), policy.AfterDate(t))
}

// SinglesigTemplate returns the template of a single key wallet. A hardware
// wallet must use a device, otherwise the key must be watch-only.
func SinglesigTemplate(taproot bool, network Network,
	requireHardware bool) *WalletTemplate {

	std := keyorigin.Bip84
	if taproot {
		std = keyorigin.Bip86
	}

	hardware, watchOnly := Deny, Require
	if requireHardware {
		hardware, watchOnly = Require, Deny
	}

	return &WalletTemplate{
		Standard:   std,
		MinSigners: fn.Some[uint16](1),
		MaxSigners: fn.Some[uint16](1),
		Hardware:   hardware,
		WatchOnly:  watchOnly,
		Conditions: []policy.DepthCondition{{
			Condition: policy.Sigs(policy.All(), policy.NoTimelock()),
		}},
		Network: network,
	}
}

// HodlingTemplate returns the template of a savings wallet: every signer can
// spend together, any single signer after five years.
func HodlingTemplate(clk clock.Clock, network Network, sigsRequired uint16,
	hardware, watchOnly Requirement) (*WalletTemplate, error) {

	if sigsRequired < 3 {
		return nil, fmt.Errorf("%w: hodling needs at least 3, got %d",
			ErrTemplateThreshold, sigsRequired)
	}

	now := clk.Now()
	conds := []policy.DepthCondition{
		{
			Depth: 1,
			Condition: policy.Sigs(
				policy.All(), policy.NoTimelock(),
			),
		},
		{Depth: 2, Condition: anybodyAfter(yearsFrom(now, 5))},
	}
	policy.SortConditions(conds)

	return &WalletTemplate{
		Standard:   keyorigin.Bip87,
		MinSigners: fn.Some(sigsRequired),
		MaxSigners: fn.None[uint16](),
		Hardware:   hardware,
		WatchOnly:  watchOnly,
		Conditions: conds,
		Network:    network,
	}, nil
}

// MultisigTemplate returns the template of a multisig wallet. Without a
// threshold every signer must sign. With a threshold of n the wallet falls
// back to fewer signatures over time:
//
//	n = 2: both signers, or any signer after five years;
//	n = 3: two signers, or any signer after five years;
//	n > 3: n-1 signers, or half of them after three years, or any signer
//	       after five years.
func MultisigTemplate(clk clock.Clock, network Network,
	sigsRequired fn.Option[uint16], hardware,
	watchOnly Requirement) (*WalletTemplate, error) {

	now := clk.Now()
	minSigners := sigsRequired.UnwrapOr(2)

	var conds []policy.DepthCondition
	switch {
	case sigsRequired.IsNone():
		conds = []policy.DepthCondition{{
			Condition: policy.Sigs(policy.All(), policy.NoTimelock()),
		}}

	case minSigners < 2:
		return nil, fmt.Errorf("%w: multisig needs more than one, "+
			"got %d", ErrTemplateThreshold, minSigners)

	case minSigners == 2:
		conds = []policy.DepthCondition{
			{
				Depth: 1,
				Condition: policy.Sigs(
					policy.All(), policy.NoTimelock(),
				),
			},
			{Depth: 2, Condition: anybodyAfter(yearsFrom(now, 5))},
		}

	case minSigners == 3:
		conds = []policy.DepthCondition{
			{
				Depth: 1,
				Condition: policy.Sigs(
					policy.AtLeast(2), policy.NoTimelock(),
				),
			},
			{Depth: 2, Condition: anybodyAfter(yearsFrom(now, 5))},
		}

	default:
		half := minSigners/2 + minSigners%2
		conds = []policy.DepthCondition{
			{
				Depth: 1,
				Condition: policy.Sigs(
					policy.AtLeast(minSigners-1),
					policy.NoTimelock(),
				),
			},
			{
				Depth: 2,
				Condition: policy.Sigs(
					policy.AtLeast(half),
					policy.AfterDate(yearsFrom(now, 3)),
				),
			},
			{Depth: 3, Condition: anybodyAfter(yearsFrom(now, 5))},
		}
	}
	policy.SortConditions(conds)

	return &WalletTemplate{
		Standard:   keyorigin.Bip87,
		MinSigners: fn.Some(minSigners),
		MaxSigners: fn.None[uint16](),
		Hardware:   hardware,
		WatchOnly:  watchOnly,
		Conditions: conds,
		Network:    network,
	}, nil
}

// DescriptorClass returns the class wallets of the template use. Standards
// without a specific class use native segwit.
func (t *WalletTemplate) DescriptorClass() descriptor.Class {
	return t.Standard.DescriptorClass().UnwrapOr(descriptor.SegwitV0)
}

// CheckSigners validates the signers against the count and device
// constraints of the template.
func (t *WalletTemplate) CheckSigners(signers []Signer) error {
	count := len(signers)

	var err error
	t.MinSigners.WhenSome(func(limit uint16) {
		if count < int(limit) {
			err = fmt.Errorf("%w: %d signers, at least %d required",
				ErrTemplateSigners, count, limit)
		}
	})
	t.MaxSigners.WhenSome(func(limit uint16) {
		if err == nil && count > int(limit) {
			err = fmt.Errorf("%w: %d signers, at most %d allowed",
				ErrTemplateSigners, count, limit)
		}
	})
	if err != nil {
		return err
	}

	isHardware := func(s Signer) bool { return s.Device != "" }
	if !t.Hardware.check(signers, isHardware) {
		return fmt.Errorf("%w: hardware signers %v", ErrTemplateDevice,
			t.Hardware)
	}

	isWatchOnly := func(s Signer) bool { return s.Device == "" }
	if !t.WatchOnly.check(signers, isWatchOnly) {
		return fmt.Errorf("%w: watch-only signers %v",
			ErrTemplateDevice, t.WatchOnly)
	}

	return nil
}

// Build checks the signers and creates the wallet settings of the template.
func (t *WalletTemplate) Build(signers []Signer,
	terminal descriptor.Terminal) (*WalletSettings, error) {

	if err := t.CheckSigners(signers); err != nil {
		return nil, err
	}

	return Build(
		signers, t.Conditions, []descriptor.Class{t.DescriptorClass()},
		terminal, t.Network,
	)
}
