// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/policy"
	"github.com/mycitadel/mcwallet/taptree"
)

var (
	// ErrPrivateSigner is returned when a signer is given with an
	// extended private key.
	ErrPrivateSigner = errors.New("signer keys must be extended public " +
		"keys")

	// ErrUnsupportedCondition is returned for a condition of an unknown
	// kind.
	ErrUnsupportedCondition = errors.New("unsupported spending condition " +
		"kind")
)

// WalletDescriptor is the identity of a wallet: everything that determines
// the scripts of the wallet and nothing else. Classes and Conditions are
// sorted sets, SigningKeys keeps the order the signers were added in.
type WalletDescriptor struct {
	// Testnet is set for wallets of any test network.
	Testnet bool

	// Classes are the descriptor classes the wallet uses.
	Classes []descriptor.Class

	// Terminal is the derivation below the account keys.
	Terminal descriptor.Terminal

	// SigningKeys are the cores of the signer keys.
	SigningKeys []keyorigin.XpubkeyCore

	// Conditions are the alternative spending conditions in depth-first
	// order.
	Conditions []policy.DepthCondition
}

// ID returns the hash of the strict encoding of the descriptor.
func (d *WalletDescriptor) ID() (chainhash.Hash, error) {
	data, err := d.Bytes()
	if err != nil {
		return chainhash.Hash{}, err
	}

	return chainhash.HashH(data), nil
}

// HasClass reports whether the wallet uses the descriptor class.
func (d *WalletDescriptor) HasClass(class descriptor.Class) bool {
	_, found := slices.BinarySearch(d.Classes, class)
	return found
}

func (d *WalletDescriptor) clone() WalletDescriptor {
	return WalletDescriptor{
		Testnet:     d.Testnet,
		Classes:     slices.Clone(d.Classes),
		Terminal:    slices.Clone(d.Terminal),
		SigningKeys: slices.Clone(d.SigningKeys),
		Conditions:  slices.Clone(d.Conditions),
	}
}

// WalletSettings is a wallet descriptor together with the signers it was
// built from, the network and the chain server. Signers, conditions and
// classes are only changed through the validating setters, each of which
// either succeeds or leaves the settings untouched.
//
// WalletSettings is not safe for concurrent mutation.
type WalletSettings struct {
	descriptor WalletDescriptor
	network    Network
	signers    []Signer
	electrum   ElectrumServer
}

// NewWalletSettings returns settings without signers, conditions and
// classes.
func NewWalletSettings(network Network,
	terminal descriptor.Terminal) (*WalletSettings, error) {

	if err := terminal.Validate(); err != nil {
		return nil, err
	}

	return &WalletSettings{
		descriptor: WalletDescriptor{
			Testnet:  network.IsTestnet(),
			Terminal: slices.Clone(terminal),
		},
		network:  network,
		electrum: DefaultElectrumServer(),
	}, nil
}

// Build creates wallet settings from the signers, the conditions and the
// classes. Validation stops at the first violation:
//
//  1. every signer key must be unique;
//  2. every condition must only reference known signers and require no more
//     signatures than there are signers;
//  3. no condition may repeat at the same depth;
//  4. signers, conditions and classes must all be non-empty.
func Build(signers []Signer, conditions []policy.DepthCondition,
	classes []descriptor.Class, terminal descriptor.Terminal,
	network Network) (*WalletSettings, error) {

	settings, err := NewWalletSettings(network, terminal)
	if err != nil {
		return nil, err
	}

	for _, signer := range signers {
		if err := settings.AddSigner(signer); err != nil {
			return nil, err
		}
	}
	for _, cond := range conditions {
		err := settings.AddCondition(cond.Depth, cond.Condition)
		if err != nil {
			return nil, err
		}
	}
	for _, class := range classes {
		if err := settings.AddDescriptorClass(class); err != nil {
			return nil, err
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks that the settings describe a complete wallet.
func (s *WalletSettings) Validate() error {
	switch {
	case len(s.signers) == 0:
		return descriptorError(ErrNoSigners, nil,
			"wallet has no signers")

	case len(s.descriptor.Conditions) == 0:
		return descriptorError(ErrNoConditions, nil,
			"wallet has no spending conditions")

	case len(s.descriptor.Classes) == 0:
		return descriptorError(ErrNoDescriptorClasses, nil,
			"wallet has no descriptor classes")
	}

	return nil
}

// Descriptor returns a copy of the wallet descriptor.
func (s *WalletSettings) Descriptor() WalletDescriptor {
	return s.descriptor.clone()
}

// Network returns the network of the wallet.
func (s *WalletSettings) Network() Network {
	return s.network
}

// Signers returns the signers in the order they were added.
func (s *WalletSettings) Signers() []Signer {
	return slices.Clone(s.signers)
}

// Electrum returns the chain server of the wallet.
func (s *WalletSettings) Electrum() ElectrumServer {
	return s.electrum
}

// SetElectrum changes the chain server of the wallet.
func (s *WalletSettings) SetElectrum(server ElectrumServer) {
	s.electrum = server
}

// AddSigner adds a signer whose key is not yet used by the wallet.
func (s *WalletSettings) AddSigner(signer Signer) error {
	if signer.Xpub == nil || signer.Xpub.IsPrivate() {
		return ErrPrivateSigner
	}

	core, err := signer.Core()
	if err != nil {
		return err
	}
	if slices.Contains(s.descriptor.SigningKeys, core) {
		return descriptorError(ErrDuplicateSigner, nil,
			"signer %q with master fingerprint %v is already "+
				"present", signer.Name, signer.Fingerprint)
	}

	signer.Origin = slices.Clone(signer.Origin)
	s.signers = append(s.signers, signer)
	s.descriptor.SigningKeys = append(s.descriptor.SigningKeys, core)

	log.Debugf("Added signer %v", &s.signers[len(s.signers)-1])

	return nil
}

// AddCondition adds an alternative spending condition at the depth.
func (s *WalletSettings) AddCondition(depth uint8,
	cond policy.Condition) error {

	if cond.Kind != policy.ConditionSigs {
		return fmt.Errorf("%w: %d", ErrUnsupportedCondition, cond.Kind)
	}

	sigs := cond.Sigs.Sigs
	switch sigs.Kind {
	case policy.SigsSpecific:
		known := slices.ContainsFunc(s.signers, func(signer Signer) bool {
			return signer.Fingerprint == sigs.Signer
		})
		if !known {
			return descriptorError(ErrUnknownConditionSigner, nil,
				"spending condition %v references unknown "+
					"signer %v", cond, sigs.Signer)
		}

	case policy.SigsAtLeast:
		if sigs.Count == 0 {
			return descriptorError(ErrInvalidThreshold, nil,
				"spending condition %v requires no signatures",
				cond)
		}
		if int(sigs.Count) > len(s.signers) {
			return descriptorError(ErrInsufficientSignerCount, nil,
				"insufficient number of signers %d to support "+
					"spending condition %v", len(s.signers),
				cond)
		}
	}

	if err := cond.Sigs.Timelock.Validate(); err != nil {
		return descriptorError(ErrInvalidTimelock, err,
			"invalid timelock in spending condition %v", cond)
	}

	entry := policy.DepthCondition{Depth: depth, Condition: cond}
	if policy.ContainsCondition(s.descriptor.Conditions, entry) {
		return descriptorError(ErrDuplicateCondition, nil,
			"duplicated spending condition %v", entry)
	}

	s.descriptor.Conditions = append(s.descriptor.Conditions, entry)
	policy.SortConditions(s.descriptor.Conditions)

	return nil
}

// AddDescriptorClass adds a descriptor class. Adding a class the wallet
// already uses has no effect.
func (s *WalletSettings) AddDescriptorClass(class descriptor.Class) error {
	if !class.IsValid() {
		return descriptorError(ErrInvalidClass, nil,
			"unknown descriptor class %v", class)
	}
	if s.descriptor.HasClass(class) {
		return nil
	}

	s.descriptor.Classes = append(s.descriptor.Classes, class)
	slices.Sort(s.descriptor.Classes)

	return nil
}

// keyEntries returns the tracking keys of the signers in signer order.
func (s *WalletSettings) keyEntries() ([]policy.KeyEntry, error) {
	net := s.network.Params()

	entries := make([]policy.KeyEntry, 0, len(s.signers))
	for i := range s.signers {
		key, err := s.signers[i].TrackingKey(s.descriptor.Terminal, net)
		if err != nil {
			return nil, fmt.Errorf("signer %v: %w", &s.signers[i], err)
		}

		entries = append(entries, policy.KeyEntry{
			Fingerprint: s.signers[i].Fingerprint,
			Key:         key,
		})
	}

	return entries, nil
}

// DescriptorForClass compiles the descriptor of the class. A wallet with a
// single signer gets the plain single key descriptor of the class. With more
// signers every spending condition becomes a policy: for taproot each policy
// is a leaf of the script tree under an unsatisfiable internal key, for the
// other classes the policies are combined into a single OR script.
func (s *WalletSettings) DescriptorForClass(
	class descriptor.Class) (*descriptor.Descriptor, error) {

	if !class.IsValid() {
		return nil, descriptorError(ErrInvalidClass, nil,
			"unknown descriptor class %v", class)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	keys, err := s.keyEntries()
	if err != nil {
		return nil, err
	}

	if len(keys) == 1 {
		return descriptor.NewSingleSig(class, keys[0].Key)
	}

	items := make([]taptree.Item[policy.Node], 0,
		len(s.descriptor.Conditions))
	for _, cond := range s.descriptor.Conditions {
		node, err := policy.ToPolicy(cond.Condition, keys)
		if err != nil {
			return nil, fmt.Errorf("spending condition %v: %w", cond,
				err)
		}

		items = append(items, taptree.Item[policy.Node]{
			Depth: cond.Depth,
			Value: node,
		})
	}

	log.Debugf("Compiling %v descriptor for %d signers and %d "+
		"spending conditions", class, len(keys), len(items))

	if class == descriptor.TaprootC0 {
		tree, err := policy.CompileTree(items)
		if err != nil {
			return nil, err
		}

		internal := descriptor.UnsatisfiableTrackingKey(
			s.network.Params(), s.descriptor.Terminal,
		)

		return descriptor.NewTaproot(internal, tree)
	}

	script, err := policy.CompileOr(items, class.ScriptContext())
	if err != nil {
		return nil, err
	}

	return descriptor.NewScript(class, script)
}

// Descriptors compiles the descriptors of every class of the wallet.
func (s *WalletSettings) Descriptors() ([]*descriptor.Descriptor, error) {
	descs := make([]*descriptor.Descriptor, 0, len(s.descriptor.Classes))
	for _, class := range s.descriptor.Classes {
		desc, err := s.DescriptorForClass(class)
		if err != nil {
			return nil, fmt.Errorf("%v descriptor: %w", class, err)
		}
		descs = append(descs, desc)
	}

	return descs, nil
}
