// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/wallet"
)

// templateOptions select a wallet preset.
type templateOptions struct {
	Template  string `long:"template" description:"Wallet preset" choice:"singlesig" choice:"taproot" choice:"hodling" choice:"multisig" default:"multisig"`
	Threshold uint16 `long:"threshold" description:"Signatures required by the hodling and timelocked multisig presets; 0 makes a multisig wallet require every signer"`
	Hardware  bool   `long:"hardware" description:"Require a single signer to be held by a hardware device"`
}

// template returns the selected preset.
func (o *templateOptions) template(clk clock.Clock,
	network wallet.Network) (*wallet.WalletTemplate, error) {

	switch o.Template {
	case "singlesig":
		return wallet.SinglesigTemplate(false, network, o.Hardware), nil

	case "taproot":
		return wallet.SinglesigTemplate(true, network, o.Hardware), nil

	case "hodling":
		return wallet.HodlingTemplate(
			clk, network, o.Threshold, wallet.Allow, wallet.Allow,
		)

	case "multisig":
		sigs := fn.None[uint16]()
		if o.Threshold != 0 {
			sigs = fn.Some(o.Threshold)
		}

		return wallet.MultisigTemplate(
			clk, network, sigs, wallet.Allow, wallet.Allow,
		)

	default:
		return nil, fmt.Errorf("unknown template %q", o.Template)
	}
}

type createCommand struct {
	templateOptions

	Name        string   `long:"name" description:"Name of the wallet" required:"true"`
	Xpubs       []string `long:"xpub" description:"Signer key, plain, SLIP-132 or with a [fingerprint/path] origin; repeat for every signer" required:"true"`
	SignerNames []string `long:"signer" description:"Name of the signer of the key at the same position"`
	Classes     []string `long:"class" description:"Additional descriptor class" choice:"legacy" choice:"segwit" choice:"nested" choice:"taproot"`
	Terminal    string   `long:"terminal" description:"Derivation steps below the account key" default:"/*/*"`
	Electrum    string   `long:"electrum" description:"Custom Electrum server as host:port"`
	ElectrumSec string   `long:"electrumsec" description:"Transport of the custom Electrum server" choice:"tls" choice:"tcp" choice:"tor" default:"tls"`
	Out         string   `long:"out" description:"Also write the wallet document to this file"`

	env *environment
}

func newCreateCommand(env *environment) *createCommand {
	return &createCommand{env: env}
}

func (x *createCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"create",
		"Create a wallet from a preset",
		"Build a wallet of the given preset from the signer keys, "+
			"store it in the wallet registry and print its "+
			"descriptors",
		x,
	)
	return err
}

// signers parses the signer keys under the standard of the template.
func (x *createCommand) signers(
	std keyorigin.DerivationStandard) ([]wallet.Signer, error) {

	signers := make([]wallet.Signer, 0, len(x.Xpubs))
	for i, s := range x.Xpubs {
		key, err := keyorigin.ParseXpubDescriptor(s, fn.Some(std))
		if err != nil {
			return nil, fmt.Errorf("signer %d: %w", i+1, err)
		}

		name := fmt.Sprintf("signer %d", i+1)
		if i < len(x.SignerNames) {
			name = x.SignerNames[i]
		}
		signers = append(signers, wallet.SignerFromDescriptor(key, name))
	}

	return signers, nil
}

// electrum returns the configured Electrum server.
func (x *createCommand) electrum() (wallet.ElectrumServer, error) {
	if x.Electrum == "" {
		return wallet.DefaultElectrumServer(), nil
	}

	host, portStr, err := net.SplitHostPort(x.Electrum)
	if err != nil {
		return wallet.ElectrumServer{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return wallet.ElectrumServer{}, fmt.Errorf("invalid Electrum "+
			"port %q: %w", portStr, err)
	}

	sec := wallet.ElectrumTLS
	switch x.ElectrumSec {
	case "tcp":
		sec = wallet.ElectrumNone
	case "tor":
		sec = wallet.ElectrumTor
	}

	return wallet.CustomElectrumServer(host, uint16(port), sec), nil
}

func (x *createCommand) Execute(_ []string) error {
	network := x.env.cfg.network

	tmpl, err := x.template(clock.NewDefaultClock(), network)
	if err != nil {
		return err
	}

	signers, err := x.signers(tmpl.Standard)
	if err != nil {
		return err
	}

	terminal, err := descriptor.ParseTerminal(x.Terminal)
	if err != nil {
		return err
	}

	settings, err := tmpl.Build(signers, terminal)
	if err != nil {
		return err
	}
	for _, name := range x.Classes {
		class, err := descriptor.ParseClass(name)
		if err != nil {
			return err
		}
		if err := settings.AddDescriptorClass(class); err != nil {
			return err
		}
	}

	server, err := x.electrum()
	if err != nil {
		return err
	}
	settings.SetElectrum(server)

	w := wallet.NewWallet(settings)

	manager, err := x.env.openManager()
	if err != nil {
		return err
	}
	id, err := manager.Save(x.env.ctx, x.Name, w)
	if err != nil {
		return err
	}

	if x.Out != "" {
		if err := w.WriteFile(x.Out); err != nil {
			return err
		}
	}

	fmt.Printf("Created wallet %v\n", id)

	return printSettings(settings)
}

type templateCommand struct {
	templateOptions

	env *environment
}

func newTemplateCommand(env *environment) *templateCommand {
	return &templateCommand{env: env}
}

func (x *templateCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"template",
		"Describe a wallet preset",
		"Print the derivation standard, the signer constraints and "+
			"the spending conditions of a wallet preset",
		x,
	)
	return err
}

func (x *templateCommand) Execute(_ []string) error {
	tmpl, err := x.template(clock.NewDefaultClock(), x.env.cfg.network)
	if err != nil {
		return err
	}

	limit := func(o fn.Option[uint16]) string {
		return fn.MapOption(func(n uint16) string {
			return strconv.Itoa(int(n))
		})(o).UnwrapOr("any")
	}

	fmt.Printf("Standard:    %v\n", tmpl.Standard)
	fmt.Printf("Class:       %v\n", tmpl.DescriptorClass())
	fmt.Printf("Signers:     %s to %s\n", limit(tmpl.MinSigners),
		limit(tmpl.MaxSigners))
	fmt.Printf("Hardware:    %v\n", tmpl.Hardware)
	fmt.Printf("Watch-only:  %v\n", tmpl.WatchOnly)
	fmt.Println("Conditions:")
	for _, cond := range tmpl.Conditions {
		fmt.Printf("  %v\n", cond)
	}

	return nil
}
