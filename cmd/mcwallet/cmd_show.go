// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/jessevdk/go-flags"
	"github.com/mycitadel/mcwallet/wallet"
)

// printSettings prints the signers, conditions and descriptors of a wallet.
func printSettings(settings *wallet.WalletSettings) error {
	desc := settings.Descriptor()

	fmt.Printf("Network:     %v\n", settings.Network())
	fmt.Printf("Terminal:    %v\n", desc.Terminal)
	fmt.Printf("Electrum:    %s\n",
		settings.Electrum().URL(settings.Network()))

	fmt.Println("Signers:")
	for _, signer := range settings.Signers() {
		fmt.Printf("  %v (account %s, origin %v)\n", &signer,
			signer.AccountString(), signer.OriginFormat())
	}

	fmt.Println("Conditions:")
	for _, cond := range desc.Conditions {
		fmt.Printf("  %v\n", cond)
	}

	descs, err := settings.Descriptors()
	if err != nil {
		return err
	}
	fmt.Println("Descriptors:")
	for _, d := range descs {
		fmt.Printf("  %-8v %v\n", d.Class(), d)
	}

	return nil
}

type listCommand struct {
	env *environment
}

func newListCommand(env *environment) *listCommand {
	return &listCommand{env: env}
}

func (x *listCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"list", "List stored wallets",
		"List the wallets of the wallet registry", x,
	)
	return err
}

func (x *listCommand) Execute(_ []string) error {
	manager, err := x.env.openManager()
	if err != nil {
		return err
	}

	wallets, err := manager.List(x.env.ctx)
	if err != nil {
		return err
	}
	for _, entry := range wallets {
		fmt.Printf("%v  %-8v %-20s updated %s\n", entry.ID,
			entry.Network, entry.Name,
			entry.UpdatedAt.Format(time.DateTime))
	}

	return nil
}

type showCommand struct {
	Dump bool `long:"dump" description:"Dump the decoded wallet document"`

	env *environment
}

func newShowCommand(env *environment) *showCommand {
	return &showCommand{env: env}
}

func (x *showCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"show", "Show a wallet",
		"Show the wallet with the given id, or read from the given "+
			"wallet document file", x,
	)
	return err
}

func (x *showCommand) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected a wallet id or file")
	}

	w, id, err := x.env.loadWallet(args[0])
	if err != nil {
		return err
	}

	if x.Dump {
		spew.Dump(w)
		return nil
	}

	fmt.Printf("Wallet %v\n", id)
	if err := printSettings(w.Settings()); err != nil {
		return err
	}
	fmt.Printf("Drafts:      %d\n", len(w.Drafts))
	fmt.Printf("History:     %d\n", len(w.History))

	return nil
}

type deleteCommand struct {
	env *environment
}

func newDeleteCommand(env *environment) *deleteCommand {
	return &deleteCommand{env: env}
}

func (x *deleteCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"delete", "Delete a stored wallet",
		"Remove a wallet and its indexed addresses", x,
	)
	return err
}

func (x *deleteCommand) Execute(args []string) error {
	ids := make([]chainhash.Hash, 0, len(args))
	for _, arg := range args {
		id, err := parseWalletID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	manager, err := x.env.openManager()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := manager.Delete(x.env.ctx, id); err != nil {
			return err
		}
	}

	return nil
}
