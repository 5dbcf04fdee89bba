// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/jessevdk/go-flags"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/wallet"
)

// printAddresses prints indexed addresses one per line.
func printAddresses(entries []wallet.AddressEntry, withWallet bool) {
	for _, entry := range entries {
		if withWallet {
			fmt.Printf("%v ", entry.WalletID)
		}
		fmt.Printf("%-8v %d/%-5d %s\n", entry.Class, entry.Change,
			entry.Index, entry.Address)
	}
}

type indexCommand struct {
	Lookahead uint32 `long:"lookahead" description:"Number of addresses to index past the last indexed one of every branch"`

	env *environment
}

func newIndexCommand(env *environment) *indexCommand {
	return &indexCommand{
		Lookahead: wallet.DefaultLookahead,
		env:       env,
	}
}

func (x *indexCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"index", "Index wallet addresses",
		"Derive the next addresses of every descriptor class and "+
			"branch of the wallets and add them to the address "+
			"index", x,
	)
	return err
}

func (x *indexCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("expected at least one wallet id")
	}

	manager, err := x.env.openManager()
	if err != nil {
		return err
	}

	for _, arg := range args {
		id, err := parseWalletID(arg)
		if err != nil {
			return err
		}

		added, err := manager.IndexAddresses(
			x.env.ctx, id, x.Lookahead,
		)
		if err != nil {
			return err
		}
		fmt.Printf("%v: %d addresses added\n", id, added)
	}

	return nil
}

type addressesCommand struct {
	Class  string `long:"class" description:"Only list addresses of the descriptor class" choice:"legacy" choice:"segwit" choice:"nested" choice:"taproot"`
	Change string `long:"change" description:"Only list addresses of the change branch"`
	Limit  int    `long:"limit" description:"Maximum number of addresses, 0 for all"`

	env *environment
}

func newAddressesCommand(env *environment) *addressesCommand {
	return &addressesCommand{env: env}
}

func (x *addressesCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"addresses", "List indexed addresses",
		"List the indexed addresses of a wallet ordered by class, "+
			"branch and index", x,
	)
	return err
}

func (x *addressesCommand) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected a wallet id")
	}
	id, err := parseWalletID(args[0])
	if err != nil {
		return err
	}

	var class *descriptor.Class
	if x.Class != "" {
		c, err := descriptor.ParseClass(x.Class)
		if err != nil {
			return err
		}
		class = &c
	}

	var change *uint32
	if x.Change != "" {
		c, err := strconv.ParseUint(x.Change, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid change branch %q: %w",
				x.Change, err)
		}
		branch := uint32(c)
		change = &branch
	}

	manager, err := x.env.openManager()
	if err != nil {
		return err
	}

	entries, err := manager.Addresses(
		x.env.ctx, id, class, change, x.Limit,
	)
	if err != nil {
		return err
	}
	printAddresses(entries, false)

	return nil
}

type lookupCommand struct {
	Script bool `long:"script" description:"Arguments are hex encoded output scripts instead of addresses"`

	env *environment
}

func newLookupCommand(env *environment) *lookupCommand {
	return &lookupCommand{env: env}
}

func (x *lookupCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"lookup", "Find the wallets of addresses",
		"Find the wallets and derivations that produced the "+
			"addresses", x,
	)
	return err
}

// pkScript returns the output script named by the argument.
func (x *lookupCommand) pkScript(arg string) ([]byte, error) {
	if x.Script {
		return hex.DecodeString(arg)
	}

	addr, err := btcutil.DecodeAddress(
		arg, x.env.cfg.network.Params(),
	)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(addr)
}

func (x *lookupCommand) Execute(args []string) error {
	manager, err := x.env.openManager()
	if err != nil {
		return err
	}

	for _, arg := range args {
		pkScript, err := x.pkScript(arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}

		entries, err := manager.Lookup(x.env.ctx, pkScript)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			log.Warnf("No indexed wallet pays to %s", arg)
			continue
		}
		printAddresses(entries, true)
	}

	return nil
}
