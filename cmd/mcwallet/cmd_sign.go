// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/wallet"
)

type signCommand struct {
	Master   string `long:"master" description:"Master key fingerprint when signing with an account key"`
	Name     string `long:"name" description:"Record the signer name in the PSBT"`
	Finalize bool   `long:"finalize" description:"Finalize the inputs that have enough signatures"`
	Out      string `long:"out" description:"Write the signed PSBT to this file instead of replacing the input"`
	Wallet   string `long:"wallet" description:"Record the PSBT in the drafts of this wallet, given as a wallet file or a stored wallet id"`

	env *environment
}

func newSignCommand(env *environment) *signCommand {
	return &signCommand{env: env}
}

func (x *signCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"sign", "Sign a PSBT",
		"Sign every PSBT input with keys derived from an extended "+
			"private key read from the terminal", x,
	)
	return err
}

func (x *signCommand) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected a PSBT file")
	}

	packet, b64, err := readPsbt(args[0])
	if err != nil {
		return err
	}

	master := fn.None[descriptor.Fingerprint]()
	if x.Master != "" {
		fp, err := descriptor.ParseFingerprint(x.Master)
		if err != nil {
			return err
		}
		master = fn.Some(fp)
	}

	secret, err := readSecret("Extended private key: ")
	if err != nil {
		return err
	}
	xpriv, err := hdkeychain.NewKeyFromString(secret)
	if err != nil {
		return fmt.Errorf("invalid extended private key: %w", err)
	}
	defer xpriv.Zero()

	signer, err := wallet.NewXprivSigner(xpriv, master)
	if err != nil {
		return err
	}

	count, err := signer.Sign(packet)
	if err != nil {
		return err
	}
	log.Infof("Added %d signatures for %v", count,
		signer.MasterFingerprint())

	if x.Name != "" {
		wallet.SetSignerName(packet, signer.MasterFingerprint(), x.Name)
	}

	if x.Finalize {
		if err := psbt.MaybeFinalizeAll(packet); err != nil {
			log.Warnf("PSBT not finalized: %v", err)
		}
	}

	out := args[0]
	if x.Out != "" {
		out = x.Out
	}
	if err := writePsbt(out, packet, b64); err != nil {
		return err
	}

	fmt.Printf("%d signatures added\n", count)

	if x.Wallet == "" {
		return nil
	}

	complete, err := x.env.recordDraft(x.Wallet, packet)
	if err != nil {
		return err
	}
	if complete {
		fmt.Println("Transaction moved to the wallet history")
	} else {
		fmt.Println("Transaction recorded in the wallet drafts")
	}

	return nil
}

type signerNameCommand struct {
	env *environment
}

func newSignerNameCommand(env *environment) *signerNameCommand {
	return &signerNameCommand{env: env}
}

func (x *signerNameCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"signer-name", "Read or set a PSBT signer name",
		"Print the name recorded for the master fingerprint in the "+
			"PSBT, or record a new name when one is given", x,
	)
	return err
}

func (x *signerNameCommand) Execute(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("expected a PSBT file, a fingerprint and " +
			"optionally a name")
	}

	packet, b64, err := readPsbt(args[0])
	if err != nil {
		return err
	}
	fp, err := descriptor.ParseFingerprint(args[1])
	if err != nil {
		return err
	}

	if len(args) == 2 {
		name, ok := wallet.SignerName(packet, fp)
		if !ok {
			return fmt.Errorf("no name recorded for %v", fp)
		}
		fmt.Println(name)

		return nil
	}

	wallet.SetSignerName(packet, fp, args[2])

	return writePsbt(args[0], packet, b64)
}
