// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mycitadel/mcwallet/pkg/docfile"
	"github.com/mycitadel/mcwallet/wallet"
	"golang.org/x/term"
)

// psbtMagic starts every binary PSBT.
var psbtMagic = []byte{0x70, 0x73, 0x62, 0x74, 0xff}

// loadWallet reads the wallet named by the argument: a wallet document file
// when it has the document extension, a stored wallet id otherwise.
func (e *environment) loadWallet(arg string) (*wallet.Wallet,
	chainhash.Hash, error) {

	if filepath.Ext(arg) == docfile.Extension {
		w, err := wallet.ReadFile(arg)
		if err != nil {
			return nil, chainhash.Hash{}, err
		}

		desc := w.Settings().Descriptor()
		id, err := desc.ID()

		return w, id, err
	}

	id, err := parseWalletID(arg)
	if err != nil {
		return nil, chainhash.Hash{}, err
	}

	manager, err := e.openManager()
	if err != nil {
		return nil, chainhash.Hash{}, err
	}

	w, err := manager.Load(id)

	return w, id, err
}

// recordDraft stores the PSBT in the drafts of the wallet named by the
// argument and saves the wallet. A PSBT whose inputs are all finalized is
// moved to the wallet history; recordDraft reports whether it was.
func (e *environment) recordDraft(arg string,
	packet *psbt.Packet) (bool, error) {

	w, id, err := e.loadWallet(arg)
	if err != nil {
		return false, err
	}

	i := w.AddDraft(packet)
	complete := packet.IsComplete()
	if complete {
		if err := w.Finalize(i); err != nil {
			return false, err
		}
	}

	if filepath.Ext(arg) == docfile.Extension {
		err = w.WriteFile(arg)
	} else {
		var manager *wallet.Manager
		manager, err = e.openManager()
		if err == nil {
			_, err = manager.Update(w)
		}
	}
	if err != nil {
		return false, err
	}

	log.Infof("Recorded transaction %v in wallet %v (complete=%v)",
		packet.UnsignedTx.TxHash(), id, complete)

	return complete, nil
}

// parseWalletID parses a stored wallet id.
func parseWalletID(arg string) (chainhash.Hash, error) {
	id, err := chainhash.NewHashFromStr(arg)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("invalid wallet id %q: %w",
			arg, err)
	}

	return *id, nil
}

// readPsbt reads a binary or base64 encoded PSBT file. It reports whether
// the file was base64 encoded.
func readPsbt(path string) (*psbt.Packet, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	b64 := !bytes.HasPrefix(data, psbtMagic)
	if b64 {
		data = bytes.TrimSpace(data)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(data), b64)
	if err != nil {
		return nil, false, fmt.Errorf("unable to parse PSBT %s: %w",
			path, err)
	}

	return packet, b64, nil
}

// writePsbt writes the PSBT to the file in the binary or base64 encoding.
func writePsbt(path string, packet *psbt.Packet, b64 bool) error {
	var buf bytes.Buffer
	if b64 {
		encoded, err := packet.B64Encode()
		if err != nil {
			return err
		}
		buf.WriteString(encoded)
		buf.WriteByte('\n')
	} else if err := packet.Serialize(&buf); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0600)
}

// readSecret prompts for a secret. Input is not echoed when standard input
// is a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}

		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
