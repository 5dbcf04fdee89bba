// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/lightningnetwork/lnd/tlv"
	"github.com/mycitadel/mcwallet/pkg/docfile"
)

// ErrDraftNotFound is returned when finalizing a draft the wallet does not
// have.
var ErrDraftNotFound = errors.New("draft not found")

// Wallet is the wallet document stored in a wallet file: the settings
// together with the transactions the wallet has signed and the ones still
// being drafted.
type Wallet struct {
	settings *WalletSettings

	// History holds finalized transactions, oldest first.
	History []*psbt.Packet

	// Drafts holds partially signed transactions.
	Drafts []*psbt.Packet
}

// NewWallet returns a wallet document without transactions.
func NewWallet(settings *WalletSettings) *Wallet {
	return &Wallet{settings: settings}
}

// Settings returns the wallet settings.
func (w *Wallet) Settings() *WalletSettings {
	return w.settings
}

// SetSettings replaces the settings. Transactions recorded under the
// previous settings no longer belong to the wallet and are dropped.
func (w *Wallet) SetSettings(settings *WalletSettings) {
	w.settings = settings
	w.History = nil
	w.Drafts = nil

	log.Infof("Wallet settings replaced, transaction history cleared")
}

// AddDraft records a partially signed transaction and returns its index in
// Drafts. A draft of the same unsigned transaction is replaced.
func (w *Wallet) AddDraft(packet *psbt.Packet) int {
	txid := packet.UnsignedTx.TxHash()
	for i, draft := range w.Drafts {
		if draft.UnsignedTx.TxHash() == txid {
			w.Drafts[i] = packet
			return i
		}
	}

	w.Drafts = append(w.Drafts, packet)

	return len(w.Drafts) - 1
}

// Finalize moves the draft at index i to the history.
func (w *Wallet) Finalize(i int) error {
	if i < 0 || i >= len(w.Drafts) {
		return fmt.Errorf("%w: index %d of %d drafts", ErrDraftNotFound,
			i, len(w.Drafts))
	}

	w.History = append(w.History, w.Drafts[i])
	w.Drafts = slices.Delete(w.Drafts, i, i+1)

	return nil
}

// Encode writes the length prefixed encoding of the wallet.
func (w *Wallet) Encode(wr io.Writer) error {
	settings, err := w.settings.Bytes()
	if err != nil {
		return err
	}
	history, err := encodePackets(w.History)
	if err != nil {
		return err
	}
	drafts, err := encodePackets(w.Drafts)
	if err != nil {
		return err
	}

	data, err := encodeStream(
		tlv.MakePrimitiveRecord(walletSettingsType, &settings),
		tlv.MakePrimitiveRecord(walletHistoryType, &history),
		tlv.MakePrimitiveRecord(walletDraftsType, &drafts),
	)
	if err != nil {
		return err
	}

	return writeFramed(wr, data)
}

// Decode reads the length prefixed encoding of the wallet.
func (w *Wallet) Decode(r io.Reader) error {
	data, err := readFramed(r)
	if err != nil {
		return err
	}

	var settingsBytes, history, drafts []byte
	err = decodeStream(data,
		tlv.MakePrimitiveRecord(walletSettingsType, &settingsBytes),
		tlv.MakePrimitiveRecord(walletHistoryType, &history),
		tlv.MakePrimitiveRecord(walletDraftsType, &drafts),
	)
	if err != nil {
		return err
	}

	var decoded Wallet
	decoded.settings = &WalletSettings{}
	if err := decoded.settings.FromBytes(settingsBytes); err != nil {
		return err
	}
	if decoded.History, err = decodePackets(history); err != nil {
		return err
	}
	if decoded.Drafts, err = decodePackets(drafts); err != nil {
		return err
	}

	*w = decoded

	return nil
}

// Bytes returns the wallet file contents.
func (w *Wallet) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if err := docfile.Write(&b, docfile.WalletMagic, w); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// WriteFile saves the wallet to the file at path.
func (w *Wallet) WriteFile(path string) error {
	if err := docfile.WriteFile(path, docfile.WalletMagic, w); err != nil {
		return err
	}

	log.Debugf("Saved wallet to %s", path)

	return nil
}

// ReadFile loads a wallet from the file at path.
func ReadFile(path string) (*Wallet, error) {
	var w Wallet
	if err := docfile.ReadFile(path, docfile.WalletMagic, &w); err != nil {
		return nil, err
	}

	return &w, nil
}
