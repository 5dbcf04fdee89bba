// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/tlv"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/policy"
)

const (
	descTestnetType    tlv.Type = 0
	descClassesType    tlv.Type = 1
	descTerminalType   tlv.Type = 2
	descKeysType       tlv.Type = 3
	descConditionsType tlv.Type = 4

	settingsDescriptorType tlv.Type = 0
	settingsNetworkType    tlv.Type = 1
	settingsSignersType    tlv.Type = 2
	settingsElectrumType   tlv.Type = 3

	walletSettingsType tlv.Type = 0
	walletHistoryType  tlv.Type = 1
	walletDraftsType   tlv.Type = 2

	// serializedXpubLen is the length of a BIP-32 serialized extended
	// key without its checksum.
	serializedXpubLen = 78
)

var (
	// ErrMissingField is returned when a required record is absent.
	ErrMissingField = errors.New("required record missing")

	// ErrNonCanonical is returned for an encoding that a canonical
	// encoder would not produce, such as an unsorted set.
	ErrNonCanonical = errors.New("non-canonical encoding")

	// ErrTrailingBytes is returned when a field holds more data than its
	// value.
	ErrTrailingBytes = errors.New("trailing bytes in field")

	// ErrSignerMismatch is returned when the signers of decoded settings
	// do not match the keys of their descriptor.
	ErrSignerMismatch = errors.New("signers do not match the signing " +
		"keys of the descriptor")
)

// fieldWriter builds the value of a record.
type fieldWriter struct {
	buf     bytes.Buffer
	scratch [8]byte
}

func (w *fieldWriter) varInt(v uint64) {
	// Writes to a bytes.Buffer do not fail.
	_ = tlv.WriteVarInt(&w.buf, v, &w.scratch)
}

func (w *fieldWriter) uint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *fieldWriter) uint16(v uint16) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, v))
}

func (w *fieldWriter) uint32(v uint32) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, v))
}

func (w *fieldWriter) uint64(v uint64) {
	w.buf.Write(binary.BigEndian.AppendUint64(nil, v))
}

func (w *fieldWriter) varBytes(b []byte) {
	w.varInt(uint64(len(b)))
	w.buf.Write(b)
}

func (w *fieldWriter) bytes() []byte {
	return w.buf.Bytes()
}

// fieldReader parses the value of a record.
type fieldReader struct {
	r       *bytes.Reader
	scratch [8]byte
}

func newFieldReader(b []byte) *fieldReader {
	return &fieldReader{r: bytes.NewReader(b)}
}

func (r *fieldReader) varInt() (uint64, error) {
	return tlv.ReadVarInt(r.r, &r.scratch)
}

// count reads the length of a list whose items take at least one byte each.
func (r *fieldReader) count() (int, error) {
	n, err := r.varInt()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.r.Len()) {
		return 0, fmt.Errorf("list of %d items exceeds remaining %d "+
			"bytes", n, r.r.Len())
	}

	return int(n), nil
}

func (r *fieldReader) fixed(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (r *fieldReader) uint8() (uint8, error) {
	return r.r.ReadByte()
}

func (r *fieldReader) uint16() (uint16, error) {
	b, err := r.fixed(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

func (r *fieldReader) uint32() (uint32, error) {
	b, err := r.fixed(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

func (r *fieldReader) uint64() (uint64, error) {
	b, err := r.fixed(8)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(b), nil
}

func (r *fieldReader) varBytes() ([]byte, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	return r.fixed(n)
}

func (r *fieldReader) done() error {
	if r.r.Len() != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, r.r.Len())
	}

	return nil
}

// encodeStream encodes the records as a TLV stream.
func encodeStream(records ...tlv.Record) ([]byte, error) {
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if err := stream.Encode(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// decodeStream decodes a TLV stream in which every record must be present.
func decodeStream(data []byte, records ...tlv.Record) error {
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return err
	}

	parsed, err := stream.DecodeWithParsedTypes(bytes.NewReader(data))
	if err != nil {
		return err
	}

	for i := range records {
		if _, ok := parsed[records[i].Type()]; !ok {
			return fmt.Errorf("%w: type %d", ErrMissingField,
				records[i].Type())
		}
	}

	return nil
}

// writeFramed writes a length prefixed value.
func writeFramed(w io.Writer, data []byte) error {
	var scratch [8]byte
	if err := tlv.WriteVarInt(w, uint64(len(data)), &scratch); err != nil {
		return err
	}
	_, err := w.Write(data)

	return err
}

// readFramed reads a length prefixed value.
func readFramed(r io.Reader) ([]byte, error) {
	var scratch [8]byte
	n, err := tlv.ReadVarInt(r, &scratch)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != n {
		return nil, io.ErrUnexpectedEOF
	}

	return data, nil
}

func encodeClasses(classes []descriptor.Class) []byte {
	var w fieldWriter
	w.varInt(uint64(len(classes)))
	for _, class := range classes {
		w.uint8(uint8(class))
	}

	return w.bytes()
}

func decodeClasses(b []byte) ([]descriptor.Class, error) {
	r := newFieldReader(b)
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	classes := make([]descriptor.Class, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.uint8()
		if err != nil {
			return nil, err
		}

		class := descriptor.Class(v)
		if !class.IsValid() {
			return nil, fmt.Errorf("unknown descriptor class %d", v)
		}
		if i > 0 && classes[i-1] >= class {
			return nil, fmt.Errorf("%w: descriptor classes",
				ErrNonCanonical)
		}
		classes = append(classes, class)
	}

	return classes, r.done()
}

func encodeTerminal(terminal descriptor.Terminal) []byte {
	var w fieldWriter
	w.varInt(uint64(len(terminal)))
	for _, step := range terminal {
		if step.Wildcard {
			w.uint8(1)
			continue
		}
		w.uint8(0)
		w.uint32(step.Index)
	}

	return w.bytes()
}

func decodeTerminal(b []byte) (descriptor.Terminal, error) {
	r := newFieldReader(b)
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	terminal := make(descriptor.Terminal, 0, n)
	for i := 0; i < n; i++ {
		flag, err := r.uint8()
		if err != nil {
			return nil, err
		}

		switch flag {
		case 1:
			terminal = append(terminal, descriptor.WildcardStep())

		case 0:
			index, err := r.uint32()
			if err != nil {
				return nil, err
			}
			terminal = append(terminal, descriptor.IndexStep(index))

		default:
			return nil, fmt.Errorf("invalid terminal step flag %d",
				flag)
		}
	}
	if err := r.done(); err != nil {
		return nil, err
	}

	return terminal, terminal.Validate()
}

func encodeKeys(keys []keyorigin.XpubkeyCore) []byte {
	var w fieldWriter
	w.varInt(uint64(len(keys)))
	for _, key := range keys {
		w.buf.Write(key.PublicKey[:])
		w.buf.Write(key.ChainCode[:])
	}

	return w.bytes()
}

func decodeKeys(b []byte) ([]keyorigin.XpubkeyCore, error) {
	r := newFieldReader(b)
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	keys := make([]keyorigin.XpubkeyCore, 0, n)
	for i := 0; i < n; i++ {
		var key keyorigin.XpubkeyCore
		if _, err := io.ReadFull(r.r, key.PublicKey[:]); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r.r, key.ChainCode[:]); err != nil {
			return nil, err
		}
		if _, err := btcec.ParsePubKey(key.PublicKey[:]); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, r.done()
}

func writeCondition(w *fieldWriter, cond policy.DepthCondition) {
	w.uint8(cond.Depth)
	w.uint8(uint8(cond.Condition.Kind))

	sigs := cond.Condition.Sigs.Sigs
	w.uint8(uint8(sigs.Kind))
	switch sigs.Kind {
	case policy.SigsAtLeast:
		w.uint16(sigs.Count)
	case policy.SigsSpecific:
		w.buf.Write(sigs.Signer[:])
	}

	lock := cond.Condition.Sigs.Timelock
	w.uint8(uint8(lock.Kind))
	switch lock.Kind {
	case policy.OlderTime:
		w.uint64(uint64(lock.Duration))
	case policy.OlderBlock, policy.AfterBlock:
		w.uint32(lock.Blocks)
	case policy.AfterTime:
		w.uint64(uint64(lock.Time.Unix()))
	}
}

func readCondition(r *fieldReader) (policy.DepthCondition, error) {
	var cond policy.DepthCondition

	depth, err := r.uint8()
	if err != nil {
		return cond, err
	}
	kind, err := r.uint8()
	if err != nil {
		return cond, err
	}
	if policy.ConditionKind(kind) != policy.ConditionSigs {
		return cond, fmt.Errorf("%w: %d", ErrUnsupportedCondition, kind)
	}

	sigsKind, err := r.uint8()
	if err != nil {
		return cond, err
	}
	sigs := policy.SigsReq{Kind: policy.SigsKind(sigsKind)}
	switch sigs.Kind {
	case policy.SigsAll, policy.SigsAny:

	case policy.SigsAtLeast:
		if sigs.Count, err = r.uint16(); err != nil {
			return cond, err
		}

	case policy.SigsSpecific:
		fp, err := r.fixed(len(sigs.Signer))
		if err != nil {
			return cond, err
		}
		copy(sigs.Signer[:], fp)

	default:
		return cond, fmt.Errorf("unknown signature requirement %d",
			sigsKind)
	}

	lockKind, err := r.uint8()
	if err != nil {
		return cond, err
	}
	lock := policy.TimelockReq{Kind: policy.TimelockKind(lockKind)}
	switch lock.Kind {
	case policy.Anytime:

	case policy.OlderTime:
		d, err := r.uint64()
		if err != nil {
			return cond, err
		}
		lock.Duration = time.Duration(d)

	case policy.OlderBlock, policy.AfterBlock:
		if lock.Blocks, err = r.uint32(); err != nil {
			return cond, err
		}

	case policy.AfterTime:
		unix, err := r.uint64()
		if err != nil {
			return cond, err
		}
		lock.Time = time.Unix(int64(unix), 0).UTC()

	default:
		return cond, fmt.Errorf("unknown timelock kind %d", lockKind)
	}

	cond.Depth = depth
	cond.Condition = policy.Sigs(sigs, lock)

	return cond, nil
}

func encodeConditions(conds []policy.DepthCondition) []byte {
	var w fieldWriter
	w.varInt(uint64(len(conds)))
	for _, cond := range conds {
		writeCondition(&w, cond)
	}

	return w.bytes()
}

func decodeConditions(b []byte) ([]policy.DepthCondition, error) {
	r := newFieldReader(b)
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	conds := make([]policy.DepthCondition, 0, n)
	for i := 0; i < n; i++ {
		cond, err := readCondition(r)
		if err != nil {
			return nil, err
		}
		if i > 0 && conds[i-1].Compare(cond) >= 0 {
			return nil, fmt.Errorf("%w: spending conditions",
				ErrNonCanonical)
		}
		conds = append(conds, cond)
	}

	return conds, r.done()
}

// Bytes returns the strict encoding of the descriptor.
func (d *WalletDescriptor) Bytes() ([]byte, error) {
	var (
		testnet    = d.Testnet
		classes    = encodeClasses(d.Classes)
		terminal   = encodeTerminal(d.Terminal)
		keys       = encodeKeys(d.SigningKeys)
		conditions = encodeConditions(d.Conditions)
	)

	return encodeStream(
		tlv.MakePrimitiveRecord(descTestnetType, &testnet),
		tlv.MakePrimitiveRecord(descClassesType, &classes),
		tlv.MakePrimitiveRecord(descTerminalType, &terminal),
		tlv.MakePrimitiveRecord(descKeysType, &keys),
		tlv.MakePrimitiveRecord(descConditionsType, &conditions),
	)
}

// FromBytes decodes the strict encoding of the descriptor.
func (d *WalletDescriptor) FromBytes(data []byte) error {
	var (
		testnet                        bool
		classes, terminal, keys, conds []byte
	)
	err := decodeStream(data,
		tlv.MakePrimitiveRecord(descTestnetType, &testnet),
		tlv.MakePrimitiveRecord(descClassesType, &classes),
		tlv.MakePrimitiveRecord(descTerminalType, &terminal),
		tlv.MakePrimitiveRecord(descKeysType, &keys),
		tlv.MakePrimitiveRecord(descConditionsType, &conds),
	)
	if err != nil {
		return err
	}

	var decoded WalletDescriptor
	decoded.Testnet = testnet
	if decoded.Classes, err = decodeClasses(classes); err != nil {
		return err
	}
	if decoded.Terminal, err = decodeTerminal(terminal); err != nil {
		return err
	}
	if decoded.SigningKeys, err = decodeKeys(keys); err != nil {
		return err
	}
	if decoded.Conditions, err = decodeConditions(conds); err != nil {
		return err
	}

	*d = decoded

	return nil
}

// Encode writes the length prefixed encoding of the descriptor.
func (d *WalletDescriptor) Encode(w io.Writer) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}

	return writeFramed(w, data)
}

// Decode reads the length prefixed encoding of the descriptor.
func (d *WalletDescriptor) Decode(r io.Reader) error {
	data, err := readFramed(r)
	if err != nil {
		return err
	}

	return d.FromBytes(data)
}

// writeXpub writes the BIP-32 serialization of a public extended key,
// without the checksum.
func writeXpub(w *fieldWriter, xpub *hdkeychain.ExtendedKey) error {
	pubKey, err := xpub.ECPubKey()
	if err != nil {
		return err
	}

	w.buf.Write(xpub.Version())
	w.uint8(xpub.Depth())
	w.uint32(xpub.ParentFingerprint())
	w.uint32(xpub.ChildIndex())
	w.buf.Write(xpub.ChainCode())
	w.buf.Write(pubKey.SerializeCompressed())

	return nil
}

func readXpub(r *fieldReader) (*hdkeychain.ExtendedKey, error) {
	b, err := r.fixed(serializedXpubLen)
	if err != nil {
		return nil, err
	}

	var (
		version   = b[0:4]
		depth     = b[4]
		parentFP  = b[5:9]
		childNum  = binary.BigEndian.Uint32(b[9:13])
		chainCode = b[13:45]
		key       = b[45:78]
	)
	if _, err := btcec.ParsePubKey(key); err != nil {
		return nil, err
	}

	return hdkeychain.NewExtendedKey(
		version, key, chainCode, parentFP, depth, childNum, false,
	), nil
}

func encodeSigners(signers []Signer) ([]byte, error) {
	var w fieldWriter
	w.varInt(uint64(len(signers)))
	for _, signer := range signers {
		w.buf.Write(signer.Fingerprint[:])

		w.varInt(uint64(len(signer.Origin)))
		for _, index := range signer.Origin {
			w.uint32(index)
		}

		signer.Account.WhenSome(func(account uint32) {
			w.uint8(1)
			w.uint32(account)
		})
		if signer.Account.IsNone() {
			w.uint8(0)
		}

		if err := writeXpub(&w, signer.Xpub); err != nil {
			return nil, err
		}

		w.varBytes([]byte(signer.Device))
		w.varBytes([]byte(signer.Name))
		w.uint8(uint8(signer.Ownership))
	}

	return w.bytes(), nil
}

func readSigner(r *fieldReader) (Signer, error) {
	var signer Signer

	fp, err := r.fixed(len(signer.Fingerprint))
	if err != nil {
		return signer, err
	}
	copy(signer.Fingerprint[:], fp)

	n, err := r.count()
	if err != nil {
		return signer, err
	}
	for i := 0; i < n; i++ {
		index, err := r.uint32()
		if err != nil {
			return signer, err
		}
		signer.Origin = append(signer.Origin, index)
	}

	flag, err := r.uint8()
	if err != nil {
		return signer, err
	}
	switch flag {
	case 0:
		signer.Account = fn.None[uint32]()
	case 1:
		account, err := r.uint32()
		if err != nil {
			return signer, err
		}
		signer.Account = fn.Some(account)
	default:
		return signer, fmt.Errorf("invalid account flag %d", flag)
	}

	if signer.Xpub, err = readXpub(r); err != nil {
		return signer, err
	}

	device, err := r.varBytes()
	if err != nil {
		return signer, err
	}
	name, err := r.varBytes()
	if err != nil {
		return signer, err
	}
	signer.Device, signer.Name = string(device), string(name)

	ownership, err := r.uint8()
	if err != nil {
		return signer, err
	}
	if Ownership(ownership) > External {
		return signer, fmt.Errorf("invalid ownership %d", ownership)
	}
	signer.Ownership = Ownership(ownership)

	return signer, nil
}

func decodeSigners(b []byte) ([]Signer, error) {
	r := newFieldReader(b)
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	signers := make([]Signer, 0, n)
	for i := 0; i < n; i++ {
		signer, err := readSigner(r)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}

	return signers, r.done()
}

func encodeElectrum(s ElectrumServer) []byte {
	var w fieldWriter
	w.uint8(uint8(s.Preset))
	w.varBytes([]byte(s.Host))
	w.uint16(s.Port)
	w.uint8(uint8(s.Sec))

	return w.bytes()
}

func decodeElectrum(b []byte) (ElectrumServer, error) {
	var s ElectrumServer

	r := newFieldReader(b)
	preset, err := r.uint8()
	if err != nil {
		return s, err
	}
	host, err := r.varBytes()
	if err != nil {
		return s, err
	}
	if s.Port, err = r.uint16(); err != nil {
		return s, err
	}
	sec, err := r.uint8()
	if err != nil {
		return s, err
	}

	if ElectrumPreset(preset) > ElectrumCustom ||
		ElectrumSec(sec) > ElectrumNone {

		return s, fmt.Errorf("invalid electrum server %d/%d", preset,
			sec)
	}
	s.Preset, s.Host, s.Sec = ElectrumPreset(preset), string(host),
		ElectrumSec(sec)

	return s, r.done()
}

// Bytes returns the strict encoding of the settings.
func (s *WalletSettings) Bytes() ([]byte, error) {
	desc, err := s.descriptor.Bytes()
	if err != nil {
		return nil, err
	}
	signers, err := encodeSigners(s.signers)
	if err != nil {
		return nil, err
	}

	var (
		network  = uint8(s.network)
		electrum = encodeElectrum(s.electrum)
	)

	return encodeStream(
		tlv.MakePrimitiveRecord(settingsDescriptorType, &desc),
		tlv.MakePrimitiveRecord(settingsNetworkType, &network),
		tlv.MakePrimitiveRecord(settingsSignersType, &signers),
		tlv.MakePrimitiveRecord(settingsElectrumType, &electrum),
	)
}

// FromBytes decodes the strict encoding of the settings. The signers must
// match the signing keys of the descriptor, and the decoded settings pass
// the same validation as Build.
func (s *WalletSettings) FromBytes(data []byte) error {
	var (
		desc, signers, electrum []byte
		network                 uint8
	)
	err := decodeStream(data,
		tlv.MakePrimitiveRecord(settingsDescriptorType, &desc),
		tlv.MakePrimitiveRecord(settingsNetworkType, &network),
		tlv.MakePrimitiveRecord(settingsSignersType, &signers),
		tlv.MakePrimitiveRecord(settingsElectrumType, &electrum),
	)
	if err != nil {
		return err
	}

	var decoded WalletSettings
	if err := decoded.descriptor.FromBytes(desc); err != nil {
		return err
	}

	decoded.network = Network(network)
	if decoded.network > Signet {
		return fmt.Errorf("unknown network %d", network)
	}
	if decoded.network.IsTestnet() != decoded.descriptor.Testnet {
		return fmt.Errorf("network %v does not match descriptor",
			decoded.network)
	}

	if decoded.signers, err = decodeSigners(signers); err != nil {
		return err
	}
	cores := make([]keyorigin.XpubkeyCore, 0, len(decoded.signers))
	for i := range decoded.signers {
		core, err := decoded.signers[i].Core()
		if err != nil {
			return err
		}
		cores = append(cores, core)
	}
	if !slices.Equal(cores, decoded.descriptor.SigningKeys) {
		return ErrSignerMismatch
	}

	server, err := decodeElectrum(electrum)
	if err != nil {
		return err
	}

	// A well formed encoding may still describe a wallet Build rejects.
	rebuilt, err := Build(
		decoded.signers, decoded.descriptor.Conditions,
		decoded.descriptor.Classes, decoded.descriptor.Terminal,
		decoded.network,
	)
	if err != nil {
		return err
	}
	rebuilt.electrum = server

	*s = *rebuilt

	return nil
}

// Encode writes the length prefixed encoding of the settings.
func (s *WalletSettings) Encode(w io.Writer) error {
	data, err := s.Bytes()
	if err != nil {
		return err
	}

	return writeFramed(w, data)
}

// Decode reads the length prefixed encoding of the settings.
func (s *WalletSettings) Decode(r io.Reader) error {
	data, err := readFramed(r)
	if err != nil {
		return err
	}

	return s.FromBytes(data)
}

func encodePackets(packets []*psbt.Packet) ([]byte, error) {
	var w fieldWriter
	w.varInt(uint64(len(packets)))
	for _, packet := range packets {
		var b bytes.Buffer
		if err := packet.Serialize(&b); err != nil {
			return nil, err
		}
		w.varBytes(b.Bytes())
	}

	return w.bytes(), nil
}

func decodePackets(b []byte) ([]*psbt.Packet, error) {
	r := newFieldReader(b)
	n, err := r.count()
	if err != nil {
		return nil, err
	}

	packets := make([]*psbt.Packet, 0, n)
	for i := 0; i < n; i++ {
		raw, err := r.varBytes()
		if err != nil {
			return nil, err
		}

		packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}

	return packets, r.done()
}
