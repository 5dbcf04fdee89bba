// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/pkg/docfile"
	"github.com/mycitadel/mcwallet/wallet/internal/db"
	"github.com/mycitadel/mcwallet/wallet/internal/db/kvdb"
	"golang.org/x/sync/errgroup"
)

const (
	// RegistryFileName is the name of the wallet document database in the
	// data directory.
	RegistryFileName = "wallets.db"

	// IndexFileName is the name of the SQLite address index in the data
	// directory.
	IndexFileName = "index.db"

	// DefaultLookahead is the number of addresses indexed past the last
	// indexed one of every branch.
	DefaultLookahead = 20

	// defaultDBTimeout is how long to wait for the registry file lock.
	defaultDBTimeout = 10 * time.Second
)

var (
	// ErrManagerConfig is returned when the manager configuration is
	// incomplete.
	ErrManagerConfig = errors.New("invalid manager config")

	// ErrWalletNotFound is returned for a wallet id that is not stored.
	ErrWalletNotFound = errors.New("wallet not found")
)

// ManagerConfig holds the storage configuration of a Manager.
type ManagerConfig struct {
	// DataDir is the directory of the wallet registry and, for SQLite, of
	// the address index.
	DataDir string

	// DBDriver selects the address index backend, "sqlite" or "postgres".
	DBDriver string

	// DBDSN is the PostgreSQL connection string. It is ignored for SQLite.
	DBDSN string

	// Clock supplies registration times. The system clock is used when
	// nil.
	Clock clock.Clock
}

// Manager keeps wallet documents in a registry and indexes the addresses of
// every wallet, so that output scripts can be traced back to the wallet and
// derivation that produced them.
type Manager struct {
	registry *kvdb.Registry
	index    db.Store
	closeDB  func() error
	clock    clock.Clock
}

// OpenManager opens or creates the wallet registry and the address index.
func OpenManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: no data directory", ErrManagerConfig)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}

	registryPath := filepath.Join(cfg.DataDir, RegistryFileName)

	var (
		registry *kvdb.Registry
		err      error
	)
	_, err = os.Stat(registryPath)
	if errors.Is(err, os.ErrNotExist) {
		registry, err = kvdb.Create(registryPath, defaultDBTimeout)
	} else {
		registry, err = kvdb.Open(registryPath, defaultDBTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open wallet registry: %w", err)
	}

	dsn := cfg.DBDSN
	switch cfg.DBDriver {
	case "", db.DriverSQLite:
		cfg.DBDriver = db.DriverSQLite
		dsn = filepath.Join(cfg.DataDir, IndexFileName)

	case db.DriverPostgres:
		if dsn == "" {
			_ = registry.Close()
			return nil, fmt.Errorf("%w: postgres needs a connection "+
				"string", ErrManagerConfig)
		}
	}

	index, sqlDB, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		_ = registry.Close()
		return nil, fmt.Errorf("unable to open address index: %w", err)
	}

	log.Infof("Opened wallet registry %s with %s address index",
		registryPath, cfg.DBDriver)

	return &Manager{
		registry: registry,
		index:    index,
		closeDB:  sqlDB.Close,
		clock:    cfg.Clock,
	}, nil
}

// Close closes the registry and the address index.
func (m *Manager) Close() error {
	return errors.Join(m.registry.Close(), m.closeDB())
}

// Save stores the wallet under its descriptor id and registers it with the
// address index. Saving a wallet again replaces the stored document and
// renames it.
func (m *Manager) Save(ctx context.Context, name string,
	w *Wallet) (chainhash.Hash, error) {

	desc := w.Settings().Descriptor()
	id, err := desc.ID()
	if err != nil {
		return chainhash.Hash{}, err
	}

	doc, err := w.Bytes()
	if err != nil {
		return chainhash.Hash{}, err
	}

	now := m.clock.Now()
	if err := m.registry.Put(id, doc, now); err != nil {
		return chainhash.Hash{}, err
	}

	err = m.index.CreateWallet(ctx, db.CreateWalletParams{
		ID:        id,
		Name:      name,
		Network:   uint8(w.Settings().Network()),
		CreatedAt: now,
	})
	if err != nil {
		return chainhash.Hash{}, err
	}

	log.Infof("Saved wallet %v (%s)", id, name)

	return id, nil
}

// Update replaces the stored document of a saved wallet. The name and the
// address index registration are kept.
func (m *Manager) Update(w *Wallet) (chainhash.Hash, error) {
	desc := w.Settings().Descriptor()
	id, err := desc.ID()
	if err != nil {
		return chainhash.Hash{}, err
	}

	_, err = m.registry.Get(id)
	if errors.Is(err, kvdb.ErrDocumentNotFound) {
		return chainhash.Hash{}, fmt.Errorf("%w: %v",
			ErrWalletNotFound, id)
	}
	if err != nil {
		return chainhash.Hash{}, err
	}

	doc, err := w.Bytes()
	if err != nil {
		return chainhash.Hash{}, err
	}
	if err := m.registry.Put(id, doc, m.clock.Now()); err != nil {
		return chainhash.Hash{}, err
	}

	log.Debugf("Updated wallet %v", id)

	return id, nil
}

// Load returns the wallet stored under the id.
func (m *Manager) Load(id chainhash.Hash) (*Wallet, error) {
	doc, err := m.registry.Get(id)
	if errors.Is(err, kvdb.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrWalletNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var w Wallet
	err = docfile.Read(bytes.NewReader(doc), docfile.WalletMagic, &w)
	if err != nil {
		return nil, fmt.Errorf("wallet %v: %w", id, err)
	}

	return &w, nil
}

// WalletEntry describes a stored wallet.
type WalletEntry struct {
	ID        chainhash.Hash
	Name      string
	Network   Network
	CreatedAt time.Time
	UpdatedAt time.Time
}

// List returns every stored wallet.
func (m *Manager) List(ctx context.Context) ([]WalletEntry, error) {
	entries, err := m.registry.List()
	if err != nil {
		return nil, err
	}

	wallets, err := m.index.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	infos := make(map[chainhash.Hash]db.WalletInfo, len(wallets))
	for _, info := range wallets {
		infos[info.ID] = info
	}

	list := make([]WalletEntry, 0, len(entries))
	for _, entry := range entries {
		info, ok := infos[entry.ID]
		if !ok {
			log.Warnf("Wallet %v is not registered with the address "+
				"index", entry.ID)
		}

		list = append(list, WalletEntry{
			ID:        entry.ID,
			Name:      info.Name,
			Network:   Network(info.Network),
			CreatedAt: info.CreatedAt,
			UpdatedAt: entry.Updated,
		})
	}

	return list, nil
}

// Delete removes the wallet and its indexed addresses.
func (m *Manager) Delete(ctx context.Context, id chainhash.Hash) error {
	err := m.registry.Delete(id)
	if errors.Is(err, kvdb.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %v", ErrWalletNotFound, id)
	}
	if err != nil {
		return err
	}

	err = m.index.DeleteWallet(ctx, id)
	if err != nil && !db.IsError(err, db.ErrWalletNotFound) {
		return err
	}

	log.Infof("Deleted wallet %v", id)

	return nil
}

// branches returns the change values the terminal derives addresses for.
func branches(terminal descriptor.Terminal) []uint32 {
	if terminal.Wildcards() == 2 {
		return []uint32{0, 1}
	}

	return []uint32{0}
}

// IndexAddresses derives lookahead addresses past the last indexed one on
// every branch of every descriptor class of the wallet and stores them. It
// returns the number of addresses added.
func (m *Manager) IndexAddresses(ctx context.Context, id chainhash.Hash,
	lookahead uint32) (int, error) {

	w, err := m.Load(id)
	if err != nil {
		return 0, err
	}

	settings := w.Settings()
	descs, err := settings.Descriptors()
	if err != nil {
		return 0, err
	}
	net := settings.Network().Params()
	desc := settings.Descriptor()

	var added atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range descs {
		for _, branch := range branches(desc.Terminal) {
			g.Go(func() error {
				n, err := m.indexBranch(
					ctx, id, d, net, branch, lookahead,
				)
				if err != nil {
					return fmt.Errorf("%v branch %d: %w",
						d.Class(), branch, err)
				}
				added.Add(int64(n))

				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	log.Infof("Indexed %d new addresses of wallet %v", added.Load(), id)

	return int(added.Load()), nil
}

func (m *Manager) indexBranch(ctx context.Context, id chainhash.Hash,
	d *descriptor.Descriptor, net *chaincfg.Params, branch,
	lookahead uint32) (int, error) {

	class := uint8(d.Class())
	start, err := m.index.NextIndex(ctx, db.NextIndexQuery{
		WalletID: id,
		Class:    class,
		Branch:   branch,
	})
	if err != nil {
		return 0, err
	}

	addrs := make([]db.AddressInfo, 0, lookahead)
	for i := range lookahead {
		index := start + i
		if descriptor.IsHardened(index) {
			break
		}

		derived, err := d.Derive(net, branch, index)
		if err != nil {
			return 0, err
		}

		addrs = append(addrs, db.AddressInfo{
			WalletID:     id,
			Class:        class,
			Branch:       branch,
			Index:        index,
			Address:      derived.Source.String(),
			ScriptPubKey: derived.PkScript,
		})
	}
	if len(addrs) == 0 {
		return 0, nil
	}

	return m.index.PutAddresses(ctx, id, addrs)
}

// AddressEntry is an indexed address of a wallet.
type AddressEntry struct {
	WalletID     chainhash.Hash
	Class        descriptor.Class
	Change       uint32
	Index        uint32
	Address      string
	ScriptPubKey []byte
}

func addressEntry(info db.AddressInfo) AddressEntry {
	return AddressEntry{
		WalletID:     info.WalletID,
		Class:        descriptor.Class(info.Class),
		Change:       info.Branch,
		Index:        info.Index,
		Address:      info.Address,
		ScriptPubKey: info.ScriptPubKey,
	}
}

// Addresses returns the indexed addresses of a wallet, optionally limited to
// a descriptor class and a change branch.
func (m *Manager) Addresses(ctx context.Context, id chainhash.Hash,
	class *descriptor.Class, change *uint32,
	limit int) ([]AddressEntry, error) {

	query := db.ListAddressesQuery{
		WalletID: id,
		Branch:   change,
		Limit:    limit,
	}
	if class != nil {
		c := uint8(*class)
		query.Class = &c
	}

	infos, err := m.index.ListAddresses(ctx, query)
	if err != nil {
		return nil, err
	}

	entries := make([]AddressEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, addressEntry(info))
	}

	return entries, nil
}

// Lookup returns the indexed addresses paying to the output script.
func (m *Manager) Lookup(ctx context.Context,
	scriptPubKey []byte) ([]AddressEntry, error) {

	infos, err := m.index.LookupScript(ctx, scriptPubKey)
	if err != nil {
		return nil, err
	}

	entries := make([]AddressEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, addressEntry(info))
	}

	return entries, nil
}
