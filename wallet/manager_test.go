package wallet

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/stretchr/testify/require"
)

// newTestManager opens a manager with SQLite storage in a temporary
// directory.
func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()

	dir := t.TempDir()
	m, err := OpenManager(ManagerConfig{
		DataDir: dir,
		Clock:   clock.NewTestClock(testNow),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = m.Close()
	})

	return m, dir
}

// TestManagerSaveLoad checks that saved wallets are loaded and listed.
func TestManagerSaveLoad(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	w := testWallet(t)

	id, err := m.Save(t.Context(), "savings", w)
	require.NoError(t, err)

	desc := w.Settings().Descriptor()
	wantID, err := desc.ID()
	require.NoError(t, err)
	require.Equal(t, wantID, id)

	loaded, err := m.Load(id)
	require.NoError(t, err)
	want, err := w.Bytes()
	require.NoError(t, err)
	got, err := loaded.Bytes()
	require.NoError(t, err)
	require.Equal(t, want, got)

	// Saving again renames the wallet.
	_, err = m.Save(t.Context(), "cold storage", w)
	require.NoError(t, err)

	list, err := m.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, id, list[0].ID)
	require.Equal(t, "cold storage", list[0].Name)
	require.Equal(t, Testnet, list[0].Network)
	require.True(t, testNow.Equal(list[0].CreatedAt))

	_, err = m.Load(chainhash.Hash{1})
	require.ErrorIs(t, err, ErrWalletNotFound)
}

// TestManagerIndexAddresses checks that addresses are indexed per class and
// branch and can be looked up by script.
func TestManagerIndexAddresses(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	w := testWallet(t)

	id, err := m.Save(t.Context(), "index", w)
	require.NoError(t, err)

	// Two classes with a receive and a change branch each.
	added, err := m.IndexAddresses(t.Context(), id, 5)
	require.NoError(t, err)
	require.Equal(t, 20, added)

	added, err = m.IndexAddresses(t.Context(), id, 3)
	require.NoError(t, err)
	require.Equal(t, 12, added)

	taproot := descriptor.TaprootC0
	change := uint32(1)
	entries, err := m.Addresses(t.Context(), id, &taproot, &change, 0)
	require.NoError(t, err)
	require.Len(t, entries, 8)
	for i, entry := range entries {
		require.Equal(t, uint32(i), entry.Index)
		require.Equal(t, change, entry.Change)
		require.Equal(t, taproot, entry.Class)
	}

	desc, err := w.Settings().DescriptorForClass(descriptor.SegwitV0)
	require.NoError(t, err)
	derived, err := desc.Derive(Testnet.Params(), 0, 6)
	require.NoError(t, err)

	found, err := m.Lookup(t.Context(), derived.PkScript)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, id, found[0].WalletID)
	require.Equal(t, derived.Source.String(), found[0].Address)
	require.Equal(t, uint32(6), found[0].Index)
	require.Equal(t, descriptor.SegwitV0, found[0].Class)

	found, err = m.Lookup(t.Context(), []byte{0x51})
	require.NoError(t, err)
	require.Empty(t, found)
}

// TestManagerDelete checks that deleting a wallet removes its document and
// addresses.
func TestManagerDelete(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	w := testWallet(t)

	id, err := m.Save(t.Context(), "gone", w)
	require.NoError(t, err)
	_, err = m.IndexAddresses(t.Context(), id, 2)
	require.NoError(t, err)

	require.NoError(t, m.Delete(t.Context(), id))

	_, err = m.Load(id)
	require.ErrorIs(t, err, ErrWalletNotFound)

	entries, err := m.Addresses(t.Context(), id, nil, nil, 0)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.ErrorIs(t, m.Delete(t.Context(), id), ErrWalletNotFound)
}

// TestManagerReopen checks that wallets persist across manager restarts.
func TestManagerReopen(t *testing.T) {
	t.Parallel()

	m, dir := newTestManager(t)
	id, err := m.Save(t.Context(), "persisted", testWallet(t))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	reopened, err := OpenManager(ManagerConfig{
		DataDir: dir,
		Clock:   clock.NewTestClock(testNow.Add(time.Hour)),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = reopened.Close()
	})

	_, err = reopened.Load(id)
	require.NoError(t, err)

	list, err := reopened.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "persisted", list[0].Name)
}

// TestOpenManagerConfig checks configuration errors.
func TestOpenManagerConfig(t *testing.T) {
	t.Parallel()

	_, err := OpenManager(ManagerConfig{})
	require.ErrorIs(t, err, ErrManagerConfig)

	_, err = OpenManager(ManagerConfig{
		DataDir:  t.TempDir(),
		DBDriver: "postgres",
	})
	require.ErrorIs(t, err, ErrManagerConfig)
}

// TestManagerUpdate checks that a stored wallet document is replaced
// without renaming the wallet, and that unknown wallets are not created.
func TestManagerUpdate(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)
	w := testWallet(t)

	_, err := m.Update(w)
	require.ErrorIs(t, err, ErrWalletNotFound)

	id, err := m.Save(t.Context(), "spending", w)
	require.NoError(t, err)

	require.NoError(t, w.Finalize(0))
	updated, err := m.Update(w)
	require.NoError(t, err)
	require.Equal(t, id, updated)

	loaded, err := m.Load(id)
	require.NoError(t, err)
	require.Empty(t, loaded.Drafts)
	require.Len(t, loaded.History, 2)

	list, err := m.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "spending", list[0].Name)
}
