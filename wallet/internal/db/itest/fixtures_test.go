//go:build itest

package itest

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mycitadel/mcwallet/wallet/internal/db"
)

// CreateWalletParamsFixture creates test parameters for wallet registration.
func CreateWalletParamsFixture(name string) db.CreateWalletParams {
	return db.CreateWalletParams{
		ID:        RandomHash(),
		Name:      name,
		Network:   1,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

// AddressFixtures returns n consecutive addresses of a wallet branch.
func AddressFixtures(walletID chainhash.Hash, class uint8, branch uint32,
	start uint32, n int) []db.AddressInfo {

	addrs := make([]db.AddressInfo, 0, n)
	for i := range n {
		index := start + uint32(i)
		addrs = append(addrs, db.AddressInfo{
			WalletID: walletID,
			Class:    class,
			Branch:   branch,
			Index:    index,
			Address: fmt.Sprintf("tb1q%d%d%d%s", class, branch,
				index, walletID.String()[:8]),
			ScriptPubKey: append([]byte{0x00, 0x20}, RandomBytes(32)...),
		})
	}

	return addrs
}

// RandomBytes generates random bytes for test data.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	return b
}

// RandomHash generates a random hash for test data.
func RandomHash() chainhash.Hash {
	var h chainhash.Hash
	copy(h[:], RandomBytes(chainhash.HashSize))

	return h
}
