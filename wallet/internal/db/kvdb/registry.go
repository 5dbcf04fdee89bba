// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcwallet/walletdb"

	// Register the bolt backed walletdb driver.
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
)

const (
	// dbDriver is the walletdb driver of the registry file.
	dbDriver = "bdb"
)

var (
	// ErrDocumentNotFound is returned when no document is stored under an
	// id.
	ErrDocumentNotFound = errors.New("wallet document not found")

	// ErrMissingNamespace is returned when the registry buckets have not
	// been created.
	ErrMissingNamespace = errors.New("missing registry namespace")

	// registryNamespaceKey is the top-level bucket of the registry.
	registryNamespaceKey = []byte("mcwallet")

	// documentsBucketKey holds the wallet files keyed by descriptor id.
	documentsBucketKey = []byte("documents")

	// updatedBucketKey holds the unix time of the last write of each
	// document.
	updatedBucketKey = []byte("updated")
)

// Registry stores wallet documents in a walletdb database. Documents are the
// encoded wallet files and are kept opaque.
type Registry struct {
	db walletdb.DB
}

// Create creates a new registry database at path.
func Create(path string, timeout time.Duration) (*Registry, error) {
	dbConn, err := walletdb.Create(dbDriver, path, true, timeout, false)
	if err != nil {
		return nil, err
	}

	registry, err := New(dbConn)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	return registry, nil
}

// Open opens the registry database at path.
func Open(path string, timeout time.Duration) (*Registry, error) {
	dbConn, err := walletdb.Open(dbDriver, path, true, timeout, false)
	if err != nil {
		return nil, err
	}

	registry, err := New(dbConn)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	return registry, nil
}

// New returns a registry in the database, creating its buckets if needed.
func New(dbConn walletdb.DB) (*Registry, error) {
	err := walletdb.Update(dbConn, func(tx walletdb.ReadWriteTx) error {
		ns, err := tx.CreateTopLevelBucket(registryNamespaceKey)
		if err != nil {
			return err
		}

		if _, err := ns.CreateBucketIfNotExists(
			documentsBucketKey,
		); err != nil {
			return err
		}

		_, err = ns.CreateBucketIfNotExists(updatedBucketKey)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create registry: %w", err)
	}

	return &Registry{db: dbConn}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

func readBuckets(tx walletdb.ReadTx) (walletdb.ReadBucket,
	walletdb.ReadBucket, error) {

	ns := tx.ReadBucket(registryNamespaceKey)
	if ns == nil {
		return nil, nil, ErrMissingNamespace
	}

	docs := ns.NestedReadBucket(documentsBucketKey)
	updated := ns.NestedReadBucket(updatedBucketKey)
	if docs == nil || updated == nil {
		return nil, nil, ErrMissingNamespace
	}

	return docs, updated, nil
}

func writeBuckets(tx walletdb.ReadWriteTx) (walletdb.ReadWriteBucket,
	walletdb.ReadWriteBucket, error) {

	ns := tx.ReadWriteBucket(registryNamespaceKey)
	if ns == nil {
		return nil, nil, ErrMissingNamespace
	}

	docs := ns.NestedReadWriteBucket(documentsBucketKey)
	updated := ns.NestedReadWriteBucket(updatedBucketKey)
	if docs == nil || updated == nil {
		return nil, nil, ErrMissingNamespace
	}

	return docs, updated, nil
}

// Put stores the document under the id, replacing a previous one.
func (r *Registry) Put(id chainhash.Hash, doc []byte, now time.Time) error {
	return walletdb.Update(r.db, func(tx walletdb.ReadWriteTx) error {
		docs, updated, err := writeBuckets(tx)
		if err != nil {
			return err
		}

		if err := docs.Put(id[:], doc); err != nil {
			return err
		}

		return updated.Put(id[:], putTime(now))
	})
}

// Get returns the document stored under the id.
func (r *Registry) Get(id chainhash.Hash) ([]byte, error) {
	var doc []byte
	err := walletdb.View(r.db, func(tx walletdb.ReadTx) error {
		docs, _, err := readBuckets(tx)
		if err != nil {
			return err
		}

		v := docs.Get(id[:])
		if v == nil {
			return fmt.Errorf("%w: %v", ErrDocumentNotFound, id)
		}

		// Values are only valid during the transaction.
		doc = append([]byte(nil), v...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Entry describes a stored document.
type Entry struct {
	ID      chainhash.Hash
	Updated time.Time
	Size    int
}

// List returns the entries of every stored document ordered by id.
func (r *Registry) List() ([]Entry, error) {
	var entries []Entry
	err := walletdb.View(r.db, func(tx walletdb.ReadTx) error {
		docs, updated, err := readBuckets(tx)
		if err != nil {
			return err
		}

		return docs.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := entry.ID.SetBytes(k); err != nil {
				return err
			}

			t, err := getTime(updated.Get(k))
			if err != nil {
				return fmt.Errorf("document %v: %w", entry.ID,
					err)
			}
			entry.Updated = t
			entry.Size = len(v)

			entries = append(entries, entry)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Delete removes the document stored under the id.
func (r *Registry) Delete(id chainhash.Hash) error {
	return walletdb.Update(r.db, func(tx walletdb.ReadWriteTx) error {
		docs, updated, err := writeBuckets(tx)
		if err != nil {
			return err
		}

		if docs.Get(id[:]) == nil {
			return fmt.Errorf("%w: %v", ErrDocumentNotFound, id)
		}

		if err := docs.Delete(id[:]); err != nil {
			return err
		}

		return updated.Delete(id[:])
	})
}
