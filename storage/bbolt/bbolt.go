// Package bbolt provides a BBolt-backed storage repository. Each namespace
// is a bucket; documents are stored JSON-encoded under their ID.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/ironseal/storage"
)

// Store implements storage.Repository backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given BBolt database.
func NewRepository(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// NewRepositoryFromFile opens a BBolt database at the given path and returns a new Repository.
func NewRepositoryFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewRepository(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(_ context.Context, namespace, id string, doc *storage.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return putInBucket(b, id, doc)
	})
}

func (s *Store) Get(_ context.Context, namespace, id string) (*storage.Document, error) {
	var doc *storage.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		doc, err = getFromBucket(tx.Bucket([]byte(namespace)), namespace, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Delete(_ context.Context, namespace, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteFromBucket(tx.Bucket([]byte(namespace)), namespace, id)
	})
}

func (s *Store) List(_ context.Context, namespace string) ([]string, error) {
	ids := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (s *Store) PutCAS(_ context.Context, namespace, id string, expectedVersion uint64, doc *storage.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return putCASInBucket(b, id, expectedVersion, doc)
	})
}

// Batch runs fn inside a single read-write BBolt transaction. Returning an
// error from fn rolls back every write.
func (s *Store) Batch(_ context.Context, namespace string, fn func(tx storage.BatchTx) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return fn(&boltBatchTx{bucket: b, namespace: namespace})
	})
}

func putInBucket(b *bbolt.Bucket, id string, doc *storage.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), data)
}

// getFromBucket decodes into a fresh Document; bbolt's value slice is only
// valid for the life of the transaction.
func getFromBucket(b *bbolt.Bucket, namespace, id string) (*storage.Document, error) {
	if b == nil {
		return nil, fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	data := b.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", namespace, id, err)
	}
	return &doc, nil
}

func deleteFromBucket(b *bbolt.Bucket, namespace, id string) error {
	if b == nil || b.Get([]byte(id)) == nil {
		return fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	return b.Delete([]byte(id))
}

func putCASInBucket(b *bbolt.Bucket, id string, expectedVersion uint64, doc *storage.Document) error {
	existingData := b.Get([]byte(id))

	if expectedVersion == 0 {
		if existingData != nil {
			return storage.ErrCASFailed
		}
	} else {
		if existingData == nil {
			return storage.ErrCASFailed
		}
		var existing storage.Document
		if err := json.Unmarshal(existingData, &existing); err != nil {
			return err
		}
		if existing.Version != expectedVersion {
			return storage.ErrCASFailed
		}
	}
	return putInBucket(b, id, doc)
}

type boltBatchTx struct {
	bucket    *bbolt.Bucket
	namespace string
}

func (tx *boltBatchTx) Get(id string) (*storage.Document, error) {
	return getFromBucket(tx.bucket, tx.namespace, id)
}

func (tx *boltBatchTx) Put(id string, doc *storage.Document) error {
	return putInBucket(tx.bucket, id, doc)
}

func (tx *boltBatchTx) PutCAS(id string, expectedVersion uint64, doc *storage.Document) error {
	return putCASInBucket(tx.bucket, id, expectedVersion, doc)
}

func (tx *boltBatchTx) Delete(id string) error {
	return deleteFromBucket(tx.bucket, tx.namespace, id)
}
