// Package storage provides the document store behind the persistence
// adapter. Documents are opaque bytes addressed by (namespace, id) and carry
// a version used for compare-and-swap writes.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrCASFailed is returned when a compare-and-swap version check fails.
	ErrCASFailed = errors.New("CAS version mismatch")
)

// Document is one stored record.
type Document struct {
	Body    []byte `json:"body"`
	Version uint64 `json:"version"`
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{Body: append([]byte(nil), d.Body...), Version: d.Version}
}

// BatchTx provides reads and writes within an atomic transaction.
// The namespace is scoped to the batch, so methods don't require it.
type BatchTx interface {
	Get(id string) (*Document, error)
	Put(id string, doc *Document) error
	PutCAS(id string, expectedVersion uint64, doc *Document) error
	Delete(id string) error
}

// Repository defines the interface for document storage.
//
// PutCAS writes doc only if the stored version equals expectedVersion. An
// expectedVersion of zero means the document must not exist yet. List
// returns IDs in ascending order.
type Repository interface {
	Put(ctx context.Context, namespace, id string, doc *Document) error
	Get(ctx context.Context, namespace, id string) (*Document, error)
	List(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, id string) error
	PutCAS(ctx context.Context, namespace, id string, expectedVersion uint64, doc *Document) error
	Batch(ctx context.Context, namespace string, fn func(tx BatchTx) error) error
}
