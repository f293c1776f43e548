// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jmcleod/ironseal/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing and single-process use cases.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string]*storage.Document
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string]*storage.Document)}
}

func (r *Repository) Put(_ context.Context, namespace, id string, doc *storage.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putLocked(namespace, id, doc)
}

func (r *Repository) putLocked(namespace, id string, doc *storage.Document) error {
	if _, ok := r.data[namespace]; !ok {
		r.data[namespace] = make(map[string]*storage.Document)
	}
	r.data[namespace][id] = doc.Clone()
	return nil
}

func (r *Repository) Get(_ context.Context, namespace, id string) (*storage.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(namespace, id)
}

func (r *Repository) getLocked(namespace, id string) (*storage.Document, error) {
	doc, ok := r.data[namespace][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (r *Repository) List(_ context.Context, namespace string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.data[namespace]))
	for id := range r.data[namespace] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) Delete(_ context.Context, namespace, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(namespace, id)
}

func (r *Repository) deleteLocked(namespace, id string) error {
	if _, ok := r.data[namespace][id]; !ok {
		return fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	delete(r.data[namespace], id)
	return nil
}

func (r *Repository) PutCAS(_ context.Context, namespace, id string, expectedVersion uint64, doc *storage.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putCASLocked(namespace, id, expectedVersion, doc)
}

func (r *Repository) putCASLocked(namespace, id string, expectedVersion uint64, doc *storage.Document) error {
	existing, ok := r.data[namespace][id]
	if !ok {
		if expectedVersion != 0 {
			return storage.ErrCASFailed
		}
		return r.putLocked(namespace, id, doc)
	}
	if expectedVersion == 0 || existing.Version != expectedVersion {
		return storage.ErrCASFailed
	}
	return r.putLocked(namespace, id, doc)
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (r *Repository) Batch(_ context.Context, namespace string, fn func(tx storage.BatchTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshot(namespace)

	tx := &memoryBatchTx{repo: r, namespace: namespace}
	if err := fn(tx); err != nil {
		r.restore(namespace, snapshot)
		return err
	}
	return nil
}

func (r *Repository) snapshot(namespace string) map[string]*storage.Document {
	original, ok := r.data[namespace]
	if !ok {
		return nil
	}
	cp := make(map[string]*storage.Document, len(original))
	for k, v := range original {
		cp[k] = v.Clone()
	}
	return cp
}

func (r *Repository) restore(namespace string, snapshot map[string]*storage.Document) {
	if snapshot == nil {
		delete(r.data, namespace)
	} else {
		r.data[namespace] = snapshot
	}
}

type memoryBatchTx struct {
	repo      *Repository
	namespace string
}

func (tx *memoryBatchTx) Get(id string) (*storage.Document, error) {
	return tx.repo.getLocked(tx.namespace, id)
}

func (tx *memoryBatchTx) Put(id string, doc *storage.Document) error {
	return tx.repo.putLocked(tx.namespace, id, doc)
}

func (tx *memoryBatchTx) PutCAS(id string, expectedVersion uint64, doc *storage.Document) error {
	return tx.repo.putCASLocked(tx.namespace, id, expectedVersion, doc)
}

func (tx *memoryBatchTx) Delete(id string) error {
	return tx.repo.deleteLocked(tx.namespace, id)
}
