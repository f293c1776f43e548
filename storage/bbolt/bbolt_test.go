package bbolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/ironseal/storage"
	"github.com/jmcleod/ironseal/storage/storagetest"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ironseal-test.db")
	s, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	return s, path
}

func TestBBoltStorage(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()
	storagetest.RunRepositoryTests(t, s)
}

func TestBBoltStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	doc := &storage.Document{Body: []byte(`{"k":"v"}`), Version: 3}
	if err := s.Put(ctx, "ns", "persisted", doc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	s = NewRepository(db)
	defer s.Close()

	got, err := s.Get(ctx, "ns", "persisted")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != string(doc.Body) || got.Version != 3 {
		t.Errorf("unexpected document after reopen: %+v", got)
	}
}

func TestBBoltStorage_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	defer s.Close()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("ns"))
		if err != nil {
			return err
		}
		return b.Put([]byte("bad"), []byte("not json"))
	})
	if err != nil {
		t.Fatalf("seeding corrupt value failed: %v", err)
	}

	_, err = s.Get(ctx, "ns", "bad")
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected a decode error, got %v", err)
	}
	if err := s.PutCAS(ctx, "ns", "bad", 1, &storage.Document{Version: 2}); err == nil {
		t.Error("expected PutCAS to fail on a corrupt stored document")
	}
}
