// Package storagetest holds the behavioural tests every storage.Repository
// backend must pass.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmcleod/ironseal/storage"
)

// RunRepositoryTests exercises repo. The repository must start empty.
func RunRepositoryTests(t *testing.T, repo storage.Repository) {
	t.Helper()
	ctx := context.Background()
	const ns = "projects"
	doc := &storage.Document{Body: []byte(`{"name":"a"}`), Version: 1}

	t.Run("PutAndGet", func(t *testing.T) {
		if err := repo.Put(ctx, ns, "a", doc); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := repo.Get(ctx, ns, "a")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got.Body, doc.Body) || got.Version != doc.Version {
			t.Errorf("Get returned wrong document: %+v", got)
		}

		// Mutating the result must not affect the stored copy.
		got.Body[0] = 'X'
		again, _ := repo.Get(ctx, ns, "a")
		if again.Body[0] == 'X' {
			t.Error("repository should not share buffers with callers")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		if _, err := repo.Get(ctx, "missing-namespace", "a"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing namespace, got %v", err)
		}
		if _, err := repo.Get(ctx, ns, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing id, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		for _, id := range []string{"c", "b"} {
			if err := repo.Put(ctx, ns, id, doc); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}
		if err := repo.Put(ctx, "other", "z", doc); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		ids, err := repo.List(ctx, ns)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if fmt.Sprint(ids) != "[a b c]" {
			t.Errorf("expected [a b c], got %v", ids)
		}

		ids, err = repo.List(ctx, "missing-namespace")
		if err != nil {
			t.Errorf("expected no error for missing namespace, got %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no IDs, got %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, ns, "c"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get(ctx, ns, "c"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after Delete, got %v", err)
		}
		if err := repo.Delete(ctx, ns, "c"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("PutCAS", func(t *testing.T) {
		v1 := &storage.Document{Body: []byte("v1"), Version: 1}
		v2 := &storage.Document{Body: []byte("v2"), Version: 2}

		if err := repo.PutCAS(ctx, ns, "cas", 0, v1); err != nil {
			t.Fatalf("PutCAS create failed: %v", err)
		}
		if err := repo.PutCAS(ctx, ns, "cas", 0, v1); !errors.Is(err, storage.ErrCASFailed) {
			t.Errorf("expected ErrCASFailed creating twice, got %v", err)
		}
		if err := repo.PutCAS(ctx, ns, "cas-missing", 1, v1); !errors.Is(err, storage.ErrCASFailed) {
			t.Errorf("expected ErrCASFailed for non-zero version on missing document, got %v", err)
		}
		if err := repo.PutCAS(ctx, ns, "cas", 1, v2); err != nil {
			t.Fatalf("PutCAS update failed: %v", err)
		}
		if err := repo.PutCAS(ctx, ns, "cas", 1, v2); !errors.Is(err, storage.ErrCASFailed) {
			t.Errorf("expected ErrCASFailed for stale version, got %v", err)
		}

		got, _ := repo.Get(ctx, ns, "cas")
		if string(got.Body) != "v2" || got.Version != 2 {
			t.Errorf("expected v2, got %+v", got)
		}
	})

	t.Run("PutCASConcurrentCreate", func(t *testing.T) {
		const workers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := repo.PutCAS(ctx, ns, "race", 0, &storage.Document{Body: []byte(fmt.Sprint(i)), Version: 1})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else if !errors.Is(err, storage.ErrCASFailed) {
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()
		if wins != 1 {
			t.Errorf("expected exactly one winner, got %d", wins)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		const bns = "batch"
		err := repo.Batch(ctx, bns, func(tx storage.BatchTx) error {
			if err := tx.Put("id1", doc); err != nil {
				return err
			}
			if err := tx.PutCAS("id2", 0, doc); err != nil {
				return err
			}
			got, err := tx.Get("id1")
			if err != nil {
				return err
			}
			if !bytes.Equal(got.Body, doc.Body) {
				return fmt.Errorf("batch read returned %q", got.Body)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if _, err := repo.Get(ctx, bns, "id2"); err != nil {
			t.Errorf("id2 should exist after batch: %v", err)
		}

		errSimulated := errors.New("simulated error")
		err = repo.Batch(ctx, bns, func(tx storage.BatchTx) error {
			if err := tx.Put("id3", doc); err != nil {
				return err
			}
			if err := tx.Put("id1", &storage.Document{Body: []byte("changed"), Version: 9}); err != nil {
				return err
			}
			if err := tx.Delete("id2"); err != nil {
				return err
			}
			return errSimulated
		})
		if !errors.Is(err, errSimulated) {
			t.Fatalf("expected simulated error, got %v", err)
		}

		if _, err := repo.Get(ctx, bns, "id3"); !errors.Is(err, storage.ErrNotFound) {
			t.Error("id3 should not exist after failed batch")
		}
		if got, _ := repo.Get(ctx, bns, "id1"); got == nil || got.Version != doc.Version {
			t.Errorf("id1 should be unchanged after failed batch, got %+v", got)
		}
		if _, err := repo.Get(ctx, bns, "id2"); err != nil {
			t.Errorf("id2 should survive failed batch: %v", err)
		}

		err = repo.Batch(ctx, bns, func(tx storage.BatchTx) error {
			if _, err := tx.Get("missing"); !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("expected ErrNotFound, got %v", err)
			}
			return tx.Delete("missing")
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting missing document in batch, got %v", err)
		}
	})
}
