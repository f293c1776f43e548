package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironseal/storage"
	bboltstorage "github.com/jmcleod/ironseal/storage/bbolt"
	"github.com/jmcleod/ironseal/storage/postgres"
)

var (
	storePath   string
	postgresDSN string
)

// openRepository returns PostgreSQL storage when a DSN is configured and the
// BBolt file otherwise. The returned func releases it.
func openRepository(ctx context.Context, path, dsn string) (storage.Repository, func(), error) {
	if dsn != "" {
		repo, err := postgres.NewRepositoryFromDSN(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return repo, repo.Close, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	repo, err := bboltstorage.NewRepositoryFromFile(path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open project storage: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

func init() {
	for _, c := range []*cobra.Command{projectCmd, upgradeCmd} {
		c.PersistentFlags().StringVar(&storePath, "store-path", cfg.StorePath, "Path to the BBolt project database")
		c.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN; overrides --store-path")
	}
}
