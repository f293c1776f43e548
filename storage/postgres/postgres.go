// Package postgres implements storage.Repository backed by PostgreSQL.
//
// The documents table uses a composite primary key (namespace, id) that
// mirrors the key space used by the BBolt and in-memory backends. The body
// is stored as BYTEA so that it round-trips byte for byte.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/ironseal/storage"
)

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx connection pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// execer abstracts both *pgxpool.Pool and pgx.Tx for shared statements.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const upsertSQL = `INSERT INTO documents (namespace, id, body, version)
	 VALUES ($1, $2, $3, $4)
	 ON CONFLICT (namespace, id)
	 DO UPDATE SET body = $3, version = $4, updated_at = now()`

func (s *Store) Put(ctx context.Context, namespace, id string, doc *storage.Document) error {
	return put(ctx, s.pool, namespace, id, doc)
}

func (s *Store) Get(ctx context.Context, namespace, id string) (*storage.Document, error) {
	return get(ctx, s.pool, namespace, id)
}

func (s *Store) List(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM documents WHERE namespace = $1 ORDER BY id`, namespace)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	return del(ctx, s.pool, namespace, id)
}

func (s *Store) PutCAS(ctx context.Context, namespace, id string, expectedVersion uint64, doc *storage.Document) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return putCASInTx(ctx, tx, namespace, id, expectedVersion, doc)
	})
}

func (s *Store) Batch(ctx context.Context, namespace string, fn func(tx storage.BatchTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgBatchTx{ctx: ctx, tx: tx, namespace: namespace})
	})
}

// pgBatchTx carries the batch's context so that BatchTx stays free of one.
type pgBatchTx struct {
	ctx       context.Context
	tx        pgx.Tx
	namespace string
}

var _ storage.BatchTx = (*pgBatchTx)(nil)

func (btx *pgBatchTx) Get(id string) (*storage.Document, error) {
	return get(btx.ctx, btx.tx, btx.namespace, id)
}

func (btx *pgBatchTx) Put(id string, doc *storage.Document) error {
	return put(btx.ctx, btx.tx, btx.namespace, id, doc)
}

func (btx *pgBatchTx) PutCAS(id string, expectedVersion uint64, doc *storage.Document) error {
	return putCASInTx(btx.ctx, btx.tx, btx.namespace, id, expectedVersion, doc)
}

func (btx *pgBatchTx) Delete(id string) error {
	return del(btx.ctx, btx.tx, btx.namespace, id)
}

func put(ctx context.Context, q execer, namespace, id string, doc *storage.Document) error {
	_, err := q.Exec(ctx, upsertSQL, namespace, id, bodyOf(doc), doc.Version)
	return err
}

func get(ctx context.Context, q execer, namespace, id string) (*storage.Document, error) {
	var doc storage.Document
	err := q.QueryRow(ctx,
		`SELECT body, version FROM documents WHERE namespace = $1 AND id = $2`,
		namespace, id).Scan(&doc.Body, &doc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func del(ctx context.Context, q execer, namespace, id string) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM documents WHERE namespace = $1 AND id = $2`, namespace, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", namespace, id, storage.ErrNotFound)
	}
	return nil
}

// putCASInTx performs a compare-and-swap put within an existing transaction.
// It is used by both the top-level PutCAS and the batch PutCAS methods.
func putCASInTx(ctx context.Context, tx pgx.Tx, namespace, id string, expectedVersion uint64, doc *storage.Document) error {
	var currentVersion uint64
	err := tx.QueryRow(ctx,
		`SELECT version FROM documents WHERE namespace = $1 AND id = $2 FOR UPDATE`,
		namespace, id).Scan(&currentVersion)

	if errors.Is(err, pgx.ErrNoRows) {
		if expectedVersion != 0 {
			return storage.ErrCASFailed
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO documents (namespace, id, body, version) VALUES ($1, $2, $3, $4)`,
			namespace, id, bodyOf(doc), doc.Version)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// A concurrent creator won between the SELECT and the INSERT.
			return storage.ErrCASFailed
		}
		return err
	}
	if err != nil {
		return err
	}

	if expectedVersion == 0 || currentVersion != expectedVersion {
		return storage.ErrCASFailed
	}

	_, err = tx.Exec(ctx,
		`UPDATE documents SET body = $3, version = $4, updated_at = now()
		 WHERE namespace = $1 AND id = $2`,
		namespace, id, bodyOf(doc), doc.Version)
	return err
}

const uniqueViolation = "23505"

// bodyOf maps a nil body to an empty one; the column is NOT NULL.
func bodyOf(doc *storage.Document) []byte {
	if doc.Body == nil {
		return []byte{}
	}
	return doc.Body
}
