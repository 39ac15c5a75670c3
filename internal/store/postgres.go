package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists each collection as a single jsonb row. The
// one-slot-per-collection shape mirrors the client-local storage layout
// this service replaces, so the two backends stay interchangeable.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureTable creates the record_store table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS record_store (
  collection TEXT PRIMARY KEY,
  data BYTEA NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *PostgresStore) Read(ctx context.Context, collection string) ([]byte, error) {
	const q = `SELECT data FROM record_store WHERE collection=$1`
	var data []byte
	if err := s.db.GetContext(ctx, &data, q, collection); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *PostgresStore) Write(ctx context.Context, collection string, data []byte) error {
	const q = `INSERT INTO record_store (collection, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (collection) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`
	_, err := s.db.ExecContext(ctx, q, collection, data)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM record_store WHERE collection=$1`, collection)
	return err
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM record_store`)
	return err
}
