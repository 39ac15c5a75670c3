// Package store provides the record store: named collections persisted
// as whole serialized blobs. Repositories read a full collection, mutate
// in memory, and write the full collection back; there is no partial
// update path and no caching across calls.
package store

import (
	"bytes"
	"context"
)

// Collection names. Each occupies one slot in the backing store.
const (
	CollectionUsers       = "users"
	CollectionBugs        = "bugs"
	CollectionActivityLog = "activity_log"
	CollectionSession     = "session"
	CollectionVersion     = "schema_version"
)

// SchemaVersion is compared against the persisted marker on startup.
// A mismatch wipes every collection; there is no forward data migration.
const SchemaVersion = "1.2"

// Store is the minimal contract over a persistent key-value area.
// Read returns nil with no error when the collection is absent. Write
// replaces the collection atomically from the caller's perspective.
// Failures are fatal I/O errors, never retried.
type Store interface {
	Read(ctx context.Context, collection string) ([]byte, error)
	Write(ctx context.Context, collection string, data []byte) error
	Delete(ctx context.Context, collection string) error
	// Reset removes every collection.
	Reset(ctx context.Context) error
}

// EnsureVersion checks the persisted schema marker and wipes the store
// when it differs from SchemaVersion. This is a forward-migration
// escape hatch, not a migration system.
func EnsureVersion(ctx context.Context, s Store) error {
	raw, err := s.Read(ctx, CollectionVersion)
	if err != nil {
		return err
	}
	if raw != nil && bytes.Equal(raw, []byte(SchemaVersion)) {
		return nil
	}
	if err := s.Reset(ctx); err != nil {
		return err
	}
	return s.Write(ctx, CollectionVersion, []byte(SchemaVersion))
}
