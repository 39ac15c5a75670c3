package repo

import (
	"context"
	"encoding/json"

	"github.com/bugtrackerpro/service-core/internal/activity/entity"
	"github.com/bugtrackerpro/service-core/internal/store"
)

// MaxEntries is the retention bound: appending past it evicts the
// oldest entry (FIFO by insertion, newest-first for display).
const MaxEntries = 100

// ActivityRepo provides data access for the append-only activity log.
type ActivityRepo struct {
	store store.Store
}

func NewActivityRepo(s store.Store) *ActivityRepo { return &ActivityRepo{store: s} }

func (r *ActivityRepo) load(ctx context.Context) ([]entity.Entry, error) {
	raw, err := r.store.Read(ctx, store.CollectionActivityLog)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []entity.Entry{}, nil
	}
	var entries []entity.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Prepend inserts the entry at the head so iteration order is
// newest-first, then truncates to the retention bound.
func (r *ActivityRepo) Prepend(ctx context.Context, e entity.Entry) error {
	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	entries = append([]entity.Entry{e}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, store.CollectionActivityLog, raw)
}

// List returns the full retained log, newest first.
func (r *ActivityRepo) List(ctx context.Context) ([]entity.Entry, error) {
	return r.load(ctx)
}
