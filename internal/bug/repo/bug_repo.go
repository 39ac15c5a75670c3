package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bugtrackerpro/service-core/internal/bug/entity"
	"github.com/bugtrackerpro/service-core/internal/store"
)

// ErrNotFound is returned when no bug matches the id.
var ErrNotFound = errors.New("bug not found")

// Filter narrows List results. Zero values mean "no constraint".
// Unassigned selects bugs with no assignee and wins over AssignedTo.
type Filter struct {
	Status     entity.Status
	Priority   entity.Priority
	AssignedTo string
	Unassigned bool
	// Search is a case-insensitive substring match over title+description.
	Search string
}

// BugRepo provides data access for the bugs collection.
type BugRepo struct {
	store store.Store
}

func NewBugRepo(s store.Store) *BugRepo { return &BugRepo{store: s} }

func (r *BugRepo) load(ctx context.Context) ([]entity.Bug, error) {
	raw, err := r.store.Read(ctx, store.CollectionBugs)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []entity.Bug{}, nil
	}
	var bugs []entity.Bug
	if err := json.Unmarshal(raw, &bugs); err != nil {
		return nil, err
	}
	return bugs, nil
}

func (r *BugRepo) save(ctx context.Context, bugs []entity.Bug) error {
	raw, err := json.Marshal(bugs)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, store.CollectionBugs, raw)
}

// List returns bugs matching the filter, newest-updated-first.
func (r *BugRepo) List(ctx context.Context, f Filter) ([]entity.Bug, error) {
	bugs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Bug, 0, len(bugs))
	search := strings.ToLower(f.Search)
	for _, b := range bugs {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Priority != "" && b.Priority != f.Priority {
			continue
		}
		if f.Unassigned {
			if b.AssignedTo != nil {
				continue
			}
		} else if f.AssignedTo != "" {
			if b.AssignedTo == nil || *b.AssignedTo != f.AssignedTo {
				continue
			}
		}
		if search != "" {
			haystack := strings.ToLower(b.Title + " " + b.Description)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *BugRepo) Get(ctx context.Context, id string) (*entity.Bug, error) {
	bugs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bugs {
		if bugs[i].ID == id {
			return &bugs[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *BugRepo) Create(ctx context.Context, b *entity.Bug) error {
	bugs, err := r.load(ctx)
	if err != nil {
		return err
	}
	bugs = append(bugs, *b)
	return r.save(ctx, bugs)
}

// Update applies mutate to the bug with the given id and always bumps
// the updated timestamp. Returns the mutated bug.
func (r *BugRepo) Update(ctx context.Context, id string, mutate func(*entity.Bug)) (*entity.Bug, error) {
	bugs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bugs {
		if bugs[i].ID == id {
			mutate(&bugs[i])
			bugs[i].UpdatedAt = time.Now().UTC()
			if err := r.save(ctx, bugs); err != nil {
				return nil, err
			}
			b := bugs[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *BugRepo) Delete(ctx context.Context, id string) error {
	bugs, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range bugs {
		if bugs[i].ID == id {
			bugs = append(bugs[:i], bugs[i+1:]...)
			return r.save(ctx, bugs)
		}
	}
	return ErrNotFound
}
