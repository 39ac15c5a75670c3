package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bugtrackerpro/service-core/internal/store"
	"github.com/bugtrackerpro/service-core/internal/user/entity"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// UserRepo provides data access for the users collection. Every call
// re-reads the full collection from the store; writes replace it whole.
type UserRepo struct {
	store store.Store
}

func NewUserRepo(s store.Store) *UserRepo { return &UserRepo{store: s} }

func (r *UserRepo) load(ctx context.Context) ([]entity.User, error) {
	raw, err := r.store.Read(ctx, store.CollectionUsers)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []entity.User{}, nil
	}
	var users []entity.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) save(ctx context.Context, users []entity.User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, store.CollectionUsers, raw)
}

// List returns all users in insertion order.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	return r.load(ctx)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetByUsername matches case-insensitively.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetByEmail matches case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create appends a new user row. Uniqueness is the service's concern.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	users, err := r.load(ctx)
	if err != nil {
		return err
	}
	users = append(users, *u)
	return r.save(ctx, users)
}

// Delete removes a user by id, returning ErrNotFound when absent.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	users, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == id {
			users = append(users[:i], users[i+1:]...)
			return r.save(ctx, users)
		}
	}
	return ErrNotFound
}
