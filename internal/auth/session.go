package auth

import (
	"context"
	"encoding/json"

	"github.com/bugtrackerpro/service-core/internal/store"
	"github.com/bugtrackerpro/service-core/internal/user/entity"
)

// Session is the persisted current-session snapshot. The user is always
// credential-stripped before it reaches this struct. Exactly one session
// occupies the slot at a time.
type Session struct {
	User  entity.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// SessionStore persists the session slot in the record store.
type SessionStore struct {
	store store.Store
}

func NewSessionStore(s store.Store) *SessionStore { return &SessionStore{store: s} }

func (s *SessionStore) Set(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.store.Write(ctx, store.CollectionSession, raw)
}

// Get returns the current session, or nil when none is active.
func (s *SessionStore) Get(ctx context.Context) (*Session, error) {
	raw, err := s.store.Read(ctx, store.CollectionSession)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, store.CollectionSession)
}
