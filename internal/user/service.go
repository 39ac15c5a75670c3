package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bugtrackerpro/service-core/internal/activity"
	"github.com/bugtrackerpro/service-core/internal/apperror"
	"github.com/bugtrackerpro/service-core/internal/auth"
	"github.com/bugtrackerpro/service-core/internal/user/entity"
	userrepo "github.com/bugtrackerpro/service-core/internal/user/repo"
	"github.com/bugtrackerpro/service-core/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Service orchestrates registration, authentication and user lifecycle.
type Service struct {
	repo     *userrepo.UserRepo
	hasher   PasswordHasher
	tokens   *auth.TokenManager
	sessions *auth.SessionStore
	activity *activity.Service
	logger   *zap.SugaredLogger
}

func NewService(r *userrepo.UserRepo, hasher PasswordHasher, tokens *auth.TokenManager, sessions *auth.SessionStore, act *activity.Service, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: r, hasher: hasher, tokens: tokens, sessions: sessions, activity: act, logger: logger}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     entity.Role
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  entity.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Register validates input, enforces case-insensitive username/email
// uniqueness, derives the password credential and opens a session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if utf8.RuneCountInString(username) < 3 {
		return nil, apperror.Validation("Username must be at least 3 characters")
	}
	if !usernameRe.MatchString(username) {
		return nil, apperror.Validation("Username may only contain letters, digits and underscores")
	}
	if !emailRe.MatchString(email) {
		return nil, apperror.Validation("Invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < 6 {
		return nil, apperror.Validation("Password must be at least 6 characters")
	}
	role := in.Role
	if role == "" {
		role = entity.RoleDeveloper
	}
	if !role.Valid() {
		return nil, apperror.Validation("Invalid role")
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Validation("Username already exists")
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return nil, apperror.Storage(err, "look up username")
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Validation("Email already exists")
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return nil, apperror.Storage(err, "look up email")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Storage(err, "derive credential")
	}

	u := entity.User{
		ID:           utilities.NewKSUID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Color:        entity.ColorFor(username),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return nil, apperror.Storage(err, "create user")
	}

	if err := s.activity.Record(ctx, "registered", username+" joined as "+string(role), nil, "", u.ID, u.Username); err != nil {
		return nil, err
	}

	return s.openSession(ctx, &u)
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			// avoid user enumeration
			return nil, apperror.Auth("Invalid username or password")
		}
		return nil, apperror.Storage(err, "look up user")
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, apperror.Auth("Invalid username or password")
	}
	return s.openSession(ctx, u)
}

func (s *Service) openSession(ctx context.Context, u *entity.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperror.Storage(err, "issue token")
	}
	pub := u.Public()
	if err := s.sessions.Set(ctx, auth.Session{User: pub, Token: token}); err != nil {
		return nil, apperror.Storage(err, "persist session")
	}
	return &AuthResult{User: pub, Token: token}, nil
}

// Logout clears the current session slot.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return apperror.Storage(err, "clear session")
	}
	return nil
}

// CurrentUser resolves a bearer token to the acting user. Expired or
// invalid tokens clear the session slot and fail closed; so does a
// token for a user that has since been deleted.
func (s *Service) CurrentUser(ctx context.Context, token string) (*entity.PublicUser, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		_ = s.sessions.Clear(ctx)
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			_ = s.sessions.Clear(ctx)
			return nil, apperror.Auth("user no longer exists")
		}
		return nil, apperror.Storage(err, "look up user")
	}
	pub := u.Public()
	return &pub, nil
}

// Get returns a single credential-stripped user.
func (s *Service) Get(ctx context.Context, id string) (*entity.PublicUser, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Storage(err, "look up user")
	}
	pub := u.Public()
	return &pub, nil
}

// List returns all users, credential stripped.
func (s *Service) List(ctx context.Context) ([]entity.PublicUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Storage(err, "list users")
	}
	out := make([]entity.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// ListDevelopers returns users holding the developer role.
func (s *Service) ListDevelopers(ctx context.Context) ([]entity.PublicUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Storage(err, "list users")
	}
	out := make([]entity.PublicUser, 0)
	for i := range users {
		if users[i].Role == entity.RoleDeveloper {
			out = append(out, users[i].Public())
		}
	}
	return out, nil
}

// Delete removes a user. Admin only; admins cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor entity.PublicUser, id string) error {
	if actor.Role != entity.RoleAdmin {
		return apperror.Permission("Only admins can delete users")
	}
	if actor.ID == id {
		return apperror.Validation("You cannot delete your own account")
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Storage(err, "look up user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return apperror.NotFound("User not found")
		}
		return apperror.Storage(err, "delete user")
	}
	return s.activity.Record(ctx, "user_deleted", "removed account "+target.Username, nil, "", actor.ID, actor.Username)
}
