package entity

import (
	"hash/fnv"
	"strings"
	"time"
)

// Role determines the capability matrix enforced by the services.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleTester:
		return true
	}
	return false
}

// User is an account record in the users collection. PasswordHash is
// persisted but stripped before any response or session snapshot.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the credential-stripped projection returned to callers
// and stored in the session snapshot.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Color:     u.Color,
		CreatedAt: u.CreatedAt,
	}
}

// colorPalette is the fixed set of display colors assigned to users.
var colorPalette = []string{
	"#e74c3c", "#e67e22", "#f1c40f", "#2ecc71",
	"#1abc9c", "#3498db", "#9b59b6", "#34495e",
}

// ColorFor deterministically picks a display color for a username.
// Case-insensitive so the color survives login-form casing differences.
func ColorFor(username string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(username)))
	return colorPalette[h.Sum32()%uint32(len(colorPalette))]
}
