package user

import (
	"context"
	"os"

	"github.com/bugtrackerpro/service-core/internal/user/entity"
)

// SeedEnabled reports whether default accounts should be created.
func SeedEnabled() bool {
	return os.Getenv("SEED_DEFAULT_USERS") == "1"
}

// SeedDefaults creates the stock demo accounts when the users
// collection is empty. No-op otherwise.
func (s *Service) SeedDefaults(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := []RegisterInput{
		{Username: "admin", Email: "admin@bugtracker.local", Password: "admin123", Role: entity.RoleAdmin},
		{Username: "developer1", Email: "developer1@bugtracker.local", Password: "dev123", Role: entity.RoleDeveloper},
		{Username: "developer2", Email: "developer2@bugtracker.local", Password: "dev123", Role: entity.RoleDeveloper},
		{Username: "tester1", Email: "tester1@bugtracker.local", Password: "test123", Role: entity.RoleTester},
	}
	for _, in := range defaults {
		if _, err := s.Register(ctx, in); err != nil {
			return err
		}
	}
	// seeding should not leave a dangling session for the last account
	return s.Logout(ctx)
}
