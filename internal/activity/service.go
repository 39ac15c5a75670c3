// Package activity maintains the bounded, newest-first audit log that
// every successful mutation appends to.
package activity

import (
	"context"
	"time"

	"github.com/bugtrackerpro/service-core/internal/activity/entity"
	"github.com/bugtrackerpro/service-core/internal/activity/repo"
	"github.com/bugtrackerpro/service-core/internal/apperror"
	"github.com/bugtrackerpro/service-core/pkg/utilities"
)

type Service struct {
	repo *repo.ActivityRepo
}

func NewService(r *repo.ActivityRepo) *Service {
	return &Service{repo: r}
}

// Record assigns an id and timestamp and prepends the entry. bugID may
// be nil for actions that do not reference a bug (e.g. registration).
func (s *Service) Record(ctx context.Context, action, description string, bugID *string, bugTitle, userID, username string) error {
	e := entity.Entry{
		ID:          utilities.NewSnowflakeID(),
		Action:      action,
		Description: description,
		BugID:       bugID,
		BugTitle:    bugTitle,
		UserID:      userID,
		Username:    username,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.repo.Prepend(ctx, e); err != nil {
		return apperror.Storage(err, "append activity entry")
	}
	return nil
}

// List returns the full retained log, newest first.
func (s *Service) List(ctx context.Context) ([]entity.Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Storage(err, "read activity log")
	}
	return entries, nil
}

// Recent returns at most n entries from the head of the log.
func (s *Service) Recent(ctx context.Context, n int) ([]entity.Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
