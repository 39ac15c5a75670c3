package bug

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/activity"
	"github.com/bugtrackerpro/service-core/internal/apperror"
	"github.com/bugtrackerpro/service-core/internal/bug/entity"
	bugrepo "github.com/bugtrackerpro/service-core/internal/bug/repo"
	"github.com/bugtrackerpro/service-core/internal/notification"
	userentity "github.com/bugtrackerpro/service-core/internal/user/entity"
	userrepo "github.com/bugtrackerpro/service-core/internal/user/repo"
	"github.com/bugtrackerpro/service-core/pkg/utilities"
)

// Service is the authorization-gated operation layer over the bug
// repository. Every operation takes the acting user, enforces the role
// capability matrix before delegating, and appends exactly one activity
// entry per successful mutation. Notifications are advisory and
// dispatched best-effort after the mutation commits.
type Service struct {
	repo     *bugrepo.BugRepo
	users    *userrepo.UserRepo
	activity *activity.Service
	notifier notification.Notifier
	logger   *zap.SugaredLogger
}

func NewService(r *bugrepo.BugRepo, users *userrepo.UserRepo, act *activity.Service, notifier notification.Notifier, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, users: users, activity: act, notifier: notifier, logger: logger}
}

type CreateInput struct {
	Title       string
	Description string
	Priority    entity.Priority
}

// UpdateInput carries a partial edit; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *entity.Priority
	Status      *entity.Status
}

// Create files a new bug. Testers and admins only. Title and
// description lengths are validated after trimming.
func (s *Service) Create(ctx context.Context, actor userentity.PublicUser, in CreateInput) (*entity.Bug, error) {
	if actor.Role != userentity.RoleAdmin && actor.Role != userentity.RoleTester {
		return nil, apperror.Permission("Only testers and admins can create bugs")
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	// rune counts, not byte lengths: multibyte titles must not slip past the minimum
	if utf8.RuneCountInString(title) < 3 {
		return nil, apperror.Validation("Title must be at least 3 characters")
	}
	if utf8.RuneCountInString(description) < 10 {
		return nil, apperror.Validation("Description must be at least 10 characters")
	}
	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperror.Validation("Invalid priority")
	}

	now := time.Now().UTC()
	b := entity.Bug{
		ID:          utilities.NewKSUID(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      entity.StatusOpen,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &b); err != nil {
		return nil, apperror.Storage(err, "create bug")
	}

	if err := s.activity.Record(ctx, "created", "filed "+title, &b.ID, b.Title, actor.ID, actor.Username); err != nil {
		return nil, err
	}

	if priority == entity.PriorityHigh || priority == entity.PriorityCritical {
		s.notifyAdmins(ctx, actor, &b)
	}
	return &b, nil
}

// Get returns a single bug.
func (s *Service) Get(ctx context.Context, id string) (*entity.Bug, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, bugrepo.ErrNotFound) {
			return nil, apperror.NotFound("Bug not found")
		}
		return nil, apperror.Storage(err, "look up bug")
	}
	return b, nil
}

// List returns bugs matching the filter, newest-updated-first.
func (s *Service) List(ctx context.Context, f bugrepo.Filter) ([]entity.Bug, error) {
	bugs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperror.Storage(err, "list bugs")
	}
	return bugs, nil
}

// canEdit implements the "edit bug fields" row of the capability matrix.
func canEdit(actor userentity.PublicUser, b *entity.Bug) bool {
	switch actor.Role {
	case userentity.RoleAdmin:
		return true
	case userentity.RoleDeveloper:
		return b.CreatedBy == actor.ID || (b.AssignedTo != nil && *b.AssignedTo == actor.ID)
	case userentity.RoleTester:
		return b.CreatedBy == actor.ID
	}
	return false
}

// canClose implements the closed-transition rule: admin always,
// assigned developer only, tester never.
func canClose(actor userentity.PublicUser, b *entity.Bug) bool {
	switch actor.Role {
	case userentity.RoleAdmin:
		return true
	case userentity.RoleDeveloper:
		return b.AssignedTo != nil && *b.AssignedTo == actor.ID
	}
	return false
}

// Update merges a partial edit into a bug. Ownership rules per role
// apply; a status field riding along on the edit is subject to the
// closed-transition gate. Title/description lengths are intentionally
// not re-validated on update.
func (s *Service) Update(ctx context.Context, actor userentity.PublicUser, id string, in UpdateInput) (*entity.Bug, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, existing) {
		return nil, apperror.Permission("You cannot edit this bug")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, apperror.Validation("Invalid priority")
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperror.Validation("Invalid status")
		}
		if *in.Status == entity.StatusClosed && !canClose(actor, existing) {
			return nil, apperror.Permission("Only the assigned developer or an admin can close this bug")
		}
	}

	updated, err := s.repo.Update(ctx, id, func(b *entity.Bug) {
		if in.Title != nil {
			b.Title = *in.Title
		}
		if in.Description != nil {
			b.Description = *in.Description
		}
		if in.Priority != nil {
			b.Priority = *in.Priority
		}
		if in.Status != nil {
			b.Status = *in.Status
		}
	})
	if err != nil {
		if errors.Is(err, bugrepo.ErrNotFound) {
			return nil, apperror.NotFound("Bug not found")
		}
		return nil, apperror.Storage(err, "update bug")
	}

	if err := s.activity.Record(ctx, "updated", "edited "+updated.Title, &updated.ID, updated.Title, actor.ID, actor.Username); err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus transitions a bug through the dedicated status endpoint.
// Admins may set any status; developers only on bugs assigned to them;
// testers are rejected for every target status (they report progress
// through the edit path on bugs they created).
func (s *Service) SetStatus(ctx context.Context, actor userentity.PublicUser, id string, status entity.Status) (*entity.Bug, error) {
	if !status.Valid() {
		return nil, apperror.Validation("Invalid status")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case userentity.RoleAdmin:
		// always permitted
	case userentity.RoleDeveloper:
		if existing.AssignedTo == nil || *existing.AssignedTo != actor.ID {
			if status == entity.StatusClosed {
				return nil, apperror.Permission("Only the assigned developer can close this bug")
			}
			return nil, apperror.Permission("Only the assigned developer can change this bug's status")
		}
	case userentity.RoleTester:
		if status == entity.StatusClosed {
			return nil, apperror.Permission("Testers cannot close bugs")
		}
		return nil, apperror.Permission("Testers cannot change bug status")
	default:
		return nil, apperror.Permission("You cannot change this bug's status")
	}

	updated, err := s.repo.Update(ctx, id, func(b *entity.Bug) {
		b.Status = status
	})
	if err != nil {
		if errors.Is(err, bugrepo.ErrNotFound) {
			return nil, apperror.NotFound("Bug not found")
		}
		return nil, apperror.Storage(err, "update bug status")
	}

	if err := s.activity.Record(ctx, "status_"+string(status), "moved "+updated.Title+" to "+string(status), &updated.ID, updated.Title, actor.ID, actor.Username); err != nil {
		return nil, err
	}

	if updated.CreatedBy != actor.ID {
		s.notifyUser(ctx, updated.CreatedBy,
			"Bug status changed: "+updated.Title,
			actor.Username+" moved your bug to "+string(status))
	}
	return updated, nil
}

// Assign sets or clears the assignee. Admin only. The target must exist
// and hold the developer or admin role; unassigning is always permitted.
func (s *Service) Assign(ctx context.Context, actor userentity.PublicUser, id string, assigneeID *string) (*entity.Bug, error) {
	if actor.Role != userentity.RoleAdmin {
		return nil, apperror.Permission("Only admins can assign bugs")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	var assignee *userentity.User
	if assigneeID != nil {
		u, err := s.users.GetByID(ctx, *assigneeID)
		if err != nil {
			if errors.Is(err, userrepo.ErrNotFound) {
				return nil, apperror.Validation("Invalid developer")
			}
			return nil, apperror.Storage(err, "look up assignee")
		}
		if u.Role != userentity.RoleDeveloper && u.Role != userentity.RoleAdmin {
			return nil, apperror.Validation("Invalid developer")
		}
		assignee = u
	}

	updated, err := s.repo.Update(ctx, id, func(b *entity.Bug) {
		b.AssignedTo = assigneeID
	})
	if err != nil {
		if errors.Is(err, bugrepo.ErrNotFound) {
			return nil, apperror.NotFound("Bug not found")
		}
		return nil, apperror.Storage(err, "assign bug")
	}

	if assignee != nil {
		if err := s.activity.Record(ctx, "assigned", "assigned "+updated.Title+" to "+assignee.Username, &updated.ID, updated.Title, actor.ID, actor.Username); err != nil {
			return nil, err
		}
		s.notifyUser(ctx, assignee.ID,
			"Bug assigned to you: "+updated.Title,
			actor.Username+" assigned you a "+string(updated.Priority)+" priority bug")
	} else {
		if err := s.activity.Record(ctx, "unassigned", "unassigned "+updated.Title, &updated.ID, updated.Title, actor.ID, actor.Username); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// Delete removes a bug. Admin only.
func (s *Service) Delete(ctx context.Context, actor userentity.PublicUser, id string) error {
	if actor.Role != userentity.RoleAdmin {
		return apperror.Permission("Only admins can delete bugs")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, bugrepo.ErrNotFound) {
			return apperror.NotFound("Bug not found")
		}
		return apperror.Storage(err, "delete bug")
	}
	return s.activity.Record(ctx, "deleted", "deleted "+existing.Title, &existing.ID, existing.Title, actor.ID, actor.Username)
}

// notifyAdmins queues a notice to every admin except the creator.
func (s *Service) notifyAdmins(ctx context.Context, actor userentity.PublicUser, b *entity.Bug) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Warnw("admin notification skipped", "bug_id", b.ID, "err", err)
		return
	}
	for i := range users {
		if users[i].Role != userentity.RoleAdmin || users[i].ID == actor.ID {
			continue
		}
		notification.Dispatch(ctx, s.notifier, s.logger, notification.Notification{
			RecipientID:   users[i].ID,
			RecipientName: users[i].Username,
			Subject:       "New " + string(b.Priority) + " priority bug: " + b.Title,
			Body:          actor.Username + " filed: " + b.Description,
		})
	}
}

func (s *Service) notifyUser(ctx context.Context, userID, subject, body string) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warnw("notification skipped", "recipient_id", userID, "err", err)
		return
	}
	notification.Dispatch(ctx, s.notifier, s.logger, notification.Notification{
		RecipientID:   u.ID,
		RecipientName: u.Username,
		Subject:       subject,
		Body:          body,
	})
}
