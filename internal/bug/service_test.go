package bug

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/activity"
	activityrepo "github.com/bugtrackerpro/service-core/internal/activity/repo"
	"github.com/bugtrackerpro/service-core/internal/apperror"
	"github.com/bugtrackerpro/service-core/internal/auth"
	"github.com/bugtrackerpro/service-core/internal/bug/entity"
	bugrepo "github.com/bugtrackerpro/service-core/internal/bug/repo"
	"github.com/bugtrackerpro/service-core/internal/notification"
	"github.com/bugtrackerpro/service-core/internal/store"
	"github.com/bugtrackerpro/service-core/internal/user"
	userentity "github.com/bugtrackerpro/service-core/internal/user/entity"
	userrepo "github.com/bugtrackerpro/service-core/internal/user/repo"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (c *captureNotifier) Notify(ctx context.Context, n notification.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureNotifier) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, n := range c.sent {
		out = append(out, n.RecipientName)
	}
	return out
}

type testEnv struct {
	users *user.Service
	bugs  *Service
	act   *activity.Service
	notes *captureNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	logger := zap.NewNop().Sugar()
	act := activity.NewService(activityrepo.NewActivityRepo(s))
	tokens := auth.NewTokenManager(auth.Config{Secret: []byte("test-secret"), TTL: time.Hour})
	sessions := auth.NewSessionStore(s)
	usersRepo := userrepo.NewUserRepo(s)
	userSvc := user.NewService(usersRepo, user.BcryptHasher{Cost: 4}, tokens, sessions, act, logger)
	notes := &captureNotifier{}
	bugSvc := NewService(bugrepo.NewBugRepo(s), usersRepo, act, notes, logger)
	return &testEnv{users: userSvc, bugs: bugSvc, act: act, notes: notes}
}

func (e *testEnv) register(t *testing.T, username string, role userentity.Role) userentity.PublicUser {
	t.Helper()
	result, err := e.users.Register(context.Background(), user.RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "secret1",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return result.User
}

func (e *testEnv) createBug(t *testing.T, actor userentity.PublicUser, title string, priority entity.Priority) *entity.Bug {
	t.Helper()
	b, err := e.bugs.Create(context.Background(), actor, CreateInput{
		Title:       title,
		Description: "a description long enough to pass validation",
		Priority:    priority,
	})
	if err != nil {
		t.Fatalf("create bug: %v", err)
	}
	return b
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	tester := env.register(t, "tess", userentity.RoleTester)

	_, err := env.bugs.Create(ctx, tester, CreateInput{Title: "  ab  ", Description: "long enough description"})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for short title, got %v", err)
	}

	_, err = env.bugs.Create(ctx, tester, CreateInput{Title: "Login fails", Description: "  too short "})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for short description, got %v", err)
	}

	// a single multibyte rune is still one character even if it is three bytes
	_, err = env.bugs.Create(ctx, tester, CreateInput{Title: "日", Description: "long enough description"})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for one-rune title, got %v", err)
	}

	if _, err = env.bugs.Create(ctx, tester, CreateInput{Title: "バグ報告", Description: "multibyte titles past the minimum are fine"}); err != nil {
		t.Fatalf("create with multibyte title: %v", err)
	}
}

func TestCreate_RoleGateAndDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	dev := env.register(t, "dave", userentity.RoleDeveloper)
	tester := env.register(t, "tess", userentity.RoleTester)

	_, err := env.bugs.Create(ctx, dev, CreateInput{Title: "A real bug", Description: "developers cannot file bugs here"})
	if !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("expected permission error for developer, got %v", err)
	}

	b, err := env.bugs.Create(ctx, tester, CreateInput{Title: "A real bug", Description: "something broke in an interesting way"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != entity.StatusOpen {
		t.Fatalf("new bug status = %s, want open", b.Status)
	}
	if b.Priority != entity.PriorityMedium {
		t.Fatalf("default priority = %s, want medium", b.Priority)
	}
	if !b.CreatedAt.Equal(b.UpdatedAt) {
		t.Fatalf("created and updated timestamps must match at creation")
	}
	if b.CreatedBy != tester.ID {
		t.Fatalf("creator = %s, want %s", b.CreatedBy, tester.ID)
	}
}

func TestCreate_HighPriorityNotifiesAdmins(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	admin1 := env.register(t, "admin1", userentity.RoleAdmin)
	env.register(t, "admin2", userentity.RoleAdmin)
	tester := env.register(t, "tess", userentity.RoleTester)

	env.createBug(t, tester, "Severe breakage", entity.PriorityCritical)
	got := env.notes.recipients()
	if len(got) != 2 {
		t.Fatalf("expected both admins notified, got %v", got)
	}

	// creator being an admin is excluded from their own notice
	env.notes.sent = nil
	env.createBug(t, admin1, "Admin filed issue", entity.PriorityHigh)
	got = env.notes.recipients()
	if len(got) != 1 || got[0] != "admin2" {
		t.Fatalf("expected only admin2 notified, got %v", got)
	}

	// low priority is silent
	env.notes.sent = nil
	env.createBug(t, tester, "Minor nit", entity.PriorityLow)
	if len(env.notes.recipients()) != 0 {
		t.Fatalf("expected no notifications for low priority")
	}
}

func TestUpdate_OwnershipRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.register(t, "admin", userentity.RoleAdmin)
	dev := env.register(t, "dave", userentity.RoleDeveloper)
	tester := env.register(t, "tess", userentity.RoleTester)
	other := env.register(t, "tora", userentity.RoleTester)

	b := env.createBug(t, tester, "Login fails", entity.PriorityMedium)

	newTitle := "Login fails on Safari"
	// a tester who is not the creator cannot edit
	_, err := env.bugs.Update(ctx, other, b.ID, UpdateInput{Title: &newTitle})
	if !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("expected permission error for non-creator tester, got %v", err)
	}

	// an unassigned developer cannot edit either
	_, err = env.bugs.Update(ctx, dev, b.ID, UpdateInput{Title: &newTitle})
	if !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("expected permission error for unrelated developer, got %v", err)
	}

	// once assigned, the developer can edit
	if _, err := env.bugs.Assign(ctx, admin, b.ID, &dev.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	updated, err := env.bugs.Update(ctx, dev, b.ID, UpdateInput{Title: &newTitle})
	if err != nil {
		t.Fatalf("assigned developer edit: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("title = %q, want %q", updated.Title, newTitle)
	}
	if !updated.UpdatedAt.After(b.UpdatedAt) {
		t.Fatalf("update must bump the updated timestamp")
	}

	// the creator tester can edit their own bug
	if _, err := env.bugs.Update(ctx, tester, b.ID, UpdateInput{Description: &newTitle}); err != nil {
		t.Fatalf("creator edit: %v", err)
	}
}

// Pins the documented asymmetry: update does not re-validate
// title/description lengths even though create does.
func TestUpdate_SkipsLengthValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	tester := env.register(t, "tess", userentity.RoleTester)
	b := env.createBug(t, tester, "Login fails", entity.PriorityMedium)

	tiny := "ab"
	updated, err := env.bugs.Update(ctx, tester, b.ID, UpdateInput{Title: &tiny, Description: &tiny})
	if err != nil {
		t.Fatalf("expected short fields accepted on update, got %v", err)
	}
	if updated.Title != "ab" {
		t.Fatalf("title = %q, want %q", updated.Title, "ab")
	}
}

func TestUpdate_ClosedGateAppliesOnEditPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	tester := env.register(t, "tess", userentity.RoleTester)
	b := env.createBug(t, tester, "Login fails", entity.PriorityMedium)

	closed := entity.StatusClosed
	_, err := env.bugs.Update(ctx, tester, b.ID, UpdateInput{Status: &closed})
	if !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("expected permission error for tester closing via edit, got %v", err)
	}

	inProgress := entity.StatusInProgress
	if _, err := env.bugs.Update(ctx, tester, b.ID, UpdateInput{Status: &inProgress}); err != nil {
		t.Fatalf("tester reporting progress on own bug via edit: %v", err)
	}
}

func TestSetStatus_CapabilityMatrix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.register(t, "admin", userentity.RoleAdmin)
	assigned := env.register(t, "bob", userentity.RoleDeveloper)
	bystander := env.register(t, "eve", userentity.RoleDeveloper)
	tester := env.register(t, "tess", userentity.RoleTester)

	b := env.createBug(t, tester, "Login fails", entity.PriorityHigh)
	if _, err := env.bugs.Assign(ctx, admin, b.ID, &assigned.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// testers are rejected for every target status, own bug or not
	for _, st := range []entity.Status{entity.StatusOpen, entity.StatusInProgress, entity.StatusClosed} {
		if _, err := env.bugs.SetStatus(ctx, tester, b.ID, st); !apperror.IsKind(err, apperror.KindPermission) {
			t.Fatalf("tester -> %s: expected permission error, got %v", st, err)
		}
	}

	// a developer not assigned to the bug cannot touch its status
	if _, err := env.bugs.SetStatus(ctx, bystander, b.ID, entity.StatusClosed); !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("unassigned developer close: expected permission error, got %v", err)
	}

	// the assigned developer can progress and close
	if _, err := env.bugs.SetStatus(ctx, assigned, b.ID, entity.StatusInProgress); err != nil {
		t.Fatalf("assigned developer in_progress: %v", err)
	}
	updated, err := env.bugs.SetStatus(ctx, assigned, b.ID, entity.StatusClosed)
	if err != nil {
		t.Fatalf("assigned developer close: %v", err)
	}
	if updated.Status != entity.StatusClosed {
		t.Fatalf("status = %s, want closed", updated.Status)
	}

	// an admin can always reopen
	if _, err := env.bugs.SetStatus(ctx, admin, b.ID, entity.StatusOpen); err != nil {
		t.Fatalf("admin reopen: %v", err)
	}

	if _, err := env.bugs.SetStatus(ctx, admin, b.ID, "resolved"); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestSetStatus_NotifiesCreator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.register(t, "admin", userentity.RoleAdmin)
	tester := env.register(t, "tess", userentity.RoleTester)
	b := env.createBug(t, tester, "Login fails", entity.PriorityLow)

	env.notes.sent = nil
	if _, err := env.bugs.SetStatus(ctx, admin, b.ID, entity.StatusInProgress); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got := env.notes.recipients()
	if len(got) != 1 || got[0] != "tess" {
		t.Fatalf("expected creator notified, got %v", got)
	}
}

func TestAssign_Rules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.register(t, "admin", userentity.RoleAdmin)
	dev := env.register(t, "bob", userentity.RoleDeveloper)
	tester := env.register(t, "tess", userentity.RoleTester)
	b := env.createBug(t, tester, "Login fails", entity.PriorityLow)

	// only admins assign
	if _, err := env.bugs.Assign(ctx, dev, b.ID, &dev.ID); !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("expected permission error for non-admin, got %v", err)
	}

	// target must exist and hold developer or admin role
	unknown := "no-such-user"
	if _, err := env.bugs.Assign(ctx, admin, b.ID, &unknown); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for unknown target, got %v", err)
	}
	if _, err := env.bugs.Assign(ctx, admin, b.ID, &tester.ID); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for tester target, got %v", err)
	}

	env.notes.sent = nil
	updated, err := env.bugs.Assign(ctx, admin, b.ID, &dev.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != dev.ID {
		t.Fatalf("assignee not recorded")
	}
	if got := env.notes.recipients(); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("expected assignee notified, got %v", got)
	}

	// unassign is always permitted for admins
	updated, err = env.bugs.Assign(ctx, admin, b.ID, nil)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if updated.AssignedTo != nil {
		t.Fatalf("expected assignee cleared")
	}
}

func TestDelete_Rules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.register(t, "admin", userentity.RoleAdmin)
	tester := env.register(t, "tess", userentity.RoleTester)
	b := env.createBug(t, tester, "Login fails", entity.PriorityLow)

	if err := env.bugs.Delete(ctx, tester, b.ID); !apperror.IsKind(err, apperror.KindPermission) {
		t.Fatalf("expected permission error for non-admin, got %v", err)
	}
	if err := env.bugs.Delete(ctx, admin, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.bugs.Delete(ctx, admin, b.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}

	// the activity entry outlives the bug via the cached title
	entries, err := env.act.List(ctx)
	if err != nil {
		t.Fatalf("activity list: %v", err)
	}
	if entries[0].Action != "deleted" || entries[0].BugTitle != "Login fails" {
		t.Fatalf("expected deleted entry with cached title, got %+v", entries[0])
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.register(t, "admin", userentity.RoleAdmin)
	dev := env.register(t, "bob", userentity.RoleDeveloper)
	tester := env.register(t, "tess", userentity.RoleTester)

	first := env.createBug(t, tester, "Crash on login", entity.PriorityHigh)
	env.createBug(t, tester, "Slow dashboard", entity.PriorityLow)
	third := env.createBug(t, tester, "Broken search box", entity.PriorityHigh)

	if _, err := env.bugs.Assign(ctx, admin, third.ID, &dev.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	byPriority, err := env.bugs.List(ctx, bugrepo.Filter{Priority: entity.PriorityHigh})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byPriority) != 2 {
		t.Fatalf("priority filter: got %d bugs, want 2", len(byPriority))
	}

	byAssignee, err := env.bugs.List(ctx, bugrepo.Filter{AssignedTo: dev.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byAssignee) != 1 || byAssignee[0].ID != third.ID {
		t.Fatalf("assignee filter returned wrong bugs")
	}

	unassigned, err := env.bugs.List(ctx, bugrepo.Filter{Unassigned: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unassigned) != 2 {
		t.Fatalf("unassigned filter: got %d bugs, want 2", len(unassigned))
	}

	// substring search is case-insensitive over title+description
	found, err := env.bugs.List(ctx, bugrepo.Filter{Search: "SEARCH BOX"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) != 1 || found[0].ID != third.ID {
		t.Fatalf("search filter returned wrong bugs")
	}

	// touching an old bug moves it to the front
	title := "Crash on login (still!)"
	if _, err := env.bugs.Update(ctx, tester, first.ID, UpdateInput{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	all, err := env.bugs.List(ctx, bugrepo.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != first.ID {
		got := make([]string, 0, len(all))
		for _, b := range all {
			got = append(got, b.Title)
		}
		t.Fatalf("expected newest-updated-first, got %s", strings.Join(got, ", "))
	}
}
