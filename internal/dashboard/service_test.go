package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/activity"
	activityrepo "github.com/bugtrackerpro/service-core/internal/activity/repo"
	"github.com/bugtrackerpro/service-core/internal/auth"
	"github.com/bugtrackerpro/service-core/internal/bug"
	bugentity "github.com/bugtrackerpro/service-core/internal/bug/entity"
	bugrepo "github.com/bugtrackerpro/service-core/internal/bug/repo"
	"github.com/bugtrackerpro/service-core/internal/notification"
	"github.com/bugtrackerpro/service-core/internal/store"
	"github.com/bugtrackerpro/service-core/internal/user"
	userentity "github.com/bugtrackerpro/service-core/internal/user/entity"
	userrepo "github.com/bugtrackerpro/service-core/internal/user/repo"
)

type testEnv struct {
	users *user.Service
	bugs  *bug.Service
	dash  *Service
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
	bugSvc := bug.NewService(bugrepo.NewBugRepo(s), usersRepo, act, notification.NewLogNotifier(logger), logger)
	dashSvc := NewService(bugrepo.NewBugRepo(s), usersRepo, act, Config{RefreshSeconds: 30})
	return &testEnv{users: userSvc, bugs: bugSvc, dash: dashSvc}
}

func (e *testEnv) register(t *testing.T, username, email, password string, role userentity.Role) userentity.PublicUser {
	t.Helper()
	result, err := e.users.Register(context.Background(), user.RegisterInput{
		Username: username, Email: email, Password: password, Role: role,
	})
	require.NoError(t, err)
	return result.User
}

// Walks the full triage flow: a tester reports, an admin assigns, the
// developer progresses and closes, and the dashboard reflects it all.
func TestDashboard_TriageFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	admin := env.register(t, "root", "root@x.com", "admin123", userentity.RoleAdmin)
	alice := env.register(t, "alice", "alice@x.com", "secret1", userentity.RoleTester)
	bob := env.register(t, "bob", "bob@x.com", "secret1", userentity.RoleDeveloper)

	b, err := env.bugs.Create(ctx, alice, bug.CreateInput{
		Title:       "Login fails",
		Description: "Clicking login does nothing on Safari",
		Priority:    bugentity.PriorityHigh,
	})
	require.NoError(t, err)

	_, err = env.bugs.Assign(ctx, admin, b.ID, &bob.ID)
	require.NoError(t, err)

	_, err = env.bugs.SetStatus(ctx, bob, b.ID, bugentity.StatusInProgress)
	require.NoError(t, err)
	_, err = env.bugs.SetStatus(ctx, bob, b.ID, bugentity.StatusClosed)
	require.NoError(t, err)

	stats, err := env.dash.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.Closed)
	require.Equal(t, 0, stats.Open)
	require.Equal(t, 0, stats.InProgress)
	require.Equal(t, 1, stats.High)

	workload, err := env.dash.Workload(ctx)
	require.NoError(t, err)
	require.Len(t, workload, 1)
	require.Equal(t, "bob", workload[0].DeveloperName)
	require.Equal(t, 1, workload[0].AssignedBugs)
	require.Equal(t, 0, workload[0].OpenBugs)
	require.Equal(t, 0, workload[0].InProgressBugs)

	entries, err := env.dash.RecentActivity(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	require.Equal(t, "status_closed", entries[0].Action)
}

func TestDashboard_StatsOnEmptyStore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	stats, err := env.dash.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.Total)

	workload, err := env.dash.Workload(context.Background())
	require.NoError(t, err)
	require.Empty(t, workload)
}

func TestDashboard_ConfigDefaults(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.Equal(t, 30, env.dash.Config().RefreshSeconds)
}
