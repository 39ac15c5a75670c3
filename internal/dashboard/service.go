// Package dashboard computes the aggregate views the UI renders. It
// reads fresh snapshots on every call; consumers poll on a configurable
// interval, so staleness is bounded by that interval.
package dashboard

import (
	"context"
	"os"
	"strconv"

	"github.com/bugtrackerpro/service-core/internal/activity"
	activityentity "github.com/bugtrackerpro/service-core/internal/activity/entity"
	"github.com/bugtrackerpro/service-core/internal/apperror"
	bugentity "github.com/bugtrackerpro/service-core/internal/bug/entity"
	bugrepo "github.com/bugtrackerpro/service-core/internal/bug/repo"
	userentity "github.com/bugtrackerpro/service-core/internal/user/entity"
	userrepo "github.com/bugtrackerpro/service-core/internal/user/repo"
)

// recentActivityLimit is the slice of the log the dashboard shows.
const recentActivityLimit = 20

type Config struct {
	// RefreshSeconds is the poll interval the UI should honor; it bounds
	// acceptable staleness.
	RefreshSeconds int `json:"refresh_seconds"`
}

// ConfigFromEnv reads the refresh interval, defaulting to 30 seconds.
func ConfigFromEnv() Config {
	secs := 30
	if v := os.Getenv("DASHBOARD_REFRESH_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			secs = n
		}
	}
	return Config{RefreshSeconds: secs}
}

type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
	Critical   int `json:"critical"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
}

type WorkloadItem struct {
	DeveloperID    string `json:"developer_id"`
	DeveloperName  string `json:"developer_name"`
	AssignedBugs   int    `json:"assigned_bugs"`
	OpenBugs       int    `json:"open_bugs"`
	InProgressBugs int    `json:"in_progress_bugs"`
}

type Service struct {
	bugs     *bugrepo.BugRepo
	users    *userrepo.UserRepo
	activity *activity.Service
	cfg      Config
}

func NewService(bugs *bugrepo.BugRepo, users *userrepo.UserRepo, act *activity.Service, cfg Config) *Service {
	return &Service{bugs: bugs, users: users, activity: act, cfg: cfg}
}

func (s *Service) Config() Config { return s.cfg }

// Stats counts bugs by status and priority.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	bugs, err := s.bugs.List(ctx, bugrepo.Filter{})
	if err != nil {
		return nil, apperror.Storage(err, "list bugs")
	}
	st := &Stats{Total: len(bugs)}
	for _, b := range bugs {
		switch b.Status {
		case bugentity.StatusOpen:
			st.Open++
		case bugentity.StatusInProgress:
			st.InProgress++
		case bugentity.StatusClosed:
			st.Closed++
		}
		switch b.Priority {
		case bugentity.PriorityCritical:
			st.Critical++
		case bugentity.PriorityHigh:
			st.High++
		case bugentity.PriorityMedium:
			st.Medium++
		case bugentity.PriorityLow:
			st.Low++
		}
	}
	return st, nil
}

// Workload summarizes per-developer assignment counts.
func (s *Service) Workload(ctx context.Context) ([]WorkloadItem, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Storage(err, "list users")
	}
	bugs, err := s.bugs.List(ctx, bugrepo.Filter{})
	if err != nil {
		return nil, apperror.Storage(err, "list bugs")
	}

	out := make([]WorkloadItem, 0)
	for i := range users {
		if users[i].Role != userentity.RoleDeveloper {
			continue
		}
		item := WorkloadItem{DeveloperID: users[i].ID, DeveloperName: users[i].Username}
		for _, b := range bugs {
			if b.AssignedTo == nil || *b.AssignedTo != users[i].ID {
				continue
			}
			item.AssignedBugs++
			switch b.Status {
			case bugentity.StatusOpen:
				item.OpenBugs++
			case bugentity.StatusInProgress:
				item.InProgressBugs++
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// RecentActivity returns the newest entries for the dashboard feed.
func (s *Service) RecentActivity(ctx context.Context) ([]activityentity.Entry, error) {
	return s.activity.Recent(ctx, recentActivityLimit)
}
