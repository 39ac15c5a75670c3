package entity

import "time"

// Entry is one immutable audit record of a mutation. Bug title and
// username are cached at append time so entries stay readable after the
// referenced records are deleted.
type Entry struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	BugID       *string   `json:"bug_id,omitempty"`
	BugTitle    string    `json:"bug_title,omitempty"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Timestamp   time.Time `json:"timestamp"`
}
