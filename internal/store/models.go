package store

import "time"

// User represents a person authenticated via OIDC.
type User struct {
	ID           int64
	OAuthSubject string
	PrimaryEmail string
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// Task is a single scheduled item belonging to a user. Day and Time are
// free-form labels as produced by the planner (or edited by the user) and are
// only interpreted at export time.
type Task struct {
	ID          string
	UserID      int64
	Content     string
	Day         string
	Time        string
	Notes       string
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session is a server-side web session record.
type Session struct {
	ID         string
	UserID     int64
	UserAgent  *string
	IPAddress  *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt *time.Time
}

// FeedToken is a per-client credential for the read-only calendar feed.
type FeedToken struct {
	ID         int64
	UserID     int64
	Label      string
	SecretHash string
	CreatedAt  time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
}
