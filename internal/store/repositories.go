package store

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	UpsertOAuthUser(ctx context.Context, subject, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

// TaskRepository handles task storage.
type TaskRepository interface {
	Create(ctx context.Context, task Task) (*Task, error)
	GetByID(ctx context.Context, userID int64, id string) (*Task, error)
	ListByUser(ctx context.Context, userID int64) ([]Task, error)
	Update(ctx context.Context, task Task) error
	SetCompleted(ctx context.Context, userID int64, id string, completed bool) error
	Delete(ctx context.Context, userID int64, id string) error
	DeleteCompleted(ctx context.Context, userID int64) (int64, error)
	ReplaceForUser(ctx context.Context, userID int64, tasks []Task) error
}

// SessionRepository handles server-side session records.
type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	ListByUser(ctx context.Context, userID int64) ([]Session, error)
	TouchLastSeen(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// FeedTokenRepository handles calendar feed credentials.
type FeedTokenRepository interface {
	Create(ctx context.Context, token FeedToken) (*FeedToken, error)
	GetByID(ctx context.Context, id int64) (*FeedToken, error)
	ListByUser(ctx context.Context, userID int64) ([]FeedToken, error)
	Revoke(ctx context.Context, userID, id int64) error
	TouchLastUsed(ctx context.Context, id int64) error
}

// UsageRepository tracks planner invocations for the sliding-window quota.
type UsageRepository interface {
	Record(ctx context.Context, userID int64) error
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
