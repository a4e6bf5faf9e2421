package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// userRepo implements UserRepository.
type userRepo struct {
	pool PgxPool
}

func (r *userRepo) UpsertOAuthUser(ctx context.Context, subject, email string) (*User, error) {
	defer observeDB(ctx, "db.users.upsert")()

	const q = `INSERT INTO users (oauth_subject, primary_email, last_login_at)
VALUES ($1, $2, NOW())
ON CONFLICT (oauth_subject)
DO UPDATE SET primary_email = EXCLUDED.primary_email, last_login_at = NOW()
RETURNING id, oauth_subject, primary_email, created_at, last_login_at`

	var u User
	err := r.pool.QueryRow(ctx, q, subject, email).
		Scan(&u.ID, &u.OAuthSubject, &u.PrimaryEmail, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	defer observeDB(ctx, "db.users.get")()

	const q = `SELECT id, oauth_subject, primary_email, created_at, last_login_at
FROM users WHERE id = $1`

	var u User
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.OAuthSubject, &u.PrimaryEmail, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// taskRepo implements TaskRepository.
type taskRepo struct {
	pool PgxPool
}

const taskColumns = `id, user_id, content, day, time, notes, is_completed, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Content, &t.Day, &t.Time, &t.Notes,
		&t.IsCompleted, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) Create(ctx context.Context, task Task) (*Task, error) {
	defer observeDB(ctx, "db.tasks.create")()

	const q = `INSERT INTO tasks (id, user_id, content, day, time, notes, is_completed)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + taskColumns

	created, err := scanTask(r.pool.QueryRow(ctx, q,
		task.ID, task.UserID, task.Content, task.Day, task.Time, task.Notes, task.IsCompleted))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

func (r *taskRepo) GetByID(ctx context.Context, userID int64, id string) (*Task, error) {
	defer observeDB(ctx, "db.tasks.get")()

	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND id = $2`

	t, err := scanTask(r.pool.QueryRow(ctx, q, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *taskRepo) ListByUser(ctx context.Context, userID int64) ([]Task, error) {
	defer observeDB(ctx, "db.tasks.list")()

	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *taskRepo) Update(ctx context.Context, task Task) error {
	defer observeDB(ctx, "db.tasks.update")()

	const q = `UPDATE tasks
SET content = $3, day = $4, time = $5, notes = $6, updated_at = NOW()
WHERE user_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, q, task.UserID, task.ID, task.Content, task.Day, task.Time, task.Notes)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) SetCompleted(ctx context.Context, userID int64, id string, completed bool) error {
	defer observeDB(ctx, "db.tasks.set_completed")()

	const q = `UPDATE tasks SET is_completed = $3, updated_at = NOW()
WHERE user_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, q, userID, id, completed)
	if err != nil {
		return fmt.Errorf("set task completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, userID int64, id string) error {
	defer observeDB(ctx, "db.tasks.delete")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) DeleteCompleted(ctx context.Context, userID int64) (int64, error) {
	defer observeDB(ctx, "db.tasks.delete_completed")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND is_completed`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceForUser atomically swaps a user's task list for a freshly generated one.
func (r *taskRepo) ReplaceForUser(ctx context.Context, userID int64, tasks []Task) error {
	defer observeDB(ctx, "db.tasks.replace")()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace tasks: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}

	const q = `INSERT INTO tasks (id, user_id, content, day, time, notes, is_completed)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, t := range tasks {
		if _, err := tx.Exec(ctx, q, t.ID, userID, t.Content, t.Day, t.Time, t.Notes, t.IsCompleted); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace tasks: %w", err)
	}
	return nil
}

// sessionRepo implements SessionRepository.
type sessionRepo struct {
	pool PgxPool
}

func (r *sessionRepo) Create(ctx context.Context, session Session) error {
	defer observeDB(ctx, "db.sessions.create")()

	const q = `INSERT INTO sessions (id, user_id, user_agent, ip_address, expires_at)
VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, q, session.ID, session.UserID, session.UserAgent,
		session.IPAddress, session.ExpiresAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*Session, error) {
	defer observeDB(ctx, "db.sessions.get")()

	const q = `SELECT id, user_id, user_agent, ip_address, created_at, expires_at, last_seen_at
FROM sessions WHERE id = $1`

	var s Session
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.UserID, &s.UserAgent, &s.IPAddress, &s.CreatedAt, &s.ExpiresAt, &s.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID int64) ([]Session, error) {
	defer observeDB(ctx, "db.sessions.list")()

	const q = `SELECT id, user_id, user_agent, ip_address, created_at, expires_at, last_seen_at
FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserAgent, &s.IPAddress,
			&s.CreatedAt, &s.ExpiresAt, &s.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepo) TouchLastSeen(ctx context.Context, id string) error {
	defer observeDB(ctx, "db.sessions.touch")()

	if _, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	defer observeDB(ctx, "db.sessions.delete")()

	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	defer observeDB(ctx, "db.sessions.delete_expired")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// feedTokenRepo implements FeedTokenRepository.
type feedTokenRepo struct {
	pool PgxPool
}

func (r *feedTokenRepo) Create(ctx context.Context, token FeedToken) (*FeedToken, error) {
	defer observeDB(ctx, "db.feed_tokens.create")()

	const q = `INSERT INTO feed_tokens (user_id, label, secret_hash)
VALUES ($1, $2, $3)
RETURNING id, user_id, label, secret_hash, created_at, revoked_at, last_used_at`

	var t FeedToken
	err := r.pool.QueryRow(ctx, q, token.UserID, token.Label, token.SecretHash).
		Scan(&t.ID, &t.UserID, &t.Label, &t.SecretHash, &t.CreatedAt, &t.RevokedAt, &t.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("create feed token: %w", err)
	}
	return &t, nil
}

func (r *feedTokenRepo) GetByID(ctx context.Context, id int64) (*FeedToken, error) {
	defer observeDB(ctx, "db.feed_tokens.get")()

	const q = `SELECT id, user_id, label, secret_hash, created_at, revoked_at, last_used_at
FROM feed_tokens WHERE id = $1`

	var t FeedToken
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&t.ID, &t.UserID, &t.Label, &t.SecretHash, &t.CreatedAt, &t.RevokedAt, &t.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed token: %w", err)
	}
	return &t, nil
}

func (r *feedTokenRepo) ListByUser(ctx context.Context, userID int64) ([]FeedToken, error) {
	defer observeDB(ctx, "db.feed_tokens.list")()

	const q = `SELECT id, user_id, label, secret_hash, created_at, revoked_at, last_used_at
FROM feed_tokens WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list feed tokens: %w", err)
	}
	defer rows.Close()

	var tokens []FeedToken
	for rows.Next() {
		var t FeedToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Label, &t.SecretHash,
			&t.CreatedAt, &t.RevokedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan feed token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *feedTokenRepo) Revoke(ctx context.Context, userID, id int64) error {
	defer observeDB(ctx, "db.feed_tokens.revoke")()

	const q = `UPDATE feed_tokens SET revoked_at = NOW()
WHERE user_id = $1 AND id = $2 AND revoked_at IS NULL`

	tag, err := r.pool.Exec(ctx, q, userID, id)
	if err != nil {
		return fmt.Errorf("revoke feed token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *feedTokenRepo) TouchLastUsed(ctx context.Context, id int64) error {
	defer observeDB(ctx, "db.feed_tokens.touch")()

	if _, err := r.pool.Exec(ctx, `UPDATE feed_tokens SET last_used_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch feed token: %w", err)
	}
	return nil
}

// usageRepo implements UsageRepository.
type usageRepo struct {
	pool PgxPool
}

func (r *usageRepo) Record(ctx context.Context, userID int64) error {
	defer observeDB(ctx, "db.usage.record")()

	if _, err := r.pool.Exec(ctx, `INSERT INTO ai_usage (user_id) VALUES ($1)`, userID); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (r *usageRepo) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	defer observeDB(ctx, "db.usage.count")()

	const q = `SELECT COUNT(*) FROM ai_usage WHERE user_id = $1 AND requested_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, q, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return count, nil
}

func (r *usageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observeDB(ctx, "db.usage.prune")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM ai_usage WHERE requested_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune usage: %w", err)
	}
	return tag.RowsAffected(), nil
}
