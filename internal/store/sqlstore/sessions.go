package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// SessionRepository provides SQL-backed admin session storage.
type SessionRepository struct {
	store *Store
}

// NewSessionRepository creates a session repository on an open store.
func NewSessionRepository(s *Store) *SessionRepository {
	return &SessionRepository{store: s}
}

// Save stores a session.
func (r *SessionRepository) Save(ctx context.Context, id, username string, createdAt, expiresAt time.Time) error {
	_, err := r.store.db.ExecContext(ctx, r.store.dialect.upsertSession(),
		id, username, createdAt.Unix(), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, returns nil if not found or expired.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*middleware.StoredSession, error) {
	query := r.store.dialect.rebind(`
		SELECT id, username, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`)

	var (
		s                  middleware.StoredSession
		created, expiresAt int64
	)
	err := r.store.db.QueryRowContext(ctx, query, sessionID, time.Now().Unix()).Scan(
		&s.ID,
		&s.Username,
		&created,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.CreatedAt = time.Unix(created, 0)
	s.ExpiresAt = time.Unix(expiresAt, 0)
	return &s, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.store.db.ExecContext(ctx, r.store.dialect.rebind("DELETE FROM sessions WHERE id = ?"), sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count deleted.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.store.db.ExecContext(ctx,
		r.store.dialect.rebind("DELETE FROM sessions WHERE expires_at <= ?"), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}
