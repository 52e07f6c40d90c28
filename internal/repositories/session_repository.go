package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresSessionStore keeps each user's current refresh token on the users table.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// LoadSession returns the token identity and stored refresh token of a user.
func (s *PostgresSessionStore) LoadSession(ctx context.Context, userID string) (auth.Identity, string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Identity{}, "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		identity auth.Identity
		token    string
	)
	err = conn.QueryRow(ctx, `
        SELECT id, username, email, full_name, COALESCE(refresh_token, '')
        FROM users
        WHERE id = $1
    `, userID).Scan(&identity.UserID, &identity.Username, &identity.Email, &identity.FullName, &token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Identity{}, "", auth.ErrSessionNotFound
		}
		return auth.Identity{}, "", fmt.Errorf("select session: %w", err)
	}

	return identity, token, nil
}

// SaveRefreshToken replaces the stored refresh token. An empty token clears it.
func (s *PostgresSessionStore) SaveRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($2, '')
        WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}

	return nil
}

// RotateRefreshToken replaces the stored refresh token only while it still
// equals current. Of concurrent rotations of one token, at most one matches.
func (s *PostgresSessionStore) RotateRefreshToken(ctx context.Context, userID, current, next string) (bool, error) {
	if current == "" {
		return false, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($3, '')
        WHERE id = $1 AND refresh_token = $2
    `, userID, current, next)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
