package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. A taken username or email yields ErrConflict.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return writeError("insert user", err)
	}

	return nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "select user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "select user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Exists reports whether the username or the email is already taken.
func (r *PostgresUserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
    `, username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, id, hash, at)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccount changes the full name and email of a user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string, at time.Time) (models.User, error) {
	return r.updateReturning(ctx, "update account", `
        UPDATE users SET full_name = $2, email = $3, updated_at = $4 WHERE id = $1
        RETURNING `+userColumns, id, fullName, email, at)
}

// UpdateAvatar points the user at a new avatar location.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, location string, at time.Time) (models.User, error) {
	return r.updateReturning(ctx, "update avatar", `
        UPDATE users SET avatar = $2, updated_at = $3 WHERE id = $1
        RETURNING `+userColumns, id, location, at)
}

// UpdateCoverImage points the user at a new cover image location.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, location string, at time.Time) (models.User, error) {
	return r.updateReturning(ctx, "update cover image", `
        UPDATE users SET cover_image = $2, updated_at = $3 WHERE id = $1
        RETURNING `+userColumns, id, location, at)
}

// RecordWatch moves a video to the front of the user's watch history.
func (r *PostgresUserRepository) RecordWatch(ctx context.Context, userID, videoID string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, userID, videoID, at)
	if err != nil {
		return writeError("record watch", err)
	}
	return nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return models.User{}, readError(op, err)
	}
	return user, nil
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, readError(op, err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage,
		&user.PasswordHash, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}
