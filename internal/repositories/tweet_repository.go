package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const tweetColumns = `id, owner_id, content, created_at, updated_at`

// PostgresTweetRepository persists short text posts.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create stores a tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (`+tweetColumns+`) VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		return writeError("insert tweet", err)
	}
	return nil
}

// FindByID fetches a tweet.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	return r.one(ctx, "select tweet", `SELECT `+tweetColumns+` FROM tweets WHERE id = $1`, id)
}

// Update replaces the content of a tweet.
func (r *PostgresTweetRepository) Update(ctx context.Context, id, content string, at time.Time) (models.Tweet, error) {
	return r.one(ctx, "update tweet", `
        UPDATE tweets SET content = $2, updated_at = $3 WHERE id = $1
        RETURNING `+tweetColumns, id, content, at)
}

// Delete removes a tweet and returns it.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) (models.Tweet, error) {
	return r.one(ctx, "delete tweet", `DELETE FROM tweets WHERE id = $1 RETURNING `+tweetColumns, id)
}

func (r *PostgresTweetRepository) one(ctx context.Context, op, query string, args ...any) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var t models.Tweet
	if err := conn.QueryRow(ctx, query, args...).Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Tweet{}, readError(op, err)
	}
	return t, nil
}
