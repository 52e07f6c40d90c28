package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const commentColumns = `id, video_id, owner_id, content, created_at, updated_at`

// PostgresCommentRepository persists comments on videos.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a comment. A missing video or owner yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (`+commentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return writeError("insert comment", err)
	}
	return nil
}

// FindByID fetches a comment.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	return r.one(ctx, "select comment", `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
}

// Update replaces the content of a comment.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, content string, at time.Time) (models.Comment, error) {
	return r.one(ctx, "update comment", `
        UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1
        RETURNING `+commentColumns, id, content, at)
}

// Delete removes a comment and returns it.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) (models.Comment, error) {
	return r.one(ctx, "delete comment", `DELETE FROM comments WHERE id = $1 RETURNING `+commentColumns, id)
}

func (r *PostgresCommentRepository) one(ctx context.Context, op, query string, args ...any) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	comment, err := scanComment(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Comment{}, readError(op, err)
	}
	return comment, nil
}

func scanComment(row pgx.Row) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
