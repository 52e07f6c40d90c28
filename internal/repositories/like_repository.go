package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// ErrInvalidSubject indicates a like subject with an unknown kind or no id.
var ErrInvalidSubject = errors.New("invalid like subject")

// subjectColumns maps each likeable kind to its column on the likes table.
var subjectColumns = map[models.LikeSubjectKind]string{
	models.SubjectVideo:   "video_id",
	models.SubjectComment: "comment_id",
	models.SubjectTweet:   "tweet_id",
}

// PostgresLikeRepository stores like edges. At most one edge exists per
// (subject, user) pair; the unique constraints enforce it.
type PostgresLikeRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Toggle removes the user's like on subject if present, otherwise creates it.
// It returns the affected record and whether the subject is now liked.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, subject models.LikeSubject, userID string) (models.Like, bool, error) {
	if !subject.Valid() {
		return models.Like{}, false, ErrInvalidSubject
	}
	column := subjectColumns[subject.Kind]

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Like{}, false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	like := models.Like{Subject: subject}

	err = conn.QueryRow(ctx, `
        DELETE FROM likes
        WHERE `+column+` = $1 AND liked_by = $2
        RETURNING id, liked_by, created_at, updated_at
    `, subject.ID, userID).Scan(&like.ID, &like.LikedBy, &like.CreatedAt, &like.UpdatedAt)
	if err == nil {
		return like, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Like{}, false, fmt.Errorf("delete like: %w", err)
	}

	now := r.now()
	err = conn.QueryRow(ctx, `
        INSERT INTO likes (id, liked_by, `+column+`, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT DO NOTHING
        RETURNING id, liked_by, created_at, updated_at
    `, uuid.NewString(), userID, subject.ID, now).Scan(&like.ID, &like.LikedBy, &like.CreatedAt, &like.UpdatedAt)
	switch {
	case err == nil:
		return like, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return models.Like{}, false, writeError("insert like", err)
	}

	// A concurrent toggle created the pair between our delete and insert.
	err = conn.QueryRow(ctx, `
        SELECT id, liked_by, created_at, updated_at
        FROM likes
        WHERE `+column+` = $1 AND liked_by = $2
    `, subject.ID, userID).Scan(&like.ID, &like.LikedBy, &like.CreatedAt, &like.UpdatedAt)
	if err != nil {
		return models.Like{}, false, readError("select like", err)
	}
	return like, true, nil
}
