package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const videoColumns = `id, owner_id, video_file, thumbnail, title, description, duration, is_published, created_at, updated_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return writeError("insert video", err)
	}

	return nil
}

// FindByID fetches a video by id regardless of its published state.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	return r.one(ctx, "select video", `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
}

// Update changes the editable fields of a video. An empty thumbnail keeps the current one.
func (r *PostgresVideoRepository) Update(ctx context.Context, id, title, description, thumbnail string, at time.Time) (models.Video, error) {
	return r.one(ctx, "update video", `
        UPDATE videos
        SET title = $2,
            description = $3,
            thumbnail = COALESCE(NULLIF($4, ''), thumbnail),
            updated_at = $5
        WHERE id = $1
        RETURNING `+videoColumns, id, title, description, thumbnail, at)
}

// TogglePublish flips the published flag and returns the updated video.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string, at time.Time) (models.Video, error) {
	return r.one(ctx, "toggle publish", `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $2
        WHERE id = $1
        RETURNING `+videoColumns, id, at)
}

// Delete removes a video and returns the deleted record so its files can be cleaned up.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) (models.Video, error) {
	return r.one(ctx, "delete video", `DELETE FROM videos WHERE id = $1 RETURNING `+videoColumns, id)
}

func (r *PostgresVideoRepository) one(ctx context.Context, op, query string, args ...any) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Video{}, readError(op, err)
	}
	return video, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description,
		&v.Duration, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}
