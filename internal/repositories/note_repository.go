package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const noteColumns = `id, owner_id, video_id, content, created_at, updated_at`

// PostgresNoteRepository persists private per-video notes. Every query is
// keyed by (owner, video) so a user can only ever reach their own note.
type PostgresNoteRepository struct {
	pool db.Pool
}

// NewPostgresNoteRepository constructs a note repository backed by PostgreSQL.
func NewPostgresNoteRepository(pool db.Pool) *PostgresNoteRepository {
	return &PostgresNoteRepository{pool: pool}
}

// Find returns the owner's note on a video.
func (r *PostgresNoteRepository) Find(ctx context.Context, ownerID, videoID string) (models.Note, error) {
	return r.one(ctx, "select note", `
        SELECT `+noteColumns+` FROM notes WHERE owner_id = $1 AND video_id = $2
    `, ownerID, videoID)
}

// Create stores a note. A second note for the same pair fails with ErrConflict.
func (r *PostgresNoteRepository) Create(ctx context.Context, note models.Note) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO notes (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
    `, note.ID, note.OwnerID, note.VideoID, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return writeError("insert note", err)
	}
	return nil
}

// Update replaces the content of the owner's note on a video.
func (r *PostgresNoteRepository) Update(ctx context.Context, ownerID, videoID, content string, at time.Time) (models.Note, error) {
	return r.one(ctx, "update note", `
        UPDATE notes SET content = $3, updated_at = $4
        WHERE owner_id = $1 AND video_id = $2
        RETURNING `+noteColumns, ownerID, videoID, content, at)
}

// Delete removes the owner's note on a video and returns it.
func (r *PostgresNoteRepository) Delete(ctx context.Context, ownerID, videoID string) (models.Note, error) {
	return r.one(ctx, "delete note", `
        DELETE FROM notes WHERE owner_id = $1 AND video_id = $2
        RETURNING `+noteColumns, ownerID, videoID)
}

func (r *PostgresNoteRepository) one(ctx context.Context, op, query string, args ...any) (models.Note, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Note{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var n models.Note
	if err := conn.QueryRow(ctx, query, args...).Scan(&n.ID, &n.OwnerID, &n.VideoID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return models.Note{}, readError(op, err)
	}
	return n, nil
}
