package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// playlistSelect projects a playlist with its member video ids in insertion order.
const playlistSelect = `
        SELECT p.id, p.owner_id, p.name, p.description,
               ARRAY(
                   SELECT pv.video_id FROM playlist_videos pv
                   WHERE pv.playlist_id = p.id
                   ORDER BY pv.position
               ),
               p.created_at, p.updated_at
        FROM playlists p`

// PostgresPlaylistRepository persists playlists and their memberships.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create stores an empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return writeError("insert playlist", err)
	}
	return nil
}

// FindByID fetches a playlist with its ordered video ids.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findPlaylist(ctx, conn, id)
}

// ListByOwner returns the owner's playlists, newest first.
func (r *PostgresPlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, playlistSelect+`
        WHERE p.owner_id = $1
        ORDER BY p.created_at DESC, p.id DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// Update changes the name and description of a playlist.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, name, description string, at time.Time) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE playlists SET name = $2, description = $3, updated_at = $4 WHERE id = $1
    `, id, name, description, at)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, ErrNotFound
	}
	return findPlaylist(ctx, conn, id)
}

// Delete removes a playlist and its memberships.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVideo appends a video to the end of a playlist. Adding a video that is
// already a member fails with ErrConflict and leaves the playlist unchanged.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        SELECT $1, $2, COALESCE(MAX(position), 0) + 1, $3
        FROM playlist_videos
        WHERE playlist_id = $1
    `, playlistID, videoID, at)
	if err != nil {
		return models.Playlist{}, writeError("insert playlist video", err)
	}

	if err := touchPlaylist(ctx, conn, playlistID, at); err != nil {
		return models.Playlist{}, err
	}
	return findPlaylist(ctx, conn, playlistID)
}

// RemoveVideo removes exactly one video from a playlist. A video that is not a
// member yields ErrNotFound.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("delete playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, ErrNotFound
	}

	if err := touchPlaylist(ctx, conn, playlistID, at); err != nil {
		return models.Playlist{}, err
	}
	return findPlaylist(ctx, conn, playlistID)
}

func findPlaylist(ctx context.Context, conn *pgxpool.Conn, id string) (models.Playlist, error) {
	p, err := scanPlaylist(conn.QueryRow(ctx, playlistSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return models.Playlist{}, readError("select playlist", err)
	}
	return p, nil
}

func touchPlaylist(ctx context.Context, conn *pgxpool.Conn, id string, at time.Time) error {
	if _, err := conn.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch playlist: %w", err)
	}
	return nil
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var p models.Playlist
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Videos, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Playlist{}, err
	}
	if p.Videos == nil {
		p.Videos = []string{}
	}
	return p, nil
}
