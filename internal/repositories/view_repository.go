package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/views"
)

// ownerJoin resolves the owner of the row aliased by the given column into
// the nullable columns o.id, o.username, o.full_name and o.avatar.
func ownerJoin(column string) string {
	return `
        LEFT JOIN LATERAL (
            SELECT u.id, u.username, u.full_name, u.avatar
            FROM users u
            WHERE u.id = ` + column + `
            LIMIT 1
        ) o ON TRUE`
}

const videoItemSelect = `
        SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration,
               v.is_published, v.created_at, v.updated_at,
               o.id, o.username, o.full_name, o.avatar,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id)
        FROM videos v`

// likeTargets maps each likeable kind to the table holding its subjects.
var likeTargets = map[models.LikeSubjectKind]string{
	models.SubjectVideo:   "videos",
	models.SubjectComment: "comments",
	models.SubjectTweet:   "tweets",
}

// PostgresViewRepository runs the read-only aggregations behind the listing
// and profile endpoints. Each aggregation is a single statement.
type PostgresViewRepository struct {
	pool db.Pool
}

// NewPostgresViewRepository constructs a view repository backed by PostgreSQL.
func NewPostgresViewRepository(pool db.Pool) *PostgresViewRepository {
	return &PostgresViewRepository{pool: pool}
}

func (r *PostgresViewRepository) run(ctx context.Context, name string, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	ctx, span := logging.StartSpan(ctx, "views."+name)
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		span.Fail(err)
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = fn(ctx, conn)
	span.Fail(err)
	return err
}

// ChannelProfile returns the channel named username with its subscriber
// counts and whether viewerID subscribes to it.
func (r *PostgresViewRepository) ChannelProfile(ctx context.Context, username, viewerID string) (views.ChannelProfile, error) {
	var p views.ChannelProfile
	err := r.run(ctx, "channel_profile", func(ctx context.Context, conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
            SELECT u.id, u.username, u.full_name, u.email, u.avatar, u.cover_image, u.created_at,
                   (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
                   (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
                   EXISTS (
                       SELECT 1 FROM subscriptions s
                       WHERE s.channel_id = u.id AND s.subscriber_id = $2
                   )
            FROM users u
            WHERE u.username = $1
        `, strings.ToLower(strings.TrimSpace(username)), viewerID).Scan(
			&p.ID, &p.Username, &p.FullName, &p.Email, &p.Avatar, &p.CoverImage, &p.CreatedAt,
			&p.SubscriberCount, &p.ChannelSubscribedCount, &p.IsSubscribed,
		)
		if err != nil {
			return readError("select channel profile", err)
		}
		return nil
	})
	return p, err
}

// WatchHistory returns the videos userID watched, most recent first.
func (r *PostgresViewRepository) WatchHistory(ctx context.Context, userID string) ([]views.HistoryItem, error) {
	items := make([]views.HistoryItem, 0)
	err := r.run(ctx, "watch_history", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.created_at,
                   h.watched_at,
                   o.id, o.username, o.full_name, o.avatar
            FROM watch_history h
            JOIN videos v ON v.id = h.video_id`+ownerJoin("v.owner_id")+`
            WHERE h.user_id = $1
            ORDER BY h.watched_at DESC, v.id
        `, userID)
		if err != nil {
			return fmt.Errorf("query watch history: %w", err)
		}
		return collect(rows, "watch history", func(row pgx.Rows) error {
			var (
				item  views.HistoryItem
				owner ownerColumns
			)
			if err := row.Scan(&item.ID, &item.VideoFile, &item.Thumbnail, &item.Title, &item.Description,
				&item.Duration, &item.CreatedAt, &item.WatchedAt,
				&owner.id, &owner.username, &owner.fullName, &owner.avatar); err != nil {
				return err
			}
			item.Owner = owner.collapse()
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// VideoFeed returns one page of published videos matching q.
func (r *PostgresViewRepository) VideoFeed(ctx context.Context, q views.FeedQuery) ([]views.VideoItem, error) {
	search := ""
	if q.Search != "" {
		search = views.LikePattern(q.Search)
	}

	items := make([]views.VideoItem, 0)
	err := r.run(ctx, "video_feed", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, videoItemSelect+ownerJoin("v.owner_id")+`
            WHERE v.is_published
              AND ($1 = '' OR v.title ILIKE $1)
              AND ($2 = '' OR v.owner_id = $2)
            ORDER BY `+q.OrderBy()+`
            LIMIT $3 OFFSET $4
        `, search, q.OwnerID, q.Limit, q.Offset())
		if err != nil {
			return fmt.Errorf("query video feed: %w", err)
		}
		return collect(rows, "video feed", func(row pgx.Rows) error {
			item, err := scanVideoItem(row)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// VideoByID returns one video with its owner and like count, regardless of
// its published state.
func (r *PostgresViewRepository) VideoByID(ctx context.Context, id string) (views.VideoItem, error) {
	var item views.VideoItem
	err := r.run(ctx, "video_by_id", func(ctx context.Context, conn *pgxpool.Conn) error {
		var err error
		item, err = scanVideoItem(conn.QueryRow(ctx, videoItemSelect+ownerJoin("v.owner_id")+`
            WHERE v.id = $1
        `, id))
		if err != nil {
			return readError("select video item", err)
		}
		return nil
	})
	return item, err
}

// CommentFeed returns one page of comments on a video, newest first.
func (r *PostgresViewRepository) CommentFeed(ctx context.Context, videoID string, page views.Page) ([]views.CommentItem, error) {
	items := make([]views.CommentItem, 0)
	err := r.run(ctx, "comment_feed", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT c.id, c.video_id, c.content, c.created_at, c.updated_at,
                   o.id, o.username, o.full_name, o.avatar,
                   (SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id)
            FROM comments c`+ownerJoin("c.owner_id")+`
            WHERE c.video_id = $1
            ORDER BY c.created_at DESC, c.id DESC
            LIMIT $2 OFFSET $3
        `, videoID, page.Limit, page.Offset())
		if err != nil {
			return fmt.Errorf("query comment feed: %w", err)
		}
		return collect(rows, "comment feed", func(row pgx.Rows) error {
			var (
				item  views.CommentItem
				owner ownerColumns
			)
			if err := row.Scan(&item.ID, &item.VideoID, &item.Content, &item.CreatedAt, &item.UpdatedAt,
				&owner.id, &owner.username, &owner.fullName, &owner.avatar, &item.LikesCount); err != nil {
				return err
			}
			item.Owner = owner.collapse()
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// TweetsByOwner returns the tweets published by ownerID, newest first.
func (r *PostgresViewRepository) TweetsByOwner(ctx context.Context, ownerID string) ([]views.TweetItem, error) {
	items := make([]views.TweetItem, 0)
	err := r.run(ctx, "tweets_by_owner", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT t.id, t.content, t.created_at, t.updated_at,
                   o.id, o.username, o.full_name, o.avatar,
                   (SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id)
            FROM tweets t`+ownerJoin("t.owner_id")+`
            WHERE t.owner_id = $1
            ORDER BY t.created_at DESC, t.id DESC
        `, ownerID)
		if err != nil {
			return fmt.Errorf("query tweets: %w", err)
		}
		return collect(rows, "tweets", func(row pgx.Rows) error {
			var (
				item  views.TweetItem
				owner ownerColumns
			)
			if err := row.Scan(&item.ID, &item.Content, &item.CreatedAt, &item.UpdatedAt,
				&owner.id, &owner.username, &owner.fullName, &owner.avatar, &item.LikesCount); err != nil {
				return err
			}
			item.Owner = owner.collapse()
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// ChannelSubscribers lists the users subscribed to channelID, newest first.
func (r *PostgresViewRepository) ChannelSubscribers(ctx context.Context, channelID string) ([]views.SubscriberEntry, error) {
	entries := make([]views.SubscriberEntry, 0)
	err := r.run(ctx, "channel_subscribers", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT s.id, s.created_at,
                   u.id, u.username, u.full_name, u.email, u.avatar
            FROM subscriptions s
            LEFT JOIN LATERAL (
                SELECT id, username, full_name, email, avatar
                FROM users
                WHERE id = s.subscriber_id
                LIMIT 1
            ) u ON TRUE
            WHERE s.channel_id = $1
            ORDER BY s.created_at DESC, s.id
        `, channelID)
		if err != nil {
			return fmt.Errorf("query subscribers: %w", err)
		}
		return collect(rows, "subscribers", func(row pgx.Rows) error {
			var (
				entry views.SubscriberEntry
				user  userColumnsNullable
			)
			if err := row.Scan(&entry.ID, &entry.SubscribedAt,
				&user.id, &user.username, &user.fullName, &user.email, &user.avatar); err != nil {
				return err
			}
			entry.Subscriber = user.collapse()
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// SubscribedChannels lists the channels subscriberID follows together with
// each channel's own subscriber count.
func (r *PostgresViewRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]views.SubscribedChannelEntry, error) {
	entries := make([]views.SubscribedChannelEntry, 0)
	err := r.run(ctx, "subscribed_channels", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT s.id, s.created_at,
                   u.id, u.username, u.full_name, u.email, u.avatar,
                   (SELECT COUNT(*) FROM subscriptions x WHERE x.channel_id = s.channel_id)
            FROM subscriptions s
            LEFT JOIN LATERAL (
                SELECT id, username, full_name, email, avatar
                FROM users
                WHERE id = s.channel_id
                LIMIT 1
            ) u ON TRUE
            WHERE s.subscriber_id = $1
            ORDER BY s.created_at DESC, s.id
        `, subscriberID)
		if err != nil {
			return fmt.Errorf("query subscribed channels: %w", err)
		}
		return collect(rows, "subscribed channels", func(row pgx.Rows) error {
			var (
				entry views.SubscribedChannelEntry
				user  userColumnsNullable
			)
			if err := row.Scan(&entry.ID, &entry.SubscribedAt,
				&user.id, &user.username, &user.fullName, &user.email, &user.avatar,
				&entry.ChannelSubscribers); err != nil {
				return err
			}
			entry.Channel = user.collapse()
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// LikedVideos lists the videos userID liked, newest like first.
func (r *PostgresViewRepository) LikedVideos(ctx context.Context, userID string) ([]views.LikedVideoEntry, error) {
	entries := make([]views.LikedVideoEntry, 0)
	err := r.run(ctx, "liked_videos", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT l.id, l.created_at,
                   v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.created_at,
                   o.id, o.username, o.full_name, o.avatar
            FROM likes l
            LEFT JOIN LATERAL (
                SELECT id, owner_id, video_file, thumbnail, title, description, duration, created_at
                FROM videos
                WHERE id = l.video_id
                LIMIT 1
            ) v ON TRUE`+ownerJoin("v.owner_id")+`
            WHERE l.liked_by = $1 AND l.video_id IS NOT NULL
            ORDER BY l.created_at DESC, l.id
        `, userID)
		if err != nil {
			return fmt.Errorf("query liked videos: %w", err)
		}
		return collect(rows, "liked videos", func(row pgx.Rows) error {
			var (
				entry                                        views.LikedVideoEntry
				videoID, file, thumbnail, title, description *string
				duration                                     *float64
				createdAt                                    *time.Time
				owner                                        ownerColumns
			)
			if err := row.Scan(&entry.ID, &entry.LikedAt,
				&videoID, &file, &thumbnail, &title, &description, &duration, &createdAt,
				&owner.id, &owner.username, &owner.fullName, &owner.avatar); err != nil {
				return err
			}
			if videoID != nil {
				entry.Video = &views.LikedVideo{
					ID:          *videoID,
					VideoFile:   value(file),
					Thumbnail:   value(thumbnail),
					Title:       value(title),
					Description: value(description),
					Duration:    value(duration),
					CreatedAt:   value(createdAt),
					Owner:       owner.collapse(),
				}
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// LikeCount returns the number of likes on subject. A missing subject yields ErrNotFound.
func (r *PostgresViewRepository) LikeCount(ctx context.Context, subject models.LikeSubject) (int64, error) {
	if !subject.Valid() {
		return 0, ErrInvalidSubject
	}
	table, column := likeTargets[subject.Kind], subjectColumns[subject.Kind]

	var count int64
	err := r.run(ctx, "like_count", func(ctx context.Context, conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
            SELECT (SELECT COUNT(*) FROM likes WHERE `+column+` = t.id)
            FROM `+table+` t
            WHERE t.id = $1
        `, subject.ID).Scan(&count)
		if err != nil {
			return readError("count likes", err)
		}
		return nil
	})
	return count, err
}

type ownerColumns struct {
	id, username, fullName, avatar *string
}

func (c ownerColumns) collapse() *views.OwnerSummary {
	return views.CollapseOwner(c.id, c.username, c.fullName, c.avatar)
}

type userColumnsNullable struct {
	id, username, fullName, email, avatar *string
}

func (c userColumnsNullable) collapse() *views.UserSummary {
	return views.CollapseUser(c.id, c.username, c.fullName, c.email, c.avatar)
}

func scanVideoItem(row pgx.Row) (views.VideoItem, error) {
	var (
		item  views.VideoItem
		owner ownerColumns
	)
	if err := row.Scan(&item.ID, &item.VideoFile, &item.Thumbnail, &item.Title, &item.Description,
		&item.Duration, &item.IsPublished, &item.CreatedAt, &item.UpdatedAt,
		&owner.id, &owner.username, &owner.fullName, &owner.avatar, &item.LikesCount); err != nil {
		return views.VideoItem{}, err
	}
	item.Owner = owner.collapse()
	return item, nil
}

func collect(rows pgx.Rows, what string, scan func(pgx.Rows) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", what, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", what, err)
	}
	return nil
}

func value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
