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

// PostgresSubscriptionRepository stores subscriber to channel edges.
type PostgresSubscriptionRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Toggle unsubscribes if the edge exists, otherwise subscribes. It returns the
// affected record and whether the subscriber is now subscribed.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (models.Subscription, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Subscription{}, false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var sub models.Subscription
	scan := func(row pgx.Row) error {
		return row.Scan(&sub.ID, &sub.SubscriberID, &sub.ChannelID, &sub.CreatedAt, &sub.UpdatedAt)
	}

	err = scan(conn.QueryRow(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
        RETURNING id, subscriber_id, channel_id, created_at, updated_at
    `, subscriberID, channelID))
	if err == nil {
		return sub, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Subscription{}, false, fmt.Errorf("delete subscription: %w", err)
	}

	now := r.now()
	err = scan(conn.QueryRow(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING
        RETURNING id, subscriber_id, channel_id, created_at, updated_at
    `, uuid.NewString(), subscriberID, channelID, now))
	switch {
	case err == nil:
		return sub, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return models.Subscription{}, false, writeError("insert subscription", err)
	}

	err = scan(conn.QueryRow(ctx, `
        SELECT id, subscriber_id, channel_id, created_at, updated_at
        FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID))
	if err != nil {
		return models.Subscription{}, false, readError("select subscription", err)
	}
	return sub, true, nil
}
