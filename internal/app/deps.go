package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, error) {
	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure object store: %w", err)
	}
	guarded := storage.NewBreakerStore(objectStore, cfg.ObjectStore.BreakerFailures, cfg.ObjectStore.BreakerTimeout)

	mediaService := media.NewService(
		media.NewStaging(cfg.Media.StagingDir),
		guarded,
		media.NewFFProbe(cfg.Media.FFProbePath, cfg.Media.FFProbeTimeout),
	)

	sessions, err := auth.NewManager(auth.Settings{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, repositories.NewPostgresSessionStore(pool))
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure session manager: %w", err)
	}

	deps := handlers.Dependencies{
		Users:          repositories.NewPostgresUserRepository(pool),
		Sessions:       sessions,
		Verifier:       sessions,
		Videos:         repositories.NewPostgresVideoRepository(pool),
		Comments:       repositories.NewPostgresCommentRepository(pool),
		Tweets:         repositories.NewPostgresTweetRepository(pool),
		Likes:          repositories.NewPostgresLikeRepository(pool),
		Subscriptions:  repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:      repositories.NewPostgresPlaylistRepository(pool),
		Notes:          repositories.NewPostgresNoteRepository(pool),
		Views:          repositories.NewPostgresViewRepository(pool),
		Media:          mediaService,
		RateLimiter:    middleware.NewKeyedRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateWindow),
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		CookieSecure:   cfg.Auth.CookieSecure,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.DB = pinger
	}
	return deps, nil
}
