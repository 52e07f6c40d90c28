package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/views"
)

// UserStore captures the persistence operations on user accounts.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	UpdateAccount(ctx context.Context, id, fullName, email string, at time.Time) (models.User, error)
	UpdateAvatar(ctx context.Context, id, location string, at time.Time) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, location string, at time.Time) (models.User, error)
	RecordWatch(ctx context.Context, userID, videoID string, at time.Time) error
}

// SessionManager issues, rotates and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, identity auth.Identity) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore persists videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, id, title, description, thumbnail string, at time.Time) (models.Video, error)
	TogglePublish(ctx context.Context, id string, at time.Time) (models.Video, error)
	Delete(ctx context.Context, id string) (models.Video, error)
}

// CommentStore persists comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, id, content string, at time.Time) (models.Comment, error)
	Delete(ctx context.Context, id string) (models.Comment, error)
}

// TweetStore persists tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	Update(ctx context.Context, id, content string, at time.Time) (models.Tweet, error)
	Delete(ctx context.Context, id string) (models.Tweet, error)
}

// LikeStore toggles like edges.
type LikeStore interface {
	Toggle(ctx context.Context, subject models.LikeSubject, userID string) (models.Like, bool, error)
}

// SubscriptionStore toggles subscription edges.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (models.Subscription, bool, error)
}

// PlaylistStore persists playlists and their memberships.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id, name, description string, at time.Time) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error)
	RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error)
}

// NoteStore persists per-user notes keyed by (owner, video).
type NoteStore interface {
	Find(ctx context.Context, ownerID, videoID string) (models.Note, error)
	Create(ctx context.Context, note models.Note) error
	Update(ctx context.Context, ownerID, videoID, content string, at time.Time) (models.Note, error)
	Delete(ctx context.Context, ownerID, videoID string) (models.Note, error)
}

// ViewStore runs the read-side aggregations.
type ViewStore interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (views.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]views.HistoryItem, error)
	VideoFeed(ctx context.Context, q views.FeedQuery) ([]views.VideoItem, error)
	VideoByID(ctx context.Context, id string) (views.VideoItem, error)
	CommentFeed(ctx context.Context, videoID string, page views.Page) ([]views.CommentItem, error)
	TweetsByOwner(ctx context.Context, ownerID string) ([]views.TweetItem, error)
	ChannelSubscribers(ctx context.Context, channelID string) ([]views.SubscriberEntry, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]views.SubscribedChannelEntry, error)
	LikedVideos(ctx context.Context, userID string) ([]views.LikedVideoEntry, error)
	LikeCount(ctx context.Context, subject models.LikeSubject) (int64, error)
}

// MediaStore moves uploads to object storage and removes them again.
type MediaStore interface {
	Upload(ctx context.Context, fh *multipart.FileHeader, kind media.Kind) (media.Asset, error)
	Delete(ctx context.Context, location string) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
