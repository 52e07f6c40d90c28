// Package views holds the read models returned by aggregation queries. Every
// nested user is projected through an allowlist so credentials never leave
// the store layer.
package views

import "time"

// OwnerSummary is the public projection of a user embedded in other views.
type OwnerSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// UserSummary extends OwnerSummary with the email address.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// ChannelProfile describes a channel as seen by a viewer.
type ChannelProfile struct {
	ID                     string    `json:"id"`
	Username               string    `json:"username"`
	FullName               string    `json:"fullName"`
	Email                  string    `json:"email"`
	Avatar                 string    `json:"avatar"`
	CoverImage             string    `json:"coverImage"`
	SubscriberCount        int64     `json:"subscriberCount"`
	ChannelSubscribedCount int64     `json:"channelSubscribedCount"`
	IsSubscribed           bool      `json:"isSubscribed"`
	CreatedAt              time.Time `json:"createdAt"`
}

// VideoItem is a video with its owner collapsed and its like count.
type VideoItem struct {
	ID          string        `json:"id"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	IsPublished bool          `json:"isPublished"`
	Owner       *OwnerSummary `json:"owner"`
	LikesCount  int64         `json:"likesCount"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// HistoryItem is a watched video, most recent first.
type HistoryItem struct {
	ID          string        `json:"id"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Owner       *OwnerSummary `json:"owner"`
	WatchedAt   time.Time     `json:"watchedAt"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// CommentItem is a comment with its author collapsed and its like count.
type CommentItem struct {
	ID         string        `json:"id"`
	VideoID    string        `json:"video"`
	Content    string        `json:"content"`
	Owner      *OwnerSummary `json:"commentOwnerDetails"`
	LikesCount int64         `json:"likesCount"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// TweetItem is a tweet with its author collapsed and its like count.
type TweetItem struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Owner      *OwnerSummary `json:"ownerDetails"`
	LikesCount int64         `json:"likesCount"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// SubscriberEntry is one subscriber of a channel.
type SubscriberEntry struct {
	ID           string       `json:"id"`
	SubscribedAt time.Time    `json:"subscribedAt"`
	Subscriber   *UserSummary `json:"subscriberDetails"`
}

// SubscribedChannelEntry is one channel a user subscribes to.
type SubscribedChannelEntry struct {
	ID                 string       `json:"id"`
	SubscribedAt       time.Time    `json:"subscribedAt"`
	Channel            *UserSummary `json:"channelDetails"`
	ChannelSubscribers int64        `json:"channelSubscribers"`
}

// LikedVideo is the video side of a LikedVideoEntry.
type LikedVideo struct {
	ID          string        `json:"id"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Owner       *OwnerSummary `json:"ownerDetails"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// LikedVideoEntry is one video the user liked.
type LikedVideoEntry struct {
	ID      string      `json:"id"`
	LikedAt time.Time   `json:"likedAt"`
	Video   *LikedVideo `json:"videoDetails"`
}
