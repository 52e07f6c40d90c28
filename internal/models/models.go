package models

import "time"

// User represents an account on the platform. A user is also a channel that
// others can subscribe to.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of the user without credential material.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

// Video is an uploaded video owned by a user.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is a text comment left on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tweet is a short text post published on a channel.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeSubjectKind names the kind of entity a like points at.
type LikeSubjectKind string

const (
	SubjectVideo   LikeSubjectKind = "video"
	SubjectComment LikeSubjectKind = "comment"
	SubjectTweet   LikeSubjectKind = "tweet"
)

// LikeSubject identifies exactly one likeable entity.
type LikeSubject struct {
	Kind LikeSubjectKind `json:"kind"`
	ID   string          `json:"id"`
}

// Valid reports whether the subject names a known kind and an id.
func (s LikeSubject) Valid() bool {
	switch s.Kind {
	case SubjectVideo, SubjectComment, SubjectTweet:
		return s.ID != ""
	default:
		return false
	}
}

// Like is a directed edge from a user to a video, comment or tweet.
type Like struct {
	ID        string      `json:"id"`
	LikedBy   string      `json:"likedBy"`
	Subject   LikeSubject `json:"subject"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Subscription is a directed edge from a subscriber to a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Playlist is an ordered, duplicate-free list of videos.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Videos      []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Note is a private note a user keeps about a single video.
type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	VideoID   string    `json:"video"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
