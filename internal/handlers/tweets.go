package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
)

// TweetHandler implements the tweet endpoints.
type TweetHandler struct {
	Tweets TweetStore
	Views  ViewStore
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	at := now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   viewer.ID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := h.Tweets.Create(r.Context(), tweet); err != nil {
		return err
	}

	response.Created(r.Context(), w, tweet, "Tweet created successfully")
	return nil
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r Request) error {
	userID, err := r.pathID("userId")
	if err != nil {
		return err
	}

	tweets, err := h.Views.TweetsByOwner(r.Context(), userID)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, tweets, "Tweets fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r Request) error {
	tweet, err := h.owned(r)
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	updated, err := h.Tweets.Update(r.Context(), tweet.ID, strings.TrimSpace(req.Content), now())
	if err != nil {
		return notFound(err, "Tweet not found")
	}

	response.OK(r.Context(), w, updated, "Tweet updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r Request) error {
	tweet, err := h.owned(r)
	if err != nil {
		return err
	}

	deleted, err := h.Tweets.Delete(r.Context(), tweet.ID)
	if err != nil {
		return notFound(err, "Tweet not found")
	}

	response.OK(r.Context(), w, deleted, "Tweet deleted successfully")
	return nil
}

func (h TweetHandler) owned(r Request) (models.Tweet, error) {
	viewer, err := r.viewer()
	if err != nil {
		return models.Tweet{}, err
	}
	id, err := r.pathID("tweetId")
	if err != nil {
		return models.Tweet{}, err
	}

	tweet, err := h.Tweets.FindByID(r.Context(), id)
	if err != nil {
		return models.Tweet{}, notFound(err, "Tweet not found")
	}
	if err := requireOwner(viewer, tweet.OwnerID, "You are not allowed to modify this tweet"); err != nil {
		return models.Tweet{}, err
	}
	return tweet, nil
}
