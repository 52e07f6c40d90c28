package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
	"github.com/vidtube/backend/internal/views"
)

// CommentHandler implements the comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	Views    ViewStore
}

type contentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=5000"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r Request) error {
	videoID, err := r.pathID("videoId")
	if err != nil {
		return err
	}
	page, err := views.ParsePage(r.URL.Query())
	if err != nil {
		return err
	}

	if _, err := h.Videos.FindByID(r.Context(), videoID); err != nil {
		return notFound(err, "Video not found")
	}

	comments, err := h.Views.CommentFeed(r.Context(), videoID, page)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, comments, "Comments fetched successfully")
	return nil
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}
	videoID, err := r.pathID("videoId")
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	at := now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   viewer.ID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := h.Comments.Create(r.Context(), comment); err != nil {
		return notFound(err, "Video not found")
	}

	response.Created(r.Context(), w, comment, "Comment added successfully")
	return nil
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r Request) error {
	comment, err := h.owned(r)
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	updated, err := h.Comments.Update(r.Context(), comment.ID, strings.TrimSpace(req.Content), now())
	if err != nil {
		return notFound(err, "Comment not found")
	}

	response.OK(r.Context(), w, updated, "Comment updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r Request) error {
	comment, err := h.owned(r)
	if err != nil {
		return err
	}

	deleted, err := h.Comments.Delete(r.Context(), comment.ID)
	if err != nil {
		return notFound(err, "Comment not found")
	}

	response.OK(r.Context(), w, deleted, "Comment deleted successfully")
	return nil
}

func (h CommentHandler) owned(r Request) (models.Comment, error) {
	viewer, err := r.viewer()
	if err != nil {
		return models.Comment{}, err
	}
	id, err := r.pathID("commentId")
	if err != nil {
		return models.Comment{}, err
	}

	comment, err := h.Comments.FindByID(r.Context(), id)
	if err != nil {
		return models.Comment{}, notFound(err, "Comment not found")
	}
	if err := requireOwner(viewer, comment.OwnerID, "You are not allowed to modify this comment"); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}
