package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/response"
)

// NoteHandler implements the private per-video note endpoints. Every
// operation is scoped to the viewer's own note.
type NoteHandler struct {
	Notes NoteStore
}

// Get handles GET /api/v1/notes/{videoId}.
func (h NoteHandler) Get(w http.ResponseWriter, r Request) error {
	viewer, videoID, err := h.target(r)
	if err != nil {
		return err
	}

	note, err := h.Notes.Find(r.Context(), viewer.ID, videoID)
	if err != nil {
		return notFound(err, "Note not found")
	}

	response.OK(r.Context(), w, note, "Note fetched successfully")
	return nil
}

// Save handles POST /api/v1/notes/{videoId}.
func (h NoteHandler) Save(w http.ResponseWriter, r Request) error {
	viewer, videoID, err := h.target(r)
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	at := now()
	note := models.Note{
		ID:        uuid.NewString(),
		OwnerID:   viewer.ID,
		VideoID:   videoID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := h.Notes.Create(r.Context(), note); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apierror.Conflict("A note already exists for this video")
		}
		return notFound(err, "Video not found")
	}

	response.Created(r.Context(), w, note, "Note saved successfully")
	return nil
}

// Edit handles PATCH /api/v1/notes/{videoId}.
func (h NoteHandler) Edit(w http.ResponseWriter, r Request) error {
	viewer, videoID, err := h.target(r)
	if err != nil {
		return err
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	note, err := h.Notes.Update(r.Context(), viewer.ID, videoID, strings.TrimSpace(req.Content), now())
	if err != nil {
		return notFound(err, "Note not found")
	}

	response.OK(r.Context(), w, note, "Note edited successfully")
	return nil
}

// Delete handles DELETE /api/v1/notes/{videoId}.
func (h NoteHandler) Delete(w http.ResponseWriter, r Request) error {
	viewer, videoID, err := h.target(r)
	if err != nil {
		return err
	}

	note, err := h.Notes.Delete(r.Context(), viewer.ID, videoID)
	if err != nil {
		return notFound(err, "Note not found")
	}

	response.OK(r.Context(), w, note, "Note deleted successfully")
	return nil
}

func (h NoteHandler) target(r Request) (models.User, string, error) {
	viewer, err := r.viewer()
	if err != nil {
		return models.User{}, "", err
	}
	videoID, err := r.pathID("videoId")
	if err != nil {
		return models.User{}, "", err
	}
	return viewer, videoID, nil
}
