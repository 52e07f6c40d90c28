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

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	at := now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     viewer.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Videos:      []string{},
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := h.Playlists.Create(r.Context(), playlist); err != nil {
		return err
	}

	response.Created(r.Context(), w, playlist, "Playlist created successfully")
	return nil
}

// ListByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r Request) error {
	userID, err := r.pathID("userId")
	if err != nil {
		return err
	}

	playlists, err := h.Playlists.ListByOwner(r.Context(), userID)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, playlists, "Playlists fetched successfully")
	return nil
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r Request) error {
	id, err := r.pathID("playlistId")
	if err != nil {
		return err
	}

	playlist, err := h.Playlists.FindByID(r.Context(), id)
	if err != nil {
		return notFound(err, "Playlist not found")
	}

	response.OK(r.Context(), w, playlist, "Playlist fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r Request) error {
	playlist, err := h.owned(r)
	if err != nil {
		return err
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	updated, err := h.Playlists.Update(r.Context(), playlist.ID,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), now())
	if err != nil {
		return notFound(err, "Playlist not found")
	}

	response.OK(r.Context(), w, updated, "Playlist updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r Request) error {
	playlist, err := h.owned(r)
	if err != nil {
		return err
	}

	if err := h.Playlists.Delete(r.Context(), playlist.ID); err != nil {
		return notFound(err, "Playlist not found")
	}

	response.OK(r.Context(), w, playlist, "Playlist deleted successfully")
	return nil
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r Request) error {
	playlist, err := h.owned(r)
	if err != nil {
		return err
	}
	videoID, err := r.pathID("videoId")
	if err != nil {
		return err
	}

	updated, err := h.Playlists.AddVideo(r.Context(), playlist.ID, videoID, now())
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return apierror.Validation("Video already exists in playlist")
	case err != nil:
		return notFound(err, "Video not found")
	}

	response.OK(r.Context(), w, updated, "Video added to playlist successfully")
	return nil
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r Request) error {
	playlist, err := h.owned(r)
	if err != nil {
		return err
	}
	videoID, err := r.pathID("videoId")
	if err != nil {
		return err
	}

	updated, err := h.Playlists.RemoveVideo(r.Context(), playlist.ID, videoID, now())
	if err != nil {
		return notFound(err, "Video is not in the playlist")
	}

	response.OK(r.Context(), w, updated, "Video removed from playlist successfully")
	return nil
}

func (h PlaylistHandler) owned(r Request) (models.Playlist, error) {
	viewer, err := r.viewer()
	if err != nil {
		return models.Playlist{}, err
	}
	id, err := r.pathID("playlistId")
	if err != nil {
		return models.Playlist{}, err
	}

	playlist, err := h.Playlists.FindByID(r.Context(), id)
	if err != nil {
		return models.Playlist{}, notFound(err, "Playlist not found")
	}
	if err := requireOwner(viewer, playlist.OwnerID, "You are not allowed to modify this playlist"); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}
