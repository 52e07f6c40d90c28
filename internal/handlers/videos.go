package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
	"github.com/vidtube/backend/internal/validation"
	"github.com/vidtube/backend/internal/views"
)

// VideoHandler implements the video endpoints.
type VideoHandler struct {
	Videos         VideoStore
	Users          UserStore
	Views          ViewStore
	Media          MediaStore
	MaxUploadBytes int64
}

type videoForm struct {
	Title       string `form:"title" validate:"required,notblank,max=200"`
	Description string `form:"description" validate:"max=5000"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r Request) error {
	q, err := views.ParseFeedQuery(r.URL.Query())
	if err != nil {
		return err
	}

	items, err := h.Views.VideoFeed(r.Context(), q)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, items, "Videos fetched successfully")
	return nil
}

// Publish handles POST /api/v1/videos. The body is multipart with the
// videoFile and thumbnail files.
func (h VideoHandler) Publish(w http.ResponseWriter, r Request) error {
	ctx := r.Context()
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	if err := parseForm(w, r, h.MaxUploadBytes); err != nil {
		return err
	}
	form := videoForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validation.Struct(form); err != nil {
		return err
	}

	videoFile := formFile(r, "videoFile")
	if videoFile == nil {
		return apierror.Validation("Video file is required")
	}
	thumbnailFile := formFile(r, "thumbnail")
	if thumbnailFile == nil {
		return apierror.Validation("Thumbnail is required")
	}

	video, err := h.Media.Upload(ctx, videoFile, media.KindVideo)
	if err != nil {
		return apierror.Internal("Error while uploading video").Wrap(err)
	}
	thumbnail, err := h.Media.Upload(ctx, thumbnailFile, media.KindThumbnail)
	if err != nil {
		return apierror.Internal("Error while uploading thumbnail").Wrap(err)
	}

	at := now()
	record := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     viewer.ID,
		VideoFile:   video.URL,
		Thumbnail:   thumbnail.URL,
		Title:       form.Title,
		Description: form.Description,
		Duration:    video.Duration,
		IsPublished: true,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := h.Videos.Create(ctx, record); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("video published", "videoId", record.ID)
	response.Created(ctx, w, record, "Video published successfully")
	return nil
}

// Get handles GET /api/v1/videos/{videoId} and records the view in the
// viewer's watch history. Unpublished videos are only visible to their owner.
func (h VideoHandler) Get(w http.ResponseWriter, r Request) error {
	ctx := r.Context()
	viewer, err := r.viewer()
	if err != nil {
		return err
	}
	id, err := r.pathID("videoId")
	if err != nil {
		return err
	}

	item, err := h.Views.VideoByID(ctx, id)
	if err != nil {
		return notFound(err, "Video not found")
	}
	if !item.IsPublished && (item.Owner == nil || item.Owner.ID != viewer.ID) {
		return apierror.NotFound("Video not found")
	}

	if err := h.Users.RecordWatch(ctx, viewer.ID, id, now()); err != nil {
		logging.FromContext(ctx).Warn("record watch history", "videoId", id, "error", err)
	}

	response.OK(ctx, w, item, "Video fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/videos/{videoId}. A new thumbnail replaces
// the old one, which is removed from storage afterwards.
func (h VideoHandler) Update(w http.ResponseWriter, r Request) error {
	ctx := r.Context()
	video, err := h.owned(r)
	if err != nil {
		return err
	}

	if err := parseForm(w, r, h.MaxUploadBytes); err != nil {
		return err
	}
	form := videoForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validation.Struct(form); err != nil {
		return err
	}

	var thumbnail string
	if file := formFile(r, "thumbnail"); file != nil {
		asset, err := h.Media.Upload(ctx, file, media.KindThumbnail)
		if err != nil {
			return apierror.Internal("Error while uploading thumbnail").Wrap(err)
		}
		thumbnail = asset.URL
	}

	updated, err := h.Videos.Update(ctx, video.ID, form.Title, form.Description, thumbnail, now())
	if err != nil {
		return notFound(err, "Video not found")
	}

	if thumbnail != "" && video.Thumbnail != "" {
		if err := h.Media.Delete(ctx, video.Thumbnail); err != nil {
			logging.FromContext(ctx).Warn("delete previous thumbnail", "location", video.Thumbnail, "error", err)
		}
	}

	response.OK(ctx, w, updated, "Video updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/videos/{videoId}. The row goes first; the
// stored files are removed afterwards and a storage failure is reported
// without restoring the row.
func (h VideoHandler) Delete(w http.ResponseWriter, r Request) error {
	ctx := r.Context()
	video, err := h.owned(r)
	if err != nil {
		return err
	}

	deleted, err := h.Videos.Delete(ctx, video.ID)
	if err != nil {
		return notFound(err, "Video not found")
	}

	for _, location := range []string{deleted.VideoFile, deleted.Thumbnail} {
		if location == "" {
			continue
		}
		if err := h.Media.Delete(ctx, location); err != nil {
			return apierror.Internal("Error while deleting video files").Wrap(err)
		}
	}

	response.OK(ctx, w, deleted, "Video deleted successfully")
	return nil
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r Request) error {
	video, err := h.owned(r)
	if err != nil {
		return err
	}

	updated, err := h.Videos.TogglePublish(r.Context(), video.ID, now())
	if err != nil {
		return notFound(err, "Video not found")
	}

	message := "Video unpublished successfully"
	if updated.IsPublished {
		message = "Video published successfully"
	}
	response.OK(r.Context(), w, updated, message)
	return nil
}

// owned loads the video named in the path and checks the viewer owns it.
func (h VideoHandler) owned(r Request) (models.Video, error) {
	viewer, err := r.viewer()
	if err != nil {
		return models.Video{}, err
	}
	id, err := r.pathID("videoId")
	if err != nil {
		return models.Video{}, err
	}

	video, err := h.Videos.FindByID(r.Context(), id)
	if err != nil {
		return models.Video{}, notFound(err, "Video not found")
	}
	if err := requireOwner(viewer, video.OwnerID, "You are not allowed to modify this video"); err != nil {
		return models.Video{}, err
	}
	return video, nil
}
