package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/response"
	"github.com/vidtube/backend/internal/validation"
)

const maxJSONBody = 1 << 20

// now is the clock used for created/updated timestamps.
var now = func() time.Time { return time.Now().UTC() }

// Request is the incoming request together with the authenticated viewer.
// Viewer is nil on public routes.
type Request struct {
	*http.Request
	Viewer *models.User
}

// handlerFunc is an endpoint that reports failures by returning an error.
// ServeHTTP is the single place where errors become error envelopes.
type handlerFunc func(w http.ResponseWriter, r Request) error

func (h handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := Request{Request: r}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		req.Viewer = &user
	}
	if err := h(w, req); err != nil {
		response.Error(r.Context(), w, err)
	}
}

// viewer returns the authenticated user. Routes behind the authenticate
// middleware always have one.
func (r Request) viewer() (models.User, error) {
	if r.Viewer == nil {
		return models.User{}, apierror.Unauthorized("Unauthorized request")
	}
	return *r.Viewer, nil
}

// pathID reads a URL parameter that must be a UUID.
func (r Request) pathID(name string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r.Request, name))
	if err := validation.Var(name, id, "required,uuid"); err != nil {
		return "", apierror.Validation("Invalid " + name)
	}
	return id, nil
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(r Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.Validation("Request body is required")
		}
		return apierror.Validation("Invalid request body").Wrap(err)
	}
	return validation.Struct(dst)
}

// parseForm reads a multipart or urlencoded body, capped at maxBytes.
func parseForm(w http.ResponseWriter, r Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	contentType := r.Header.Get("Content-Type")
	var err error
	if strings.HasPrefix(contentType, "multipart/form-data") {
		err = r.ParseMultipartForm(32 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.Validation("Upload exceeds the maximum allowed size")
		}
		return apierror.Validation("Invalid form body").Wrap(err)
	}
	return nil
}

// formFile returns the first file uploaded under field, or nil.
func formFile(r Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// notFound translates a missing record into a 404 with message.
func notFound(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apierror.NotFound(message)
	}
	return err
}

// requireOwner fails with 403 unless the viewer owns the resource.
func requireOwner(viewer models.User, ownerID, message string) error {
	if viewer.ID != ownerID {
		return apierror.Forbidden(message)
	}
	return nil
}
