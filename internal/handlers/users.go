package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/response"
	"github.com/vidtube/backend/internal/validation"
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users          UserStore
	Sessions       SessionManager
	Views          ViewStore
	Media          MediaStore
	CookieSecure   bool
	MaxUploadBytes int64
}

type registerRequest struct {
	FullName string `form:"fullName" validate:"required,notblank,max=100"`
	Email    string `form:"email" validate:"required,email"`
	Username string `form:"username" validate:"required,alphanum,min=3,max=30"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,notblank"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required,notblank"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register. The body is multipart with a
// required avatar file and an optional coverImage file.
func (h UserHandler) Register(w http.ResponseWriter, r Request) error {
	ctx := r.Context()
	if err := parseForm(w, r, h.MaxUploadBytes); err != nil {
		return err
	}

	req := registerRequest{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Username: strings.ToLower(strings.TrimSpace(r.FormValue("username"))),
		Password: r.FormValue("password"),
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	taken, err := h.Users.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return err
	}
	if taken {
		return apierror.Conflict("User with email or username already exists")
	}

	avatarFile := formFile(r, "avatar")
	if avatarFile == nil {
		return apierror.Validation("Avatar file is required")
	}

	avatar, err := h.Media.Upload(ctx, avatarFile, media.KindAvatar)
	if err != nil {
		return apierror.Internal("Avatar file upload failed").Wrap(err)
	}

	var coverURL string
	if coverFile := formFile(r, "coverImage"); coverFile != nil {
		cover, err := h.Media.Upload(ctx, coverFile, media.KindCoverImage)
		if err != nil {
			return apierror.Internal("Cover image upload failed").Wrap(err)
		}
		coverURL = cover.URL
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	at := now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
		PasswordHash: hash,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apierror.Conflict("User with email or username already exists")
		}
		return err
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID)
	response.Created(ctx, w, user.Sanitized(), "User registered successfully")
	return nil
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r Request) error {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	user, err := h.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return notFound(err, "User does not exist")
	}

	if !auth.ComparePassword(user.PasswordHash, req.Password) {
		return apierror.Unauthorized("Invalid user credentials")
	}

	tokens, err := h.Sessions.Issue(ctx, auth.IdentityOf(user))
	if err != nil {
		return err
	}

	setSessionCookies(w, tokens, h.CookieSecure)
	response.OK(ctx, w, loginResponse{
		User:         user.Sanitized(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "User logged in successfully")
	return nil
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read
// from the refreshToken cookie or the JSON body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r Request) error {
	ctx := r.Context()

	presented := ""
	if cookie, err := r.Cookie(auth.RefreshCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	if presented == "" {
		return apierror.Unauthorized("Unauthorized request")
	}

	tokens, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrSessionNotFound) {
			return apierror.Unauthorized("Unauthorized request").Wrap(err)
		}
		return err
	}

	setSessionCookies(w, tokens, h.CookieSecure)
	response.OK(ctx, w, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
	return nil
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	if err := h.Sessions.Revoke(r.Context(), viewer.ID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		return err
	}

	clearSessionCookies(w, h.CookieSecure)
	response.OK(r.Context(), w, struct{}{}, "User logged out")
	return nil
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if !auth.ComparePassword(viewer.PasswordHash, req.OldPassword) {
		return apierror.Unauthorized("Invalid old password")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := h.Users.UpdatePassword(r.Context(), viewer.ID, hash, now()); err != nil {
		return notFound(err, "User does not exist")
	}

	response.OK(r.Context(), w, struct{}{}, "Password changed successfully")
	return nil
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}
	response.OK(r.Context(), w, viewer.Sanitized(), "Current user fetched successfully")
	return nil
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	user, err := h.Users.UpdateAccount(r.Context(), viewer.ID,
		strings.TrimSpace(req.FullName), strings.ToLower(strings.TrimSpace(req.Email)), now())
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apierror.Conflict("Email is already in use")
		}
		return notFound(err, "User does not exist")
	}

	response.OK(r.Context(), w, user.Sanitized(), "Account details updated successfully")
	return nil
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r Request) error {
	return h.replaceImage(w, r, "avatar", media.KindAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r Request) error {
	return h.replaceImage(w, r, "coverImage", media.KindCoverImage)
}

// replaceImage uploads the new file, points the user at it and only then
// removes the previous one. Failing to remove the old file is not an error.
func (h UserHandler) replaceImage(w http.ResponseWriter, r Request, field string, kind media.Kind) error {
	ctx := r.Context()
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	if err := parseForm(w, r, h.MaxUploadBytes); err != nil {
		return err
	}
	file := formFile(r, field)
	if file == nil {
		return apierror.Validation(field + " file is missing")
	}

	asset, err := h.Media.Upload(ctx, file, kind)
	if err != nil {
		return apierror.Internal("Error while uploading " + field).Wrap(err)
	}

	var (
		user     models.User
		previous string
	)
	if kind == media.KindAvatar {
		previous = viewer.Avatar
		user, err = h.Users.UpdateAvatar(ctx, viewer.ID, asset.URL, now())
	} else {
		previous = viewer.CoverImage
		user, err = h.Users.UpdateCoverImage(ctx, viewer.ID, asset.URL, now())
	}
	if err != nil {
		return notFound(err, "User does not exist")
	}

	if previous != "" {
		if err := h.Media.Delete(ctx, previous); err != nil {
			logging.FromContext(ctx).Warn("delete previous image", "field", field, "location", previous, "error", err)
		}
	}

	response.OK(ctx, w, user.Sanitized(), field+" updated successfully")
	return nil
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	username := strings.TrimSpace(chi.URLParam(r.Request, "username"))
	if username == "" {
		return apierror.Validation("Username is missing")
	}

	profile, err := h.Views.ChannelProfile(r.Context(), username, viewer.ID)
	if err != nil {
		return notFound(err, "Channel does not exist")
	}

	response.OK(r.Context(), w, profile, "User channel fetched successfully")
	return nil
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	history, err := h.Views.WatchHistory(r.Context(), viewer.ID)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, history, "Watch history fetched successfully")
	return nil
}
