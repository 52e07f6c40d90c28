package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/response"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.AccessClaims, error)
}

// UserLookup loads the user named by a verified token.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticate rejects requests without a valid access token. The token is
// read from the accessToken cookie or a bearer Authorization header. On
// success the current user is stored on the request context.
func Authenticate(verifier TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := accessToken(r)
			if token == "" {
				response.Error(ctx, w, apierror.Unauthorized("Unauthorized request"))
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				response.Error(ctx, w, apierror.Unauthorized("Invalid access token").Wrap(err))
				return
			}

			user, err := users.FindByID(ctx, claims.Subject)
			switch {
			case errors.Is(err, repositories.ErrNotFound):
				response.Error(ctx, w, apierror.Unauthorized("Invalid access token"))
				return
			case err != nil:
				response.Error(ctx, w, err)
				return
			}

			ctx = auth.WithUser(ctx, user)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(auth.AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}
