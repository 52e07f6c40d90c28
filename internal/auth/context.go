package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type ctxKey struct{}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok
}

// IdentityOf extracts the token identity of a user.
func IdentityOf(user models.User) Identity {
	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}
}

// Cookie names carrying the session tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)
