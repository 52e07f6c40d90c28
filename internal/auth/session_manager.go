package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the presented refresh token is not the user's current session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidToken indicates a token failed signature, algorithm or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the user data embedded in access tokens.
type Identity struct {
	UserID   string
	Username string
	Email    string
	FullName string
}

// SessionStore persists the single current refresh token of each user.
type SessionStore interface {
	// LoadSession returns the identity and stored refresh token for userID.
	// It returns ErrSessionNotFound when the user does not exist.
	LoadSession(ctx context.Context, userID string) (Identity, string, error)
	// SaveRefreshToken replaces the stored refresh token. An empty token clears it.
	SaveRefreshToken(ctx context.Context, userID, token string) error
	// RotateRefreshToken stores next only if current is still the stored
	// token, reporting whether the swap happened.
	RotateRefreshToken(ctx context.Context, userID, current, next string) (bool, error)
}

// AccessClaims are carried by access tokens.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// Settings configures token signing.
type Settings struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Manager issues, verifies and rotates signed session tokens.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager backed by the provided session store.
func NewManager(settings Settings, store SessionStore) (*Manager, error) {
	if store == nil {
		return nil, errors.New("auth: session store must not be nil")
	}
	if settings.AccessSecret == "" || settings.RefreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if settings.AccessSecret == settings.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if settings.AccessTTL <= 0 {
		settings.AccessTTL = 24 * time.Hour
	}
	if settings.RefreshTTL <= 0 {
		settings.RefreshTTL = 10 * 24 * time.Hour
	}
	return &Manager{
		accessSecret:  []byte(settings.AccessSecret),
		refreshSecret: []byte(settings.RefreshSecret),
		accessTTL:     settings.AccessTTL,
		refreshTTL:    settings.RefreshTTL,
		store:         store,
		now:           time.Now,
	}, nil
}

// Issue signs a new access and refresh token pair for the identity and
// records the refresh token as the user's current session.
func (m *Manager) Issue(ctx context.Context, id Identity) (models.SessionTokens, error) {
	tokens, err := m.signPair(id)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.SaveRefreshToken(ctx, id.UserID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save refresh token: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges the user's current refresh token for a new pair. A token
// that verifies but is no longer the stored one fails with ErrSessionNotFound.
// The stored token is swapped atomically, so of several concurrent refreshes
// presenting the same token at most one succeeds.
func (m *Manager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	var claims jwt.RegisteredClaims
	if err := m.parse(presented, m.refreshSecret, &claims); err != nil {
		return models.SessionTokens{}, err
	}

	identity, stored, err := m.store.LoadSession(ctx, claims.Subject)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	tokens, err := m.signPair(identity)
	if err != nil {
		return models.SessionTokens{}, err
	}

	rotated, err := m.store.RotateRefreshToken(ctx, identity.UserID, presented, tokens.RefreshToken)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		return models.SessionTokens{}, ErrSessionNotFound
	}
	return tokens, nil
}

func (m *Manager) signPair(id Identity) (models.SessionTokens, error) {
	if id.UserID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now().UTC()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	access, err := sign(m.accessSecret, AccessClaims{
		Username:         id.Username,
		Email:            id.Email,
		FullName:         id.FullName,
		RegisteredClaims: registered(id.UserID, now, accessExp),
	})
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := registered(id.UserID, now, refreshExp)
	refresh, err := sign(m.refreshSecret, &refreshClaims)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Revoke clears the stored refresh token, invalidating every outstanding one.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.SaveRefreshToken(ctx, userID, "")
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := m.parse(token, m.accessSecret, &claims); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

func (m *Manager) parse(token string, secret []byte, claims jwt.Claims) error {
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return ErrInvalidToken
	}
	return nil
}

func registered(subject string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func sign(secret []byte, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
