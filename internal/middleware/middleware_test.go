package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/response"
)

type userMap map[string]models.User

func (m userMap) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := m[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var env response.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestKeyedRateLimiterRefillsOverTime(t *testing.T) {
	limiter := NewKeyedRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "keys have independent buckets")

	now = now.Add(30 * time.Second)
	assert.True(t, limiter.Allow("a"))
}

func TestKeyedRateLimiterDropsIdleVisitors(t *testing.T) {
	limiter := NewKeyedRateLimiter(1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	now = now.Add(5 * time.Minute)
	limiter.Allow("b")

	assert.Len(t, limiter.visitors, 1)
}

func TestKeyedRateLimiterSweepsAtMostOncePerTTL(t *testing.T) {
	limiter := NewKeyedRateLimiter(1, time.Minute)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	assert.Equal(t, start, limiter.lastSweep)

	now = start.Add(90 * time.Second)
	limiter.Allow("b")
	assert.Equal(t, start, limiter.lastSweep, "no sweep before the ttl has passed")
	assert.Len(t, limiter.visitors, 2)

	now = start.Add(150 * time.Second)
	limiter.Allow("c")
	assert.Equal(t, now, limiter.lastSweep)
	assert.NotContains(t, limiter.visitors, "a")
	assert.Contains(t, limiter.visitors, "b")
}

func TestRateLimitRejectsWithEnvelope(t *testing.T) {
	limiter := NewKeyedRateLimiter(1, time.Hour)
	handler := RateLimit(limiter, "login")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	env := decodeError(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusTooManyRequests, env.StatusCode)
	assert.NotNil(t, env.Errors)
}

func TestAuthenticate(t *testing.T) {
	store := auth.NewInMemorySessionStore()
	manager, err := auth.NewManager(auth.Settings{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    time.Hour,
	}, store)
	require.NoError(t, err)

	alice := models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	store.Register(auth.IdentityOf(alice))
	tokens, err := manager.Issue(context.Background(), auth.IdentityOf(alice))
	require.NoError(t, err)

	var seen models.User
	handler := Authenticate(manager, userMap{alice.ID: alice})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("cookie", func(t *testing.T) {
		seen = models.User{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: tokens.AccessToken})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, alice.ID, seen.ID)
	})

	t.Run("bearer header", func(t *testing.T) {
		seen = models.User{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, alice.ID, seen.ID)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized request", decodeError(t, rec).Message)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		gone := Authenticate(manager, userMap{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Fatal("handler must not run")
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		rec := httptest.NewRecorder()
		gone.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Metrics)
	r.Get("/boom/{id}", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "Internal server error", env.Message)
	assert.Nil(t, env.Data)
}
