package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/models"
)

func TestLikeToggleTwiceReturnsToUnliked(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.seedUser(t, "alice", "correct-horse")
	video := env.seedVideo(t, owner.ID, true)

	rec := env.do(t, http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first likeToggleResponse
	resp := decodeEnvelope(t, rec, &first)
	assert.True(t, first.Liked)
	assert.Equal(t, owner.ID, first.Like.LikedBy)
	assert.Equal(t, "Video is liked successfully", resp.Message)

	rec = env.do(t, http.MethodGet, "/api/v1/likes/count/v/"+video.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count likeCountResponse
	decodeEnvelope(t, rec, &count)
	assert.EqualValues(t, 1, count.LikesCount)

	rec = env.do(t, http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var second likeToggleResponse
	resp = decodeEnvelope(t, rec, &second)
	assert.False(t, second.Liked)
	assert.Equal(t, first.Like.ID, second.Like.ID)
	assert.Equal(t, "Video is removed from liked successfully", resp.Message)

	rec = env.do(t, http.MethodGet, "/api/v1/likes/count/v/"+video.ID, token, nil)
	decodeEnvelope(t, rec, &count)
	assert.Zero(t, count.LikesCount)
}

func TestLikeToggleMissingSubject(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice", "correct-horse")

	rec := env.do(t, http.MethodPost, "/api/v1/likes/toggle/v/6f1c7f0e-1d2b-4a6e-9c0a-2f0b5a1d9e11", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Video not found", decodeEnvelope(t, rec, nil).Message)

	rec = env.do(t, http.MethodPost, "/api/v1/likes/toggle/c/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLikedVideosEmptyListing(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice", "correct-horse")

	rec := env.do(t, http.MethodGet, "/api/v1/likes/videos", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestSubscriptionToggle(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.seedUser(t, "alice", "correct-horse")
	bob, _ := env.seedUser(t, "bob", "correct-horse")

	rec := env.do(t, http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "self subscription is rejected")

	rec = env.do(t, http.MethodPost, "/api/v1/subscriptions/c/"+bob.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var on subscriptionToggleResponse
	decodeEnvelope(t, rec, &on)
	assert.True(t, on.Subscribed)
	assert.Equal(t, alice.ID, on.Subscription.SubscriberID)
	assert.Equal(t, bob.ID, on.Subscription.ChannelID)

	rec = env.do(t, http.MethodPost, "/api/v1/subscriptions/c/"+bob.ID, aliceToken, nil)
	var off subscriptionToggleResponse
	decodeEnvelope(t, rec, &off)
	assert.False(t, off.Subscribed)

	rec = env.do(t, http.MethodPost, "/api/v1/subscriptions/c/6f1c7f0e-1d2b-4a6e-9c0a-2f0b5a1d9e11", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionListingsAreScopedToViewer(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.seedUser(t, "alice", "correct-horse")
	bob, _ := env.seedUser(t, "bob", "correct-horse")

	rec := env.do(t, http.MethodGet, "/api/v1/subscriptions/c/"+bob.ID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/subscriptions/u/"+bob.ID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/subscriptions/c/"+alice.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/subscriptions/u/"+alice.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func createPlaylist(t *testing.T, env *testEnv, token, name string) models.Playlist {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/playlists", token, `{"name":"`+name+`","description":"mix"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var playlist models.Playlist
	decodeEnvelope(t, rec, &playlist)
	return playlist
}

func TestPlaylistMembership(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.seedUser(t, "alice", "correct-horse")
	first := env.seedVideo(t, owner.ID, true)
	second := env.seedVideo(t, owner.ID, true)
	playlist := createPlaylist(t, env, token, "Favourites")
	assert.Equal(t, []string{}, playlist.Videos)

	for _, video := range []models.Video{first, second} {
		rec := env.do(t, http.MethodPatch, "/api/v1/playlists/add/"+video.ID+"/"+playlist.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodPatch, "/api/v1/playlists/add/"+first.ID+"/"+playlist.ID, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Video already exists in playlist", decodeEnvelope(t, rec, nil).Message)

	rec = env.do(t, http.MethodPatch, "/api/v1/playlists/remove/"+first.ID+"/"+playlist.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Playlist
	decodeEnvelope(t, rec, &updated)
	assert.Equal(t, []string{second.ID}, updated.Videos)

	rec = env.do(t, http.MethodPatch, "/api/v1/playlists/remove/"+first.ID+"/"+playlist.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/playlists/add/6f1c7f0e-1d2b-4a6e-9c0a-2f0b5a1d9e11/"+playlist.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaylistOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.seedUser(t, "alice", "correct-horse")
	_, otherToken := env.seedUser(t, "bob", "correct-horse")
	video := env.seedVideo(t, owner.ID, true)
	playlist := createPlaylist(t, env, ownerToken, "Mine")

	rec := env.do(t, http.MethodPatch, "/api/v1/playlists/"+playlist.ID, otherToken, `{"name":"Stolen"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/playlists/add/"+video.ID+"/"+playlist.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/playlists/"+playlist.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/playlists/"+playlist.ID, otherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "playlists are readable by anyone signed in")

	rec = env.do(t, http.MethodGet, "/api/v1/playlists/user/"+owner.ID, otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Playlist
	decodeEnvelope(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Mine", listed[0].Name)

	rec = env.do(t, http.MethodDelete, "/api/v1/playlists/"+playlist.ID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := env.playlists.FindByID(context.Background(), playlist.ID)
	assert.Error(t, err)
}

func TestNotesAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner, aliceToken := env.seedUser(t, "alice", "correct-horse")
	_, bobToken := env.seedUser(t, "bob", "correct-horse")
	video := env.seedVideo(t, owner.ID, true)
	path := "/api/v1/notes/" + video.ID

	rec := env.do(t, http.MethodPost, path, aliceToken, `{"content":"remember 2:31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, path, aliceToken, `{"content":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, path, bobToken, `{"content":"hijack"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, path, aliceToken, `{"content":"remember 2:45"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var note models.Note
	decodeEnvelope(t, rec, &note)
	assert.Equal(t, "remember 2:45", note.Content)

	rec = env.do(t, http.MethodDelete, path, aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, path, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/notes/6f1c7f0e-1d2b-4a6e-9c0a-2f0b5a1d9e11", aliceToken, `{"content":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTweetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.seedUser(t, "alice", "correct-horse")
	_, bobToken := env.seedUser(t, "bob", "correct-horse")

	rec := env.do(t, http.MethodPost, "/api/v1/tweets", aliceToken, `{"content":"hello world"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tweet models.Tweet
	decodeEnvelope(t, rec, &tweet)
	assert.Equal(t, alice.ID, tweet.OwnerID)

	rec = env.do(t, http.MethodDelete, "/api/v1/tweets/"+tweet.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/tweets/"+tweet.ID, aliceToken, `{"content":"edited"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeEnvelope(t, rec, &tweet)
	assert.Equal(t, "edited", tweet.Content)

	rec = env.do(t, http.MethodGet, "/api/v1/tweets/user/"+alice.ID, bobToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReportsDatabaseState(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.DB = pingFunc(func(context.Context) error { return nil })
	})
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	env = newTestEnv(t, func(d *Dependencies) {
		d.DB = pingFunc(func(context.Context) error { return errors.New("connection refused") })
	})
	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	rec = env.do(t, http.MethodPost, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/nothing-here", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeEnvelope(t, rec, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Route not found", resp.Message)
}
