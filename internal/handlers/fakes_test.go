package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/views"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

// memUsers is an in-memory UserStore that also serves as the session store,
// keeping the refresh token on the user record like the database does.
type memUsers struct {
	mu      sync.Mutex
	users   map[string]models.User
	watched []string
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]models.User)}
}

func (s *memUsers) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memUsers) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *memUsers) Exists(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUsers) update(id string, fn func(*models.User)) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	fn(&user)
	s.users[id] = user
	return user, nil
}

func (s *memUsers) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	_, err := s.update(id, func(u *models.User) { u.PasswordHash, u.UpdatedAt = hash, at })
	return err
}

func (s *memUsers) UpdateAccount(_ context.Context, id, fullName, email string, at time.Time) (models.User, error) {
	s.mu.Lock()
	for otherID, user := range s.users {
		if otherID != id && user.Email == email {
			s.mu.Unlock()
			return models.User{}, repositories.ErrConflict
		}
	}
	s.mu.Unlock()
	return s.update(id, func(u *models.User) { u.FullName, u.Email, u.UpdatedAt = fullName, email, at })
}

func (s *memUsers) UpdateAvatar(_ context.Context, id, location string, at time.Time) (models.User, error) {
	return s.update(id, func(u *models.User) { u.Avatar, u.UpdatedAt = location, at })
}

func (s *memUsers) UpdateCoverImage(_ context.Context, id, location string, at time.Time) (models.User, error) {
	return s.update(id, func(u *models.User) { u.CoverImage, u.UpdatedAt = location, at })
}

func (s *memUsers) RecordWatch(_ context.Context, userID, videoID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = append(s.watched, userID+"/"+videoID)
	return nil
}

func (s *memUsers) LoadSession(_ context.Context, userID string) (auth.Identity, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.Identity{}, "", auth.ErrSessionNotFound
	}
	return auth.IdentityOf(user), user.RefreshToken, nil
}

func (s *memUsers) SaveRefreshToken(_ context.Context, userID, token string) error {
	_, err := s.update(userID, func(u *models.User) { u.RefreshToken = token })
	if err != nil {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *memUsers) RotateRefreshToken(_ context.Context, userID, current, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return false, auth.ErrSessionNotFound
	}
	if current == "" || user.RefreshToken != current {
		return false, nil
	}
	user.RefreshToken = next
	s.users[userID] = user
	return true, nil
}

type memVideos struct {
	mu     sync.Mutex
	videos map[string]models.Video
}

func (s *memVideos) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *memVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *memVideos) Update(_ context.Context, id, title, description, thumbnail string, at time.Time) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.Title, video.Description, video.UpdatedAt = title, description, at
	if thumbnail != "" {
		video.Thumbnail = thumbnail
	}
	s.videos[id] = video
	return video, nil
}

func (s *memVideos) TogglePublish(_ context.Context, id string, at time.Time) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished, video.UpdatedAt = !video.IsPublished, at
	s.videos[id] = video
	return video, nil
}

func (s *memVideos) Delete(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	delete(s.videos, id)
	return video, nil
}

func (s *memVideos) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.videos[id]
	return ok
}

type memComments struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func (s *memComments) Create(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return nil
}

func (s *memComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *memComments) Update(_ context.Context, id, content string, at time.Time) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content, comment.UpdatedAt = content, at
	s.comments[id] = comment
	return comment, nil
}

func (s *memComments) Delete(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	delete(s.comments, id)
	return comment, nil
}

type memTweets struct {
	mu     sync.Mutex
	tweets map[string]models.Tweet
}

func (s *memTweets) Create(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *memTweets) FindByID(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *memTweets) Update(_ context.Context, id, content string, at time.Time) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	tweet.Content, tweet.UpdatedAt = content, at
	s.tweets[id] = tweet
	return tweet, nil
}

func (s *memTweets) Delete(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return tweet, nil
}

// memLikes only accepts likes on videos known to the video store.
type memLikes struct {
	mu     sync.Mutex
	videos *memVideos
	likes  map[string]models.Like
}

func likeKey(subject models.LikeSubject, userID string) string {
	return string(subject.Kind) + "/" + subject.ID + "/" + userID
}

func (s *memLikes) Toggle(_ context.Context, subject models.LikeSubject, userID string) (models.Like, bool, error) {
	if subject.Kind != models.SubjectVideo || !s.videos.has(subject.ID) {
		return models.Like{}, false, repositories.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := likeKey(subject, userID)
	if existing, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return existing, false, nil
	}
	like := models.Like{ID: uuid.NewString(), LikedBy: userID, Subject: subject}
	s.likes[key] = like
	return like, true, nil
}

func (s *memLikes) count(subject models.LikeSubject) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, like := range s.likes {
		if like.Subject == subject {
			n++
		}
	}
	return n
}

type memSubscriptions struct {
	mu    sync.Mutex
	users *memUsers
	subs  map[string]models.Subscription
}

func (s *memSubscriptions) Toggle(ctx context.Context, subscriberID, channelID string) (models.Subscription, bool, error) {
	if _, err := s.users.FindByID(ctx, channelID); err != nil {
		return models.Subscription{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subscriberID + "/" + channelID
	if existing, ok := s.subs[key]; ok {
		delete(s.subs, key)
		return existing, false, nil
	}
	sub := models.Subscription{ID: uuid.NewString(), SubscriberID: subscriberID, ChannelID: channelID}
	s.subs[key] = sub
	return sub, true, nil
}

type memPlaylists struct {
	mu        sync.Mutex
	videos    *memVideos
	playlists map[string]models.Playlist
}

func (s *memPlaylists) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *memPlaylists) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *memPlaylists) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Playlist{}
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, playlist)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memPlaylists) Update(_ context.Context, id, name, description string, at time.Time) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.Name, playlist.Description, playlist.UpdatedAt = name, description, at
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *memPlaylists) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *memPlaylists) AddVideo(_ context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	if !s.videos.has(videoID) {
		return models.Playlist{}, repositories.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	for _, id := range playlist.Videos {
		if id == videoID {
			return models.Playlist{}, repositories.ErrConflict
		}
	}
	playlist.Videos = append(append([]string{}, playlist.Videos...), videoID)
	playlist.UpdatedAt = at
	s.playlists[playlistID] = playlist
	return playlist, nil
}

func (s *memPlaylists) RemoveVideo(_ context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	kept := []string{}
	for _, id := range playlist.Videos {
		if id != videoID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(playlist.Videos) {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.Videos, playlist.UpdatedAt = kept, at
	s.playlists[playlistID] = playlist
	return playlist, nil
}

type memNotes struct {
	mu     sync.Mutex
	videos *memVideos
	notes  map[string]models.Note
}

func (s *memNotes) Find(_ context.Context, ownerID, videoID string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[ownerID+"/"+videoID]
	if !ok {
		return models.Note{}, repositories.ErrNotFound
	}
	return note, nil
}

func (s *memNotes) Create(_ context.Context, note models.Note) error {
	if !s.videos.has(note.VideoID) {
		return repositories.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := note.OwnerID + "/" + note.VideoID
	if _, ok := s.notes[key]; ok {
		return repositories.ErrConflict
	}
	s.notes[key] = note
	return nil
}

func (s *memNotes) Update(_ context.Context, ownerID, videoID, content string, at time.Time) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerID + "/" + videoID
	note, ok := s.notes[key]
	if !ok {
		return models.Note{}, repositories.ErrNotFound
	}
	note.Content, note.UpdatedAt = content, at
	s.notes[key] = note
	return note, nil
}

func (s *memNotes) Delete(_ context.Context, ownerID, videoID string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerID + "/" + videoID
	note, ok := s.notes[key]
	if !ok {
		return models.Note{}, repositories.ErrNotFound
	}
	delete(s.notes, key)
	return note, nil
}

// stubViews answers the read-side aggregations from the in-memory stores.
type stubViews struct {
	videos *memVideos
	likes  *memLikes

	feed      []views.VideoItem
	feedQuery views.FeedQuery
}

func (v *stubViews) ChannelProfile(_ context.Context, username, _ string) (views.ChannelProfile, error) {
	return views.ChannelProfile{}, repositories.ErrNotFound
}

func (v *stubViews) WatchHistory(context.Context, string) ([]views.HistoryItem, error) {
	return []views.HistoryItem{}, nil
}

func (v *stubViews) VideoFeed(_ context.Context, q views.FeedQuery) ([]views.VideoItem, error) {
	v.feedQuery = q
	if v.feed == nil {
		return []views.VideoItem{}, nil
	}
	return v.feed, nil
}

func (v *stubViews) VideoByID(ctx context.Context, id string) (views.VideoItem, error) {
	video, err := v.videos.FindByID(ctx, id)
	if err != nil {
		return views.VideoItem{}, err
	}
	return views.VideoItem{
		ID:          video.ID,
		Title:       video.Title,
		IsPublished: video.IsPublished,
		Owner:       &views.OwnerSummary{ID: video.OwnerID},
		LikesCount:  v.likes.count(models.LikeSubject{Kind: models.SubjectVideo, ID: video.ID}),
	}, nil
}

func (v *stubViews) CommentFeed(context.Context, string, views.Page) ([]views.CommentItem, error) {
	return []views.CommentItem{}, nil
}

func (v *stubViews) TweetsByOwner(context.Context, string) ([]views.TweetItem, error) {
	return []views.TweetItem{}, nil
}

func (v *stubViews) ChannelSubscribers(context.Context, string) ([]views.SubscriberEntry, error) {
	return []views.SubscriberEntry{}, nil
}

func (v *stubViews) SubscribedChannels(context.Context, string) ([]views.SubscribedChannelEntry, error) {
	return []views.SubscribedChannelEntry{}, nil
}

func (v *stubViews) LikedVideos(context.Context, string) ([]views.LikedVideoEntry, error) {
	return []views.LikedVideoEntry{}, nil
}

func (v *stubViews) LikeCount(_ context.Context, subject models.LikeSubject) (int64, error) {
	if subject.Kind == models.SubjectVideo && !v.videos.has(subject.ID) {
		return 0, repositories.ErrNotFound
	}
	return v.likes.count(subject), nil
}

type mockMedia struct {
	mock.Mock
}

func (m *mockMedia) Upload(ctx context.Context, fh *multipart.FileHeader, kind media.Kind) (media.Asset, error) {
	args := m.Called(ctx, fh, kind)
	return args.Get(0).(media.Asset), args.Error(1)
}

func (m *mockMedia) Delete(ctx context.Context, location string) error {
	return m.Called(ctx, location).Error(0)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	router    http.Handler
	manager   *auth.Manager
	users     *memUsers
	videos    *memVideos
	comments  *memComments
	likes     *memLikes
	playlists *memPlaylists
	notes     *memNotes
	views     *stubViews
	media     *mockMedia
}

type envOption func(*Dependencies)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	users := newMemUsers()
	videos := &memVideos{videos: make(map[string]models.Video)}
	likes := &memLikes{videos: videos, likes: make(map[string]models.Like)}
	env := &testEnv{
		users:     users,
		videos:    videos,
		comments:  &memComments{comments: make(map[string]models.Comment)},
		likes:     likes,
		playlists: &memPlaylists{videos: videos, playlists: make(map[string]models.Playlist)},
		notes:     &memNotes{videos: videos, notes: make(map[string]models.Note)},
		views:     &stubViews{videos: videos, likes: likes},
		media:     &mockMedia{},
	}

	manager, err := auth.NewManager(auth.Settings{
		AccessSecret:  testAccessSecret,
		AccessTTL:     time.Hour,
		RefreshSecret: testRefreshSecret,
		RefreshTTL:    24 * time.Hour,
	}, users)
	require.NoError(t, err)
	env.manager = manager

	deps := Dependencies{
		Users:          users,
		Sessions:       manager,
		Verifier:       manager,
		Videos:         videos,
		Comments:       env.comments,
		Tweets:         &memTweets{tweets: make(map[string]models.Tweet)},
		Likes:          likes,
		Subscriptions:  &memSubscriptions{users: users, subs: make(map[string]models.Subscription)},
		Playlists:      env.playlists,
		Notes:          env.notes,
		Views:          env.views,
		Media:          env.media,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.router = NewRouter(deps)
	return env
}

// seedUser stores a user with the given password and returns it with a
// fresh access token.
func (e *testEnv) seedUser(t *testing.T, username, password string) (models.User, string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		Avatar:       "https://cdn.example.com/avatars/" + username + ".png",
		PasswordHash: hash,
	}
	require.NoError(t, e.users.Create(context.Background(), user))

	tokens, err := e.manager.Issue(context.Background(), auth.IdentityOf(user))
	require.NoError(t, err)
	return user, tokens.AccessToken
}

func (e *testEnv) seedVideo(t *testing.T, ownerID string, published bool) models.Video {
	t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		VideoFile:   "https://cdn.example.com/videos/" + uuid.NewString() + ".mp4",
		Thumbnail:   "https://cdn.example.com/thumbnails/" + uuid.NewString() + ".png",
		Title:       "clip",
		IsPublished: published,
	}
	require.NoError(t, e.videos.Create(context.Background(), video))
	return video
}

// do sends a request through the router. body may be nil, a string of JSON
// or a *multipartRequest.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewBufferString(b))
		req.Header.Set("Content-Type", "application/json")
	case *multipartRequest:
		req = httptest.NewRequest(method, path, b.body)
		req.Header.Set("Content-Type", b.contentType)
	default:
		t.Fatalf("unsupported body type %T", body)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type multipartRequest struct {
	body        *bytes.Buffer
	contentType string
}

func newMultipart(t *testing.T, fields map[string]string, files map[string]string) *multipartRequest {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("file-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &multipartRequest{body: body, contentType: writer.FormDataContentType()}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func newCookieRequest(method, path string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(cookie)
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
