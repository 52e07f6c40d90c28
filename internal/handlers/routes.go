package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Verifier      middleware.TokenVerifier
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Notes         NoteStore
	Views         ViewStore
	Media         MediaStore
	DB            Pinger
	RateLimiter   middleware.RateLimiter

	Logger         *slog.Logger
	CORSOrigins    []string
	CookieSecure   bool
	MaxUploadBytes int64
}

// NewRouter wires every HTTP endpoint into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(r.Context(), w, apierror.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(r.Context(), w, &apierror.Error{StatusCode: http.StatusMethodNotAllowed, Message: "Method not allowed"})
	})

	health := HealthHandler{DB: deps.DB}
	r.Method(http.MethodGet, "/healthz", handlerFunc(health.Handle))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	users := UserHandler{
		Users:          deps.Users,
		Sessions:       deps.Sessions,
		Views:          deps.Views,
		Media:          deps.Media,
		CookieSecure:   deps.CookieSecure,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Users:          deps.Users,
		Views:          deps.Views,
		Media:          deps.Media,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Views: deps.Views}
	tweets := TweetHandler{Tweets: deps.Tweets, Views: deps.Views}
	likes := LikeHandler{Likes: deps.Likes, Views: deps.Views}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Views: deps.Views}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	notes := NoteHandler{Notes: deps.Notes}

	authenticate := middleware.Authenticate(deps.Verifier, deps.Users)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(middleware.RateLimit(deps.RateLimiter, "auth"))
				}
				r.Method(http.MethodPost, "/register", handlerFunc(users.Register))
				r.Method(http.MethodPost, "/login", handlerFunc(users.Login))
				r.Method(http.MethodPost, "/refresh-token", handlerFunc(users.RefreshToken))
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Method(http.MethodPost, "/logout", handlerFunc(users.Logout))
				r.Method(http.MethodPost, "/change-password", handlerFunc(users.ChangePassword))
				r.Method(http.MethodGet, "/current-user", handlerFunc(users.CurrentUser))
				r.Method(http.MethodPatch, "/update-account", handlerFunc(users.UpdateAccount))
				r.Method(http.MethodPatch, "/avatar", handlerFunc(users.UpdateAvatar))
				r.Method(http.MethodPatch, "/cover-image", handlerFunc(users.UpdateCoverImage))
				r.Method(http.MethodGet, "/c/{username}", handlerFunc(users.ChannelProfile))
				r.Method(http.MethodGet, "/history", handlerFunc(users.WatchHistory))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/videos", func(r chi.Router) {
				r.Method(http.MethodGet, "/", handlerFunc(videos.List))
				r.Method(http.MethodPost, "/", handlerFunc(videos.Publish))
				r.Method(http.MethodGet, "/{videoId}", handlerFunc(videos.Get))
				r.Method(http.MethodPatch, "/{videoId}", handlerFunc(videos.Update))
				r.Method(http.MethodDelete, "/{videoId}", handlerFunc(videos.Delete))
				r.Method(http.MethodPatch, "/toggle/publish/{videoId}", handlerFunc(videos.TogglePublish))
			})

			r.Route("/comments", func(r chi.Router) {
				r.Method(http.MethodGet, "/{videoId}", handlerFunc(comments.List))
				r.Method(http.MethodPost, "/{videoId}", handlerFunc(comments.Add))
				r.Method(http.MethodPatch, "/c/{commentId}", handlerFunc(comments.Update))
				r.Method(http.MethodDelete, "/c/{commentId}", handlerFunc(comments.Delete))
			})

			r.Route("/likes", func(r chi.Router) {
				r.Method(http.MethodPost, "/toggle/v/{videoId}", likes.Toggle(models.SubjectVideo))
				r.Method(http.MethodPost, "/toggle/c/{commentId}", likes.Toggle(models.SubjectComment))
				r.Method(http.MethodPost, "/toggle/t/{tweetId}", likes.Toggle(models.SubjectTweet))
				r.Method(http.MethodGet, "/videos", handlerFunc(likes.LikedVideos))
				r.Method(http.MethodGet, "/count/v/{videoId}", likes.Count(models.SubjectVideo))
				r.Method(http.MethodGet, "/count/c/{commentId}", likes.Count(models.SubjectComment))
				r.Method(http.MethodGet, "/count/t/{tweetId}", likes.Count(models.SubjectTweet))
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Method(http.MethodPost, "/c/{channelId}", handlerFunc(subscriptions.Toggle))
				r.Method(http.MethodGet, "/c/{channelId}", handlerFunc(subscriptions.Subscribers))
				r.Method(http.MethodGet, "/u/{subscriberId}", handlerFunc(subscriptions.SubscribedChannels))
			})

			r.Route("/playlists", func(r chi.Router) {
				r.Method(http.MethodPost, "/", handlerFunc(playlists.Create))
				r.Method(http.MethodGet, "/user/{userId}", handlerFunc(playlists.ListByUser))
				r.Method(http.MethodGet, "/{playlistId}", handlerFunc(playlists.Get))
				r.Method(http.MethodPatch, "/{playlistId}", handlerFunc(playlists.Update))
				r.Method(http.MethodDelete, "/{playlistId}", handlerFunc(playlists.Delete))
				r.Method(http.MethodPatch, "/add/{videoId}/{playlistId}", handlerFunc(playlists.AddVideo))
				r.Method(http.MethodPatch, "/remove/{videoId}/{playlistId}", handlerFunc(playlists.RemoveVideo))
			})

			r.Route("/notes", func(r chi.Router) {
				r.Method(http.MethodGet, "/{videoId}", handlerFunc(notes.Get))
				r.Method(http.MethodPost, "/{videoId}", handlerFunc(notes.Save))
				r.Method(http.MethodPatch, "/{videoId}", handlerFunc(notes.Edit))
				r.Method(http.MethodDelete, "/{videoId}", handlerFunc(notes.Delete))
			})

			r.Route("/tweets", func(r chi.Router) {
				r.Method(http.MethodPost, "/", handlerFunc(tweets.Create))
				r.Method(http.MethodGet, "/user/{userId}", handlerFunc(tweets.ListByUser))
				r.Method(http.MethodPatch, "/{tweetId}", handlerFunc(tweets.Update))
				r.Method(http.MethodDelete, "/{tweetId}", handlerFunc(tweets.Delete))
			})
		})
	})

	return r
}
