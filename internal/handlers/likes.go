package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
)

// LikeHandler implements the like endpoints for videos, comments and tweets.
type LikeHandler struct {
	Likes LikeStore
	Views ViewStore
}

type likeToggleResponse struct {
	Liked bool        `json:"liked"`
	Like  models.Like `json:"like"`
}

type likeCountResponse struct {
	LikesCount int64 `json:"likesCount"`
}

var likeSubjects = map[models.LikeSubjectKind]struct {
	param    string
	label    string
	notFound string
}{
	models.SubjectVideo:   {param: "videoId", label: "Video", notFound: "Video not found"},
	models.SubjectComment: {param: "commentId", label: "Comment", notFound: "Comment not found"},
	models.SubjectTweet:   {param: "tweetId", label: "Tweet", notFound: "Tweet not found"},
}

// Toggle returns the endpoint that likes or unlikes a subject of kind. It
// serves POST /api/v1/likes/toggle/{v,c,t}/{id}.
func (h LikeHandler) Toggle(kind models.LikeSubjectKind) handlerFunc {
	meta := likeSubjects[kind]
	return func(w http.ResponseWriter, r Request) error {
		viewer, err := r.viewer()
		if err != nil {
			return err
		}
		id, err := r.pathID(meta.param)
		if err != nil {
			return err
		}

		like, liked, err := h.Likes.Toggle(r.Context(), models.LikeSubject{Kind: kind, ID: id}, viewer.ID)
		if err != nil {
			return notFound(err, meta.notFound)
		}
		metrics.TogglesTotal.WithLabelValues("like_"+string(kind), metrics.ToggleState(liked)).Inc()

		message := meta.label + " is removed from liked successfully"
		if liked {
			message = meta.label + " is liked successfully"
		}
		response.OK(r.Context(), w, likeToggleResponse{Liked: liked, Like: like}, message)
		return nil
	}
}

// Count returns the endpoint serving GET /api/v1/likes/count/{v,c,t}/{id}.
func (h LikeHandler) Count(kind models.LikeSubjectKind) handlerFunc {
	meta := likeSubjects[kind]
	return func(w http.ResponseWriter, r Request) error {
		id, err := r.pathID(meta.param)
		if err != nil {
			return err
		}

		count, err := h.Views.LikeCount(r.Context(), models.LikeSubject{Kind: kind, ID: id})
		if err != nil {
			return notFound(err, meta.notFound)
		}

		response.OK(r.Context(), w, likeCountResponse{LikesCount: count}, "Likes counted successfully")
		return nil
	}
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}

	entries, err := h.Views.LikedVideos(r.Context(), viewer.ID)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, entries, "Liked videos fetched successfully")
	return nil
}
