package api

import (
	"net/http"

	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type commentHandler struct {
	responder      Responder
	logger         zerolog.Logger
	commentService *services.CommentService
}

func newCommentHandler(commentService *services.CommentService) commentHandler {
	logger := log.With().Str("handlerName", "commentHandler").Logger()

	return commentHandler{
		responder:      NewResponder(logger),
		logger:         logger,
		commentService: commentService,
	}
}

type CommentRequest struct {
	Text string `json:"text" validate:"notblank,max=500"`
}

// addComment posts a comment
// @Summary Add comment
// @Tags Comments
// @Accept json
// @Produce json
// @Param memeId path int true "Meme ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} services.CommentView
// @Failure 400 {object} ErrorResponse "Blank or longer than 500 characters"
// @Failure 404 {object} ErrorResponse "Not Found - Meme not found"
// @Router /api/memes/{memeId}/comments [post]
func (h commentHandler) addComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memeID, err := pathID(r, "memeId")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req CommentRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comment, err := h.commentService.AddComment(r.Context(), ctxGetIdentity(r.Context()), memeID, req.Text)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, comment)
	}
}

// @Summary List comments
// @Description Comments in the order they were posted.
// @Tags Comments
// @Produce json
// @Param memeId path int true "Meme ID"
// @Param page query int false "Zero-based page"
// @Param size query int false "Page size"
// @Success 200 {object} services.Page[services.CommentView]
// @Router /api/memes/{memeId}/comments [get]
func (h commentHandler) getComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memeID, err := pathID(r, "memeId")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		page, err := pageRequest(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comments, err := h.commentService.ListComments(r.Context(), memeID, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, comments)
	}
}

// @Summary Recent comments
// @Description Every comment on the meme, newest first.
// @Tags Comments
// @Produce json
// @Param memeId path int true "Meme ID"
// @Success 200 {array} services.CommentView
// @Router /api/memes/{memeId}/comments/recent [get]
func (h commentHandler) getRecentComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memeID, err := pathID(r, "memeId")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comments, err := h.commentService.RecentComments(r.Context(), memeID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, comments)
	}
}
