package api

import (
	"net/http"

	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type voteHandler struct {
	responder   Responder
	logger      zerolog.Logger
	voteService *services.VoteService
}

func newVoteHandler(voteService *services.VoteService) voteHandler {
	logger := log.With().Str("handlerName", "voteHandler").Logger()

	return voteHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		voteService: voteService,
	}
}

// toggleVote adds the caller's vote, or removes it if already present
// @Summary Toggle vote
// @Tags Votes
// @Produce json
// @Param memeId path int true "Meme ID"
// @Success 200 {object} MessageResponse "Vote added successfully / Vote removed successfully"
// @Failure 404 {object} ErrorResponse "Not Found - Meme not found"
// @Router /api/memes/{memeId}/votes [post]
func (h voteHandler) toggleVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memeID, err := pathID(r, "memeId")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.voteService.ToggleVote(r.Context(), ctxGetIdentity(r.Context()), memeID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if result.Added {
			h.responder.WriteMessage(w, http.StatusOK, "Vote added successfully")
			return
		}
		h.responder.WriteMessage(w, http.StatusOK, "Vote removed successfully")
	}
}
