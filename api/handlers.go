package api

import (
	"time"

	"github.com/memevote/backend/config"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/services"
)

// Services is everything the HTTP layer delegates to.
type Services struct {
	Auth       *services.AuthService
	Users      *services.UserService
	Categories *services.CategoryService
	Memes      *services.MemeService
	Votes      *services.VoteService
	Comments   *services.CommentService
	Images     *services.ImageService
	Hub        *events.Hub
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(svc Services, c map[string]string, startupTime time.Time) *routeHandlers {
	maxUploadBytes := int64(config.GetInt(c, "MAX_UPLOAD_MB", DefaultMaxUploadMB)) << 20

	return &routeHandlers{
		authHandler:     newAuthHandler(svc.Auth),
		userHandler:     newUserHandler(svc.Users, maxUploadBytes),
		categoryHandler: newCategoryHandler(svc.Categories),
		memeHandler:     newMemeHandler(svc.Memes, maxUploadBytes),
		voteHandler:     newVoteHandler(svc.Votes),
		commentHandler:  newCommentHandler(svc.Comments),
		imageHandler:    newImageHandler(svc.Images),
		wsHandler:       newWsHandler(svc.Hub, config.GetStrings(c, "ACCEPTED_ORIGINS")),
		healthHandler:   newHealthHandler(startupTime),
	}
}
