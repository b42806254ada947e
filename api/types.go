package api

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	authHandler     authHandler
	userHandler     userHandler
	categoryHandler categoryHandler
	memeHandler     memeHandler
	voteHandler     voteHandler
	commentHandler  commentHandler
	imageHandler    imageHandler
	wsHandler       wsHandler
	healthHandler   healthHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"meme not found"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
}
