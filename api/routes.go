package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAuthRateLimit is the number of /api/auth requests allowed per IP per minute.
const DefaultAuthRateLimit = 20

func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, authRateLimit int) {
	r.Get("/healthz", handlers.healthHandler.check())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/uploads/{fileName}", handlers.imageHandler.serveImage())
	r.Get("/ws", handlers.wsHandler.connect())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(authRateLimit, time.Minute))
			r.Post("/signup", handlers.authHandler.signup())
			r.Post("/signin", handlers.authHandler.signin())
		})

		// Public reads
		r.Get("/memes", handlers.memeHandler.getMemes())
		r.Get("/memes/{memeId}", handlers.memeHandler.getMeme())
		r.Get("/memes/{memeId}/comments", handlers.commentHandler.getComments())
		r.Get("/memes/{memeId}/comments/recent", handlers.commentHandler.getRecentComments())
		r.Get("/categories", handlers.categoryHandler.getAllCategories())

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.authenticate)

			r.Post("/memes", handlers.memeHandler.createMeme())
			r.Post("/memes/batch", handlers.memeHandler.createMemes())
			r.Post("/memes/{memeId}/votes", handlers.voteHandler.toggleVote())
			r.Post("/memes/{memeId}/comments", handlers.commentHandler.addComment())
			r.Post("/categories", handlers.categoryHandler.createCategory())

			r.Get("/users/me", handlers.userHandler.getMe())
			r.Put("/users/me", handlers.userHandler.updateMe())
			r.Post("/users/me/profile-picture", handlers.userHandler.updateProfilePicture())
		})
	})
}
