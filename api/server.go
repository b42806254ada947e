package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/memevote/backend/config"
	"github.com/memevote/backend/monitoring"
	"github.com/rs/zerolog/log"
)

const DefaultShutdownTimeout = 30 * time.Second

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, svc Services) (Server, error) {
	if svc.Auth == nil || svc.Hub == nil {
		return Server{}, errors.New("auth service and event hub are required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	startupTime := time.Now()

	router := newRouter(svc, withConfig(c), withStartupTime(startupTime))

	readTimeout := time.Duration(config.GetInt(c, "READ_TIMEOUT_SECONDS", 180)) * time.Second
	writeTimeout := time.Duration(config.GetInt(c, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second
	idleTimeout := time.Duration(config.GetInt(c, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second

	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(svc Services, opts ...func(*router)) *chi.Mux {
	router := router{startupTime: time.Now()}
	for _, opt := range opts {
		opt(&router)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(HTTPLoggingMiddleware)
	chiRouter.Use(monitoring.InstrumentHandler)

	acceptedOrigins := config.GetStrings(router.config, "ACCEPTED_ORIGINS")
	chiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   acceptedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMiddleware := newAuthMiddleware(svc.Auth)
	chiRouter.Use(authMiddleware.identify)

	handlers := initializeHandlers(svc, router.config, router.startupTime)
	authRateLimit := config.GetInt(router.config, "AUTH_RATE_LIMIT_PER_MINUTE", DefaultAuthRateLimit)
	setupRoutes(chiRouter, handlers, authMiddleware, authRateLimit)

	return chiRouter
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s Server) Run(ctx context.Context) error {
	errChannel := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server started on: %s", s.Addr)
		errChannel <- s.ListenAndServe()
	}()

	select {
	case err := <-errChannel:
		return err
	case <-ctx.Done():
		s.ShutdownGracefully(DefaultShutdownTimeout)
		return nil
	}
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
