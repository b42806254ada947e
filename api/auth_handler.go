package api

import (
	"net/http"

	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type authHandler struct {
	responder   Responder
	logger      zerolog.Logger
	authService *services.AuthService
}

func newAuthHandler(authService *services.AuthService) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		authService: authService,
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"notblank,min=3,max=20"`
	Email    string `json:"email" validate:"notblank,max=50,email"`
	Password string `json:"password" validate:"notblank,min=6,max=40"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// signup registers a new account
// @Summary Sign up
// @Description Registers a user. The username is checked before the email.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Account details"
// @Success 200 {object} MessageResponse "User registered successfully!"
// @Failure 400 {object} MessageResponse "Username taken or email in use"
// @Router /api/auth/signup [post]
func (h authHandler) signup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		_, err := h.authService.Signup(r.Context(), services.SignupInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteMessage(w, http.StatusOK, "User registered successfully!")
	}
}

// signin exchanges credentials for a bearer token
// @Summary Sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SigninRequest true "Credentials"
// @Success 200 {object} services.SigninResult
// @Failure 401 {object} ErrorResponse "Wrong email or password"
// @Router /api/auth/signin [post]
func (h authHandler) signin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SigninRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.authService.Signin(r.Context(), req.Email, req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, result)
	}
}
