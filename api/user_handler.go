package api

import (
	"net/http"

	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type userHandler struct {
	responder      Responder
	logger         zerolog.Logger
	userService    *services.UserService
	maxUploadBytes int64
}

func newUserHandler(userService *services.UserService, maxUploadBytes int64) userHandler {
	logger := log.With().Str("handlerName", "userHandler").Logger()

	return userHandler{
		responder:      NewResponder(logger),
		logger:         logger,
		userService:    userService,
		maxUploadBytes: maxUploadBytes,
	}
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"notblank,min=3,max=20"`
}

// getMe returns the caller's profile
// @Summary Current user
// @Tags Users
// @Produce json
// @Success 200 {object} services.UserSummary
// @Failure 401 {object} ErrorResponse
// @Router /api/users/me [get]
func (h userHandler) getMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, err := h.userService.Me(r.Context(), ctxGetIdentity(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, me)
	}
}

// updateMe changes the caller's username
// @Summary Update profile
// @Tags Users
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "New username"
// @Success 200 {object} MessageResponse "Profile updated successfully!"
// @Failure 400 {object} MessageResponse "Error: Username is already taken!"
// @Router /api/users/me [put]
func (h userHandler) updateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.userService.UpdateUsername(r.Context(), ctxGetIdentity(r.Context()), req.Username); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteMessage(w, http.StatusOK, "Profile updated successfully!")
	}
}

// updateProfilePicture replaces the caller's profile picture
// @Summary Upload profile picture
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} MessageResponse "Profile picture updated successfully!"
// @Failure 400 {object} ErrorResponse "Not an image"
// @Router /api/users/me/profile-picture [post]
func (h userHandler) updateProfilePicture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		files := formFiles(r, "file")
		if len(files) == 0 {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			return
		}
		upload, err := readUpload(files[0])
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if _, err := h.userService.UpdateProfilePicture(r.Context(), ctxGetIdentity(r.Context()), upload); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteMessage(w, http.StatusOK, "Profile picture updated successfully!")
	}
}
