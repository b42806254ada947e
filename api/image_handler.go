package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type imageHandler struct {
	responder    Responder
	logger       zerolog.Logger
	imageService *services.ImageService
}

func newImageHandler(imageService *services.ImageService) imageHandler {
	logger := log.With().Str("handlerName", "imageHandler").Logger()

	return imageHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		imageService: imageService,
	}
}

// serveImage streams a stored image
// @Summary Get image
// @Tags Images
// @Produce image/*
// @Param fileName path string true "Stored file name"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse "Image not found"
// @Router /uploads/{fileName} [get]
func (h imageHandler) serveImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blob, err := h.imageService.Get(r.Context(), chi.URLParam(r, "fileName"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		w.Header().Set("Content-Type", blob.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(blob.Data); err != nil {
			h.logger.Debug().Err(err).Str("image", blob.Name).Msg("client went away")
		}
	}
}
