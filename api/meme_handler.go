package api

import (
	"encoding/json"
	"net/http"

	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type memeHandler struct {
	responder      Responder
	logger         zerolog.Logger
	memeService    *services.MemeService
	maxUploadBytes int64
}

func newMemeHandler(memeService *services.MemeService, maxUploadBytes int64) memeHandler {
	logger := log.With().Str("handlerName", "memeHandler").Logger()

	return memeHandler{
		responder:      NewResponder(logger),
		logger:         logger,
		memeService:    memeService,
		maxUploadBytes: maxUploadBytes,
	}
}

// MemeRequest is the "meme" part of a create request.
type MemeRequest struct {
	Title      string   `json:"title" validate:"notblank,max=100"`
	Categories []string `json:"categories"`
}

// getMemes lists memes
// @Summary List memes
// @Description Filters combine: categories (any of), owner username, case-insensitive title substring.
// @Tags Memes
// @Produce json
// @Param categories query []string false "Category names"
// @Param username query string false "Owner username"
// @Param title query string false "Title substring"
// @Param page query int false "Zero-based page"
// @Param size query int false "Page size, at most 100"
// @Param sort query string false "createdAt|title|voteCount|id[,asc|desc]"
// @Success 200 {object} services.Page[services.MemeView]
// @Router /api/memes [get]
func (h memeHandler) getMemes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageRequest(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		query := r.URL.Query()
		filter := services.MemeFilter{
			Categories: listValues(query["categories"]),
			Username:   query.Get("username"),
			Title:      query.Get("title"),
		}

		memes, err := h.memeService.GetMemes(r.Context(), ctxGetIdentity(r.Context()), filter, page)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, memes)
	}
}

// getMeme returns one meme
// @Summary Get meme
// @Tags Memes
// @Produce json
// @Param memeId path int true "Meme ID"
// @Success 200 {object} services.MemeView
// @Failure 404 {object} ErrorResponse "Not Found - Meme not found"
// @Router /api/memes/{memeId} [get]
func (h memeHandler) getMeme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "memeId")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		meme, err := h.memeService.GetMemeByID(r.Context(), ctxGetIdentity(r.Context()), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, meme)
	}
}

// createMeme uploads one meme
// @Summary Create meme
// @Tags Memes
// @Accept multipart/form-data
// @Produce json
// @Param meme formData string true "JSON {title, categories}"
// @Param file formData file true "Image"
// @Success 200 {object} services.MemeView
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid meme or image"
// @Router /api/memes [post]
func (h memeHandler) createMeme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		raw, ok, err := readFormPart(r, "meme")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !ok {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("meme"))
			return
		}
		var req MemeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.responder.WriteError(w, errs.NewInvalidJSONError(err))
			return
		}
		if err := validateStruct(req); err != nil {
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

		meme, err := h.memeService.CreateMeme(r.Context(), ctxGetIdentity(r.Context()),
			services.MemeInput{Title: req.Title, Categories: req.Categories}, upload)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, meme)
	}
}

// createMemes uploads several memes titled after their filenames
// @Summary Batch create memes
// @Description Each file is committed on its own; a failure leaves earlier memes in place.
// @Tags Memes
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Images"
// @Param categories formData string false "Category names applied to every meme"
// @Success 200 {array} services.MemeView
// @Router /api/memes/batch [post]
func (h memeHandler) createMemes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		files := append(formFiles(r, "files"), formFiles(r, "files[]")...)
		if len(files) == 0 {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("files"))
			return
		}

		uploads := make([]services.Upload, 0, len(files))
		for _, fh := range files {
			upload, err := readUpload(fh)
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
			uploads = append(uploads, upload)
		}

		categories, err := formList(r, "categories")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		memes, err := h.memeService.CreateMemes(r.Context(), ctxGetIdentity(r.Context()), uploads, categories)
		if err != nil {
			h.logger.Warn().Err(err).Int("created", len(memes)).Int("files", len(uploads)).Msg("batch upload stopped early")
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, memes)
	}
}
