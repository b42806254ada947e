package api

import (
	"net/http"

	"github.com/memevote/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type categoryHandler struct {
	responder       Responder
	logger          zerolog.Logger
	categoryService *services.CategoryService
}

func newCategoryHandler(categoryService *services.CategoryService) categoryHandler {
	logger := log.With().Str("handlerName", "categoryHandler").Logger()

	return categoryHandler{
		responder:       NewResponder(logger),
		logger:          logger,
		categoryService: categoryService,
	}
}

type CategoryRequest struct {
	Name string `json:"name" validate:"notblank,max=50"`
}

// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} services.CategoryView
// @Router /api/categories [get]
func (h categoryHandler) getAllCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.categoryService.List(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, categories)
	}
}

// createCategory returns the named category, creating it if needed
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param request body CategoryRequest true "Category"
// @Success 200 {object} services.CategoryView
// @Router /api/categories [post]
func (h categoryHandler) createCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category, err := h.categoryService.FindOrCreate(r.Context(), req.Name)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, category)
	}
}
