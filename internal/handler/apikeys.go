package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/service"
)

type APIKeyHandler struct {
	keys *service.APIKeyService
}

func NewAPIKeyHandler(keys *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

func (h *APIKeyHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/generate", h.Generate)
	r.Delete("/{id}", h.Delete)

	return r
}

// GET /api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.keys.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// POST /api-keys/generate
// The response is the only place the full key value ever appears.
func (h *APIKeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("request body", "malformed JSON"))
		return
	}

	if err := validation.Validate(req.Name,
		validation.Required,
		validation.Length(1, 100),
	); err != nil {
		writeError(w, apperrors.InvalidInput("name", err.Error()))
		return
	}

	key, err := h.keys.Generate(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

// DELETE /api-keys/{id}
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
