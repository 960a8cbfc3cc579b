package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/service"
)

type SystemHandler struct {
	support *service.SupportService
}

func NewSystemHandler(support *service.SupportService) *SystemHandler {
	return &SystemHandler{support: support}
}

func (h *SystemHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/ping", h.Ping)
	r.Post("/test-connection", h.TestConnection)

	return r
}

// POST /system/ping
// A write-path probe: proves the caller can reach the server with a body,
// past CORS and the auth middleware.
func (h *SystemHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// POST /system/test-connection
func (h *SystemHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var settings model.GlobalChatwootSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, apperrors.InvalidInput("request body", "malformed JSON"))
		return
	}

	if err := h.support.TestConnection(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Chatwoot connection OK"})
}
