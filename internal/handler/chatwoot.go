package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/service"
)

// ChatwootHandler groups everything under /chatwoot: the integration config
// endpoint plus the conversation proxy used by the support console.
type ChatwootHandler struct {
	configs *service.ConfigService
	support *service.SupportService
}

func NewChatwootHandler(configs *service.ConfigService, support *service.SupportService) *ChatwootHandler {
	return &ChatwootHandler{configs: configs, support: support}
}

func (h *ChatwootHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/set/{instanceName}", h.SetConfig)
	r.Post("/test-connection", h.TestConnection)
	r.Get("/conversations/{instanceName}", h.Conversations)
	r.Get("/messages/{instanceName}/{conversationId}", h.Messages)
	r.Post("/messages/{instanceName}/{conversationId}", h.SendMessage)

	return r
}

// POST /chatwoot/set/{instanceName}
func (h *ChatwootHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	patch, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.configs.SetChatwoot(r.Context(), chi.URLParam(r, "instanceName"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// POST /chatwoot/test-connection
func (h *ChatwootHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
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

// GET /chatwoot/conversations/{instanceName}
func (h *ChatwootHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	raw, err := h.support.Conversations(r.Context(), chi.URLParam(r, "instanceName"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, raw)
}

// GET /chatwoot/messages/{instanceName}/{conversationId}
func (h *ChatwootHandler) Messages(w http.ResponseWriter, r *http.Request) {
	raw, err := h.support.Messages(r.Context(),
		chi.URLParam(r, "instanceName"), chi.URLParam(r, "conversationId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, raw)
}

// POST /chatwoot/messages/{instanceName}/{conversationId}
func (h *ChatwootHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	raw, err := h.support.SendMessage(r.Context(),
		chi.URLParam(r, "instanceName"), chi.URLParam(r, "conversationId"), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, raw)
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
