package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/service"
)

// ConfigHandler exposes the per-integration config endpoints. Each mounts as
// its own route group so the paths mirror the provider's own layout
// (webhook/set, openai/set, gemini/set).
type ConfigHandler struct {
	configs *service.ConfigService
}

func NewConfigHandler(configs *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{configs: configs}
}

func (h *ConfigHandler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/set/{instanceName}", h.SetWebhook)
	return r
}

func (h *ConfigHandler) OpenAIRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/set/{instanceName}", h.SetOpenAI)
	return r
}

func (h *ConfigHandler) GeminiRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/set/{instanceName}", h.SetGemini)
	return r
}

// POST /webhook/set/{instanceName}
func (h *ConfigHandler) SetWebhook(w http.ResponseWriter, r *http.Request) {
	patch, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.configs.SetWebhook(r.Context(), chi.URLParam(r, "instanceName"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// POST /openai/set/{instanceName}
func (h *ConfigHandler) SetOpenAI(w http.ResponseWriter, r *http.Request) {
	patch, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.configs.SetOpenAI(r.Context(), chi.URLParam(r, "instanceName"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// POST /gemini/set/{instanceName}
func (h *ConfigHandler) SetGemini(w http.ResponseWriter, r *http.Request) {
	patch, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.configs.SetGemini(r.Context(), chi.URLParam(r, "instanceName"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func readBody(r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apperrors.InvalidInput("request body", "could not read body").WithCause(err)
	}
	if len(data) == 0 {
		return nil, apperrors.MissingRequired("request body")
	}
	if !json.Valid(data) {
		return nil, apperrors.InvalidInput("request body", "malformed JSON")
	}
	return data, nil
}
