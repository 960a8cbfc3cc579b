package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/service"
)

type InstanceHandler struct {
	instances *service.InstanceService
}

func NewInstanceHandler(instances *service.InstanceService) *InstanceHandler {
	return &InstanceHandler{instances: instances}
}

func (h *InstanceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/fetchInstances", h.FetchInstances)
	r.Post("/create", h.Create)
	r.Delete("/delete/{instanceName}", h.Delete)
	r.Get("/connect/{instanceName}", h.Connect)
	r.Delete("/logout/{instanceName}", h.Logout)
	r.Get("/message/fetchMessages/{instanceName}", h.FetchMessages)

	return r
}

// GET /instance/fetchInstances
// Returns the reconciled instance list: remote state merged into the local
// collection, with derived presentation fields.
func (h *InstanceHandler) FetchInstances(w http.ResponseWriter, r *http.Request) {
	instances, _, err := h.instances.Reconcile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]model.InstanceView, 0, len(instances))
	for _, inst := range instances {
		views = append(views, inst.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// POST /instance/create
func (h *InstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperrors.InvalidInput("request body", "malformed JSON"))
		return
	}

	name, _ := payload["instanceName"].(string)
	if name == "" {
		writeError(w, apperrors.MissingRequired("instanceName"))
		return
	}

	params := service.CreateInstanceParams{
		InstanceName: name,
		Payload:      payload,
	}

	if raw, ok := payload["chatwootIntegration"]; ok {
		data, err := json.Marshal(raw)
		if err == nil {
			var integration service.ChatwootIntegrationRequest
			if err := json.Unmarshal(data, &integration); err != nil {
				writeError(w, apperrors.InvalidInput("chatwootIntegration", "malformed object"))
				return
			}
			params.ChatwootIntegration = &integration
		}
	}

	instance, err := h.instances.Create(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("instance", instance.Name).Msg("instance created")
	writeJSON(w, http.StatusCreated, instance.View())
}

// DELETE /instance/delete/{instanceName}
func (h *InstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instanceName")
	if err := h.instances.Delete(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "instance": name})
}

// GET /instance/connect/{instanceName}
// Returns the pairing QR code as bare base64 image data.
func (h *InstanceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instanceName")
	code, err := h.instances.Connect(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64": code})
}

// DELETE /instance/logout/{instanceName}
func (h *InstanceHandler) Logout(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instanceName")
	raw, err := h.instances.Logout(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// GET /instance/message/fetchMessages/{instanceName}
// Always responds with a JSON array, whatever shape the provider used.
func (h *InstanceHandler) FetchMessages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instanceName")
	raw, err := h.instances.FetchMessages(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
