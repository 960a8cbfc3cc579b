package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fluow/panel-server/internal/audit"
	"github.com/fluow/panel-server/internal/chatwoot"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/evolution"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/normalize"
	"github.com/fluow/panel-server/internal/store"
)

// InstanceService owns the instance lifecycle and the reconciliation between
// the remote provider (truth for connectivity and identity) and the local
// config store (truth for integration settings).
type InstanceService struct {
	store    *store.Store
	evo      evolution.API
	chatwoot chatwoot.API
}

func NewInstanceService(st *store.Store, evo evolution.API, cw chatwoot.API) *InstanceService {
	return &InstanceService{store: st, evo: evo, chatwoot: cw}
}

// Reconcile merges the remote instance list into the local collection and
// persists any drift. It returns the merged collection and whether anything
// had to be written; running it again with unchanged remote data reports no
// drift.
func (s *InstanceService) Reconcile(ctx context.Context) ([]model.Instance, bool, error) {
	remote, err := s.evo.FetchInstances(ctx)
	if err != nil {
		return nil, false, err
	}

	byName := make(map[string]evolution.RemoteInstance, len(remote))
	for _, r := range remote {
		byName[r.InstanceName] = r
	}

	var merged []model.Instance
	dirty := false

	err = s.store.Update(func(doc *store.Document) (bool, error) {
		for i := range doc.Instances {
			inst := &doc.Instances[i]
			if r, ok := byName[inst.Name]; ok {
				// Remote wins for status and identity; config fields are
				// never touched here.
				if inst.Status != r.Status || inst.OwnerJID != r.Owner || inst.ProfileName != r.ProfileName {
					inst.Status = r.Status
					inst.OwnerJID = r.Owner
					inst.ProfileName = r.ProfileName
					dirty = true
				}
				delete(byName, inst.Name)
			} else if inst.Status != model.StateClose {
				// Known locally but gone remotely: it cannot be connected.
				inst.Status = model.StateClose
				dirty = true
			}
		}

		// Remote instances we have never seen get backfilled with disabled
		// integrations, preserving the remote list order.
		for _, r := range remote {
			if _, pending := byName[r.InstanceName]; !pending {
				continue
			}
			doc.Instances = append(doc.Instances, newLocalInstance(r))
			delete(byName, r.InstanceName)
			dirty = true
			log.Info().Str("instance", r.InstanceName).Msg("discovered remote instance, backfilled locally")
		}

		merged = make([]model.Instance, len(doc.Instances))
		copy(merged, doc.Instances)
		return dirty, nil
	})
	if err != nil {
		return nil, false, apperrors.Store(err)
	}

	if dirty {
		log.Debug().Int("count", len(merged)).Msg("instance collection reconciled with drift")
	}
	return merged, dirty, nil
}

func newLocalInstance(r evolution.RemoteInstance) model.Instance {
	return model.Instance{
		ID:          uuid.NewString(),
		Name:        r.InstanceName,
		Status:      r.Status,
		OwnerJID:    r.Owner,
		ProfileName: r.ProfileName,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Webhook:     model.DefaultWebhookConfig(),
		Chatwoot:    model.DefaultChatwootConfig(),
		OpenAI:      model.DefaultOpenAIConfig(),
		Gemini:      model.DefaultGeminiConfig(),
	}
}

// ChatwootIntegrationRequest asks for inbox auto-provisioning during
// instance creation.
type ChatwootIntegrationRequest struct {
	Automate bool                         `json:"automate"`
	Settings model.GlobalChatwootSettings `json:"settings"`
}

// CreateInstanceParams carries the caller payload. Payload holds the raw
// body forwarded to the provider (minus panel-internal keys).
type CreateInstanceParams struct {
	InstanceName        string
	ChatwootIntegration *ChatwootIntegrationRequest
	Payload             map[string]any
}

// Create provisions the instance remotely and persists it locally. With
// automation requested, a Chatwoot inbox is created first and its webhook
// wired into the provider payload.
func (s *InstanceService) Create(ctx context.Context, params CreateInstanceParams) (*model.Instance, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, apperrors.Store(err)
	}
	if store.FindInstance(&doc, params.InstanceName) != nil {
		return nil, apperrors.AlreadyExists(fmt.Sprintf("Instance %q", params.InstanceName))
	}

	payload := make(map[string]any, len(params.Payload))
	for k, v := range params.Payload {
		payload[k] = v
	}
	delete(payload, "chatwootIntegration")

	webhookCfg := model.DefaultWebhookConfig()
	chatwootCfg := model.DefaultChatwootConfig()

	if params.ChatwootIntegration != nil && params.ChatwootIntegration.Automate {
		settings := params.ChatwootIntegration.Settings
		inbox, err := s.provisionInbox(ctx, settings, params.InstanceName)
		if err != nil {
			return nil, err
		}

		// Per the provider's Chatwoot integration contract.
		payload["chatwootUrl"] = settings.APIURL
		payload["chatwootToken"] = settings.APIToken
		payload["chatwootAccountId"] = settings.AccountID
		payload["chatwootNameInbox"] = inboxName(params.InstanceName)
		payload["chatwootReopenConversation"] = true
		payload["chatwootSignMsg"] = true
		payload["webhook"] = map[string]any{
			"url":      inbox.WebhookURL,
			"byEvents": false,
			"enabled":  true,
		}

		chatwootCfg = model.ChatwootConfig{
			Enabled:   true,
			URL:       settings.APIURL,
			Token:     settings.APIToken,
			AccountID: settings.AccountID,
			InboxID:   fmt.Sprintf("%d", inbox.ID),
			InboxName: inbox.Name,
		}
		webhookCfg = model.WebhookConfig{
			Enabled: true,
			URL:     inbox.WebhookURL,
			URLs:    []string{inbox.WebhookURL},
		}
	}

	if _, err := s.evo.CreateInstance(ctx, payload); err != nil {
		return nil, err
	}

	instance := model.Instance{
		ID:        uuid.NewString(),
		Name:      params.InstanceName,
		Status:    model.StateClose,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Webhook:   webhookCfg,
		Chatwoot:  chatwootCfg,
		OpenAI:    model.DefaultOpenAIConfig(),
		Gemini:    model.DefaultGeminiConfig(),
	}

	err = s.store.Update(func(doc *store.Document) (bool, error) {
		if store.FindInstance(doc, params.InstanceName) != nil {
			return false, apperrors.AlreadyExists(fmt.Sprintf("Instance %q", params.InstanceName))
		}
		doc.Instances = append(doc.Instances, instance)
		return true, nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Store(err)
	}

	audit.Log(audit.Event{Type: audit.EventInstanceCreate, Instance: params.InstanceName})
	return &instance, nil
}

// Delete removes the instance remotely first, then locally. A remote
// failure leaves the local entry untouched.
func (s *InstanceService) Delete(ctx context.Context, name string) error {
	if err := s.evo.DeleteInstance(ctx, name); err != nil {
		return err
	}

	err := s.store.Update(func(doc *store.Document) (bool, error) {
		kept := doc.Instances[:0]
		removed := false
		for _, inst := range doc.Instances {
			if inst.Name == name {
				removed = true
				continue
			}
			kept = append(kept, inst)
		}
		doc.Instances = kept
		return removed, nil
	})
	if err != nil {
		return apperrors.Store(err)
	}

	audit.Log(audit.Event{Type: audit.EventInstanceDelete, Instance: name})
	return nil
}

// Connect asks the provider for a pairing payload and extracts the QR code.
func (s *InstanceService) Connect(ctx context.Context, name string) (string, error) {
	raw, err := s.evo.Connect(ctx, name)
	if err != nil {
		return "", err
	}
	return normalize.QRCode(name, raw)
}

// Logout disconnects the instance; the provider response passes through.
func (s *InstanceService) Logout(ctx context.Context, name string) (json.RawMessage, error) {
	return s.evo.Logout(ctx, name)
}

// FetchMessages returns the raw message history, normalized to an array.
func (s *InstanceService) FetchMessages(ctx context.Context, name string) (json.RawMessage, error) {
	raw, err := s.evo.FetchMessages(ctx, name)
	if err != nil {
		return nil, err
	}
	return normalize.Messages(raw), nil
}

func (s *InstanceService) provisionInbox(ctx context.Context, settings model.GlobalChatwootSettings, instanceName string) (*chatwoot.Inbox, error) {
	if settings.APIURL == "" || settings.APIToken == "" || settings.AccountID == "" {
		return nil, apperrors.ValidationError(
			"Chatwoot automation requires apiUrl, apiToken and accountId")
	}

	creds := chatwoot.Credentials{
		BaseURL:   settings.APIURL,
		Token:     settings.APIToken,
		AccountID: settings.AccountID,
	}

	inbox, err := s.chatwoot.CreateInbox(ctx, creds, inboxName(instanceName))
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeAutomation {
			return nil, err
		}
		return nil, apperrors.Automation("inbox creation", err)
	}

	audit.Log(audit.Event{
		Type:     audit.EventInboxProvisioned,
		Instance: instanceName,
		Details:  map[string]any{"inboxId": inbox.ID},
	})
	return inbox, nil
}

func inboxName(instanceName string) string {
	return "Evo - " + instanceName
}
