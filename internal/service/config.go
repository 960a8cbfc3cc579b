package service

import (
	"context"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog/log"

	"github.com/fluow/panel-server/internal/chatwoot"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/evolution"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/store"
)

// ConfigService applies integration config changes: merge the partial update
// onto the stored config, validate, persist locally, then push the result to
// the provider. The local store is written before the upstream call, so a
// provider failure leaves the two sides divergent until the next successful
// push; the returned error says so.
type ConfigService struct {
	store    *store.Store
	evo      evolution.API
	chatwoot chatwoot.API
}

func NewConfigService(st *store.Store, evo evolution.API, cw chatwoot.API) *ConfigService {
	return &ConfigService{store: st, evo: evo, chatwoot: cw}
}

// SetWebhook merges the patch onto the instance's webhook config and pushes
// it to the provider's webhook/set endpoint.
func (s *ConfigService) SetWebhook(ctx context.Context, instanceName string, patch json.RawMessage) (*model.WebhookConfig, error) {
	inst, err := s.findInstance(instanceName)
	if err != nil {
		return nil, err
	}

	merged := inst.Webhook
	if err := json.Unmarshal(patch, &merged); err != nil {
		return nil, apperrors.InvalidInput("webhook config", "malformed JSON body").WithCause(err)
	}

	if merged.Enabled {
		if err := validation.Validate(merged.URL, validation.Required, is.URL); err != nil {
			return nil, apperrors.InvalidInput("url", "an absolute URL is required when the webhook is enabled")
		}
	}
	if merged.URL != "" && len(merged.URLs) == 0 {
		merged.URLs = []string{merged.URL}
	}

	if err := s.saveConfig(instanceName, func(inst *model.Instance) { inst.Webhook = merged }); err != nil {
		return nil, err
	}

	if err := s.evo.SetConfig(ctx, "webhook", instanceName, merged); err != nil {
		return nil, divergence("webhook", err)
	}
	return &merged, nil
}

// SetOpenAI merges and pushes the OpenAI integration config.
func (s *ConfigService) SetOpenAI(ctx context.Context, instanceName string, patch json.RawMessage) (*model.AIConfig, error) {
	return s.setAI(ctx, "openai", instanceName, patch,
		func(inst *model.Instance) *model.AIConfig { return &inst.OpenAI })
}

// SetGemini merges and pushes the Gemini integration config.
func (s *ConfigService) SetGemini(ctx context.Context, instanceName string, patch json.RawMessage) (*model.AIConfig, error) {
	return s.setAI(ctx, "gemini", instanceName, patch,
		func(inst *model.Instance) *model.AIConfig { return &inst.Gemini })
}

func (s *ConfigService) setAI(ctx context.Context, integration, instanceName string, patch json.RawMessage, field func(*model.Instance) *model.AIConfig) (*model.AIConfig, error) {
	inst, err := s.findInstance(instanceName)
	if err != nil {
		return nil, err
	}

	merged := *field(inst)
	if err := json.Unmarshal(patch, &merged); err != nil {
		return nil, apperrors.InvalidInput(integration+" config", "malformed JSON body").WithCause(err)
	}

	if merged.Enabled {
		if err := validation.Validate(merged.APIKey, validation.Required); err != nil {
			return nil, apperrors.MissingRequired("apiKey")
		}
	}

	if err := s.saveConfig(instanceName, func(inst *model.Instance) { *field(inst) = merged }); err != nil {
		return nil, err
	}

	if err := s.evo.SetConfig(ctx, integration, instanceName, merged.Wire()); err != nil {
		return nil, divergence(integration, err)
	}
	return &merged, nil
}

// SetChatwoot merges and pushes the Chatwoot integration config. When the
// merged config asks for auto-provisioning and has no inbox yet, an inbox is
// created first and the instance webhook is rewired to it.
func (s *ConfigService) SetChatwoot(ctx context.Context, instanceName string, patch json.RawMessage) (*model.ChatwootConfig, error) {
	inst, err := s.findInstance(instanceName)
	if err != nil {
		return nil, err
	}

	merged := inst.Chatwoot
	if err := json.Unmarshal(patch, &merged); err != nil {
		return nil, apperrors.InvalidInput("chatwoot config", "malformed JSON body").WithCause(err)
	}

	if merged.Enabled {
		if err := validation.ValidateStruct(&merged,
			validation.Field(&merged.URL, validation.Required, is.URL),
			validation.Field(&merged.Token, validation.Required),
			validation.Field(&merged.AccountID, validation.Required),
		); err != nil {
			return nil, apperrors.ValidationError(
				"Chatwoot requires url, token and accountId when enabled").WithDetails(err)
		}
	}

	// Reject non-numeric IDs before any network call.
	if _, err := merged.Wire(); err != nil {
		return nil, err
	}

	var rewiredWebhook *model.WebhookConfig
	if merged.Enabled && merged.AutoCreateInbox && merged.InboxID == "" {
		inbox, err := s.chatwoot.CreateInbox(ctx, chatwoot.Credentials{
			BaseURL:   merged.URL,
			Token:     merged.Token,
			AccountID: merged.AccountID,
		}, inboxName(instanceName))
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeAutomation {
				return nil, err
			}
			return nil, apperrors.Automation("inbox creation", err)
		}

		merged.InboxID = fmt.Sprintf("%d", inbox.ID)
		merged.InboxName = inbox.Name
		rewiredWebhook = &model.WebhookConfig{
			Enabled: true,
			URL:     inbox.WebhookURL,
			URLs:    []string{inbox.WebhookURL},
		}
		log.Info().
			Str("instance", instanceName).
			Int("inboxId", inbox.ID).
			Msg("chatwoot inbox auto-provisioned")
	}

	err = s.saveConfig(instanceName, func(inst *model.Instance) {
		inst.Chatwoot = merged
		if rewiredWebhook != nil {
			inst.Webhook = *rewiredWebhook
		}
	})
	if err != nil {
		return nil, err
	}

	if rewiredWebhook != nil {
		if err := s.evo.SetConfig(ctx, "webhook", instanceName, *rewiredWebhook); err != nil {
			return nil, divergence("webhook", err)
		}
	}

	wire, err := merged.Wire()
	if err != nil {
		return nil, err
	}
	if err := s.evo.SetConfig(ctx, "chatwoot", instanceName, wire); err != nil {
		return nil, divergence("chatwoot", err)
	}
	return &merged, nil
}

func (s *ConfigService) findInstance(name string) (*model.Instance, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, apperrors.Store(err)
	}
	inst := store.FindInstance(&doc, name)
	if inst == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("Instance %q", name))
	}
	return inst, nil
}

func (s *ConfigService) saveConfig(name string, apply func(*model.Instance)) error {
	err := s.store.Update(func(doc *store.Document) (bool, error) {
		inst := store.FindInstance(doc, name)
		if inst == nil {
			return false, apperrors.NotFound(fmt.Sprintf("Instance %q", name))
		}
		apply(inst)
		return true, nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Store(err)
	}
	return nil
}

// divergence wraps an upstream push failure. The local write already
// happened; the message makes the split state explicit.
func divergence(integration string, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		appErr.Message = fmt.Sprintf(
			"%s config saved locally but the provider rejected the %s update: %s",
			integration, integration, appErr.Message)
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrCodeUpstream,
		fmt.Sprintf("%s config saved locally but the provider update failed", integration), err)
}
