package service

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fluow/panel-server/internal/chatwoot"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/store"
)

func newConfigService(t *testing.T) (*ConfigService, *store.Store, *mockEvolution, *mockChatwoot) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "db.json"))
	evo := &mockEvolution{}
	cw := &mockChatwoot{}
	return NewConfigService(st, evo, cw), st, evo, cw
}

func TestConfigService_SetWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("merges patch onto existing config and forwards it", func(t *testing.T) {
		svc, st, evo, _ := newConfigService(t)
		seedInstance(t, st, model.Instance{
			ID:      "id-1",
			Name:    "Shop1",
			Webhook: model.WebhookConfig{Enabled: false, URL: "https://old.example.com"},
		})

		evo.On("SetConfig", ctx, "webhook", "Shop1", mock.MatchedBy(func(p any) bool {
			cfg := p.(model.WebhookConfig)
			return cfg.Enabled && cfg.URL == "https://new.example.com"
		})).Return(nil)

		cfg, err := svc.SetWebhook(ctx, "Shop1",
			json.RawMessage(`{"enabled": true, "url": "https://new.example.com"}`))
		require.NoError(t, err)
		assert.True(t, cfg.Enabled)
		assert.Equal(t, []string{"https://new.example.com"}, cfg.URLs)

		doc, err := st.Read()
		require.NoError(t, err)
		assert.Equal(t, "https://new.example.com", doc.Instances[0].Webhook.URL)
	})

	t.Run("enabled webhook without url is rejected before any call", func(t *testing.T) {
		svc, st, evo, _ := newConfigService(t)
		seedInstance(t, st, model.Instance{ID: "id-1", Name: "Shop1"})

		_, err := svc.SetWebhook(ctx, "Shop1", json.RawMessage(`{"enabled": true}`))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
		evo.AssertNotCalled(t, "SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown instance is not found", func(t *testing.T) {
		svc, _, _, _ := newConfigService(t)
		_, err := svc.SetWebhook(ctx, "Ghost", json.RawMessage(`{"enabled": false}`))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("provider rejection reports divergence but keeps local write", func(t *testing.T) {
		svc, st, evo, _ := newConfigService(t)
		seedInstance(t, st, model.Instance{ID: "id-1", Name: "Shop1"})

		evo.On("SetConfig", ctx, "webhook", "Shop1", mock.Anything).
			Return(apperrors.Upstream("Evolution API", http.StatusBadRequest, "bad webhook"))

		_, err := svc.SetWebhook(ctx, "Shop1",
			json.RawMessage(`{"enabled": true, "url": "https://new.example.com"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "saved locally")

		doc, readErr := st.Read()
		require.NoError(t, readErr)
		assert.True(t, doc.Instances[0].Webhook.Enabled)
	})
}

func TestConfigService_SetAI(t *testing.T) {
	ctx := context.Background()

	t.Run("openai wire payload uses snake_case keys", func(t *testing.T) {
		svc, st, evo, _ := newConfigService(t)
		seedInstance(t, st, model.Instance{ID: "id-1", Name: "Shop1", OpenAI: model.DefaultOpenAIConfig()})

		var sent any
		evo.On("SetConfig", ctx, "openai", "Shop1", mock.MatchedBy(func(p any) bool {
			sent = p
			return true
		})).Return(nil)

		cfg, err := svc.SetOpenAI(ctx, "Shop1",
			json.RawMessage(`{"enabled": true, "apiKey": "sk-123", "prompt": "be nice"}`))
		require.NoError(t, err)
		assert.Equal(t, "gpt-3.5-turbo", cfg.Model, "unset fields keep stored values")

		data, err := json.Marshal(sent)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"api_key":"sk-123"`)
		assert.NotContains(t, string(data), `"apiKey"`)
	})

	t.Run("enabling without an api key is rejected", func(t *testing.T) {
		svc, st, evo, _ := newConfigService(t)
		seedInstance(t, st, model.Instance{ID: "id-1", Name: "Shop1", Gemini: model.DefaultGeminiConfig()})

		_, err := svc.SetGemini(ctx, "Shop1", json.RawMessage(`{"enabled": true}`))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
		evo.AssertNotCalled(t, "SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gemini targets its own provider endpoint", func(t *testing.T) {
		svc, st, evo, _ := newConfigService(t)
		seedInstance(t, st, model.Instance{ID: "id-1", Name: "Shop1", Gemini: model.DefaultGeminiConfig()})

		evo.On("SetConfig", ctx, "gemini", "Shop1", mock.Anything).Return(nil)

		cfg, err := svc.SetGemini(ctx, "Shop1",
			json.RawMessage(`{"enabled": true, "apiKey": "g-123"}`))
		require.NoError(t, err)
		assert.Equal(t, "gemini-pro", cfg.Model)
		evo.AssertCalled(t, "SetConfig", ctx, "gemini", "Shop1", mock.Anything)
	})
}

func TestConfigService_SetChatwoot(t *testing.T) {
	ctx := context.Background()

	seeded := func(t *testing.T) (*ConfigService, *store.Store, *mockEvolution, *mockChatwoot) {
		svc, st, evo, cw := newConfigService(t)
		seedInstance(t, st, model.Instance{ID: "id-1", Name: "Shop1", Chatwoot: model.DefaultChatwootConfig()})
		return svc, st, evo, cw
	}

	t.Run("forwards numeric ids as integers", func(t *testing.T) {
		svc, st, evo, _ := seeded(t)

		var sent any
		evo.On("SetConfig", ctx, "chatwoot", "Shop1", mock.MatchedBy(func(p any) bool {
			sent = p
			return true
		})).Return(nil)

		cfg, err := svc.SetChatwoot(ctx, "Shop1", json.RawMessage(
			`{"enabled": true, "url": "https://cw.example.com", "token": "tok", "accountId": "3", "inboxId": "12"}`))
		require.NoError(t, err)
		assert.Equal(t, "12", cfg.InboxID)

		data, err := json.Marshal(sent)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"account_id":3`)
		assert.Contains(t, string(data), `"inbox_id":12`)

		doc, err := st.Read()
		require.NoError(t, err)
		assert.Equal(t, "3", doc.Instances[0].Chatwoot.AccountID)
	})

	t.Run("non-numeric account id is rejected without network calls", func(t *testing.T) {
		svc, _, evo, cw := seeded(t)

		_, err := svc.SetChatwoot(ctx, "Shop1", json.RawMessage(
			`{"enabled": true, "url": "https://cw.example.com", "token": "tok", "accountId": "abc"}`))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
		evo.AssertNotCalled(t, "SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		cw.AssertNotCalled(t, "CreateInbox", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("enabled without credentials is a validation error", func(t *testing.T) {
		svc, _, evo, _ := seeded(t)

		_, err := svc.SetChatwoot(ctx, "Shop1", json.RawMessage(`{"enabled": true}`))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
		evo.AssertNotCalled(t, "SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("auto-provisioning creates the inbox and rewires the webhook", func(t *testing.T) {
		svc, st, evo, cw := seeded(t)

		cw.On("CreateInbox", ctx, chatwoot.Credentials{
			BaseURL:   "https://cw.example.com",
			Token:     "tok",
			AccountID: "3",
		}, "Evo - Shop1").Return(&chatwoot.Inbox{
			ID:         44,
			Name:       "Evo - Shop1",
			WebhookURL: "https://cw.example.com/hooks/44",
		}, nil)

		evo.On("SetConfig", ctx, "webhook", "Shop1", mock.MatchedBy(func(p any) bool {
			cfg := p.(model.WebhookConfig)
			return cfg.Enabled && cfg.URL == "https://cw.example.com/hooks/44"
		})).Return(nil)
		evo.On("SetConfig", ctx, "chatwoot", "Shop1", mock.Anything).Return(nil)

		cfg, err := svc.SetChatwoot(ctx, "Shop1", json.RawMessage(
			`{"enabled": true, "url": "https://cw.example.com", "token": "tok", "accountId": "3", "autoCreateInbox": true}`))
		require.NoError(t, err)
		assert.Equal(t, "44", cfg.InboxID)
		assert.Equal(t, "Evo - Shop1", cfg.InboxName)

		doc, err := st.Read()
		require.NoError(t, err)
		assert.Equal(t, "44", doc.Instances[0].Chatwoot.InboxID)
		assert.True(t, doc.Instances[0].Webhook.Enabled)
		assert.Equal(t, "https://cw.example.com/hooks/44", doc.Instances[0].Webhook.URL)
	})

	t.Run("existing inbox id skips provisioning", func(t *testing.T) {
		svc, _, evo, cw := seeded(t)

		evo.On("SetConfig", ctx, "chatwoot", "Shop1", mock.Anything).Return(nil)

		_, err := svc.SetChatwoot(ctx, "Shop1", json.RawMessage(
			`{"enabled": true, "url": "https://cw.example.com", "token": "tok", "accountId": "3", "inboxId": "12", "autoCreateInbox": true}`))
		require.NoError(t, err)
		cw.AssertNotCalled(t, "CreateInbox", mock.Anything, mock.Anything, mock.Anything)
		evo.AssertNotCalled(t, "SetConfig", ctx, "webhook", "Shop1", mock.Anything)
	})
}
