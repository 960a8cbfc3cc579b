package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fluow/panel-server/internal/chatwoot"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/normalize"
	"github.com/fluow/panel-server/internal/store"
)

// SupportService backs the support console: validating Chatwoot credentials
// and proxying conversation traffic with the credentials stored on each
// instance.
type SupportService struct {
	store    *store.Store
	chatwoot chatwoot.API
}

func NewSupportService(st *store.Store, cw chatwoot.API) *SupportService {
	return &SupportService{store: st, chatwoot: cw}
}

// TestConnection validates the given Chatwoot credentials with a cheap read.
// Failures are translated into actionable guidance.
func (s *SupportService) TestConnection(ctx context.Context, settings model.GlobalChatwootSettings) error {
	if settings.APIURL == "" || settings.APIToken == "" || settings.AccountID == "" {
		return apperrors.ValidationError("apiUrl, apiToken and accountId are all required")
	}

	err := s.chatwoot.ListInboxes(ctx, chatwoot.Credentials{
		BaseURL:   settings.APIURL,
		Token:     settings.APIToken,
		AccountID: settings.AccountID,
	})
	if err == nil {
		return nil
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return err
	}
	switch {
	case appErr.Code == apperrors.ErrCodeGateway:
		return apperrors.Gateway("Chatwoot",
			fmt.Errorf("no response from %s; check the URL and network connectivity", settings.APIURL))
	case appErr.Status == http.StatusUnauthorized:
		return apperrors.Upstream("Chatwoot", http.StatusUnauthorized,
			"authentication failed; check the access token")
	case appErr.Status == http.StatusNotFound:
		return apperrors.Upstream("Chatwoot", http.StatusNotFound,
			"account not found; check the API URL and account id")
	}
	return err
}

// Conversations proxies the conversation list using the instance's stored
// Chatwoot credentials. Responses are unwrapped so callers see the payload
// regardless of which envelope the Chatwoot version used.
func (s *SupportService) Conversations(ctx context.Context, instanceName string) (json.RawMessage, error) {
	creds, err := s.credsFor(instanceName)
	if err != nil {
		return nil, err
	}
	raw, err := s.chatwoot.Conversations(ctx, creds)
	if err != nil {
		return nil, err
	}
	return normalize.Unwrap(raw), nil
}

// Messages proxies one conversation's message history.
func (s *SupportService) Messages(ctx context.Context, instanceName, conversationID string) (json.RawMessage, error) {
	creds, err := s.credsFor(instanceName)
	if err != nil {
		return nil, err
	}
	raw, err := s.chatwoot.Messages(ctx, creds, conversationID)
	if err != nil {
		return nil, err
	}
	return normalize.Unwrap(raw), nil
}

// SendMessage proxies an outgoing agent message into a conversation.
func (s *SupportService) SendMessage(ctx context.Context, instanceName, conversationID string, payload json.RawMessage) (json.RawMessage, error) {
	creds, err := s.credsFor(instanceName)
	if err != nil {
		return nil, err
	}
	raw, err := s.chatwoot.SendMessage(ctx, creds, conversationID, payload)
	if err != nil {
		return nil, err
	}
	return normalize.Unwrap(raw), nil
}

func (s *SupportService) credsFor(instanceName string) (chatwoot.Credentials, error) {
	doc, err := s.store.Read()
	if err != nil {
		return chatwoot.Credentials{}, apperrors.Store(err)
	}

	inst := store.FindInstance(&doc, instanceName)
	if inst == nil {
		return chatwoot.Credentials{}, apperrors.NotFound(fmt.Sprintf("Instance %q", instanceName))
	}

	cfg := inst.Chatwoot
	if !cfg.Enabled || cfg.URL == "" || cfg.Token == "" || cfg.AccountID == "" {
		return chatwoot.Credentials{}, apperrors.ValidationError(
			fmt.Sprintf("Instance %q has no usable Chatwoot configuration", instanceName))
	}

	return chatwoot.Credentials{
		BaseURL:   cfg.URL,
		Token:     cfg.Token,
		AccountID: cfg.AccountID,
	}, nil
}
