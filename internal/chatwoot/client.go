// Package chatwoot is the HTTP client for the Chatwoot support backend:
// inbox provisioning, credential validation and the conversation/message
// proxy used by the support console.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/normalize"
)

const providerName = "Chatwoot"

// Credentials identify one Chatwoot account. They come either from the
// panel-wide settings (auto-provisioning) or from a per-instance config
// (conversation proxy).
type Credentials struct {
	BaseURL   string
	Token     string
	AccountID string
}

func (c Credentials) accountPath(suffix string) string {
	return fmt.Sprintf("%s/api/v1/accounts/%s%s", strings.TrimRight(c.BaseURL, "/"), c.AccountID, suffix)
}

// Inbox is a provisioned Chatwoot channel. WebhookURL is the address
// Chatwoot will deliver inbound events to; it comes from the channel object
// in the creation response.
type Inbox struct {
	ID         int
	Name       string
	WebhookURL string
}

type API interface {
	CreateInbox(ctx context.Context, creds Credentials, name string) (*Inbox, error)
	ListInboxes(ctx context.Context, creds Credentials) error
	Conversations(ctx context.Context, creds Credentials) (json.RawMessage, error)
	Messages(ctx context.Context, creds Credentials, conversationID string) (json.RawMessage, error)
	SendMessage(ctx context.Context, creds Credentials, conversationID string, payload json.RawMessage) (json.RawMessage, error)
}

type Client struct {
	client *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
	}
}

// CreateInbox provisions an API-type channel. A response missing the inbox
// id or the channel webhook URL means a permissions or version mismatch that
// a retry cannot fix, so it is reported as a fatal automation failure.
func (c *Client) CreateInbox(ctx context.Context, creds Credentials, name string) (*Inbox, error) {
	payload := map[string]any{
		"name": name,
		"channel": map[string]any{
			"type": "api",
			// Some Chatwoot versions require the field even when empty.
			"webhook_url": "",
		},
	}

	raw, err := c.do(ctx, http.MethodPost, creds.accountPath("/inboxes"), creds.Token, payload)
	if err != nil {
		return nil, err
	}

	// The creation response is sometimes nested under "payload".
	body := gjson.ParseBytes(normalize.Unwrap(raw))

	id := body.Get("id")
	webhookURL := body.Get("channel.webhook_url")
	if !id.Exists() || id.Int() == 0 || webhookURL.String() == "" {
		log.Error().RawJSON("response", raw).Msg("chatwoot inbox response missing id or webhook url")
		return nil, apperrors.Automation("inbox creation",
			fmt.Errorf("response did not include inbox id and channel webhook_url; check token permissions")).
			WithDetails(json.RawMessage(raw))
	}

	inbox := &Inbox{
		ID:         int(id.Int()),
		Name:       body.Get("name").String(),
		WebhookURL: webhookURL.String(),
	}

	log.Info().
		Int("inboxId", inbox.ID).
		Str("inboxName", inbox.Name).
		Msg("chatwoot inbox created")

	return inbox, nil
}

// ListInboxes fetches the inbox collection, used purely to validate
// credentials.
func (c *Client) ListInboxes(ctx context.Context, creds Credentials) error {
	_, err := c.do(ctx, http.MethodGet, creds.accountPath("/inboxes"), creds.Token, nil)
	return err
}

func (c *Client) Conversations(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, creds.accountPath("/conversations?status=all"), creds.Token, nil)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) Messages(ctx context.Context, creds Credentials, conversationID string) (json.RawMessage, error) {
	path := creds.accountPath("/conversations/" + conversationID + "/messages")
	return c.do(ctx, http.MethodGet, path, creds.Token, nil)
}

func (c *Client) SendMessage(ctx context.Context, creds Credentials, conversationID string, payload json.RawMessage) (json.RawMessage, error) {
	path := creds.accountPath("/conversations/" + conversationID + "/messages")
	return c.do(ctx, http.MethodPost, path, creds.Token, payload)
}

func (c *Client) do(ctx context.Context, method, url, token string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Internal("failed to encode request").WithCause(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, apperrors.Internal("failed to build request").WithCause(err)
	}
	req.Header.Set("api_access_token", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("chatwoot request failed")
		return nil, apperrors.Gateway(providerName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Gateway(providerName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("method", method).
			Int("status", resp.StatusCode).
			Msg("chatwoot request rejected")
		return nil, apperrors.Upstream(providerName, resp.StatusCode, extractMessage(respBody)).
			WithDetails(json.RawMessage(respBody))
	}

	if len(respBody) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(respBody), nil
}

func extractMessage(body []byte) string {
	parsed := gjson.ParseBytes(body)
	if v := parsed.Get("message"); v.Exists() && v.String() != "" {
		return v.String()
	}
	if errs := parsed.Get("errors"); errs.IsArray() {
		var parts []string
		errs.ForEach(func(_, value gjson.Result) bool {
			parts = append(parts, value.String())
			return true
		})
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "request failed"
}
