// Package evolution is the HTTP client for the upstream Evolution API, the
// authoritative source for instance connectivity and identity.
package evolution

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
)

const providerName = "Evolution API"

// RemoteInstance is the provider's view of one instance. The provider is
// authoritative for status and owner identity only.
type RemoteInstance struct {
	InstanceName string `json:"instanceName"`
	Status       string `json:"status"`
	Owner        string `json:"owner"`
	ProfileName  string `json:"profileName"`
}

// API is the surface the services depend on; Client is the live
// implementation.
type API interface {
	FetchInstances(ctx context.Context) ([]RemoteInstance, error)
	CreateInstance(ctx context.Context, payload map[string]any) (json.RawMessage, error)
	DeleteInstance(ctx context.Context, name string) error
	Logout(ctx context.Context, name string) (json.RawMessage, error)
	Connect(ctx context.Context, name string) (json.RawMessage, error)
	FetchMessages(ctx context.Context, name string) (json.RawMessage, error)
	SetConfig(ctx context.Context, integration, name string, payload any) error
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) FetchInstances(ctx context.Context) ([]RemoteInstance, error) {
	raw, err := c.do(ctx, http.MethodGet, "/instance/fetchInstances", nil)
	if err != nil {
		return nil, err
	}

	// Each array entry nests the actual fields under "instance".
	var envelopes []struct {
		Instance RemoteInstance `json:"instance"`
	}
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return nil, apperrors.Upstream(providerName, http.StatusBadGateway,
			"instance list response is not an array").WithCause(err)
	}

	instances := make([]RemoteInstance, 0, len(envelopes))
	for _, env := range envelopes {
		if env.Instance.InstanceName == "" {
			continue
		}
		instances = append(instances, env.Instance)
	}
	return instances, nil
}

func (c *Client) CreateInstance(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/instance/create", payload)
}

func (c *Client) DeleteInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/instance/delete/"+name, nil)
	return err
}

func (c *Client) Logout(ctx context.Context, name string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, "/instance/logout/"+name, nil)
}

func (c *Client) Connect(ctx context.Context, name string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/instance/connect/"+name, nil)
}

func (c *Client) FetchMessages(ctx context.Context, name string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/message/fetchMessages/"+name, nil)
}

// SetConfig forwards an integration config to the provider's
// /{integration}/set/{name} endpoint (webhook, chatwoot, openai, gemini).
func (c *Client) SetConfig(ctx context.Context, integration, name string, payload any) error {
	_, err := c.do(ctx, http.MethodPost, "/"+integration+"/set/"+name, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Internal("failed to encode request").WithCause(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.Internal("failed to build request").WithCause(err)
	}
	req.Header.Set("apikey", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("evolution request failed")
		return nil, apperrors.Gateway(providerName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Gateway(providerName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := extractMessage(respBody)
		log.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("message", message).
			Dur("elapsed", elapsed).
			Msg("evolution request rejected")
		return nil, apperrors.Upstream(providerName, resp.StatusCode, message).
			WithDetails(json.RawMessage(respBody))
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("evolution request ok")

	if len(respBody) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(respBody), nil
}

// extractMessage pulls the most specific error text the provider offers.
func extractMessage(body []byte) string {
	parsed := gjson.ParseBytes(body)
	for _, key := range []string{"message", "error", "detail"} {
		if v := parsed.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	if len(body) > 0 {
		return fmt.Sprintf("request failed: %s", truncate(string(body), 200))
	}
	return "request failed"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
