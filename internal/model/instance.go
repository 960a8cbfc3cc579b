package model

import "strings"

// Raw connection states reported by the Evolution API.
const (
	StateOpen       = "open"
	StateClose      = "close"
	StateConnecting = "connecting"
)

// Status is the presentation-level connection status derived from the raw
// remote state.
type Status string

const (
	StatusOnline     Status = "Online"
	StatusOffline    Status = "Offline"
	StatusConnecting Status = "Connecting"
	StatusError      Status = "Error"
)

// MapStatus derives the presentation status from a raw remote state string.
// Unknown states map to StatusError.
func MapStatus(raw string) Status {
	switch raw {
	case StateOpen:
		return StatusOnline
	case StateClose:
		return StatusOffline
	case StateConnecting:
		return StatusConnecting
	default:
		return StatusError
	}
}

// PhoneNumberFromJID extracts the phone number from a WhatsApp JID
// (the part before the '@').
func PhoneNumberFromJID(jid string) string {
	if jid == "" {
		return ""
	}
	if idx := strings.Index(jid, "@"); idx >= 0 {
		return jid[:idx]
	}
	return jid
}

type WebhookConfig struct {
	Enabled bool     `json:"enabled"`
	URL     string   `json:"url"`
	URLs    []string `json:"urls"`
}

type ChatwootConfig struct {
	Enabled             bool     `json:"enabled"`
	URL                 string   `json:"url"`
	Token               string   `json:"token"`
	AccountID           string   `json:"accountId"`
	InboxID             string   `json:"inboxId"`
	InboxName           string   `json:"inboxName,omitempty"`
	CompanyName         string   `json:"companyName,omitempty"`
	CompanyLogo         string   `json:"companyLogo,omitempty"`
	SignMessages        bool     `json:"signMessages,omitempty"`
	SignatureDelimiter  string   `json:"signatureDelimiter,omitempty"`
	ReopenConversation  bool     `json:"reopenConversation,omitempty"`
	ConversationPending bool     `json:"conversationPending,omitempty"`
	ImportContacts      bool     `json:"importContacts,omitempty"`
	ImportMessages      bool     `json:"importMessages,omitempty"`
	DaysToImport        int      `json:"daysToImport,omitempty"`
	IgnorePhoneNumbers  []string `json:"ignorePhoneNumbers,omitempty"`
	AutoCreateInbox     bool     `json:"autoCreateInbox,omitempty"`
}

// AIConfig covers both the OpenAI and Gemini integrations; they share a shape.
type AIConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
}

// Instance is one managed messaging endpoint as persisted in the config
// store. Status, OwnerJID and ProfileName mirror the remote provider; the
// four integration configs are owned locally.
type Instance struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	OwnerJID    string `json:"ownerJid,omitempty"`
	ProfileName string `json:"profileName,omitempty"`
	CreatedAt   string `json:"createdAt"`

	Webhook  WebhookConfig  `json:"Webhook"`
	Chatwoot ChatwootConfig `json:"Chatwoot"`
	OpenAI   AIConfig       `json:"OpenAI"`
	Gemini   AIConfig       `json:"Gemini"`
}

// DefaultWebhookConfig returns the disabled default for new instances.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{Enabled: false, URL: "", URLs: []string{}}
}

func DefaultChatwootConfig() ChatwootConfig {
	return ChatwootConfig{Enabled: false}
}

func DefaultOpenAIConfig() AIConfig {
	return AIConfig{Enabled: false, Model: "gpt-3.5-turbo"}
}

func DefaultGeminiConfig() AIConfig {
	return AIConfig{Enabled: false, Model: "gemini-pro"}
}

// InstanceView is the API representation of an Instance: the raw persisted
// state plus the fields derived from the remote identity.
type InstanceView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      Status `json:"status"`
	Owner       string `json:"owner,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	CreatedAt   string `json:"createdAt"`

	Webhook  WebhookConfig  `json:"Webhook"`
	Chatwoot ChatwootConfig `json:"Chatwoot"`
	OpenAI   AIConfig       `json:"OpenAI"`
	Gemini   AIConfig       `json:"Gemini"`
}

// View derives the presentation form of the instance.
func (i Instance) View() InstanceView {
	return InstanceView{
		ID:          i.ID,
		Name:        i.Name,
		Status:      MapStatus(i.Status),
		Owner:       i.ProfileName,
		PhoneNumber: PhoneNumberFromJID(i.OwnerJID),
		CreatedAt:   i.CreatedAt,
		Webhook:     i.Webhook,
		Chatwoot:    i.Chatwoot,
		OpenAI:      i.OpenAI,
		Gemini:      i.Gemini,
	}
}

// GlobalChatwootSettings are the panel-wide defaults used when
// auto-provisioning a per-instance Chatwoot integration.
type GlobalChatwootSettings struct {
	APIURL    string `json:"apiUrl"`
	APIToken  string `json:"apiToken"`
	AccountID string `json:"accountId"`
}
