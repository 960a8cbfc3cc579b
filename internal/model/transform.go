package model

import (
	"strconv"

	apperrors "github.com/fluow/panel-server/internal/errors"
)

// Wire shapes use the Evolution API naming convention: snake_case keys and
// numeric identifiers. The panel's own convention (camelCase, string IDs)
// never crosses the upstream boundary.

type ChatwootWire struct {
	Enabled             bool     `json:"enabled"`
	URL                 string   `json:"url,omitempty"`
	Token               string   `json:"token,omitempty"`
	AccountID           *int     `json:"account_id,omitempty"`
	InboxID             *int     `json:"inbox_id,omitempty"`
	InboxName           string   `json:"inbox_name,omitempty"`
	CompanyName         string   `json:"company_name,omitempty"`
	CompanyLogo         string   `json:"company_logo,omitempty"`
	SignMessages        bool     `json:"sign_messages"`
	SignatureDelimiter  string   `json:"signature_delimiter,omitempty"`
	ReopenConversation  bool     `json:"reopen_conversation"`
	ConversationPending bool     `json:"conversation_pending"`
	ImportContacts      bool     `json:"import_contacts"`
	ImportMessages      bool     `json:"import_messages"`
	DaysToImport        int      `json:"days_to_import,omitempty"`
	IgnorePhoneNumbers  []string `json:"ignore_phone_numbers,omitempty"`
	AutoCreateInbox     bool     `json:"auto_create_inbox"`
}

type AIWire struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

// Wire transforms the config into the upstream convention. Non-numeric
// account or inbox IDs are a validation error; they are never coerced.
func (c ChatwootConfig) Wire() (ChatwootWire, error) {
	wire := ChatwootWire{
		Enabled:             c.Enabled,
		URL:                 c.URL,
		Token:               c.Token,
		InboxName:           c.InboxName,
		CompanyName:         c.CompanyName,
		CompanyLogo:         c.CompanyLogo,
		SignMessages:        c.SignMessages,
		SignatureDelimiter:  c.SignatureDelimiter,
		ReopenConversation:  c.ReopenConversation,
		ConversationPending: c.ConversationPending,
		ImportContacts:      c.ImportContacts,
		ImportMessages:      c.ImportMessages,
		DaysToImport:        c.DaysToImport,
		IgnorePhoneNumbers:  c.IgnorePhoneNumbers,
		AutoCreateInbox:     c.AutoCreateInbox,
	}

	if c.AccountID != "" {
		id, err := strconv.Atoi(c.AccountID)
		if err != nil {
			return ChatwootWire{}, apperrors.InvalidInput("accountId", "must be a number")
		}
		wire.AccountID = &id
	}

	if c.InboxID != "" {
		id, err := strconv.Atoi(c.InboxID)
		if err != nil {
			return ChatwootWire{}, apperrors.InvalidInput("inboxId", "must be a number")
		}
		wire.InboxID = &id
	}

	return wire, nil
}

// Wire transforms the OpenAI/Gemini config into the upstream convention.
func (c AIConfig) Wire() AIWire {
	return AIWire{
		Enabled: c.Enabled,
		APIKey:  c.APIKey,
		Model:   c.Model,
		Prompt:  c.Prompt,
	}
}
