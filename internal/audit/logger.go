package audit

import (
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAuthFailure      EventType = "auth_failure"
	EventKeyCreate        EventType = "key_create"
	EventKeyDelete        EventType = "key_delete"
	EventInstanceCreate   EventType = "instance_create"
	EventInstanceDelete   EventType = "instance_delete"
	EventInboxProvisioned EventType = "inbox_provisioned"
	EventRateLimitExceed  EventType = "rate_limit_exceeded"
)

type Event struct {
	Type     EventType
	KeyID    string
	Instance string
	IP       string
	Details  map[string]any
}

// Log emits a structured security event. Audit entries always log at info
// level regardless of the event outcome so they survive log-level filtering.
func Log(event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.KeyID != "" {
		logger = logger.With().Str("key_id", event.KeyID).Logger()
	}
	if event.Instance != "" {
		logger = logger.With().Str("instance", event.Instance).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = logEvent.Interface(k, v)
	}
	logEvent.Msg("audit event")
}
