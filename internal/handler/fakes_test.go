package handler

import (
	"context"
	"encoding/json"

	"github.com/fluow/panel-server/internal/chatwoot"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/evolution"
)

func evoGatewayErr() error {
	return apperrors.Gateway("Evolution API", context.DeadlineExceeded)
}

type fakeEvolution struct {
	fetchInstancesFunc func(ctx context.Context) ([]evolution.RemoteInstance, error)
	createInstanceFunc func(ctx context.Context, payload map[string]any) (json.RawMessage, error)
	deleteInstanceFunc func(ctx context.Context, name string) error
	logoutFunc         func(ctx context.Context, name string) (json.RawMessage, error)
	connectFunc        func(ctx context.Context, name string) (json.RawMessage, error)
	fetchMessagesFunc  func(ctx context.Context, name string) (json.RawMessage, error)
	setConfigFunc      func(ctx context.Context, integration, name string, payload any) error
}

func (f *fakeEvolution) FetchInstances(ctx context.Context) ([]evolution.RemoteInstance, error) {
	if f.fetchInstancesFunc != nil {
		return f.fetchInstancesFunc(ctx)
	}
	return []evolution.RemoteInstance{}, nil
}

func (f *fakeEvolution) CreateInstance(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	if f.createInstanceFunc != nil {
		return f.createInstanceFunc(ctx, payload)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeEvolution) DeleteInstance(ctx context.Context, name string) error {
	if f.deleteInstanceFunc != nil {
		return f.deleteInstanceFunc(ctx, name)
	}
	return nil
}

func (f *fakeEvolution) Logout(ctx context.Context, name string) (json.RawMessage, error) {
	if f.logoutFunc != nil {
		return f.logoutFunc(ctx, name)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeEvolution) Connect(ctx context.Context, name string) (json.RawMessage, error) {
	if f.connectFunc != nil {
		return f.connectFunc(ctx, name)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeEvolution) FetchMessages(ctx context.Context, name string) (json.RawMessage, error) {
	if f.fetchMessagesFunc != nil {
		return f.fetchMessagesFunc(ctx, name)
	}
	return json.RawMessage(`[]`), nil
}

func (f *fakeEvolution) SetConfig(ctx context.Context, integration, name string, payload any) error {
	if f.setConfigFunc != nil {
		return f.setConfigFunc(ctx, integration, name, payload)
	}
	return nil
}

type fakeChatwoot struct {
	createInboxFunc   func(ctx context.Context, creds chatwoot.Credentials, name string) (*chatwoot.Inbox, error)
	listInboxesFunc   func(ctx context.Context, creds chatwoot.Credentials) error
	conversationsFunc func(ctx context.Context, creds chatwoot.Credentials) (json.RawMessage, error)
	messagesFunc      func(ctx context.Context, creds chatwoot.Credentials, conversationID string) (json.RawMessage, error)
	sendMessageFunc   func(ctx context.Context, creds chatwoot.Credentials, conversationID string, payload json.RawMessage) (json.RawMessage, error)
}

func (f *fakeChatwoot) CreateInbox(ctx context.Context, creds chatwoot.Credentials, name string) (*chatwoot.Inbox, error) {
	if f.createInboxFunc != nil {
		return f.createInboxFunc(ctx, creds, name)
	}
	return &chatwoot.Inbox{ID: 1, Name: name, WebhookURL: "https://cw.example.com/hooks/1"}, nil
}

func (f *fakeChatwoot) ListInboxes(ctx context.Context, creds chatwoot.Credentials) error {
	if f.listInboxesFunc != nil {
		return f.listInboxesFunc(ctx, creds)
	}
	return nil
}

func (f *fakeChatwoot) Conversations(ctx context.Context, creds chatwoot.Credentials) (json.RawMessage, error) {
	if f.conversationsFunc != nil {
		return f.conversationsFunc(ctx, creds)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeChatwoot) Messages(ctx context.Context, creds chatwoot.Credentials, conversationID string) (json.RawMessage, error) {
	if f.messagesFunc != nil {
		return f.messagesFunc(ctx, creds, conversationID)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeChatwoot) SendMessage(ctx context.Context, creds chatwoot.Credentials, conversationID string, payload json.RawMessage) (json.RawMessage, error) {
	if f.sendMessageFunc != nil {
		return f.sendMessageFunc(ctx, creds, conversationID, payload)
	}
	return json.RawMessage(`{}`), nil
}
