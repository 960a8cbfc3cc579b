package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fluow/panel-server/internal/audit"
	"github.com/fluow/panel-server/internal/config"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/store"
	"github.com/fluow/panel-server/internal/util"
)

// APIKeyService manages generated panel credentials. Full key values are
// returned exactly once, at generation; listings only carry a display prefix.
type APIKeyService struct {
	store *store.Store
}

func NewAPIKeyService(st *store.Store) *APIKeyService {
	return &APIKeyService{store: st}
}

// Generate mints a new key under the given label and persists it.
func (s *APIKeyService) Generate(name string) (*model.APIKey, error) {
	key, err := util.GenerateAPIKey()
	if err != nil {
		return nil, apperrors.Internal("failed to generate key material").WithCause(err)
	}

	apiKey := model.APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		Key:       key,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	err = s.store.Update(func(doc *store.Document) (bool, error) {
		doc.APIKeys = append(doc.APIKeys, apiKey)
		return true, nil
	})
	if err != nil {
		return nil, apperrors.Store(err)
	}

	audit.Log(audit.Event{
		Type:    audit.EventKeyCreate,
		KeyID:   apiKey.ID,
		Details: map[string]any{"name": name, "keyPrefix": util.KeyPrefix(key, config.KeyPrefixLen)},
	})
	return &apiKey, nil
}

// List returns key metadata without the secret values.
func (s *APIKeyService) List() ([]model.APIKeyInfo, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, apperrors.Store(err)
	}

	infos := make([]model.APIKeyInfo, 0, len(doc.APIKeys))
	for _, k := range doc.APIKeys {
		infos = append(infos, model.APIKeyInfo{
			ID:        k.ID,
			Name:      k.Name,
			KeyPrefix: util.KeyPrefix(k.Key, config.KeyPrefixLen),
			CreatedAt: k.CreatedAt,
		})
	}
	return infos, nil
}

// Delete revokes the key with the given id.
func (s *APIKeyService) Delete(id string) error {
	err := s.store.Update(func(doc *store.Document) (bool, error) {
		kept := doc.APIKeys[:0]
		removed := false
		for _, k := range doc.APIKeys {
			if k.ID == id {
				removed = true
				continue
			}
			kept = append(kept, k)
		}
		if !removed {
			return false, apperrors.NotFound(fmt.Sprintf("API key %q", id))
		}
		doc.APIKeys = kept
		return true, nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Store(err)
	}

	audit.Log(audit.Event{Type: audit.EventKeyDelete, KeyID: id})
	return nil
}

// Lookup resolves a presented key to its record, for authentication.
func (s *APIKeyService) Lookup(key string) (*model.APIKey, error) {
	doc, err := s.store.Read()
	if err != nil {
		return nil, apperrors.Store(err)
	}
	for i := range doc.APIKeys {
		if util.ConstantTimeEqual(doc.APIKeys[i].Key, key) {
			return &doc.APIKeys[i], nil
		}
	}
	return nil, nil
}
