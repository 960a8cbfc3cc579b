package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fluow/panel-server/internal/audit"
	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/model"
	"github.com/fluow/panel-server/internal/util"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// Identity is the authenticated caller: either the master key from the
// environment or one of the generated keys.
type Identity struct {
	KeyID  string
	Name   string
	Master bool
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(IdentityContextKey).(*Identity); ok {
		return id
	}
	return nil
}

// KeyLookup resolves a presented key to its stored record; nil means unknown.
type KeyLookup interface {
	Lookup(key string) (*model.APIKey, error)
}

type AuthMiddleware struct {
	masterKey string
	keys      KeyLookup
}

func NewAuthMiddleware(masterKey string, keys KeyLookup) *AuthMiddleware {
	return &AuthMiddleware{masterKey: masterKey, keys: keys}
}

// Handler authenticates the apikey header. A missing key is 401; a presented
// but unknown key is 403.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("apikey")
		if key == "" {
			writeError(w, apperrors.Unauthorized("Missing apikey header"))
			return
		}

		if util.ConstantTimeEqual(key, m.masterKey) {
			identity := &Identity{KeyID: "master", Name: "master", Master: true}
			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		record, err := m.keys.Lookup(key)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: key lookup failed")
			writeError(w, apperrors.Internal("Authentication failed"))
			return
		}

		if record == nil {
			log.Warn().Str("keyPrefix", util.MaskKey(key)).Msg("auth middleware: invalid key attempt")
			audit.Log(audit.Event{
				Type:    audit.EventAuthFailure,
				IP:      r.RemoteAddr,
				Details: map[string]any{"keyPrefix": util.MaskKey(key)},
			})
			writeError(w, apperrors.Forbidden("Invalid API key"))
			return
		}

		identity := &Identity{KeyID: record.ID, Name: record.Name}
		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
