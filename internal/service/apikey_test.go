package service

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fluow/panel-server/internal/errors"
	"github.com/fluow/panel-server/internal/store"
	"github.com/fluow/panel-server/internal/util"
)

func newKeyService(t *testing.T) (*APIKeyService, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "db.json"))
	return NewAPIKeyService(st), st
}

func TestAPIKeyService_Generate(t *testing.T) {
	svc, st := newKeyService(t)

	key, err := svc.Generate("ci-bot")
	require.NoError(t, err)
	assert.NotEmpty(t, key.ID)
	assert.Equal(t, "ci-bot", key.Name)
	assert.True(t, strings.HasPrefix(key.Key, util.APIKeyPrefix))
	assert.Len(t, key.Key, len(util.APIKeyPrefix)+48, "24 random bytes hex-encoded")
	assert.NotEmpty(t, key.CreatedAt)

	doc, err := st.Read()
	require.NoError(t, err)
	require.Len(t, doc.APIKeys, 1)
	assert.Equal(t, key.Key, doc.APIKeys[0].Key)
}

func TestAPIKeyService_ListNeverExposesFullKeys(t *testing.T) {
	svc, _ := newKeyService(t)

	created, err := svc.Generate("ci-bot")
	require.NoError(t, err)

	infos, err := svc.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)

	info := infos[0]
	assert.Equal(t, created.ID, info.ID)
	assert.Len(t, info.KeyPrefix, 12)
	assert.True(t, strings.HasPrefix(created.Key, info.KeyPrefix))
	assert.NotEqual(t, created.Key, info.KeyPrefix)
}

func TestAPIKeyService_Delete(t *testing.T) {
	svc, _ := newKeyService(t)

	created, err := svc.Generate("ci-bot")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(created.ID))

	infos, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, infos)

	err = svc.Delete(created.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestAPIKeyService_Lookup(t *testing.T) {
	svc, _ := newKeyService(t)

	created, err := svc.Generate("ci-bot")
	require.NoError(t, err)

	found, err := svc.Lookup(created.Key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := svc.Lookup("fluow_deadbeef")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
