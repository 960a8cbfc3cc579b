package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fluow/panel-server/internal/errors"
)

func TestQRCode(t *testing.T) {
	t.Run("already connected", func(t *testing.T) {
		raw := json.RawMessage(`{"instance": {"state": "open"}}`)
		_, err := QRCode("Shop1", raw)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeAlreadyConnected, apperrors.GetCode(err))
	})

	t.Run("direct base64 key", func(t *testing.T) {
		qr := strings.Repeat("A", 100)
		raw := json.RawMessage(fmt.Sprintf(`{"base64": %q}`, qr))

		got, err := QRCode("Shop1", raw)
		require.NoError(t, err)
		assert.Equal(t, qr, got)
	})

	t.Run("nested qrcode.base64 with data URI prefix", func(t *testing.T) {
		qr := strings.Repeat("B", 60)
		raw := json.RawMessage(fmt.Sprintf(`{"qrcode": {"base64": "data:image/png;base64,%s"}}`, qr))

		got, err := QRCode("Shop1", raw)
		require.NoError(t, err)
		assert.Equal(t, qr, got)
	})

	t.Run("qrcode as plain string", func(t *testing.T) {
		qr := strings.Repeat("C", 80)
		raw := json.RawMessage(fmt.Sprintf(`{"qrcode": %q}`, qr))

		got, err := QRCode("Shop1", raw)
		require.NoError(t, err)
		assert.Equal(t, qr, got)
	})

	t.Run("data.base64 and qrCode.base64 shapes", func(t *testing.T) {
		for _, shape := range []string{
			`{"data": {"base64": %q}}`,
			`{"qrCode": {"base64": %q}}`,
		} {
			qr := strings.Repeat("D", 70)
			got, err := QRCode("Shop1", json.RawMessage(fmt.Sprintf(shape, qr)))
			require.NoError(t, err)
			assert.Equal(t, qr, got)
		}
	})

	t.Run("message fallback requires image-looking content", func(t *testing.T) {
		qr := "iVBOR" + strings.Repeat("E", 60)
		raw := json.RawMessage(fmt.Sprintf(`{"message": %q}`, qr))

		got, err := QRCode("Shop1", raw)
		require.NoError(t, err)
		assert.Equal(t, qr, got)

		// a long error message is not a QR code
		long := strings.Repeat("instance is temporarily unavailable ", 3)
		_, err = QRCode("Shop1", json.RawMessage(fmt.Sprintf(`{"message": %q}`, long)))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNoQRCode, apperrors.GetCode(err))
	})

	t.Run("short strings are ignored", func(t *testing.T) {
		_, err := QRCode("Shop1", json.RawMessage(`{"base64": "short"}`))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNoQRCode, apperrors.GetCode(err))
	})

	t.Run("priority order prefers base64 over message", func(t *testing.T) {
		direct := strings.Repeat("F", 90)
		fallback := "iVBOR" + strings.Repeat("G", 60)
		raw := json.RawMessage(fmt.Sprintf(`{"base64": %q, "message": %q}`, direct, fallback))

		got, err := QRCode("Shop1", raw)
		require.NoError(t, err)
		assert.Equal(t, direct, got)
	})

	t.Run("empty object fails with raw details", func(t *testing.T) {
		_, err := QRCode("Shop1", json.RawMessage(`{}`))
		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeNoQRCode, appErr.Code)
		assert.NotNil(t, appErr.Details)
	})
}

func TestUnwrap(t *testing.T) {
	t.Run("prefers payload", func(t *testing.T) {
		raw := json.RawMessage(`{"payload": {"id": 1}, "data": {"id": 2}}`)
		assert.JSONEq(t, `{"id": 1}`, string(Unwrap(raw)))
	})

	t.Run("falls back to data", func(t *testing.T) {
		raw := json.RawMessage(`{"data": [1, 2, 3]}`)
		assert.JSONEq(t, `[1, 2, 3]`, string(Unwrap(raw)))
	})

	t.Run("whole body when unwrapped", func(t *testing.T) {
		raw := json.RawMessage(`{"id": 3, "name": "inbox"}`)
		assert.JSONEq(t, string(raw), string(Unwrap(raw)))
	})
}

func TestMessages(t *testing.T) {
	assert.JSONEq(t, `[1, 2]`, string(Messages(json.RawMessage(`[1, 2]`))))
	assert.JSONEq(t, `[{"id": 1}]`, string(Messages(json.RawMessage(`{"messages": [{"id": 1}]}`))))
	assert.JSONEq(t, `[]`, string(Messages(json.RawMessage(`{"unexpected": true}`))))
}
