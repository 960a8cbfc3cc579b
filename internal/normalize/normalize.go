// Package normalize extracts canonical payloads from upstream responses
// whose shape varies across provider versions and transport wrappers.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/fluow/panel-server/internal/errors"
)

const (
	// Anything shorter cannot be QR image data; short strings under these
	// keys are typically status words or error messages.
	minQRLength = 50

	dataURIPrefix = "data:image/png;base64,"
	pngB64Prefix  = "iVBOR"
)

// qrStrategy probes one known response shape for QR image data.
type qrStrategy struct {
	path string
	// accept further filters a long-enough string; nil accepts any.
	accept func(s string) bool
}

// Ordered by how commonly each shape is seen in the wild. The bare "message"
// field comes last: some transport layers wrap plain-text bodies in a generic
// message, so it needs a content check to not mistake error text for a QR.
var qrStrategies = []qrStrategy{
	{path: "base64"},
	{path: "qr"},
	{path: "qrcode"},
	{path: "qrcode.base64"},
	{path: "data.base64"},
	{path: "qrCode.base64"},
	{path: "message", accept: func(s string) bool {
		return strings.HasPrefix(s, pngB64Prefix) || strings.HasPrefix(s, "data:image")
	}},
}

// QRCode extracts the bare base64 QR image from a connect response. If the
// response says the instance is already connected it fails with
// ErrCodeAlreadyConnected; if no shape matches it fails with ErrCodeNoQRCode
// carrying the raw response for diagnostics.
func QRCode(instanceName string, raw json.RawMessage) (string, error) {
	body := gjson.ParseBytes(raw)

	if body.Get("instance.state").String() == "open" {
		return "", apperrors.AlreadyConnected(instanceName)
	}

	for _, strat := range qrStrategies {
		value := body.Get(strat.path)
		if value.Type != gjson.String {
			continue
		}
		s := value.String()
		if len(s) <= minQRLength {
			continue
		}
		if strat.accept != nil && !strat.accept(s) {
			continue
		}
		return strings.TrimPrefix(s, dataURIPrefix), nil
	}

	return "", apperrors.NoQRCode().WithDetails(json.RawMessage(raw))
}

// Unwrap returns the meaningful payload of a Chatwoot-style response:
// a "payload" field when present, else a "data" field, else the whole body.
func Unwrap(raw json.RawMessage) json.RawMessage {
	body := gjson.ParseBytes(raw)

	if payload := body.Get("payload"); payload.Exists() {
		return json.RawMessage(payload.Raw)
	}
	if data := body.Get("data"); data.Exists() {
		return json.RawMessage(data.Raw)
	}
	return raw
}

// Messages normalizes a message-history response: either a bare array or an
// object nesting the array under "messages". Anything else yields an empty
// list.
func Messages(raw json.RawMessage) json.RawMessage {
	body := gjson.ParseBytes(raw)

	if body.IsArray() {
		return raw
	}
	if nested := body.Get("messages"); nested.IsArray() {
		return json.RawMessage(nested.Raw)
	}
	return json.RawMessage("[]")
}
