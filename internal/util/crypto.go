package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const keyBytes = 24

// APIKeyPrefix marks keys generated by this panel, as opposed to the master
// key configured in the environment.
const APIKeyPrefix = "fluow_"

// GenerateAPIKey returns a new high-entropy key. The full value is only ever
// shown once, at creation time.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, keyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(bytes), nil
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// KeyPrefix returns the display prefix of a key for listings and logs.
func KeyPrefix(key string, n int) string {
	if len(key) <= n {
		return key
	}
	return key[:n]
}

func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
