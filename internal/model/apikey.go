package model

// APIKey is a generated credential. The full Key value is only returned at
// creation time and is never re-served afterwards.
type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	CreatedAt string `json:"createdAt"`
}

// APIKeyInfo is the listing shape: no secret beyond a short display prefix.
type APIKeyInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	KeyPrefix string `json:"keyPrefix"`
	CreatedAt string `json:"createdAt"`
}
