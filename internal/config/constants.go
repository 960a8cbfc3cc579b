package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Background sync job bound
const SyncJobTimeout = 30 * time.Second

// Default rate limiting
const DefaultRateLimitPerMin = 60

// Length of the key prefix exposed in API key listings
const KeyPrefixLen = 12
