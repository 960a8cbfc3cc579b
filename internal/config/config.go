package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakKeys = []string{
	"change-me", "dev-key-change-me", "secret", "admin", "password", "apikey",
}

type Config struct {
	Port                   int    `env:"PORT" envDefault:"3001"`
	EvolutionAPIURL        string `env:"EVOLUTION_API_URL,required"`
	EvolutionAPIKey        string `env:"EVOLUTION_API_KEY,required"`
	MasterAPIKey           string `env:"API_KEY,required"`
	DBPath                 string `env:"DB_PATH" envDefault:"db.json"`
	RedisURL               string `env:"REDIS_URL"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	SyncIntervalSeconds    int    `env:"SYNC_INTERVAL_SECONDS" envDefault:"0"`
	UpstreamTimeoutSeconds int    `env:"UPSTREAM_TIMEOUT_SECONDS" envDefault:"15"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

// SyncInterval returns the background reconciliation interval; zero disables
// the job and reconciliation only happens on list fetches.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.EvolutionAPIURL, "http://") && !strings.HasPrefix(c.EvolutionAPIURL, "https://") {
		return fmt.Errorf("EVOLUTION_API_URL must be an http(s) URL, got %q", c.EvolutionAPIURL)
	}

	if len(c.MasterAPIKey) < 16 {
		log.Warn().Msg("API_KEY is shorter than 16 characters: consider a stronger master key")
	}
	for _, weak := range knownWeakKeys {
		if c.MasterAPIKey == weak {
			return fmt.Errorf("API_KEY is a known weak default; set a strong master key")
		}
	}

	if strings.HasPrefix(c.RedisURL, "redis://") && strings.HasPrefix(c.EvolutionAPIURL, "https://") {
		log.Warn().Msg("REDIS_URL uses redis:// (not TLS): consider using rediss://")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
