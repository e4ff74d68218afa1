package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
	// TrustProxy keys clients by X-Forwarded-For; only safe behind a proxy that sets it
	TrustProxy bool
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := parseEnvBool("RATELIMIT_ENABLED", false)
	trustProxy := parseEnvBool("RATELIMIT_TRUST_PROXY", false)

	configs := map[string]RateLimitConfig{
		"global": {
			Enabled:    enabled,
			MaxHits:    parseEnvInt("RATELIMIT_GLOBAL", 1000), // 1000 requests per minute globally
			Window:     time.Minute,
			TrustProxy: trustProxy,
		},
		"chat": {
			Enabled:    enabled,
			MaxHits:    parseEnvInt("RATELIMIT_CHAT", 30), // 30 streamed answers per minute
			Window:     time.Minute,
			TrustProxy: trustProxy,
		},
		"auth": {
			Enabled:    enabled,
			MaxHits:    parseEnvInt("RATELIMIT_AUTH", 20), // 20 sign-in attempts per minute
			Window:     time.Minute,
			TrustProxy: trustProxy,
		},
		"files": {
			Enabled:    enabled,
			MaxHits:    parseEnvInt("RATELIMIT_FILES", 120), // 120 file fetches per minute
			Window:     time.Minute,
			TrustProxy: trustProxy,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("key", key).Msg("No rate limit config found")
	return RateLimitConfig{Enabled: false}
}
