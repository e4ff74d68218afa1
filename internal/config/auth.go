package config

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultJWTSecret = "your-256-bit-secret"

var (
	jwtSecretMu sync.RWMutex
	// jwtSecretOverride replaces JWT_SECRET while set, see SetJWTSecret
	jwtSecretOverride []byte
	defaultSecretOnce sync.Once
)

// SetJWTSecret temporarily changes the JWT secret and returns a function to restore it
// This is primarily used for testing
func SetJWTSecret(secret []byte) func() {
	jwtSecretMu.Lock()
	previous := jwtSecretOverride
	jwtSecretOverride = secret
	jwtSecretMu.Unlock()

	return func() {
		jwtSecretMu.Lock()
		jwtSecretOverride = previous
		jwtSecretMu.Unlock()
	}
}

// GetJWTSecret returns the key session tokens are signed with. JWT_SECRET is
// read on every call so a value from the config file is honoured.
func GetJWTSecret() []byte {
	jwtSecretMu.RLock()
	override := jwtSecretOverride
	jwtSecretMu.RUnlock()
	if override != nil {
		return override
	}

	secret := GetEnvOrDefault("JWT_SECRET", defaultJWTSecret)
	if secret == defaultJWTSecret {
		defaultSecretOnce.Do(func() {
			log.Warn().Msg("JWT_SECRET not set - sessions are signed with the built-in development secret")
		})
	}
	return []byte(secret)
}
