package config

import (
	"strings"
	"time"
)

// GetBackendURL returns the base address of the RAG backend, without a trailing slash
func GetBackendURL() string {
	return strings.TrimRight(GetEnvOrDefault("BACKEND_URL", "http://localhost:8001"), "/")
}

// GetBackendTimeout bounds non-streaming backend calls
func GetBackendTimeout() time.Duration {
	return parseEnvDuration("BACKEND_TIMEOUT", 30*time.Second)
}
