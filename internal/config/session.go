package config

import (
	"sync"
	"time"
)

var (
	cookieNameMu sync.RWMutex
	// cookieNameOverride replaces SESSION_COOKIE_NAME while set
	cookieNameOverride string
)

// GetSessionCookieName returns the configured session cookie name
// Default to "chatgate_session" if not set in environment
func GetSessionCookieName() string {
	cookieNameMu.RLock()
	override := cookieNameOverride
	cookieNameMu.RUnlock()
	if override != "" {
		return override
	}
	return GetEnvOrDefault("SESSION_COOKIE_NAME", "chatgate_session")
}

// SetSessionCookieName temporarily changes the session cookie name and returns a function to restore it
// This is primarily used for testing
func SetSessionCookieName(name string) func() {
	cookieNameMu.Lock()
	previous := cookieNameOverride
	cookieNameOverride = name
	cookieNameMu.Unlock()

	return func() {
		cookieNameMu.Lock()
		cookieNameOverride = previous
		cookieNameMu.Unlock()
	}
}

// GetSessionLifetime returns how long a signed-in session stays valid
func GetSessionLifetime() time.Duration {
	return parseEnvDuration("SESSION_LIFETIME", 24*time.Hour)
}

// GetSessionCookieSecure reports whether the session cookie carries the Secure flag
func GetSessionCookieSecure() bool {
	return parseEnvBool("SESSION_COOKIE_SECURE", true)
}
