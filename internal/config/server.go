package config

import "strings"

func GetServerAddr() string {
	return GetEnvOrDefault("SERVER_ADDR", ":8080")
}

// GetPublicURL is the externally visible base URL, used to build OAuth redirect URLs
func GetPublicURL() string {
	return strings.TrimRight(GetEnvOrDefault("PUBLIC_URL", "http://localhost:8080"), "/")
}

// GetAllowedOrigins lists origins allowed to open the chat websocket. Empty
// means only the request's own host.
func GetAllowedOrigins() []string {
	return cleanEmptyStrings(strings.Split(GetEnvOrDefault("ALLOWED_ORIGINS", ""), ","))
}

func GetLogLevel() string {
	return GetEnvOrDefault("LOG_LEVEL", "INFO")
}

func GetLogFormat() string {
	return GetEnvOrDefault("LOG_FORMAT", "json")
}
