package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	settingsMu sync.RWMutex
	settings   = newSettings()
)

func newSettings() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// LoadFile reads an optional YAML/JSON/TOML config file. Keys in the file use
// the same names as the environment variables; the environment still wins.
func LoadFile(path string) error {
	if path == "" {
		return nil
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	settings.SetConfigFile(path)
	if err := settings.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Loaded configuration file")
	return nil
}

// GetEnvOrDefault returns the value of an environment variable (or config file
// key) or a default value
func GetEnvOrDefault(key, defaultValue string) string {
	settingsMu.RLock()
	value := settings.GetString(key)
	settingsMu.RUnlock()

	if value == "" {
		return defaultValue
	}
	return value
}

func parseEnvInt(key string, defaultValue int) int {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("Invalid integer value, using default")
		return defaultValue
	}

	return parsed
}

func parseEnvBool(key string, defaultValue bool) bool {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("Invalid boolean value, using default")
		return defaultValue
	}

	return parsed
}

func parseEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(val)
	if err != nil {
		log.Warn().Str("key", key).Dur("default", defaultValue).Msg("Invalid duration value, using default")
		return defaultValue
	}

	return parsed
}

// cleanEmptyStrings trims each element and drops the empty ones
func cleanEmptyStrings(slice []string) []string {
	result := make([]string, 0)
	for _, s := range slice {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}
