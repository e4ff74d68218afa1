package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ProviderConfig describes one OAuth2 identity provider users can sign in with
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// Endpoint overrides; empty means the provider's built-in endpoints
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// scanForProviderConfigs collects CHATGATE_<PROVIDER>_CLIENT_ID style variables
func scanForProviderConfigs() map[string]ProviderConfig {
	providers := make(map[string]ProviderConfig)

	for _, env := range os.Environ() {
		key := strings.Split(env, "=")[0]

		if !strings.HasPrefix(key, "CHATGATE_") || !strings.HasSuffix(key, "_CLIENT_ID") {
			continue
		}

		// Extract the provider name (e.g., "github" from "CHATGATE_GITHUB_CLIENT_ID")
		name := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(key, "CHATGATE_"), "_CLIENT_ID"))
		if name == "" {
			continue
		}
		prefix := fmt.Sprintf("CHATGATE_%s", strings.ToUpper(name))

		provider := ProviderConfig{
			Name:         name,
			ClientID:     GetEnvOrDefault(prefix+"_CLIENT_ID", ""),
			ClientSecret: GetEnvOrDefault(prefix+"_CLIENT_SECRET", ""),
			Scopes:       cleanEmptyStrings(strings.Split(GetEnvOrDefault(prefix+"_SCOPES", ""), ",")),
			AuthURL:      GetEnvOrDefault(prefix+"_AUTH_URL", ""),
			TokenURL:     GetEnvOrDefault(prefix+"_TOKEN_URL", ""),
			UserInfoURL:  GetEnvOrDefault(prefix+"_USERINFO_URL", ""),
		}

		if provider.ClientID == "" || provider.ClientSecret == "" {
			log.Warn().Str("provider", name).Msg("Skipping identity provider with missing client credentials")
			continue
		}

		providers[name] = provider
	}

	return providers
}

// GetProviderConfigs returns every configured identity provider, sorted by name
func GetProviderConfigs() []ProviderConfig {
	scanned := scanForProviderConfigs()

	providers := make([]ProviderConfig, 0, len(scanned))
	for _, p := range scanned {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })

	if len(providers) == 0 {
		log.Warn().Msg("No identity providers configured - sign-in will be unavailable")
	}
	return providers
}
