package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/deepgram/chatgate/internal/config"
)

var (
	ErrUnknownProvider = errors.New("unknown identity provider")
	ErrMissingSubject  = errors.New("identity provider returned no user id")
)

// Profile is the signed-in user as reported by the provider
type Profile struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Image    string `json:"image,omitempty"`
}

type defaults struct {
	endpoint    oauth2.Endpoint
	scopes      []string
	userInfoURL string
}

var builtin = map[string]defaults{
	"github": {
		endpoint:    endpoints.GitHub,
		scopes:      []string{"read:user", "user:email"},
		userInfoURL: "https://api.github.com/user",
	},
	"google": {
		endpoint:    endpoints.Google,
		scopes:      []string{"openid", "email", "profile"},
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
	},
}

// Profile fields differ per provider; the first present key wins
var (
	idKeys    = []string{"sub", "id"}
	nameKeys  = []string{"name", "login", "preferred_username"}
	emailKeys = []string{"email"}
	imageKeys = []string{"picture", "avatar_url"}
)

type provider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
}

type Service struct {
	providers map[string]*provider
	client    *http.Client
}

func NewService() *Service {
	return NewServiceWithProviders(config.GetPublicURL(), config.GetProviderConfigs(), &http.Client{})
}

// NewServiceWithProviders builds providers from explicit configuration.
// Providers without usable endpoints are skipped.
func NewServiceWithProviders(publicURL string, cfgs []config.ProviderConfig, client *http.Client) *Service {
	s := &Service{
		providers: make(map[string]*provider),
		client:    client,
	}

	for _, cfg := range cfgs {
		d := builtin[cfg.Name]

		endpoint := d.endpoint
		if cfg.AuthURL != "" {
			endpoint.AuthURL = cfg.AuthURL
		}
		if cfg.TokenURL != "" {
			endpoint.TokenURL = cfg.TokenURL
		}
		userInfoURL := d.userInfoURL
		if cfg.UserInfoURL != "" {
			userInfoURL = cfg.UserInfoURL
		}
		scopes := d.scopes
		if len(cfg.Scopes) > 0 {
			scopes = cfg.Scopes
		}

		if endpoint.AuthURL == "" || endpoint.TokenURL == "" || userInfoURL == "" {
			log.Warn().Str("provider", cfg.Name).Msg("Identity provider has no endpoints configured - skipping")
			continue
		}

		s.providers[cfg.Name] = &provider{
			name: cfg.Name,
			oauth: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Endpoint:     endpoint,
				RedirectURL:  publicURL + "/api/auth/callback/" + cfg.Name,
				Scopes:       scopes,
			},
			userInfoURL: userInfoURL,
		}
		log.Info().Str("provider", cfg.Name).Msg("Identity provider enabled")
	}

	return s
}

// Names lists the enabled providers in sorted order
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a provider is enabled
func (s *Service) Has(name string) bool {
	_, ok := s.providers[name]
	return ok
}

// AuthCodeURL returns the provider's consent page URL for a sign-in attempt
func (s *Service) AuthCodeURL(name, state string) (string, error) {
	p, ok := s.providers[name]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.oauth.AuthCodeURL(state), nil
}

// Exchange trades an authorization code for a token and fetches the user's profile
func (s *Service) Exchange(ctx context.Context, name, code string) (*Profile, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseProfile(name, resp.Body)
}

func parseProfile(providerName string, r io.Reader) (*Profile, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var fields map[string]interface{}
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}

	profile := &Profile{
		ID:       firstString(fields, idKeys),
		Provider: providerName,
		Name:     firstString(fields, nameKeys),
		Email:    firstString(fields, emailKeys),
		Image:    firstString(fields, imageKeys),
	}
	if profile.ID == "" {
		return nil, ErrMissingSubject
	}
	return profile, nil
}

func firstString(fields map[string]interface{}, keys []string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
