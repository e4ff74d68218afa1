package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/deepgram/chatgate/internal/infrastructure/identity"
	"github.com/deepgram/chatgate/internal/services/session"
	"github.com/deepgram/chatgate/internal/services/signin"
	"github.com/deepgram/chatgate/pkg/httpext"
	"github.com/deepgram/chatgate/pkg/logger"
)

type providerInfo struct {
	ID        string `json:"id"`
	SignInURL string `json:"signin_url"`
}

type sessionUser struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Image    string `json:"image,omitempty"`
	Provider string `json:"provider"`
}

type sessionResponse struct {
	User    sessionUser `json:"user"`
	Expires string      `json:"expires"`
}

// HandleProviders lists the identity providers a user can sign in with
func HandleProviders(identityService *identity.Service, w http.ResponseWriter, r *http.Request) {
	providers := make([]providerInfo, 0)
	for _, name := range identityService.Names() {
		providers = append(providers, providerInfo{ID: name, SignInURL: "/api/auth/signin/" + name})
	}
	httpext.WriteJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})
}

// HandleSignIn redirects the browser to the provider's consent page
func HandleSignIn(identityService *identity.Service, signInService *signin.Service, w http.ResponseWriter, r *http.Request) {
	log := logger.For(logger.AUTH)
	provider := mux.Vars(r)["provider"]
	if !identityService.Has(provider) {
		httpext.JsonError(w, "Unknown provider", http.StatusNotFound)
		return
	}

	state, err := signInService.Begin(r.Context(), provider, safeCallbackURL(r.URL.Query().Get("callbackUrl")))
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("Failed to start sign-in")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	authURL, err := identityService.AuthCodeURL(provider, state)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("Failed to build authorization URL")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes a sign-in and sets the session cookie
func HandleCallback(identityService *identity.Service, signInService *signin.Service, sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	log := logger.For(logger.AUTH)
	provider := mux.Vars(r)["provider"]
	query := r.URL.Query()

	info, err := signInService.Consume(r.Context(), provider, query.Get("state"))
	if err != nil {
		if errors.Is(err, signin.ErrInvalidState) {
			log.Warn().Str("provider", provider).Msg("Rejected sign-in callback with invalid state")
			httpext.JsonError(w, "Invalid sign-in state", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("Failed to read sign-in state")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if providerErr := query.Get("error"); providerErr != "" {
		log.Warn().Str("provider", provider).Str("error", providerErr).Msg("Provider denied sign-in")
		httpext.JsonErrorWithDetails(w, http.StatusUnauthorized, httpext.ErrorResponse{
			Error:            "access_denied",
			ErrorDescription: query.Get("error_description"),
		})
		return
	}

	code := query.Get("code")
	if code == "" {
		httpext.JsonError(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	profile, err := identityService.Exchange(r.Context(), provider, code)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("Sign-in exchange failed")
		httpext.JsonError(w, "Sign-in failed", http.StatusBadGateway)
		return
	}

	if _, err := sessionService.CreateSession(r.Context(), w, profile); err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("Failed to create session")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, info.CallbackURL, http.StatusFound)
}

// HandleSession returns the signed-in user, or {} when there is none
func HandleSession(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	claims, err := sessionService.ValidateSession(r)
	if err != nil {
		log := logger.For(logger.SESSION)
		log.Error().Err(err).Msg("Session lookup failed")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if claims == nil {
		httpext.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}

	var expires string
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	httpext.WriteJSON(w, http.StatusOK, sessionResponse{
		User: sessionUser{
			ID:       claims.UserID,
			Name:     claims.Name,
			Email:    claims.Email,
			Image:    claims.Image,
			Provider: claims.Provider,
		},
		Expires: expires,
	})
}

func HandleSignOut(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	sessionService.ClearSession(w, r)
	httpext.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// safeCallbackURL keeps post sign-in redirects on this site. Anything that
// is not a plain relative path becomes "/".
func safeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}
