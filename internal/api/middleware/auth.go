package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/services/session"
	"github.com/deepgram/chatgate/pkg/httpext"
)

type contextKey string

const (
	sessionClaimsKey contextKey = "sessionClaims"
)

// RequireSession rejects requests without a valid session cookie
func RequireSession(sessionService *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessionService.ValidateSession(r)
			if err != nil {
				log.Error().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Session lookup failed")
				httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if claims == nil {
				httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Store session claims in context
			ctx := context.WithValue(r.Context(), sessionClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the session claims stored by RequireSession
func GetSession(r *http.Request) *session.SessionClaims {
	if claims, ok := r.Context().Value(sessionClaimsKey).(*session.SessionClaims); ok {
		return claims
	}
	return nil
}
