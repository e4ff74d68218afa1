package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/pkg/httpext"
)

type healthResponse struct {
	OK      bool            `json:"ok"`
	Backend json.RawMessage `json:"backend,omitempty"`
	Status  int             `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HandleHealth reports whether the backend answers its health check
func HandleHealth(backendService *backend.Service, w http.ResponseWriter, r *http.Request) {
	resp, err := backendService.Health(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Backend health check failed")
		httpext.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false, Error: err.Error()})
		return
	}
	if !resp.OK() {
		httpext.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false, Status: resp.StatusCode})
		return
	}

	backendHealth := json.RawMessage(resp.Body)
	if !json.Valid(backendHealth) {
		backendHealth = json.RawMessage("{}")
	}
	httpext.WriteJSON(w, http.StatusOK, healthResponse{OK: true, Backend: backendHealth})
}
