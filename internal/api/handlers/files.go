package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/pkg/httpext"
)

// passthroughHeaders are the only upstream headers a file download keeps
var passthroughHeaders = []string{"Content-Type", "Content-Disposition"}

// HandleFiles streams a stored document from the backend
func HandleFiles(backendService *backend.Service, w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		httpext.JsonError(w, "Missing path", http.StatusBadRequest)
		return
	}

	resp, err := backendService.OpenFile(r.Context(), path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to fetch file from backend")
		httpext.JsonError(w, "Backend unavailable", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	for _, name := range passthroughHeaders {
		if value := resp.Header.Get(name); value != "" {
			w.Header().Set(name, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("File download interrupted")
	}
}
