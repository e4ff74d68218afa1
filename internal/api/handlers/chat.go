package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/services/chat"
	"github.com/deepgram/chatgate/internal/services/chat/models"
	"github.com/deepgram/chatgate/pkg/httpext"
	"github.com/deepgram/chatgate/pkg/logger"
)

// HandleChat streams an answer as plain text, one flush per fragment
func HandleChat(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	log := logger.For(logger.STREAM).With().Str("session_id", req.SessionID).Logger()

	stream, err := chatService.OpenStream(r.Context(), req.Input, req.SessionID)
	if err != nil {
		if statusErr, ok := chat.IsUpstreamStatus(err); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(statusErr.StatusCode)
			_, _ = w.Write(statusErr.Body)
			return
		}
		log.Error().Err(err).Msg("Failed to open chat stream")
		httpext.JsonError(w, "Backend unavailable", http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	fragments := 0
	err = stream.Each(func(fragment string) error {
		if _, err := io.WriteString(w, fragment); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		fragments++
		return nil
	})
	if err != nil {
		// headers are gone; the client sees a truncated answer
		log.Warn().Err(err).Int("fragments", fragments).Msg("Chat stream ended early")
		return
	}

	log.Debug().Int("fragments", fragments).Msg("Chat stream completed")
}

// HandleSources looks up the documents backing an answer
func HandleSources(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	var req models.SourcesRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	sources, err := chatService.Sources(r.Context(), req.Input, req.SessionID)
	if err != nil {
		if statusErr, ok := chat.IsUpstreamStatus(err); ok {
			httpext.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":  "Upstream error",
				"status": statusErr.StatusCode,
				"body":   string(statusErr.Body),
			})
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Sources lookup failed")
		httpext.JsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, struct {
		Sources json.RawMessage `json:"sources"`
	}{Sources: sources})
}

// HandleClearChat drops the backend history for a session key
func HandleClearChat(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	var req models.ClearChatRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := chatService.Clear(r.Context(), req.SessionID); err != nil {
		if _, ok := chat.IsUpstreamStatus(err); ok {
			httpext.JsonError(w, "Failed to clear chat", http.StatusInternalServerError)
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Failed to clear chat")
		httpext.JsonError(w, "Backend unavailable", http.StatusInternalServerError)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
