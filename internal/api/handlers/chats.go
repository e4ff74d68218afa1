package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/internal/services/chats"
	"github.com/deepgram/chatgate/internal/services/chat/models"
	"github.com/deepgram/chatgate/pkg/httpext"
)

func HandleCreateChat(chatsService *chats.Service, w http.ResponseWriter, r *http.Request) {
	var req models.CreateChatRequest
	body, ok := decodeRawRequest(w, r, &req)
	if !ok {
		return
	}
	relay(w, r)(chatsService.Create(r.Context(), body))
}

func HandleListChats(chatsService *chats.Service, w http.ResponseWriter, r *http.Request) {
	var req models.ListChatsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	relay(w, r)(chatsService.List(r.Context(), req))
}

func HandleDeleteChat(chatsService *chats.Service, w http.ResponseWriter, r *http.Request) {
	var req models.DeleteChatRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	relay(w, r)(chatsService.Delete(r.Context(), req))
}

func HandleRenameChat(chatsService *chats.Service, w http.ResponseWriter, r *http.Request) {
	var req models.RenameChatRequest
	body, ok := decodeRawRequest(w, r, &req)
	if !ok {
		return
	}
	relay(w, r)(chatsService.Rename(r.Context(), body))
}

func HandleChatMessages(chatsService *chats.Service, w http.ResponseWriter, r *http.Request) {
	var req models.ChatMessagesRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	relay(w, r)(chatsService.Messages(r.Context(), req))
}

// relay writes a backend reply back with its status and body
func relay(w http.ResponseWriter, r *http.Request) func(*backend.Response, error) {
	return func(resp *backend.Response, err error) {
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Backend call failed")
			httpext.JsonError(w, "Backend unavailable", http.StatusInternalServerError)
			return
		}
		httpext.WriteRaw(w, resp.StatusCode, resp.Body)
	}
}
