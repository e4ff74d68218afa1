package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Backend API paths
const (
	PathChatStream    = "/chat/stream"
	PathChatClear     = "/chat/clear"
	PathChats         = "/chats"
	PathChatsRename   = "/chats/rename"
	PathChatsMessages = "/chats/messages"
	PathSources       = "/sources/invoke"
	PathFiles         = "/files"
	PathHealth        = "/health"
)

// Configurable carries per-call runnable configuration
type Configurable struct {
	SessionID string `json:"session_id"`
}

// RunConfig is the "config" block of an invoke/stream request
type RunConfig struct {
	Configurable Configurable `json:"configurable"`
}

// InvokeRequest is the body shape the backend's runnable endpoints accept
type InvokeRequest struct {
	Input  interface{} `json:"input"`
	Config RunConfig   `json:"config"`
}

// ChatInput is the runnable input for the chat chain
type ChatInput struct {
	Input string `json:"input"`
}

func newInvokeRequest(input interface{}, sessionID string) InvokeRequest {
	return InvokeRequest{
		Input:  input,
		Config: RunConfig{Configurable: Configurable{SessionID: sessionID}},
	}
}

// StreamChat opens the SSE completion stream for one user message
func (s *Service) StreamChat(ctx context.Context, input, sessionID string) (*http.Response, error) {
	return s.Open(ctx, http.MethodPost, PathChatStream, nil, newInvokeRequest(ChatInput{Input: input}, sessionID))
}

// InvokeSources asks the backend which documents back an answer. input is
// sent as given (usually {"input": "..."}).
func (s *Service) InvokeSources(ctx context.Context, input interface{}, sessionID string) (*Response, error) {
	return s.Do(ctx, http.MethodPost, PathSources, nil, newInvokeRequest(input, sessionID))
}

// ClearChat drops the stored history for a session key
func (s *Service) ClearChat(ctx context.Context, sessionID string) (*Response, error) {
	return s.Do(ctx, http.MethodPost, PathChatClear, nil, map[string]string{"session_id": sessionID})
}

func (s *Service) CreateChat(ctx context.Context, payload interface{}) (*Response, error) {
	return s.Do(ctx, http.MethodPost, PathChats, nil, payload)
}

func (s *Service) ListChats(ctx context.Context, userID string) (*Response, error) {
	return s.Do(ctx, http.MethodGet, PathChats, url.Values{"user_id": {userID}}, nil)
}

func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) (*Response, error) {
	return s.Do(ctx, http.MethodDelete, PathChats, url.Values{"user_id": {userID}, "chat_id": {chatID}}, nil)
}

func (s *Service) RenameChat(ctx context.Context, payload interface{}) (*Response, error) {
	return s.Do(ctx, http.MethodPost, PathChatsRename, nil, payload)
}

func (s *Service) ChatMessages(ctx context.Context, userID, chatID string) (*Response, error) {
	return s.Do(ctx, http.MethodGet, PathChatsMessages, url.Values{"user_id": {userID}, "chat_id": {chatID}}, nil)
}

// OpenFile streams a stored document; the caller closes the body
func (s *Service) OpenFile(ctx context.Context, path string) (*http.Response, error) {
	return s.Open(ctx, http.MethodGet, PathFiles, url.Values{"path": {path}}, nil)
}

func (s *Service) Health(ctx context.Context) (*Response, error) {
	return s.Do(ctx, http.MethodGet, PathHealth, nil, nil)
}
