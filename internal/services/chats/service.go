// Package chats forwards sidebar chat management to the backend. Replies are
// relayed with their original status and body.
package chats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/internal/services/chat/models"
)

type Service struct {
	backend *backend.Service
}

func NewService(backendService *backend.Service) *Service {
	return &Service{backend: backendService}
}

// Create forwards the caller's body unchanged
func (s *Service) Create(ctx context.Context, body json.RawMessage) (*backend.Response, error) {
	return s.backend.CreateChat(ctx, body)
}

func (s *Service) List(ctx context.Context, req models.ListChatsRequest) (*backend.Response, error) {
	return s.backend.ListChats(ctx, req.UserID)
}

func (s *Service) Delete(ctx context.Context, req models.DeleteChatRequest) (*backend.Response, error) {
	return s.backend.DeleteChat(ctx, req.UserID, req.ChatID)
}

// Rename forwards the caller's body unchanged
func (s *Service) Rename(ctx context.Context, body json.RawMessage) (*backend.Response, error) {
	return s.backend.RenameChat(ctx, body)
}

func (s *Service) Messages(ctx context.Context, req models.ChatMessagesRequest) (*backend.Response, error) {
	return s.backend.ChatMessages(ctx, req.UserID, req.ChatID)
}

// History loads a chat's stored messages. The backend has answered both with
// a bare array and with {"messages": [...]}.
func (s *Service) History(ctx context.Context, userID, chatID string) ([]models.StoredMessage, error) {
	resp, err := s.Messages(ctx, models.ChatMessagesRequest{UserID: userID, ChatID: chatID})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &backend.StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var messages []models.StoredMessage
	if err := json.Unmarshal(resp.Body, &messages); err == nil {
		return messages, nil
	}

	var wrapped struct {
		Messages []models.StoredMessage `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return wrapped.Messages, nil
}

// SetTitle renames a chat and fails on any non-2xx reply
func (s *Service) SetTitle(ctx context.Context, userID, chatID, title string) error {
	body, err := json.Marshal(models.RenameChatRequest{UserID: userID, ChatID: chatID, Title: title})
	if err != nil {
		return fmt.Errorf("failed to marshal rename request: %w", err)
	}
	resp, err := s.Rename(ctx, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &backend.StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}
