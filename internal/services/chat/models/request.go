package models

// ChatRequest starts a streamed answer
type ChatRequest struct {
	Input     string `json:"input" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

// SourcesRequest accepts either a plain string input or an object such as
// {"input": "..."}
type SourcesRequest struct {
	Input     interface{} `json:"input"`
	SessionID string      `json:"session_id" validate:"required"`
}

type ClearChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type CreateChatRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Title  string `json:"title,omitempty"`
}

type ListChatsRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type DeleteChatRequest struct {
	UserID string `json:"user_id" validate:"required"`
	ChatID string `json:"chat_id" validate:"required"`
}

type RenameChatRequest struct {
	UserID string `json:"user_id" validate:"required"`
	ChatID string `json:"chat_id" validate:"required"`
	Title  string `json:"title" validate:"required"`
}

type ChatMessagesRequest struct {
	UserID string `json:"user_id" validate:"required"`
	ChatID string `json:"chat_id" validate:"required"`
}
