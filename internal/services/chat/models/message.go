package models

// Message roles as rendered to clients
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a chat conversation
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// Source is a retrieved document backing an assistant answer
type Source struct {
	Source  string `json:"source"`
	Page    *int   `json:"page,omitempty"`
	Snippet string `json:"snippet"`
}

// ChatMeta is a sidebar entry
type ChatMeta struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

// StoredMessage is a history entry as the backend returns it
type StoredMessage struct {
	Role    string `json:"role"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
}
