// Package conversation holds the per-connection view of one chat as an
// explicit value. Every transition returns a new State and leaves the
// receiver untouched.
package conversation

import (
	"errors"
	"strings"

	"github.com/deepgram/chatgate/internal/services/chat/models"
)

const Greeting = "Hello! Ask me something."

var (
	ErrStreamOpen = errors.New("an answer is still streaming")
	ErrEmptyInput = errors.New("message is empty")
)

type State struct {
	ChatID    string
	Title     string
	Messages  []models.ChatMessage
	Streaming bool
}

func New(chatID, title string) State {
	return State{
		ChatID:   chatID,
		Title:    title,
		Messages: []models.ChatMessage{{Role: models.RoleAssistant, Content: Greeting}},
	}
}

// Load replaces the view with a chat's stored history
func Load(chatID, title string, history []models.StoredMessage) State {
	messages := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		role := normalizeRole(m.Role, m.Type)
		if role == "" {
			continue
		}
		messages = append(messages, models.ChatMessage{Role: role, Content: m.Content})
	}
	if len(messages) == 0 {
		return New(chatID, title)
	}
	return State{ChatID: chatID, Title: title, Messages: messages}
}

func normalizeRole(role, kind string) string {
	if role == "" {
		role = kind
	}
	switch strings.ToLower(role) {
	case "human", "user":
		return models.RoleUser
	case "ai", "assistant":
		return models.RoleAssistant
	}
	return ""
}

// Submit appends the user's message and an empty assistant message that
// fragments will grow
func (s State) Submit(input string) (State, error) {
	if s.Streaming {
		return s, ErrStreamOpen
	}
	if strings.TrimSpace(input) == "" {
		return s, ErrEmptyInput
	}

	next := s.clone()
	next.Messages = append(next.Messages,
		models.ChatMessage{Role: models.RoleUser, Content: input},
		models.ChatMessage{Role: models.RoleAssistant},
	)
	next.Streaming = true
	return next, nil
}

// AppendFragment grows the open assistant message. It is a no-op when no
// stream is open.
func (s State) AppendFragment(fragment string) State {
	if !s.Streaming {
		return s
	}
	i := s.lastAssistant()
	if i < 0 {
		return s
	}

	next := s.clone()
	next.Messages[i].Content += fragment
	return next
}

// Complete freezes the open assistant message
func (s State) Complete() State {
	next := s.clone()
	next.Streaming = false
	return next
}

// AttachSources sets the sources of the most recent assistant message
func (s State) AttachSources(sources []models.Source) State {
	i := s.lastAssistant()
	if i < 0 {
		return s
	}

	next := s.clone()
	next.Messages[i].Sources = append([]models.Source(nil), sources...)
	return next
}

func (s State) Rename(title string) State {
	next := s.clone()
	next.Title = title
	return next
}

// Answer returns the text of the most recent assistant message
func (s State) Answer() string {
	if i := s.lastAssistant(); i >= 0 {
		return s.Messages[i].Content
	}
	return ""
}

func (s State) lastAssistant() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == models.RoleAssistant {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	next := s
	next.Messages = append([]models.ChatMessage(nil), s.Messages...)
	return next
}
