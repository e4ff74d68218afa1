package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/deepgram/chatgate/internal/api/middleware"
	"github.com/deepgram/chatgate/internal/config"
	"github.com/deepgram/chatgate/internal/connections"
	"github.com/deepgram/chatgate/internal/conversation"
	"github.com/deepgram/chatgate/internal/services/chat"
	"github.com/deepgram/chatgate/internal/services/chat/models"
	"github.com/deepgram/chatgate/internal/services/chats"
	"github.com/deepgram/chatgate/internal/services/session"
	"github.com/deepgram/chatgate/pkg/httpext"
	"github.com/deepgram/chatgate/pkg/logger"
)

// Client frame types
const (
	frameSwitch = "switch"
	frameSend   = "send"
)

// Server frame types
const (
	frameHistory  = "history"
	frameFragment = "fragment"
	frameSources  = "sources"
	frameRenamed  = "renamed"
	frameDone     = "done"
	frameError    = "error"
)

type clientFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id,omitempty"`
	Title  string `json:"title,omitempty"`
	Input  string `json:"input,omitempty"`
}

type historyFrame struct {
	Type     string               `json:"type"`
	ChatID   string               `json:"chat_id"`
	Title    string               `json:"title"`
	Messages []models.ChatMessage `json:"messages"`
}

type fragmentFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sourcesFrame struct {
	Type    string          `json:"type"`
	Sources []models.Source `json:"sources"`
}

type renamedFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

type doneFrame struct {
	Type   string `json:"type"`
	Answer string `json:"answer"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newUpgrader(allowedOrigins []string, timeouts connections.TimeoutConfig) websocket.Upgrader {
	return websocket.Upgrader{
		HandshakeTimeout: timeouts.HandshakeTimeout,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}
}

// originAllowed accepts listed origins, or the request's own host when no
// list is configured. Requests without an Origin header are not from a browser.
func originAllowed(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// chatSocket drives one websocket connection. Frames are handled one at a
// time, so a send finishes streaming before the next frame is read.
type chatSocket struct {
	conn         *websocket.Conn
	connections  *connections.Manager
	chatService  chat.Service
	chatsService *chats.Service
	userID       string
	state        conversation.State
	log          zerolog.Logger
}

// HandleChatSocket serves the interactive chat over a websocket
func HandleChatSocket(chatService chat.Service, chatsService *chats.Service, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r)
	if claims == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := newUpgrader(config.GetAllowedOrigins(), manager.GetTimeouts())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		log := logger.For(logger.CHAT)
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	manager.AddConnection(conn)
	defer func() {
		manager.RemoveConnection(conn)
		conn.Close()
	}()

	socket := &chatSocket{
		conn:         conn,
		connections:  manager,
		chatService:  chatService,
		chatsService: chatsService,
		userID:       claims.UserID,
		log:          logger.For(logger.CHAT).With().Str("user_id", claims.UserID).Logger(),
	}
	socket.log.Info().Msg("Chat websocket connected")
	socket.serve(r)
}

func (s *chatSocket) serve(r *http.Request) {
	for {
		var frame clientFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected websocket closure")
			} else {
				s.log.Debug().Err(err).Msg("Chat websocket closed")
			}
			return
		}

		var err error
		switch frame.Type {
		case frameSwitch:
			err = s.switchChat(r, frame)
		case frameSend:
			err = s.send(r, frame.Input)
		default:
			err = s.writeError("Unknown frame type")
		}
		if err != nil {
			s.log.Debug().Err(err).Msg("Failed to write websocket frame")
			return
		}
	}
}

func (s *chatSocket) switchChat(r *http.Request, frame clientFrame) error {
	if frame.ChatID == "" {
		return s.writeError("chat_id is required")
	}

	history, err := s.chatsService.History(r.Context(), s.userID, frame.ChatID)
	if err != nil {
		s.log.Error().Err(err).Str("chat_id", frame.ChatID).Msg("Failed to load chat history")
		return s.writeError("Failed to load chat")
	}

	s.state = conversation.Load(frame.ChatID, frame.Title, history)
	return s.write(historyFrame{
		Type:     frameHistory,
		ChatID:   s.state.ChatID,
		Title:    s.state.Title,
		Messages: s.state.Messages,
	})
}

func (s *chatSocket) send(r *http.Request, input string) error {
	if s.state.ChatID == "" {
		return s.writeError("No chat selected")
	}

	next, err := s.state.Submit(input)
	if err != nil {
		return s.writeError(err.Error())
	}
	s.state = next

	if conversation.IsDefaultTitle(s.state.Title) {
		if err := s.rename(r, conversation.SuggestTitle(input)); err != nil {
			return err
		}
	}

	ctx := r.Context()
	key := session.Key(s.userID, s.state.ChatID)

	stream, err := s.chatService.OpenStream(ctx, input, key)
	if err != nil {
		s.log.Error().Err(err).Str("chat_id", s.state.ChatID).Msg("Failed to open chat stream")
		s.state = s.state.Complete()
		return s.writeError("Backend unavailable")
	}

	var writeErr error
	streamErr := stream.Each(func(fragment string) error {
		s.state = s.state.AppendFragment(fragment)
		if err := s.write(fragmentFrame{Type: frameFragment, Text: fragment}); err != nil {
			writeErr = err
			return err
		}
		return nil
	})
	stream.Close()
	s.state = s.state.Complete()

	if writeErr != nil {
		return writeErr
	}
	if streamErr != nil {
		s.log.Warn().Err(streamErr).Str("chat_id", s.state.ChatID).Msg("Chat stream ended early")
		if err := s.writeError("Answer interrupted"); err != nil {
			return err
		}
	}

	raw, err := s.chatService.Sources(ctx, input, key)
	if err != nil {
		s.log.Warn().Err(err).Str("chat_id", s.state.ChatID).Msg("Sources lookup failed")
	} else {
		sources := chat.DecodeSources(raw)
		if sources == nil {
			sources = []models.Source{}
		}
		s.state = s.state.AttachSources(sources)
		if err := s.write(sourcesFrame{Type: frameSources, Sources: sources}); err != nil {
			return err
		}
	}

	return s.write(doneFrame{Type: frameDone, Answer: s.state.Answer()})
}

// rename persists a suggested title. A failed rename is logged and does not
// block the answer.
func (s *chatSocket) rename(r *http.Request, title string) error {
	if err := s.chatsService.SetTitle(r.Context(), s.userID, s.state.ChatID, title); err != nil {
		s.log.Warn().Err(err).Str("chat_id", s.state.ChatID).Msg("Failed to rename chat")
	}
	s.state = s.state.Rename(title)
	return s.write(renamedFrame{Type: frameRenamed, ChatID: s.state.ChatID, Title: title})
}

func (s *chatSocket) write(frame interface{}) error {
	return s.connections.WriteJSON(s.conn, frame)
}

func (s *chatSocket) writeError(message string) error {
	return s.write(errorFrame{Type: frameError, Error: message})
}
