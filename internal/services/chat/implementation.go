package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/internal/services/chat/models"
	"github.com/deepgram/chatgate/pkg/sse"
)

type Implementation struct {
	backend *backend.Service
}

func NewService(backendService *backend.Service) *Implementation {
	return &Implementation{backend: backendService}
}

// Stream is an open completion stream. The caller must Close it.
type Stream struct {
	normalizer *sse.Normalizer
	body       io.Closer
}

// Next returns the next text fragment, io.EOF at the end of the answer or a
// *sse.TransportError if the connection to the backend broke.
func (s *Stream) Next() (string, error) {
	return s.normalizer.Next()
}

// Each calls fn for every fragment until the stream ends. A normal end
// returns nil.
func (s *Stream) Each(fn func(fragment string) error) error {
	for {
		fragment, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(fragment); err != nil {
			return err
		}
	}
}

func (s *Stream) Close() error {
	return s.body.Close()
}

func (s *Implementation) OpenStream(ctx context.Context, input, sessionID string) (*Stream, error) {
	resp, err := s.backend.StreamChat(ctx, input, sessionID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := backend.ReadStatusError(resp)
		log.Warn().
			Int("status", statusErr.StatusCode).
			Str("session_id", sessionID).
			Msg("Backend refused chat stream")
		return nil, statusErr
	}

	log.Debug().Str("session_id", sessionID).Msg("Chat stream opened")
	return &Stream{
		normalizer: sse.NewNormalizer(resp.Body),
		body:       resp.Body,
	}, nil
}

// sourcesEnvelope keeps output raw: langserve may answer with a string or a
// list there, and only an object can carry sources.
type sourcesEnvelope struct {
	Sources json.RawMessage `json:"sources"`
	Output  json.RawMessage `json:"output"`
}

type outputSources struct {
	Sources json.RawMessage `json:"sources"`
}

var emptySources = json.RawMessage("[]")

func (s *Implementation) Sources(ctx context.Context, input interface{}, sessionID string) (json.RawMessage, error) {
	resp, err := s.backend.InvokeSources(ctx, SourcesInput(input), sessionID)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &backend.StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var envelope sourcesEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode sources response: %w", err)
	}

	// top-level sources win over output.sources
	if present(envelope.Sources) {
		return envelope.Sources, nil
	}
	var output outputSources
	if isObject(envelope.Output) && json.Unmarshal(envelope.Output, &output) == nil && present(output.Sources) {
		return output.Sources, nil
	}
	return emptySources, nil
}

func (s *Implementation) Clear(ctx context.Context, sessionID string) error {
	resp, err := s.backend.ClearChat(ctx, sessionID)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &backend.StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}

// SourcesInput shapes the runnable input of a sources lookup: a string
// becomes {"input": s}, an object is sent as-is and nothing becomes {}.
func SourcesInput(input interface{}) interface{} {
	switch v := input.(type) {
	case string:
		return map[string]string{"input": v}
	case nil:
		return map[string]interface{}{}
	default:
		return v
	}
}

// DecodeSources reads a sources array leniently. Entries that do not fit
// the Source shape are skipped.
func DecodeSources(raw json.RawMessage) []models.Source {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	sources := make([]models.Source, 0, len(entries))
	for _, entry := range entries {
		var source models.Source
		if err := json.Unmarshal(entry, &source); err != nil {
			log.Debug().Err(err).Msg("Skipping malformed source entry")
			continue
		}
		sources = append(sources, source)
	}
	return sources
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// IsUpstreamStatus reports whether err carries a backend status, as opposed
// to a transport failure
func IsUpstreamStatus(err error) (*backend.StatusError, bool) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}

var _ Service = (*Implementation)(nil)
