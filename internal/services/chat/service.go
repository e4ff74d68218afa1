package chat

import (
	"context"
	"encoding/json"
)

// Service defines the interface for chat operations
type Service interface {
	// OpenStream starts a streamed answer. Upstream non-2xx statuses are
	// returned as *backend.StatusError before any fragment is read.
	OpenStream(ctx context.Context, input, sessionID string) (*Stream, error)

	// Sources returns the raw JSON array of sources backing the last answer
	Sources(ctx context.Context, input interface{}, sessionID string) (json.RawMessage, error)

	// Clear drops the backend history stored under sessionID
	Clear(ctx context.Context, sessionID string) error
}
