package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/config"
)

// maxErrorBody caps how much of an upstream error body is kept for diagnostics
const maxErrorBody = 4096

// Service is the HTTP client for the RAG backend.
type Service struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// Response is a fully read backend reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError is returned when the backend answers with a non-2xx status
// where the caller needed a success.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

func NewService() *Service {
	return NewServiceWithClient(config.GetBackendURL(), &http.Client{}, config.GetBackendTimeout())
}

// NewServiceWithClient builds a client against an explicit base URL. timeout
// applies to calls whose body is read fully; streamed calls are bounded only
// by the caller's context.
func NewServiceWithClient(baseURL string, client *http.Client, timeout time.Duration) *Service {
	log.Info().Str("base_url", baseURL).Dur("timeout", timeout).Msg("Backend client configured")

	return &Service{
		client:  client,
		baseURL: baseURL,
		timeout: timeout,
	}
}

// BaseURL returns the backend address requests are sent to
func (s *Service) BaseURL() string {
	return s.baseURL
}

// Open sends a request and returns the live response. The caller must close
// the body. payload, when non-nil, is sent as JSON.
func (s *Service) Open(ctx context.Context, method, path string, query url.Values, payload interface{}) (*http.Response, error) {
	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Cache-Control", "no-store")

	log.Debug().Str("method", method).Str("path", path).Msg("Calling backend")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	return resp, nil
}

// Do sends a request and reads the whole reply. Any status is returned as a
// Response; only transport failures are errors.
func (s *Service) Do(ctx context.Context, method, path string, query url.Values, payload interface{}) (*Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.Open(ctx, method, path, query, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode >= 400 {
		log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("Backend returned error status")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// ReadStatusError drains a failed streamed response into a StatusError and
// closes it
func ReadStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}
