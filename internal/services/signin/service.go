// Package signin keeps the short-lived OAuth state issued when a user starts
// signing in, so the provider callback can be matched to it exactly once.
package signin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/infrastructure/redis"
)

const (
	StateLifetime = 10 * time.Minute
	keyPrefix     = "SignInState:"
	// sweepInterval spaces out pruning of abandoned states in MemoryStore
	sweepInterval = time.Minute
)

// ErrInvalidState is returned for unknown, reused or expired states
var ErrInvalidState = errors.New("invalid or expired sign-in state")

type StateInfo struct {
	Provider    string    `json:"provider"`
	CallbackURL string    `json:"callback_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type StateStore interface {
	Set(ctx context.Context, state string, info *StateInfo) error
	// Take returns and removes the state in one step
	Take(ctx context.Context, state string) (*StateInfo, error)
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu        sync.Mutex
	states    map[string]*StateInfo
	lastSweep time.Time
}

type Service struct {
	store StateStore
}

func NewService(redisService *redis.Service) *Service {
	var store StateStore
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable - falling back to in-memory sign-in state storage")
			store = NewMemoryStore()
		} else {
			log.Info().Msg("Using Redis for sign-in state storage")
			store = &RedisStore{redisService: redisService}
		}
	} else {
		log.Info().Msg("Using in-memory sign-in state storage")
		store = NewMemoryStore()
	}

	return NewServiceWithStore(store)
}

func NewServiceWithStore(store StateStore) *Service {
	return &Service{store: store}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*StateInfo),
	}
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, state string, info *StateInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, keyPrefix+state, string(data), time.Until(info.ExpiresAt))
}

func (rs *RedisStore) Take(ctx context.Context, state string) (*StateInfo, error) {
	data, err := rs.redisService.GetDel(ctx, keyPrefix+state)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var info StateInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, state string, info *StateInfo) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	if now.Sub(ms.lastSweep) >= sweepInterval {
		ms.sweep(now)
	}
	ms.states[state] = info
	return nil
}

// sweep drops states whose callback never arrived. Caller holds mu.
func (ms *MemoryStore) sweep(now time.Time) {
	for state, info := range ms.states {
		if now.After(info.ExpiresAt) {
			delete(ms.states, state)
		}
	}
	ms.lastSweep = now
}

func (ms *MemoryStore) Take(ctx context.Context, state string) (*StateInfo, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	info, exists := ms.states[state]
	if !exists {
		return nil, nil
	}
	delete(ms.states, state)
	return info, nil
}

// Begin issues a fresh state for a sign-in attempt with the given provider
func (s *Service) Begin(ctx context.Context, provider, callbackURL string) (string, error) {
	state := uuid.New().String()
	info := &StateInfo{
		Provider:    provider,
		CallbackURL: callbackURL,
		ExpiresAt:   time.Now().Add(StateLifetime),
	}
	if err := s.store.Set(ctx, state, info); err != nil {
		return "", fmt.Errorf("failed to store sign-in state: %w", err)
	}
	return state, nil
}

// Consume validates a state returned by the provider. Each state is accepted once.
func (s *Service) Consume(ctx context.Context, provider, state string) (*StateInfo, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	info, err := s.store.Take(ctx, state)
	if err != nil {
		return nil, err
	}
	if info == nil || time.Now().After(info.ExpiresAt) || info.Provider != provider {
		return nil, ErrInvalidState
	}
	return info, nil
}
