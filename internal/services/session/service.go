package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/config"
	"github.com/deepgram/chatgate/internal/infrastructure/identity"
	"github.com/deepgram/chatgate/internal/infrastructure/redis"
)

const (
	keyPrefix = "Session:"
	// sweepInterval spaces out pruning of expired sessions in MemoryStore
	sweepInterval = time.Minute
)

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	Provider  string `json:"prv,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Image     string `json:"img,omitempty"`
}

// Key scopes backend conversation state to a user and one of their chats
func Key(userID, chatID string) string {
	return fmt.Sprintf("user:%s:chat:%s", userID, chatID)
}

type SessionStore interface {
	Set(ctx context.Context, sessionID string, claims *SessionClaims, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*SessionClaims, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
}

type memoryEntry struct {
	claims    *SessionClaims
	expiresAt time.Time
}

type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]memoryEntry
	lastSweep time.Time
}

type Service struct {
	store    SessionStore
	lifetime time.Duration
	secure   bool
}

func NewService(redisService *redis.Service) *Service {
	var store SessionStore
	if redisService != nil {
		// Test Redis connection
		if err := redisService.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable - falling back to in-memory session storage")
			store = NewMemoryStore()
		} else {
			log.Info().Msg("Using Redis for session storage")
			store = &RedisStore{redisService: redisService}
		}
	} else {
		log.Info().Msg("Using in-memory session storage")
		store = NewMemoryStore()
	}

	return NewServiceWithStore(store, config.GetSessionLifetime(), config.GetSessionCookieSecure())
}

func NewServiceWithStore(store SessionStore, lifetime time.Duration, secure bool) *Service {
	return &Service{store: store, lifetime: lifetime, secure: secure}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
	}
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, sessionID string, claims *SessionClaims, ttl time.Duration) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, keyPrefix+sessionID, string(data), ttl)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+sessionID)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var claims SessionClaims
	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return nil, err
	}

	return &claims, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, keyPrefix+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, sessionID string, claims *SessionClaims, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	if now.Sub(ms.lastSweep) >= sweepInterval {
		ms.sweep(now)
	}
	ms.sessions[sessionID] = memoryEntry{claims: claims, expiresAt: now.Add(ttl)}
	return nil
}

// sweep drops sessions that expired without being looked up again. Caller holds mu.
func (ms *MemoryStore) sweep(now time.Time) {
	for sessionID, entry := range ms.sessions {
		if now.After(entry.expiresAt) {
			delete(ms.sessions, sessionID)
		}
	}
	ms.lastSweep = now
}

func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	ms.mu.RLock()
	entry, exists := ms.sessions[sessionID]
	ms.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		_ = ms.Delete(ctx, sessionID)
		return nil, nil
	}
	return entry.claims, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}

// CreateSession stores a new session for the signed-in user and sets the cookie
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter, profile *identity.Profile) (*SessionClaims, error) {
	now := time.Now()
	sessionID := uuid.New().String()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
			Subject:   profile.ID,
		},
		SessionID: sessionID,
		UserID:    profile.ID,
		Provider:  profile.Provider,
		Name:      profile.Name,
		Email:     profile.Email,
		Image:     profile.Image,
	}

	if err := s.store.Set(ctx, sessionID, claims, s.lifetime); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(s.lifetime),
	})

	log.Info().
		Str("user_id", profile.ID).
		Str("provider", profile.Provider).
		Msg("Session created")
	return claims, nil
}

// ValidateSession returns the claims of a valid session cookie, or nil when
// there is none. Errors are only returned for store failures.
func (s *Service) ValidateSession(r *http.Request) (*SessionClaims, error) {
	claims := s.parseCookie(r)
	if claims == nil {
		return nil, nil
	}

	// Verify session exists in store
	storedClaims, err := s.store.Get(r.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	if storedClaims == nil {
		return nil, nil
	}

	return claims, nil
}

// ClearSession removes the session cookie and from storage
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	if claims := s.parseCookie(r); claims != nil {
		if err := s.store.Delete(r.Context(), claims.SessionID); err != nil {
			log.Warn().Err(err).Str("session_id", claims.SessionID).Msg("Failed to delete stored session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func (s *Service) parseCookie(r *http.Request) *SessionClaims {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		return nil
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetJWTSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug().Err(err).Msg("Rejected session cookie")
		return nil
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil
	}
	return claims
}
