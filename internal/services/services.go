package services

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/chatgate/internal/connections"
	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/internal/infrastructure/identity"
	"github.com/deepgram/chatgate/internal/infrastructure/redis"
	"github.com/deepgram/chatgate/internal/services/chat"
	"github.com/deepgram/chatgate/internal/services/chats"
	"github.com/deepgram/chatgate/internal/services/session"
	"github.com/deepgram/chatgate/internal/services/signin"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	backendService  *backend.Service
	chatService     chat.Service
	chatsService    *chats.Service
	connections     *connections.Manager
	identityService *identity.Service
	redisService    *redis.Service
	sessionService  *session.Service
	signInService   *signin.Service
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()
	log.Info().Bool("available", redisService != nil).Msg("Initializing Redis service")

	backendService := backend.NewService()
	identityService := identity.NewService()
	log.Info().Strs("providers", identityService.Names()).Msg("Initializing identity service")

	services := New(
		backendService,
		identityService,
		session.NewService(redisService),
		signin.NewService(redisService),
	)
	services.redisService = redisService

	log.Info().Msg("All services initialized successfully")
	return services, nil
}

// New assembles a container from already built services
func New(backendService *backend.Service, identityService *identity.Service, sessionService *session.Service, signInService *signin.Service) *Services {
	return &Services{
		backendService:  backendService,
		chatService:     chat.NewService(backendService),
		chatsService:    chats.NewService(backendService),
		connections:     connections.NewManager(connections.DefaultTimeouts),
		identityService: identityService,
		sessionService:  sessionService,
		signInService:   signInService,
	}
}

// GetBackendService returns the backend client
func (s *Services) GetBackendService() *backend.Service {
	return s.backendService
}

// GetChatService returns the chat service
func (s *Services) GetChatService() chat.Service {
	return s.chatService
}

// GetChatsService returns the chat management service
func (s *Services) GetChatsService() *chats.Service {
	return s.chatsService
}

// GetConnectionManager returns the registry of live chat websockets
func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connections
}

// GetIdentityService returns the identity provider registry
func (s *Services) GetIdentityService() *identity.Service {
	return s.identityService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetSignInService returns the sign-in state service
func (s *Services) GetSignInService() *signin.Service {
	return s.signInService
}

// Close releases shared connections
func (s *Services) Close() {
	s.connections.CloseAll("server shutting down")
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
