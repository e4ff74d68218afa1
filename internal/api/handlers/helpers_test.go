package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/chatgate/internal/config"
	"github.com/deepgram/chatgate/internal/infrastructure/backend"
	"github.com/deepgram/chatgate/internal/infrastructure/identity"
	"github.com/deepgram/chatgate/internal/services"
	"github.com/deepgram/chatgate/internal/services/session"
	"github.com/deepgram/chatgate/internal/services/signin"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeBackend stands in for the RAG backend. Routes are keyed "METHOD /path".
type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
	handler, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (f *fakeBackend) handle(route string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = handler
}

func (f *fakeBackend) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "backend was never called")
	return f.requests[len(f.requests)-1]
}

type testEnv struct {
	backend  *fakeBackend
	services *services.Services
	router   *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := &fakeBackend{routes: make(map[string]http.HandlerFunc)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return newTestEnvWithBackend(t, fake, server.URL, nil)
}

// newUnreachableEnv points at a backend that refuses connections
func newUnreachableEnv(t *testing.T) *testEnv {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return newTestEnvWithBackend(t, &fakeBackend{routes: map[string]http.HandlerFunc{}}, url, nil)
}

func newTestEnvWithBackend(t *testing.T, fake *fakeBackend, backendURL string, providers []config.ProviderConfig) *testEnv {
	t.Helper()
	svcs := services.New(
		backend.NewServiceWithClient(backendURL, &http.Client{}, 5*time.Second),
		identity.NewServiceWithProviders("http://chat.test", providers, &http.Client{}),
		session.NewServiceWithStore(session.NewMemoryStore(), time.Hour, false),
		signin.NewServiceWithStore(signin.NewMemoryStore()),
	)

	router := mux.NewRouter()
	RegisterRoutes(router, svcs)
	return &testEnv{backend: fake, services: svcs, router: router}
}

func (e *testEnv) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signIn creates a session directly and returns its cookie
func (e *testEnv) signIn(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	_, err := e.services.GetSessionService().CreateSession(context.Background(), w, &identity.Profile{
		ID:       userID,
		Provider: "github",
		Name:     "Test User",
	})
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}
