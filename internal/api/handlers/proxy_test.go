package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleChat(t *testing.T) {
	env := newTestEnv(t)
	env.backend.handle("POST /chat/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: metadata\ndata: {\"run_id\":\"1\"}\n\n")
		_, _ = io.WriteString(w, "data: {\"output\":\"Hello\"}\n\n")
		_, _ = io.WriteString(w, "data: {\"content\":[{\"text\":\" A\"},{\"text\":\"B\"}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	w := env.do(http.MethodPost, "/api/chat", `{"input":"hi","session_id":"user:1:chat:2"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Hello AB", w.Body.String())
	assert.True(t, w.Flushed)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(env.backend.last(t).Body), &sent))
	assert.Equal(t, map[string]interface{}{"input": "hi"}, sent["input"])
	assert.Equal(t, map[string]interface{}{
		"configurable": map[string]interface{}{"session_id": "user:1:chat:2"},
	}, sent["config"])
}

func TestHandleChatErrors(t *testing.T) {
	t.Run("missing field", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/chat", `{"input":"hi"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/chat", `{"input":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid request format"}`, w.Body.String())
	})

	t.Run("upstream status relayed", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /chat/stream", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, "slow down")
		})
		w := env.do(http.MethodPost, "/api/chat", `{"input":"hi","session_id":"s"}`)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "slow down", w.Body.String())
	})

	t.Run("backend unreachable", func(t *testing.T) {
		env := newUnreachableEnv(t)
		w := env.do(http.MethodPost, "/api/chat", `{"input":"hi","session_id":"s"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Backend unavailable"}`, w.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodGet, "/api/chat", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleSources(t *testing.T) {
	t.Run("string input and top level sources", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /sources/invoke", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"sources":[{"source":"guide.pdf","page":2,"snippet":"..."}]}`)
		})

		w := env.do(http.MethodPost, "/api/sources", `{"input":"what is rag","session_id":"s1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"sources":[{"source":"guide.pdf","page":2,"snippet":"..."}]}`, w.Body.String())
		assert.JSONEq(t,
			`{"input":{"input":"what is rag"},"config":{"configurable":{"session_id":"s1"}}}`,
			env.backend.last(t).Body)
	})

	t.Run("object input and nested sources", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /sources/invoke", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"output":{"sources":[{"source":"a.md"}]}}`)
		})

		w := env.do(http.MethodPost, "/api/sources", `{"input":{"input":"q","k":3},"session_id":"s1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"sources":[{"source":"a.md"}]}`, w.Body.String())
		assert.JSONEq(t,
			`{"input":{"input":"q","k":3},"config":{"configurable":{"session_id":"s1"}}}`,
			env.backend.last(t).Body)
	})

	t.Run("no sources", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /sources/invoke", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"output":"nothing"}`)
		})
		w := env.do(http.MethodPost, "/api/sources", `{"input":"q","session_id":"s1"}`)
		assert.JSONEq(t, `{"sources":[]}`, w.Body.String())
	})

	t.Run("upstream error", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /sources/invoke", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "boom")
		})
		w := env.do(http.MethodPost, "/api/sources", `{"input":"q","session_id":"s1"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"error":"Upstream error","status":500,"body":"boom"}`, w.Body.String())
	})

	t.Run("unparseable reply", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /sources/invoke", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "not json")
		})
		w := env.do(http.MethodPost, "/api/sources", `{"input":"q","session_id":"s1"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	})

	t.Run("backend unreachable", func(t *testing.T) {
		env := newUnreachableEnv(t)
		w := env.do(http.MethodPost, "/api/sources", `{"input":"q","session_id":"s1"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleClearChat(t *testing.T) {
	t.Run("cleared", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /chat/clear", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"ok":true}`)
		})
		w := env.do(http.MethodPost, "/api/clear-chat", `{"session_id":"user:1:chat:2"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"cleared"}`, w.Body.String())
		assert.JSONEq(t, `{"session_id":"user:1:chat:2"}`, env.backend.last(t).Body)
	})

	t.Run("upstream failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("POST /chat/clear", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		w := env.do(http.MethodPost, "/api/clear-chat", `{"session_id":"s"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to clear chat"}`, w.Body.String())
	})

	t.Run("missing session id", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/clear-chat", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChatsRelay(t *testing.T) {
	env := newTestEnv(t)
	env.backend.handle("POST /chats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"chat_id":"c9","title":"New chat"}`)
	})
	env.backend.handle("GET /chats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"chats":[{"chat_id":"c9","title":"New chat"}]}`)
	})
	env.backend.handle("DELETE /chats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"deleted":true}`)
	})
	env.backend.handle("POST /chats/rename", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"chat_id":"c9","title":"Plans"}`)
	})
	env.backend.handle("GET /chats/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"no such chat"}`)
	})

	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantBody   string
		wantCall   recordedRequest
	}{
		{
			"create", "/api/chats/create", `{"user_id":"u1","title":"New chat"}`,
			http.StatusCreated, `{"chat_id":"c9","title":"New chat"}`,
			recordedRequest{Method: "POST", Path: "/chats", Body: `{"user_id":"u1","title":"New chat"}`},
		},
		{
			"create keeps extra fields", "/api/chats/create", `{"user_id":"u1","title":"Trip","model":"gpt-4o","tags":["travel"]}`,
			http.StatusCreated, `{"chat_id":"c9","title":"New chat"}`,
			recordedRequest{Method: "POST", Path: "/chats", Body: `{"user_id":"u1","title":"Trip","model":"gpt-4o","tags":["travel"]}`},
		},
		{
			"list", "/api/chats/list", `{"user_id":"u1"}`,
			http.StatusOK, `{"chats":[{"chat_id":"c9","title":"New chat"}]}`,
			recordedRequest{Method: "GET", Path: "/chats", Query: "user_id=u1"},
		},
		{
			"delete", "/api/chats/delete", `{"user_id":"u1","chat_id":"c9"}`,
			http.StatusOK, `{"deleted":true}`,
			recordedRequest{Method: "DELETE", Path: "/chats", Query: "chat_id=c9&user_id=u1"},
		},
		{
			"rename", "/api/chats/rename", `{"user_id":"u1","chat_id":"c9","title":"Plans"}`,
			http.StatusOK, `{"chat_id":"c9","title":"Plans"}`,
			recordedRequest{Method: "POST", Path: "/chats/rename", Body: `{"user_id":"u1","chat_id":"c9","title":"Plans"}`},
		},
		{
			"rename keeps extra fields", "/api/chats/rename", `{"user_id":"u1","chat_id":"c9","title":"Plans","pinned":true}`,
			http.StatusOK, `{"chat_id":"c9","title":"Plans"}`,
			recordedRequest{Method: "POST", Path: "/chats/rename", Body: `{"user_id":"u1","chat_id":"c9","title":"Plans","pinned":true}`},
		},
		{
			"messages status relayed", "/api/chats/messages", `{"user_id":"u1","chat_id":"c0"}`,
			http.StatusNotFound, `{"detail":"no such chat"}`,
			recordedRequest{Method: "GET", Path: "/chats/messages", Query: "chat_id=c0&user_id=u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Equal(t, tt.wantCall, env.backend.last(t))
		})
	}
}

func TestChatsMissingFields(t *testing.T) {
	env := newTestEnv(t)
	for target, body := range map[string]string{
		"/api/chats/create":   `{"title":"x"}`,
		"/api/chats/list":     `{}`,
		"/api/chats/delete":   `{"user_id":"u1"}`,
		"/api/chats/rename":   `{"user_id":"u1","chat_id":"c1"}`,
		"/api/chats/messages": `{"chat_id":"c1"}`,
	} {
		w := env.do(http.MethodPost, target, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHandleFiles(t *testing.T) {
	env := newTestEnv(t)
	env.backend.handle("GET /files", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("path") != "docs/guide.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="guide.pdf"`)
		w.Header().Set("X-Internal-Node", "rag-3")
		w.Header().Set("Set-Cookie", "backend=1")
		_, _ = io.WriteString(w, "%PDF-1.7")
	})

	t.Run("requires session", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/files?path=docs/guide.pdf", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	})

	t.Run("streams with content headers only", func(t *testing.T) {
		cookie := env.signIn(t, "u1")
		w := env.do(http.MethodGet, "/api/files?path=docs/guide.pdf", "", cookie)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "%PDF-1.7", w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="guide.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Empty(t, w.Header().Get("X-Internal-Node"))
		assert.Empty(t, w.Header().Get("Set-Cookie"))
		assert.Equal(t, "path=docs%2Fguide.pdf", env.backend.last(t).Query)
	})

	t.Run("missing path", func(t *testing.T) {
		cookie := env.signIn(t, "u1")
		w := env.do(http.MethodGet, "/api/files", "", cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upstream status kept", func(t *testing.T) {
		cookie := env.signIn(t, "u1")
		w := env.do(http.MethodGet, "/api/files?path=missing.pdf", "", cookie)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("GET /health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"ok","documents":12}`)
		})
		w := env.do(http.MethodGet, "/api/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"backend":{"status":"ok","documents":12}}`, w.Body.String())
	})

	t.Run("healthy without json", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("GET /health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "OK")
		})
		w := env.do(http.MethodGet, "/api/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"backend":{}}`, w.Body.String())
	})

	t.Run("unhealthy", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.handle("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		w := env.do(http.MethodGet, "/api/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"ok":false,"status":500}`, w.Body.String())
	})

	t.Run("unreachable", func(t *testing.T) {
		env := newUnreachableEnv(t)
		w := env.do(http.MethodGet, "/api/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["ok"])
		assert.NotEmpty(t, body["error"])
	})
}
