package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/deepgram/chatgate/internal/api/middleware"
	"github.com/deepgram/chatgate/internal/services"
)

func RegisterRoutes(router *mux.Router, services *services.Services) {
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.RateLimit("global"))

	// Public routes (no session required)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		HandleHealth(services.GetBackendService(), w, r)
	}).Methods("GET")
	api.Handle("/chat", middleware.RateLimit("chat")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChat(services.GetChatService(), w, r)
	}))).Methods("POST")
	api.HandleFunc("/sources", func(w http.ResponseWriter, r *http.Request) {
		HandleSources(services.GetChatService(), w, r)
	}).Methods("POST")
	api.HandleFunc("/clear-chat", func(w http.ResponseWriter, r *http.Request) {
		HandleClearChat(services.GetChatService(), w, r)
	}).Methods("POST")

	// Sidebar chat management
	chatsRouter := api.PathPrefix("/chats").Subrouter()
	chatsRouter.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		HandleCreateChat(services.GetChatsService(), w, r)
	}).Methods("POST")
	chatsRouter.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		HandleListChats(services.GetChatsService(), w, r)
	}).Methods("POST")
	chatsRouter.HandleFunc("/delete", func(w http.ResponseWriter, r *http.Request) {
		HandleDeleteChat(services.GetChatsService(), w, r)
	}).Methods("POST")
	chatsRouter.HandleFunc("/rename", func(w http.ResponseWriter, r *http.Request) {
		HandleRenameChat(services.GetChatsService(), w, r)
	}).Methods("POST")
	chatsRouter.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		HandleChatMessages(services.GetChatsService(), w, r)
	}).Methods("POST")

	// Sign-in routes
	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.Use(middleware.RateLimit("auth"))
	authRouter.HandleFunc("/providers", func(w http.ResponseWriter, r *http.Request) {
		HandleProviders(services.GetIdentityService(), w, r)
	}).Methods("GET")
	authRouter.HandleFunc("/signin/{provider}", func(w http.ResponseWriter, r *http.Request) {
		HandleSignIn(services.GetIdentityService(), services.GetSignInService(), w, r)
	}).Methods("GET")
	authRouter.HandleFunc("/callback/{provider}", func(w http.ResponseWriter, r *http.Request) {
		HandleCallback(services.GetIdentityService(), services.GetSignInService(), services.GetSessionService(), w, r)
	}).Methods("GET")
	authRouter.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		HandleSession(services.GetSessionService(), w, r)
	}).Methods("GET")
	authRouter.HandleFunc("/signout", func(w http.ResponseWriter, r *http.Request) {
		HandleSignOut(services.GetSessionService(), w, r)
	}).Methods("POST")

	// Protected routes (require a session)
	protectedRouter := api.NewRoute().Subrouter()
	protectedRouter.Use(middleware.RequireSession(services.GetSessionService()))
	protectedRouter.Handle("/files", middleware.RateLimit("files")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleFiles(services.GetBackendService(), w, r)
	}))).Methods("GET")
	protectedRouter.HandleFunc("/chat/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleChatSocket(services.GetChatService(), services.GetChatsService(), services.GetConnectionManager(), w, r)
	}).Methods("GET")
}
