// Package api exposes the chat subsystem over HTTP: account and session
// management, room and message endpoints, and the websocket upgrade.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/edulane/school-chat/internal/chat"
	"github.com/edulane/school-chat/internal/config"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/server"
	"github.com/gorilla/handlers"
)

type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	dir            *directory.Directory
	chat           *chat.Service
	gateway        *server.Gateway
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, db database.ChatRepository, dir *directory.Directory, chatService *chat.Service, gw *server.Gateway, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		dir:            dir,
		chat:           chatService,
		gateway:        gw,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRooms))
	mux.Handle("DELETE /api/rooms", s.authMiddleware(s.archiveRoom))
	mux.Handle("POST /api/rooms/private", s.authMiddleware(s.privateRoom))
	mux.Handle("POST /api/rooms/participants", s.authMiddleware(s.addParticipant))
	mux.Handle("DELETE /api/rooms/participants", s.authMiddleware(s.removeParticipant))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("PUT /api/messages", s.authMiddleware(s.editMessage))
	mux.Handle("POST /api/read", s.authMiddleware(s.markRead))
	mux.Handle("GET /api/unread", s.authMiddleware(s.getUnreadCount))
	mux.Handle("/api/settings", s.authMiddleware(s.chatSettings))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
