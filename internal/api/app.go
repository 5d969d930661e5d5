package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"messagehub/internal/config"
	"messagehub/internal/fanout"
	"messagehub/internal/server"
	"messagehub/internal/store"
)

// App is the control-plane HTTP surface in front of the gateway, consumed by
// the frontend and by other services.
type App struct {
	log            *log.Logger
	gateway        *server.Gateway
	db             store.Repository
	bus            fanout.Bus
	mux            *http.Server
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, gw *server.Gateway, db store.Repository,
	bus fanout.Bus, cfg *config.Config) *App {

	s := &App{
		log:            logger,
		gateway:        gw,
		db:             db,
		bus:            bus,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /conversations", s.createConversation)
	mux.HandleFunc("GET /conversations/{userId}", s.listConversations)
	mux.HandleFunc("DELETE /conversations/{conversationId}", s.deleteConversation)
	mux.HandleFunc("POST /messages", s.sendMessage)
	mux.HandleFunc("GET /messages/{conversationId}", s.listMessages)
	mux.HandleFunc("PATCH /messages/{conversationId}/read", s.markRead)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
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

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
