package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/creatives/internal/api/handlers"
	"github.com/isdelr/creatives/internal/auth"
	"github.com/isdelr/creatives/internal/config"
	"github.com/isdelr/creatives/internal/services"
	"github.com/isdelr/creatives/internal/websocket"
)

// Server wires services, handlers and the router over one database.
type Server struct {
	Router *chi.Mux
	Hub    *websocket.Hub
	Users  *services.UserService
	Tokens *services.TokenService
}

// NewServer builds the reference API. The caller runs Hub.
func NewServer(db *sql.DB, cfg *config.Config) *Server {
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, tokenService)
	hub := websocket.NewHub()

	router := NewRouter(Deps{
		Users:          handlers.NewUserHandler(userService, tokenService, issuer, cfg.Production()),
		Admin:          handlers.NewAdminHandler(userService, hub),
		WebSocket:      handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins),
		Health:         handlers.NewHealthHandler(db),
		Issuer:         issuer,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	return &Server{
		Router: router,
		Hub:    hub,
		Users:  userService,
		Tokens: tokenService,
	}
}
