package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/creatives/internal/api/handlers"
	"github.com/isdelr/creatives/internal/auth"
	"github.com/isdelr/creatives/internal/models"
	"github.com/rs/zerolog/log"
)

// Deps bundles what the router needs to build its handlers.
type Deps struct {
	Users          *handlers.UserHandler
	Admin          *handlers.AdminHandler
	WebSocket      *handlers.WebSocketHandler
	Health         *handlers.HealthHandler
	Issuer         *auth.Issuer
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Health != nil {
		r.Get("/health", d.Health.Check)
	}

	requireAuth := d.Issuer.JWTMiddleware()

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Users.Register)
			r.Post("/login", d.Users.Login)
			r.Post("/logout", d.Users.Logout)
			r.With(requireAuth).Get("/me", d.Users.GetMe)
		})

		r.Route("/oauth", func(r chi.Router) {
			for _, provider := range models.Providers() {
				r.Post("/"+provider+"/callback", d.Users.OAuthCallback(provider))
			}
		})

		r.With(requireAuth).Get("/ws", d.WebSocket.Serve)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(d.Admin.RequireAdmin)
			r.Get("/users", d.Admin.ListUsers)
			r.Patch("/users/{id}/credits", d.Admin.SetCredits)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		}()
		next.ServeHTTP(ww, r)
	})
}
