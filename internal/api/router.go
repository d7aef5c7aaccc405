package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dom/chess-web/internal/api/handlers"
	"github.com/dom/chess-web/internal/api/middleware"
	"github.com/dom/chess-web/internal/service"
	"github.com/dom/chess-web/internal/websocket"
)

func NewRouter(services *service.Services, hub *websocket.Hub, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth)
	gameHandler := handlers.NewGameHandler(services.Game)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, services.Game, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth, logger))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Protected game routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth, logger))

			r.Route("/games", func(r chi.Router) {
				r.Post("/", gameHandler.Create)
				r.Get("/{id}", gameHandler.Get)
				r.Post("/{id}/join", gameHandler.Join)
			})
		})

		// WebSocket endpoint (token carried as query parameter)
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
