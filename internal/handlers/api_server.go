// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/hanabi/internal/middleware"
	"github.com/sirupsen/logrus"
)

// RouterConfig holds what NewRouter wires together.
type RouterConfig struct {
	Logger         *logrus.Logger
	Table          *Table
	Hub            *WSHub
	AllowedOrigins []string
}

// NewRouter builds the http surface: the game websocket, the seat view and a
// health check.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.LogMiddleware(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/healthz"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/game/ws", GameWSHandler(cfg.Logger, cfg.Table, cfg.Hub, originHosts(cfg.AllowedOrigins)))
	r.Get("/game/view", ViewHandler(cfg.Logger, cfg.Table))
	return r
}
