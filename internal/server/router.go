package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
)

const maxJSONBodyBytes int64 = 1 << 20

type RouterConfig struct {
	Logger          *zap.Logger
	AuthValidator   middleware.AuthValidator
	MaxUploadBytes  int64
	HealthHandler   *handlers.HealthHandler
	AskHandler      *handlers.AskHandler
	HistoryHandler  *handlers.HistoryHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.AccessLog)
	r.Use(middleware.SentryMiddleware)

	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(maxJSONBodyBytes))

			r.Post("/ask", cfg.AskHandler.Ask)
			r.Post("/search", cfg.AskHandler.Search)

			r.Route("/search-history", func(r chi.Router) {
				r.Get("/", cfg.HistoryHandler.List)
				r.Delete("/{id}", cfg.HistoryHandler.Delete)
			})
		})

		r.Route("/admin/documents", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Use(middleware.MaxBodyBytes(cfg.MaxUploadBytes))

			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/regenerate", cfg.DocumentHandler.Regenerate)
			r.Get("/{id}/view", cfg.DocumentHandler.View)
		})
	})

	return r
}
