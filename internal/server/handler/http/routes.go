package http

import (
	"net/http"

	"github.com/atinyakov/DexWatch/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the monitor API.
//
// Routes:
//
//	GET /api/health            -> Health
//	GET /api/readings          -> readingHandler.History
//	GET /api/readings/latest   -> readingHandler.Latest
//
// Middleware chain (applied in order):
//  1. Recoverer: turns panics into 500s
//  2. AllowContentType("application/json"): rejects non-JSON request bodies
//  3. WithRequestLogging(logger): logs incoming requests
func NewRouter(readingHandler *ReadingHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)
		r.Route("/readings", func(r chi.Router) {
			r.Get("/", readingHandler.History)
			r.Get("/latest", readingHandler.Latest)
		})
	})

	return r
}
