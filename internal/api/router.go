package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/taskchat/internal/assistant"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the dependencies of the HTTP handler.
type Deps struct {
	Service *assistant.Service
	Metrics http.Handler // optional; serves GET /metrics when set
	Now     func() time.Time
}

// NewHandler returns the HTTP API: chat, feedback, session stats and health.
func NewHandler(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/api/health", handleHealth(deps.Now))

	r.Post("/api/ai/chat", handleChat(deps.Service))
	r.Post("/api/ai/feedback", handleFeedback(deps.Service))
	r.Get("/api/stats/{sessionId}", handleGetStats(deps.Service))
	r.Post("/api/stats/{sessionId}", handleUpdateStats(deps.Service))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}
