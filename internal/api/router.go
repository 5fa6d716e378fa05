package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/handlers"
)

// NewRouter builds the HTTP handler with all routes configured.
// The health endpoint is unauthenticated; dashboard routes require bearer auth.
// Rate limiting is applied globally: 60 requests per minute per IP. CORS
// preflights from allowedOrigins are answered before auth runs.
func NewRouter(h *Handlers, token string, allowedOrigins []string, seq pinger, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(seq, log))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Post("/api/v1/search", h.Search)
		r.Get("/api/v1/dashboard", h.GetDashboard)
	})

	return handlers.CORS(corsOptions(allowedOrigins)...)(r)
}

func corsOptions(origins []string) []handlers.CORSOption {
	return []handlers.CORSOption{
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	}
}
