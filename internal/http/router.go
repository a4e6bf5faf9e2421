// Package httpserver wires the HTTP surface: health endpoints, metrics, the
// OIDC login flow, the JSON API and the calendar feed.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/planwise/planwise/internal/api"
	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/http/csrf"
	"github.com/planwise/planwise/internal/http/ratelimit"
	"github.com/planwise/planwise/internal/metrics"
	"github.com/planwise/planwise/internal/store"
)

// NewRouter wires all HTTP routes.
func NewRouter(cfg *config.Config, st *store.Store, authService *auth.Service, apiHandler *api.Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Auth endpoints: 5 requests per second, burst of 10
	authRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(5), 10, 5*time.Minute, cfg.TrustedProxies)
	// Feed endpoints: calendar apps poll, so allow more headroom
	feedRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(20), 50, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(authRateLimiter.Middleware())
		r.Get("/login", authService.BeginOAuth)
		r.Get("/callback", authService.HandleOAuthCallback)
	})

	r.With(authService.RequireSession, csrf.Middleware(cfg)).Post("/auth/logout", authService.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(authService.RequireSession)
		r.Use(csrf.Middleware(cfg))

		r.Get("/me", apiHandler.Me)

		r.Get("/tasks", apiHandler.ListTasks)
		r.Post("/tasks", apiHandler.CreateTask)
		r.Put("/tasks/{id}", apiHandler.UpdateTask)
		r.Post("/tasks/{id}/complete", apiHandler.CompleteTask)
		r.Delete("/tasks/{id}", apiHandler.DeleteTask)
		r.Delete("/tasks/completed", apiHandler.DeleteCompletedTasks)

		r.Post("/schedule", apiHandler.GenerateSchedule)
		r.Get("/schedule/export", apiHandler.ExportSchedule)

		r.Get("/feed-tokens", apiHandler.ListFeedTokens)
		r.Post("/feed-tokens", apiHandler.CreateFeedToken)
		r.Post("/feed-tokens/{id}/revoke", apiHandler.RevokeFeedToken)

		r.Get("/sessions", apiHandler.ListSessions)
		r.Post("/sessions/{id}/revoke", apiHandler.RevokeSession)
	})

	r.Route("/feed", func(r chi.Router) {
		r.Use(feedRateLimiter.Middleware())
		r.Get("/{token}/schedule.ics", apiHandler.Feed)
	})

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
