package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lzztt/session-minimal/pkg/clientip"
	"github.com/lzztt/session-minimal/pkg/httpserver"
	"github.com/lzztt/session-minimal/pkg/logger"
	"github.com/lzztt/session-minimal/pkg/metrics"
	"github.com/lzztt/session-minimal/pkg/requestid"
	"github.com/lzztt/session-minimal/pkg/session"
)

// rememberFor is the cookie lifetime granted by "remember me" logins.
const rememberFor = 30 * 24 * time.Hour

type routerDeps struct {
	log      *slog.Logger
	sessions *session.Manager
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Use(d.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(d.log))

	r.Get("/healthz", httpserver.HealthCheckHandler(d.log))
	r.Handle("/metrics", metrics.Handler(d.gatherer))

	r.Group(func(r chi.Router) {
		r.Use(d.sessions.Middleware)

		r.Get("/", countViews)
		r.Get("/session", showSession)
		r.Post("/login", login)
		r.Post("/logout", logout)
	})

	return r
}

// countViews increments a per-session counter.
func countViews(w http.ResponseWriter, r *http.Request) {
	s := session.MustFromContext(r.Context())
	n, _ := s.GetInt("views")
	s.Set("views", n+1)
	writeJSON(w, http.StatusOK, map[string]any{"views": n + 1})
}

func showSession(w http.ResponseWriter, r *http.Request) {
	s := session.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"new":    s.IsNew(),
		"values": s.Values,
	})
}

// login binds a user to the session. The id is rotated so a session id
// obtained before login cannot be reused afterwards.
func login(w http.ResponseWriter, r *http.Request) {
	user := r.FormValue("user")
	if user == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "user is required"})
		return
	}

	s := session.MustFromContext(r.Context())
	if err := s.RegenerateID(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "session unavailable"})
		return
	}
	s.Set("user", user)
	if r.FormValue("remember") == "true" {
		s.SetMaxAge(rememberFor)
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func logout(w http.ResponseWriter, r *http.Request) {
	session.MustFromContext(r.Context()).Clear()
	w.WriteHeader(http.StatusNoContent)
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoContext(r.Context(), "request",
				logger.HTTPRequest(r.Method, r.URL.Path),
				logger.Status(ww.Status()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
