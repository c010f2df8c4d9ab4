// Package server exposes the HTTP surface: public registration and
// login, then bearer-protected CRUD for users, books, and reviews.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"bookshelf/internal/app"
	"bookshelf/internal/metrics"
	"bookshelf/internal/ratelimit"
	"bookshelf/internal/util"
	"bookshelf/internal/validate"
	"bookshelf/pkg/token"
)

// Config wires required dependencies for the HTTP server. Metrics and
// limiters may be nil; the corresponding behavior is then disabled.
type Config struct {
	App             *app.App
	Tokens          *token.Service
	Metrics         *metrics.Collector
	Gatherer        prometheus.Gatherer
	CORSOrigin      string
	LoginLimiter    *ratelimit.Limiter
	RegisterLimiter *ratelimit.Limiter
}

// Server routes HTTP requests to the application core.
type Server struct {
	app             *app.App
	tokens          *token.Service
	router          chi.Router
	loginLimiter    *ratelimit.Limiter
	registerLimiter *ratelimit.Limiter
}

// New constructs the server with routes and middleware configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token service is required")
	}
	s := &Server{
		app:             cfg.App,
		tokens:          cfg.Tokens,
		loginLimiter:    cfg.LoginLimiter,
		registerLimiter: cfg.RegisterLimiter,
	}
	s.routes(cfg)
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes(cfg Config) {
	r := chi.NewRouter()
	r.Use(util.WithRequestID)
	r.Use(util.WithRequestLog)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(util.WithSecurityHeaders)
	r.Use(func(next http.Handler) http.Handler {
		return util.WithCORS(cfg.CORSOrigin, next)
	})

	r.Get("/health", s.handleHealth)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	// public
	r.Post("/usuarios", s.limited(s.registerLimiter, s.handleRegister))
	r.Post("/usuarios/login", s.limited(s.loginLimiter, s.handleLogin))

	// protected
	r.Group(func(pr chi.Router) {
		pr.Use(s.authenticated)

		pr.Get("/usuarios", s.handleListUsers)
		pr.Put("/usuarios/{id}", s.handleUpdateUser)
		pr.Delete("/usuarios/{id}", s.handleDeleteUser)

		pr.Post("/livros", s.handleCreateBook)
		pr.Get("/livros", s.handleListBooks)
		pr.Get("/livros/{id}", s.handleGetBook)
		pr.Put("/livros/{id}", s.handleUpdateBook)
		pr.Delete("/livros/{id}", s.handleDeleteBook)

		pr.Post("/livros/{livro_id}/resenhas", s.handleCreateReviewForBook)
		pr.Get("/livros/{livro_id}/resenhas", s.handleListReviewsForBook)
		pr.Get("/livros/{livro_id}/resenhas/{id}", s.handleGetReviewForBook)
		pr.Put("/livros/{livro_id}/resenhas/{id}", s.handleUpdateReviewForBook)
		pr.Delete("/livros/{livro_id}/resenhas/{id}", s.handleDeleteReviewForBook)

		pr.Post("/resenhas", s.handleCreateReview)
		pr.Get("/resenhas", s.handleListReviews)
		pr.Get("/resenhas/{id}", s.handleGetReview)
		pr.Put("/resenhas/{id}", s.handleUpdateReview)
		pr.Delete("/resenhas/{id}", s.handleDeleteReview)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// auth middleware

type claimsContextKey struct{}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token não fornecido")
			return
		}
		claims, err := s.tokens.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromRequest(r *http.Request) (token.Claims, bool) {
	claims, ok := r.Context().Value(claimsContextKey{}).(token.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if raw == "" {
		return "", false
	}
	return raw, true
}

// limited wraps a handler with a per-client-IP rate limiter. A nil
// limiter disables throttling.
func (s *Server) limited(l *ratelimit.Limiter, next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			slog.Warn("rate limited",
				"path", r.URL.Path,
				"ip", clientIP(r),
				"request_id", util.RequestIDFromRequest(r),
			)
			writeError(w, http.StatusTooManyRequests, "Muitas requisições, tente novamente em instantes")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// pathID parses a positive integer path segment. Anything else behaves
// as "not found", reported by the caller with the entity's own message.
func pathID(r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// decodeBody reads the request body as a JSON object, or reports the
// malformed payload to the client.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	raw, err := validate.DecodeObject(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return nil, false
	}
	return raw, true
}

// respondError maps the application error taxonomy onto HTTP statuses.
// Unrecognized errors stay opaque to the client and go to the log.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrNotAccountOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrReviewNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmailTaken),
		errors.Is(err, app.ErrISBNTaken),
		errors.Is(err, app.ErrBookHasReviews):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", util.RequestIDFromRequest(r),
		)
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"erro": msg})
}

func writeDefects(w http.ResponseWriter, msg string, defects []validate.FieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"erro":     msg,
		"detalhes": defects,
	})
}
