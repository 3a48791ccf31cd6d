package server

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/welfare/internal/api"
	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/config"
	"github.com/dukerupert/welfare/internal/directory"
	"github.com/dukerupert/welfare/internal/handler"
	"github.com/dukerupert/welfare/internal/middleware"
	"github.com/dukerupert/welfare/internal/store"
	"github.com/dukerupert/welfare/internal/vault"
	ws "github.com/dukerupert/welfare/internal/websocket"
	"github.com/dukerupert/welfare/internal/workspace"
	"github.com/dukerupert/welfare/web"
)

const (
	loginAttempts = 10
	loginWindow   = time.Minute

	// Logout marks outlive any request authenticated before the logout.
	forgottenRetention = time.Hour
)

type Server struct {
	cfg          config.Config
	db           *sql.DB
	hub          *ws.Hub
	sessionStore *store.SessionStore
	workspaces   *workspace.Registry
	rateLimiter  *middleware.RateLimiter
	memberH      *handler.MemberHandler
	refundH      *handler.RefundHandler
	authH        *handler.AuthHandler
	logger       *slog.Logger
}

// New wires the console. Extra api options apply to every backend client.
func New(db *sql.DB, cfg config.Config, logger *slog.Logger, opts ...api.Option) (*Server, error) {
	salt, err := store.NewSettingsStore(db).VaultSalt()
	if err != nil {
		return nil, fmt.Errorf("vault salt: %w", err)
	}
	v, err := vault.New(cfg.SessionSecret, salt)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	if cfg.CSRFKey == nil {
		// Development only; config refuses production without a key.
		cfg.CSRFKey = make([]byte, 32)
		if _, err := rand.Read(cfg.CSRFKey); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		logger.Warn("using an ephemeral CSRF key; forms break across restarts")
	}

	render, err := handler.NewRenderer(web.Templates(), logger.With("component", "template"))
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	sessionStore := store.NewSessionStore(db, v)

	workspaces := workspace.NewRegistry(cfg.BackendURL, logger.With("component", "workspace"), opts...)
	workspaces.OnChange(func(sessionID int64, ch directory.Change) {
		switch ch.Kind {
		case directory.ChangeRemoved, directory.ChangeUpdated:
			hub.Broadcast(ws.NewMessage("member", ch.Kind.String(), ch.ID), sessionID)
		}
	})

	return &Server{
		cfg:          cfg,
		db:           db,
		hub:          hub,
		sessionStore: sessionStore,
		workspaces:   workspaces,
		rateLimiter:  middleware.NewRateLimiter(loginAttempts, loginWindow),
		memberH:      handler.NewMemberHandler(workspaces, render, cfg.RegisterURL, logger.With("component", "members")),
		refundH:      handler.NewRefundHandler(workspaces, render, logger.With("component", "refund")),
		authH:        handler.NewAuthHandler(sessionStore, workspaces, hub, render, cfg.SessionTTL, cfg.IsProduction(), logger.With("component", "auth")),
		logger:       logger,
	}, nil
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Workspaces returns the per-session registry.
func (s *Server) Workspaces() *workspace.Registry {
	return s.workspaces
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// ExpireSessions removes expired sessions together with their workspaces and
// live connections.
func (s *Server) ExpireSessions() (int, error) {
	ids, err := s.sessionStore.DeleteExpired()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.workspaces.Forget(id)
		s.hub.Disconnect(id)
	}
	s.workspaces.PruneForgotten(time.Now().Add(-forgottenRetention))
	return len(ids), nil
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.Chain(outerMux,
		middleware.RequestID,
		middleware.RequestLogger(s.logger.With("component", "http")),
		middleware.SecurityHeaders,
		middleware.CSRF(middleware.CSRFConfig{
			AuthKey: s.cfg.CSRFKey,
			Secure:  s.cfg.IsProduction(),
		}),
		middleware.Notices,
	)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"workspaces": s.workspaces.Len(),
		"clients":    s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP(s.cfg.TrustProxy))
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	gate := func(action auth.Action, h http.HandlerFunc) http.Handler {
		return middleware.RequireCapability(action)(h)
	}

	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	mux.Handle("GET /{$}", http.RedirectHandler("/members", http.StatusSeeOther))
	mux.Handle("GET /members", gate(auth.ActionViewProfile, s.memberH.Page))
	mux.Handle("GET /members/{epf}", gate(auth.ActionViewProfile, s.memberH.Profile))
	mux.Handle("GET /partials/members", gate(auth.ActionViewProfile, s.memberH.Table))
	mux.Handle("GET /partials/members/{id}/details", gate(auth.ActionViewProfile, s.memberH.Details))
	mux.Handle("GET /partials/members/{id}/edit", gate(auth.ActionEditMember, s.memberH.EditForm))
	mux.Handle("PUT /partials/members/{id}", gate(auth.ActionEditMember, s.memberH.Update))
	mux.Handle("DELETE /partials/members/{id}", gate(auth.ActionDeleteMember, s.memberH.Delete))

	mux.Handle("GET /refunds/new", gate(auth.ActionSubmitRefund, s.refundH.Page))
	mux.Handle("POST /refunds", gate(auth.ActionSubmitRefund, s.refundH.Submit))
}
