package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/welfare/internal/api"
	"github.com/dukerupert/welfare/internal/middleware"
	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/workspace"
)

// SessionStore persists console sessions.
type SessionStore interface {
	Create(bearerToken string, user model.User, ttl time.Duration) (*model.Session, error)
	GetByToken(token string) (*model.Session, error)
	Delete(id int64) error
}

// Disconnector drops the live connections of a session.
type Disconnector interface {
	Disconnect(sessionID int64)
}

type AuthHandler struct {
	sessions     SessionStore
	workspaces   *workspace.Registry
	live         Disconnector
	render       *Renderer
	ttl          time.Duration
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	sessions SessionStore,
	workspaces *workspace.Registry,
	live Disconnector,
	render *Renderer,
	ttl time.Duration,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		workspaces:   workspaces,
		live:         live,
		render:       render,
		ttl:          ttl,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type loginPage struct {
	page
	Email string
	Error string
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "login.html", loginPage{page: newPage(r, "Sign in")})
}

// Login exchanges credentials with the backend and starts a console session
// holding the returned bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.loginError(w, r, http.StatusBadRequest, email, "Email and password are required")
		return
	}

	client, creds := h.workspaces.NewClient()
	res, err := client.Login(r.Context(), email, password)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.StatusCode < 500 {
			h.loginError(w, r, http.StatusUnauthorized, email, "Invalid email or password")
			return
		}
		h.logger.ErrorContext(r.Context(), "backend login", "error", err)
		h.loginError(w, r, http.StatusBadGateway, email, "Sign in is unavailable, try again later")
		return
	}
	creds.Set(res.Token)

	sess, err := h.sessions.Create(res.Token, res.User, h.ttl)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	h.workspaces.Adopt(sess.ID, client, creds)
	h.logger.InfoContext(r.Context(), "signed in", "session_id", sess.ID, "role", res.User.Role)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, status int, email, msg string) {
	h.render.render(w, r, status, "login.html", loginPage{
		page:  newPage(r, "Sign in"),
		Email: email,
		Error: msg,
	})
}

// Logout ends the session: the stored session is deleted, the workspace is
// closed so late backend results are discarded, and live sockets drop.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(cookie.Value); err == nil && sess != nil {
			if err := h.sessions.Delete(sess.ID); err != nil {
				h.logger.ErrorContext(r.Context(), "delete session", "error", err)
			}
			h.workspaces.Forget(sess.ID)
			if h.live != nil {
				h.live.Disconnect(sess.ID)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
