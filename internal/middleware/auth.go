package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/model"
)

const SessionCookieName = "welfare_session"

// SessionLookup resolves a session cookie value. A nil session with a nil
// error means the token is unknown or expired.
type SessionLookup interface {
	GetByToken(token string) (*model.Session, error)
}

// RequireAuth validates the session cookie and populates AuthContext.
// HTMX-aware: returns HX-Redirect header instead of 303 redirect for HTMX requests.
func RequireAuth(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				RedirectToLogin(w, r)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil {
				slog.ErrorContext(r.Context(), "session lookup", "error", err)
				RedirectToLogin(w, r)
				return
			}
			if sess == nil {
				RedirectToLogin(w, r)
				return
			}

			ac := auth.AuthContext{
				SessionID:   sess.ID,
				UserName:    sess.UserName,
				Role:        auth.ParseRole(sess.Role),
				BearerToken: sess.BearerToken,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects requests whose role may not perform action.
func RequireCapability(action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Allowed(r.Context(), action) {
				slog.WarnContext(r.Context(), "capability denied",
					"action", action.String(),
					"role", auth.RoleOf(r.Context()).String(),
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectToLogin sends the browser to the sign-in page; HTMX requests get an
// HX-Redirect header.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
