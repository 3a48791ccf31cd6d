package auth

import (
	"context"
	"sync"
)

type contextKey struct{}

// AuthContext is the signed-in console user for one request. It is built from
// the stored session by middleware.RequireAuth and lives until logout.
type AuthContext struct {
	SessionID   int64
	UserName    string
	Role        Role
	BearerToken string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func SessionID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.SessionID
}

// RoleOf returns RoleUnknown when the context carries no session.
func RoleOf(ctx context.Context) Role {
	ac, ok := FromContext(ctx)
	if !ok {
		return RoleUnknown
	}
	return ac.Role
}

// Allowed reports whether the request's user may perform action. Requests
// without a signed-in user are never allowed.
func Allowed(ctx context.Context, action Action) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return Can(ac.Role, action)
}

// TokenSource yields the backend bearer token for an outgoing request.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Credentials holds the bearer token of one signed-in session. It is set at
// login and cleared at logout; the API client of that session reads it on
// every request.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Clear() {
	c.Set("")
}

func (c *Credentials) Token(context.Context) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
