// Package requestid carries the X-Request-ID of an inbound request so that
// log lines and backend calls made on its behalf share one identifier.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type contextKey struct{}

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// From returns the request id stored in ctx, or "" when there is none.
func From(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// New returns a fresh random identifier.
func New() string {
	return uuid.NewString()
}
