package api

import (
	"context"
	"time"

	"github.com/RoshiKK/emergency-response-api/models"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// Identity is the authenticated principal attached to every request that
// passed the auth middleware. When the session was established via
// impersonation, Overlay identifies the original principal.
type Identity struct {
	UserID  string
	Email   string
	Role    models.Role
	TokenID string
	Overlay *models.ImpersonationOverlay
}

// Impersonating reports whether the request runs under an impersonated
// session.
func (i Identity) Impersonating() bool {
	return i.Overlay != nil
}

type identityKey struct{}

// WithIdentity attaches the authenticated identity to the context
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// IdentityFromContext returns the authenticated identity, if any
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(Identity)
	return ident, ok
}
