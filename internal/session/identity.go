// Package session resolves the signed-in identity of a request into the
// user's role and display profile.
package session

import "context"

// Identity is the authenticated principal issued by the auth provider.
// ID is opaque to the application.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored on ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

// IdentitySource yields the identity of the current request.
type IdentitySource interface {
	Current(ctx context.Context) (Identity, bool)
}

// ContextSource reads the identity placed on the context by the
// authentication middleware.
type ContextSource struct{}

func (ContextSource) Current(ctx context.Context) (Identity, bool) { return IdentityFrom(ctx) }
