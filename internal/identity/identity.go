// Package identity carries the authenticated caller through request contexts.
// Authentication itself happens upstream; this package only transports the
// result.
package identity

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type userKey struct{}

// Provider resolves the authenticated user for a request, if any.
type Provider interface {
	CurrentUserID(ctx context.Context) (snowflake.ID, bool)
}

// WithUserID marks ctx as authenticated as userID.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	if userID == 0 {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, userID)
}

// UserIDFromContext returns the authenticated user stored on ctx.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	userID, ok := ctx.Value(userKey{}).(snowflake.ID)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}

// ContextProvider reads the user placed on the context by WithUserID.
type ContextProvider struct{}

func NewContextProvider() Provider {
	return ContextProvider{}
}

func (ContextProvider) CurrentUserID(ctx context.Context) (snowflake.ID, bool) {
	return UserIDFromContext(ctx)
}
