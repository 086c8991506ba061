package rest

import "context"

type contextKeyPrincipal struct{}
type contextKeyPrincipalSlot struct{}

type principalSlot struct {
	id string
}

// WithPrincipal stores the authenticated participant id. Middleware further
// out that called TrackPrincipal sees it as well.
func WithPrincipal(ctx context.Context, principalID string) context.Context {
	if slot, ok := ctx.Value(contextKeyPrincipalSlot{}).(*principalSlot); ok {
		slot.id = principalID
	}
	return context.WithValue(ctx, contextKeyPrincipal{}, principalID)
}

// Principal returns the participant id set by the auth middleware, or "".
func Principal(ctx context.Context) string {
	principalID, ok := ctx.Value(contextKeyPrincipal{}).(string)
	if !ok {
		return ""
	}
	return principalID
}

// TrackPrincipal lets outer middleware read the principal after the inner
// chain has authenticated the request.
func TrackPrincipal(ctx context.Context) (context.Context, func() string) {
	slot := &principalSlot{}
	return context.WithValue(ctx, contextKeyPrincipalSlot{}, slot), func() string { return slot.id }
}
