package internal

import (
	"context"
)

// RequestIdentity is the identity established by the authentication stage.
// It is placed into the request context exactly once and threaded explicitly
// from there; no other ambient request state exists.
type RequestIdentity struct {
	Email    string
	Name     string
	Verified bool
}

type ctxKey string

const identityKey ctxKey = "requestIdentity"

func IdentityFromContext(ctx context.Context) (RequestIdentity, bool) {
	if ctx == nil {
		return RequestIdentity{}, false
	}
	identity, ok := ctx.Value(identityKey).(RequestIdentity)
	return identity, ok
}

func ContextWithIdentity(ctx context.Context, identity RequestIdentity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
