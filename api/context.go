package api

import (
	"context"

	"github.com/memevote/backend/auth"
)

type keyType string

const identityKey keyType = "identity"

func ctxWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// ctxGetIdentity returns the caller resolved by the auth middleware, or auth.Anonymous.
func ctxGetIdentity(ctx context.Context) auth.Identity {
	if identity, ok := ctx.Value(identityKey).(auth.Identity); ok {
		return identity
	}
	return auth.Anonymous
}
