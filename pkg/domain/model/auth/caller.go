package auth

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Caller is the authenticated user of a callable request
type Caller struct {
	UID   model.OwnerID
	Email string `masq:"secret"`
}

type ctxCallerKey struct{}

// ContextWithCaller stores the caller in ctx
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, ctxCallerKey{}, caller)
}

// CallerFromContext returns the authenticated caller or an error wrapping
// model.ErrUnauthenticated
func CallerFromContext(ctx context.Context) (*Caller, error) {
	caller, ok := ctx.Value(ctxCallerKey{}).(*Caller)
	if !ok || caller == nil || caller.UID == "" {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "no authenticated caller in context")
	}
	return caller, nil
}
