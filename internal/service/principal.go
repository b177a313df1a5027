package service

import (
	"context"

	"github.com/rryowa/blog_auth/internal/models"
)

type principalKey struct{}

// WithPrincipal attaches the authenticated caller to ctx for downstream handlers.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the anonymous principal when none was attached.
func PrincipalFromContext(ctx context.Context) models.Principal {
	p, _ := ctx.Value(principalKey{}).(models.Principal)
	return p
}
