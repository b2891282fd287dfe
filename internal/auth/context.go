package auth

import (
	"context"
	"time"
)

// Principal is an authenticated admin scoped to one tenant.
type Principal struct {
	Subject   string
	TenantID  string
	TokenID   string
	ExpiresAt time.Time
}

// PrincipalFromClaims converts validated token claims.
func PrincipalFromClaims(c *Claims) Principal {
	p := Principal{Subject: c.Subject, TenantID: c.TenantID, TokenID: c.ID}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// SubjectFromContext returns the admin subject for audit records, or
// "anonymous".
func SubjectFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok && p.Subject != "" {
		return p.Subject
	}
	return "anonymous"
}
