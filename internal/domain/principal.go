package domain

import "context"

// Principal identifies a caller: a portfolio owner or the price authority.
// The transport layer authenticates callers; the domain only compares principals.
type Principal string

// IsZero reports whether p is the empty principal
func (p Principal) IsZero() bool {
	return p == ""
}

func (p Principal) String() string {
	return string(p)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying the authenticated caller
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller stored in ctx
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.IsZero() {
		return "", false
	}
	return p, true
}
