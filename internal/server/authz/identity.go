// Package authz is the transport-neutral authorization core shared by the
// HTTP and gRPC adapters: it extracts bearer credentials, resolves them into
// an Identity and admits requests through the rate limiter.
package authz

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/blogd/internal/common"
)

// Identity is the authenticated caller of one request.
type Identity struct {
	UserID int64
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity set by the gate, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID > 0
}

// ExtractBearer returns the token from an authorization value of the form
// "Bearer <token>". The scheme is matched case-insensitively. ok is false for
// an empty value, another scheme or an empty token.
func ExtractBearer(value string) (string, bool) {
	value = strings.TrimSpace(value)
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
