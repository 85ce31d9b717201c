// Package session carries the caller's bearer token from the inbound request
// to outbound upstream calls. Tokens are issued and refreshed elsewhere; this
// package only reads them.
package session

import (
	"context"
	"strings"
)

type tokenKey struct{}

// WithToken returns a context carrying token. Empty tokens are not stored.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// TokenSource yields the bearer token for an outbound call, or "" for none.
type TokenSource interface {
	Token(ctx context.Context) string
}

// ContextTokens reads the token placed on the context by the HTTP layer and
// falls back to a static token.
type ContextTokens struct {
	Fallback string
}

func (c ContextTokens) Token(ctx context.Context) string {
	if token := TokenFromContext(ctx); token != "" {
		return token
	}
	return strings.TrimSpace(c.Fallback)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
