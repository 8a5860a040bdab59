package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/story-be/internal/access"
	"github.com/hongminglow/story-be/internal/auth"
	"github.com/hongminglow/story-be/internal/http/respond"
)

type claimsKey struct{}

// Bearer authenticates requests carrying an `Authorization: Bearer <jwt>` header.
type Bearer struct {
	tokens *auth.TokenManager
}

// NewBearer returns bearer middleware backed by tokens.
func NewBearer(tokens *auth.TokenManager) *Bearer {
	return &Bearer{tokens: tokens}
}

// Require rejects requests without a valid token.
func (b *Bearer) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, present := bearerToken(r)
		if !present {
			respond.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := b.tokens.Parse(raw)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(withClaims(r.Context(), claims)))
	}
}

// Optional lets anonymous requests through but still rejects a malformed or
// expired token.
func (b *Bearer) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, present := bearerToken(r)
		if !present {
			next(w, r)
			return
		}
		claims, err := b.tokens.Parse(raw)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(withClaims(r.Context(), claims)))
	}
}

// ClaimsFromContext returns the verified token claims, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// CallerFromContext returns the authenticated caller or an anonymous one.
func CallerFromContext(ctx context.Context) access.Caller {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return access.AsAccount(claims.Subject)
	}
	return access.Anonymous()
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// bearerToken reports whether an Authorization header was sent at all. A header
// with the wrong scheme or no token counts as present so it can be rejected.
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}
