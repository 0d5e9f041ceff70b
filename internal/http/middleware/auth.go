package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

// Role names carried in bearer tokens.
const (
	RolePatient    = "PATIENT"
	RoleDoctor     = "DOCTOR"
	RoleASHA       = "ASHA"
	RolePharmacist = "PHARMACIST"
	RoleAdmin      = "ADMIN"
)

// Claims are the application claims embedded in bearer tokens. Token issuance
// happens in the external identity service; this middleware only verifies.
type Claims struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	ProfileID string `json:"profileId"`
	jwt.RegisteredClaims
}

// Identity describes the authenticated requester.
type Identity struct {
	UserID    string
	Role      string
	ProfileID string
}

// BearerAuth enforces an HMAC-signed JWT and stores the requester identity in
// the request context.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			identity := Identity{
				UserID:    claims.UserID,
				Role:      claims.Role,
				ProfileID: claims.ProfileID,
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated identity if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given identity. Intended for
// tests and internal callers.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
