/*
auth.go - Bearer token authentication

Tokens are HS256 JWTs carrying the caller's user id, optional sales
person binding and privileges. The middleware turns them into an
accounting.AuthContext stored on the request context:

  Authorization: Bearer <jwt>   -> AuthContext from the claims
  (no header)                   -> unauthenticated AuthContext (no privileges)
  malformed / expired / bad sig -> 401

Authorization decisions are left to the engine. An unauthenticated
caller reaches it and gets ErrForbidden like any other unprivileged user.
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/warp/workhours-engine/accounting"
	"go.uber.org/zap"
)

const tokenIssuer = "workhours-engine"

type Claims struct {
	UserID        string     `json:"user_id"`
	SalesPersonID *uuid.UUID `json:"sales_person_id,omitempty"`
	Privileges    []string   `json:"privileges"`
	jwt.RegisteredClaims
}

// AuthContext converts the claims into the engine's caller identity.
func (c *Claims) AuthContext() accounting.AuthContext {
	return accounting.AuthContext{
		UserID:        c.UserID,
		SalesPersonID: c.SalesPersonID,
		Privileges:    c.Privileges,
	}
}

// TokenService signs and validates access tokens.
type TokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Issue signs a token for the given identity.
func (s *TokenService) Issue(auth accounting.AuthContext) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.expiry)
	claims := Claims{
		UserID:        auth.UserID,
		SalesPersonID: auth.SalesPersonID,
		Privileges:    auth.Privileges,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   auth.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Validate parses and verifies a token.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type authKey struct{}

// Authenticate attaches the caller's AuthContext to every request.
func (s *TokenService) Authenticate(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header, expected: Bearer <token>", nil)
				return
			}

			claims, err := s.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), claims.AuthContext())))
		})
	}
}

// WithAuth stores the caller identity on ctx.
func WithAuth(ctx context.Context, auth accounting.AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, auth)
}

// AuthFrom returns the caller identity of a request, unauthenticated if none.
func AuthFrom(ctx context.Context) accounting.AuthContext {
	if auth, ok := ctx.Value(authKey{}).(accounting.AuthContext); ok {
		return auth
	}
	return accounting.AuthContext{}
}
