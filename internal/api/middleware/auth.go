package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication failure messages.
const (
	MsgTokenMissing = "Token is missing"
	MsgTokenInvalid = "Token is invalid"
	MsgTokenExpired = "Token has expired"
)

// Claims carries the owner id in the user_id claim.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for ownerID valid for ttl.
func IssueToken(secret, ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates tokenString and returns the owner id it carries.
func ParseToken(secret, tokenString string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", errors.New("token has no user_id claim")
	}
	return claims.UserID, nil
}

// Auth requires a valid bearer token and stores its owner id in the request
// context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				WriteMessage(w, http.StatusUnauthorized, MsgTokenMissing)
				return
			}
			token = strings.TrimPrefix(token, "Bearer ")

			ownerID, err := ParseToken(secret, token)
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				WriteMessage(w, http.StatusUnauthorized, MsgTokenExpired)
				return
			case err != nil:
				WriteMessage(w, http.StatusUnauthorized, MsgTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

// WithOwnerID returns a context carrying ownerID.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerIDFromContext returns the authenticated owner id, or "" if none.
func OwnerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ownerIDKey).(string)
	return id
}
