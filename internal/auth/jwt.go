package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultAccessTTL = 15 * time.Minute

// Claims carried in every access token. Role and department ride along so
// the authorization checks never need a user lookup per request.
type Claims struct {
	Role       string `json:"role"`
	Department string `json:"department"`
	Name       string `json:"name"`
	jwt.RegisteredClaims
}

// Secret returns the signing key from the environment, with a development
// fallback.
func Secret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-secret-change-me")
}

// GenerateAccessToken signs a short-lived HS256 token for the user.
func GenerateAccessToken(user *model.User, secret []byte, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = defaultAccessTTL
	}
	now := time.Now()
	claims := Claims{
		Role:       string(user.Role),
		Department: user.Department,
		Name:       user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// UserID extracts the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
