package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity reference embedded in an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// NewToken issues a signed HS256 token for the given subject email.
func NewToken(email, secret string, ttl time.Duration) (string, error) {
	const op = "lib.jwt.NewToken"

	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParseToken validates signature and expiry and returns the embedded claims.
func ParseToken(tokenStr, secret string) (Claims, error) {
	const op = "lib.jwt.ParseToken"

	claims := Claims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if !parsedToken.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}
