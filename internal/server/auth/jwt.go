// Package auth issues and validates the HS256 tokens that gate the
// administrative account operations.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject of tokens issued to the master identity.
const AdminSubject = "admin"

// Claims carries the standard claims plus the master address the token was
// issued for.
type Claims struct {
	jwt.RegisteredClaims
	Address string `json:"addr"`
}

func GenerateToken(subject, address string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Address: address,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, every other failure common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetSubjectFromToken returns the subject of a valid token.
func GetSubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
