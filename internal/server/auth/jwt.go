// Package auth issues and validates the HS256 session tokens that bind an
// API caller to a principal identity.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifesignal/lifesignal/internal/common"
)

// Claims includes the registered claims plus the principal the session
// belongs to.
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID string
}

func GenerateToken(principalID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		PrincipalID: principalID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func GetPrincipalIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.PrincipalID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.PrincipalID, nil
}
