// Package auth issues and verifies the access tokens carried by gRPC calls
// and websocket upgrades.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the caller's UID.
type Claims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

func GenerateToken(uid string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UID: uid,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUIDFromToken verifies tokenString and returns its UID. Expired tokens
// yield common.ErrTokenExpired; anything else wrong is common.ErrInvalidToken.
func GetUIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UID, nil
}
