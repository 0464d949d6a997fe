// Package auth issues and verifies the signed state tokens used to protect
// the OAuth login round trip.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// StateClaims carries a random nonce so two states minted in the same
// second still differ.
type StateClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// GenerateState returns an HS256 token valid for ttl.
func GenerateState(secretKey []byte, ttl time.Duration) (string, error) {
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Nonce: nonce,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyState checks signature, algorithm and expiry. Every failure wraps
// common.ErrInvalidToken.
func VerifyState(tokenString string, secretKey []byte) error {
	claims := &StateClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: state expired", common.ErrInvalidToken)
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Nonce == "" {
		return common.ErrInvalidToken
	}

	return nil
}
