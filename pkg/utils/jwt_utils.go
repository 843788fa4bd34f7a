package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecretKey verifies incoming tokens. It must match the key the auth
// service signs with; both read JWT_SECRET_KEY.
var jwtSecretKey = []byte(Getenv("JWT_SECRET_KEY", "dev-only-insecure-secret"))

// Claims defines the JWT claims structure. OrganizationID scopes every
// catalog operation to the caller's tenant.
type Claims struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and validates a JWT token string.
// It returns the claims if the token is valid, otherwise an error.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
