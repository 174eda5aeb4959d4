package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload. The subject carries the principal's email.
type JWTClaims struct {
	Role UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
