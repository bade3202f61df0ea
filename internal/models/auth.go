package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the platform
// identity service. This API only validates tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity used for scoping.
func (c *JWTClaims) Actor() Actor {
	return Actor{ID: c.UserID, Role: c.Role}
}
