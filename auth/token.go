package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"support-chat/domain"
)

// Claims defines the data the auth collaborator stores inside the bearer
// token. The signing key never leaves the collaborator, so the client
// extracts claims without verifying the signature; the server re-validates
// the token on every HTTP call and on the WebSocket handshake.
type Claims struct {
	CustomerID int         `json:"customer_id"`
	Name       string      `json:"name"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ParseBearer extracts the identity claims from an externally issued JWT.
func ParseBearer(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse bearer token: %w", err)
	}
	if claims.Role != domain.RoleUser && claims.Role != domain.RoleAdmin {
		return Claims{}, fmt.Errorf("unknown role %q in bearer token", claims.Role)
	}
	return claims, nil
}

// Sender builds the message author identity carried by every outgoing
// message of this credential.
func (c Claims) Sender() domain.Sender {
	return domain.Sender{ID: c.CustomerID, Name: c.Name, Role: c.Role}
}
