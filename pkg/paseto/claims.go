package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
)

// Claims is the verified payload of a caller's access token.
type Claims struct {
	Type TokenType

	UserID    uuid.UUID
	SessionID *uuid.UUID
	Email     string

	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string // jti
}

func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
