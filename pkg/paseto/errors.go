package pasetotoken

import (
	"errors"
	"fmt"
)

// ErrCannotIssue is returned by IssueAccess when the manager only holds
// verification keys, as in production where the identity service signs.
var ErrCannotIssue = errors.New("paseto keys cannot issue tokens")

type ErrConfig struct{ Msg string }

func (e ErrConfig) Error() string { return "paseto config error: " + e.Msg }

// ErrInvalidToken covers malformed, expired, foreign and tampered tokens.
type ErrInvalidToken struct{ Err error }

func (e ErrInvalidToken) Error() string { return fmt.Sprintf("invalid token: %v", e.Err) }
func (e ErrInvalidToken) Unwrap() error { return e.Err }
