package email

import "fmt"

// ErrDisabled is returned by Send when email.enabled is false. Workers check
// Enabled first, so seeing it means a caller skipped that check.
type ErrDisabled struct{}

func (ErrDisabled) Error() string { return "email is disabled" }

// ErrInvalidMessage is a message the SMTP server would reject anyway.
type ErrInvalidMessage struct{ Reason string }

func (e ErrInvalidMessage) Error() string { return "invalid email message: " + e.Reason }

// ErrSend wraps a transport failure; retrying may succeed.
type ErrSend struct {
	Provider string
	Err      error
}

func (e ErrSend) Error() string {
	return fmt.Sprintf("email send via %s failed: %v", e.Provider, e.Err)
}
func (e ErrSend) Unwrap() error { return e.Err }
