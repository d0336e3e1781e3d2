package notification

import "errors"

var (
	ErrInvalidRequest = errors.New("notification requires a user, type and title")
)
