package scheduling

import "errors"

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrInvalidDate   = errors.New("date must be formatted YYYY-MM-DD")
)
