package leads

import "errors"

var (
	// ErrMissingPhone is returned when the phone number is empty
	ErrMissingPhone = errors.New("phone number is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
