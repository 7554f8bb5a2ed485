package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Feed Event Errors
	ErrValidation    = errors.New("feed event failed validation")
	ErrInconsistency = errors.New("feed event inconsistent with current state")

	// Feed Transport Specific Errors
	ErrConnectionFailed = errors.New("failed to connect to the trade feed")
	ErrFeedClosed       = errors.New("trade feed connection closed")
	ErrDecodeFailed     = errors.New("failed to decode feed message")
	ErrUnknownEvent     = errors.New("unknown feed event kind")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
