package service

import "errors"

var (
	// ErrAuthRequired is raised before any network call when a mutating
	// operation is attempted without an identity.
	ErrAuthRequired = errors.New("must be authenticated to perform this action")

	// ErrInvalidResponse marks a success reply whose payload does not match
	// the expected structure.
	ErrInvalidResponse = errors.New("invalid response shape from session service")

	// ErrUnexpectedFormat marks a reply that is neither the expected scalar
	// nor an error-shaped payload.
	ErrUnexpectedFormat = errors.New("unexpected response format")

	ErrNonRetryable = errors.New("non-retryable error")
)
