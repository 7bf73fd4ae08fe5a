// Package services layers the registry, runner and audit store behind the
// operations the web API exposes.
package services

import (
	"errors"

	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/store"
)

var (
	// ErrProviderNotFound aliases the registry sentinel.
	ErrProviderNotFound = registry.ErrNotFound

	// ErrActionNotFound indicates the provider does not expose the action.
	ErrActionNotFound = errors.New("action not found")

	// ErrInvocationNotFound aliases the store sentinel.
	ErrInvocationNotFound = store.ErrInvocationNotFound

	// ErrHistoryDisabled indicates the host runs without an audit store.
	ErrHistoryDisabled = errors.New("invocation history is not enabled")

	// ErrInvalidRequest indicates a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrActionNotFound) ||
		errors.Is(err, ErrInvocationNotFound)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsHistoryDisabled checks if an error means the host runs storeless.
func IsHistoryDisabled(err error) bool {
	return errors.Is(err, ErrHistoryDisabled)
}
