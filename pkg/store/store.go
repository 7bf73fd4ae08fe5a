// Package store persists invocation records and provider health reports.
package store

import (
	"context"
	"errors"

	"github.com/stratovia/cpi/pkg/models"
)

// Standard store error types that all implementations should use.
var (
	// ErrInvocationNotFound indicates no invocation exists with the given ID.
	ErrInvocationNotFound = errors.New("invocation not found")

	// ErrHealthNotFound indicates no health report exists for the provider.
	ErrHealthNotFound = errors.New("health report not found")
)

// Filter narrows Invocations listings. Zero values mean "any"; Limit 0
// falls back to the backend default.
type Filter struct {
	Provider string
	Action   string
	Status   models.InvocationStatus
	Limit    int
}

// Store is the audit persistence contract shared by the SQLite and
// PostgreSQL backends.
type Store interface {
	SaveInvocation(ctx context.Context, record *models.InvocationRecord) error
	InvocationByID(ctx context.Context, id string) (*models.InvocationRecord, error)
	Invocations(ctx context.Context, filter Filter) ([]*models.InvocationRecord, error)
	SaveProviderHealth(ctx context.Context, health *models.ProviderHealth) error
	LatestProviderHealth(ctx context.Context, provider string) (*models.ProviderHealth, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// IsInvocationNotFound checks if an error indicates a missing invocation.
func IsInvocationNotFound(err error) bool {
	return errors.Is(err, ErrInvocationNotFound)
}

// IsHealthNotFound checks if an error indicates a missing health report.
func IsHealthNotFound(err error) bool {
	return errors.Is(err, ErrHealthNotFound)
}
