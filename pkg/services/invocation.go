package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/runner"
	"github.com/stratovia/cpi/pkg/store"
)

// InvocationService executes actions and serves the audit history. The
// store may be nil for hosts running without one.
type InvocationService struct {
	runner *runner.Runner
	store  store.Store
}

// NewInvocationService creates a new invocation service.
func NewInvocationService(run *runner.Runner, st store.Store) *InvocationService {
	return &InvocationService{
		runner: run,
		store:  st,
	}
}

// ExecuteRequest is one invocation as the API accepts it.
type ExecuteRequest struct {
	Provider  string
	Action    string
	Args      map[string]any
	TimeoutMS int64
}

// Execute dispatches one invocation through the runner. Protocol-level
// failures come back inside the Result, not as an error.
func (s *InvocationService) Execute(ctx context.Context, req ExecuteRequest) runner.Result {
	return s.runner.Execute(ctx, runner.Request{
		Provider: req.Provider,
		Action:   req.Action,
		Args:     req.Args,
		Timeout:  time.Duration(req.TimeoutMS) * time.Millisecond,
	})
}

// HistoryRequest filters the audit listing. Zero values mean "any".
type HistoryRequest struct {
	Provider string
	Action   string
	Status   string
	Limit    int
}

// History lists invocation records, newest first.
func (s *InvocationService) History(ctx context.Context, req HistoryRequest) ([]*models.InvocationRecord, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}

	if req.Status != "" {
		switch models.InvocationStatus(req.Status) {
		case models.InvocationRunning, models.InvocationSucceeded, models.InvocationFailed, models.InvocationTimedOut:
		default:
			return nil, fmt.Errorf("%w: unknown status '%s'", ErrInvalidRequest, req.Status)
		}
	}

	return s.store.Invocations(ctx, store.Filter{
		Provider: req.Provider,
		Action:   req.Action,
		Status:   models.InvocationStatus(req.Status),
		Limit:    req.Limit,
	})
}

// GetInvocation returns one audit record by ID.
func (s *InvocationService) GetInvocation(ctx context.Context, id string) (*models.InvocationRecord, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	return s.store.InvocationByID(ctx, id)
}

// HealthCheck reports the audit store state for the API health endpoint.
// A host deliberately running storeless is healthy.
func (s *InvocationService) HealthCheck(ctx context.Context) (string, bool) {
	if s.store == nil {
		return "Audit store not configured", true
	}

	if err := s.store.HealthCheck(ctx); err != nil {
		return "Audit store is unhealthy: " + err.Error(), false
	}

	return "Audit store is healthy", true
}
