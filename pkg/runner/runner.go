// Package runner executes provider actions on behalf of the host, with
// bounded concurrency, timeout racing and audit plumbing.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stratovia/cpi/pkg/eventbus"
	"github.com/stratovia/cpi/pkg/events"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/otelhelper"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/store"
)

// DefaultMaxConcurrent bounds how many provider calls run at once.
const DefaultMaxConcurrent = 16

// Request describes one action invocation. A zero Timeout means the call
// may run for as long as it likes.
type Request struct {
	Provider string
	Action   string
	Args     map[string]any
	Timeout  time.Duration
}

// Result is what the host records about one invocation. Err carries the
// provider's plain error string; Output is only set on success.
type Result struct {
	InvocationID string
	Provider     string
	Action       string
	Output       any
	Err          string
	Status       models.InvocationStatus
	StartedAt    time.Time
	FinishedAt   time.Time
	Duration     time.Duration
	TimedOut     bool
}

// Runner drives invocations against the registry. Event bus, store and
// tracer are optional so the CLI can run lean.
type Runner struct {
	logger    *slog.Logger
	registry  *registry.Registry
	eventBus  eventbus.EventPublisher
	store     store.Store
	tracer    trace.Tracer
	semaphore chan struct{}
}

type Option func(*Runner)

func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(r *Runner) { r.eventBus = bus }
}

func WithStore(s store.Store) Option {
	return func(r *Runner) { r.store = s }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

func WithMaxConcurrent(limit int) Option {
	return func(r *Runner) {
		if limit > 0 {
			r.semaphore = make(chan struct{}, limit)
		}
	}
}

func NewRunner(logger *slog.Logger, reg *registry.Registry, opts ...Option) *Runner {
	runner := &Runner{
		logger:    logger.With("module", "runner"),
		registry:  reg,
		tracer:    noop.NewTracerProvider().Tracer("cpi"),
		semaphore: make(chan struct{}, DefaultMaxConcurrent),
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

type callResult struct {
	output any
	err    error
}

// Execute runs one invocation to completion, timeout or abandonment. The
// provider call runs in its own goroutine; on timeout the call is
// abandoned and its eventual result discarded, because the base protocol
// has no way to cancel a running action.
func (r *Runner) Execute(ctx context.Context, req Request) Result {
	invocationID := "inv-" + uuid.New().String()

	result := Result{
		InvocationID: invocationID,
		Provider:     req.Provider,
		Action:       req.Action,
		StartedAt:    time.Now().UTC(),
	}

	logger := r.logger.With(
		"provider", req.Provider,
		"action", req.Action,
		"invocation_id", invocationID,
	)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runner.execute",
		attribute.String(otelhelper.ProviderNameKey, req.Provider),
		attribute.String(otelhelper.ActionNameKey, req.Action),
		attribute.String(otelhelper.InvocationIDKey, invocationID),
	)
	defer span.End()

	ext, err := r.registry.Get(req.Provider)
	if err != nil {
		result.Err = err.Error()
		result.Status = models.InvocationFailed

		return r.finish(ctx, logger, span, req, result)
	}

	var timerC <-chan time.Time

	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()

		timerC = timer.C
	}

	// The slot is held for as long as the provider call actually runs,
	// abandoned or not, so wedged providers exert real backpressure.
	select {
	case r.semaphore <- struct{}{}:
	case <-timerC:
		result.Err = fmt.Sprintf("action '%s' timed out after %s waiting for an execution slot", req.Action, req.Timeout)
		result.Status = models.InvocationTimedOut
		result.TimedOut = true

		return r.finish(ctx, logger, span, req, result)
	case <-ctx.Done():
		result.Err = "invocation abandoned: " + ctx.Err().Error()
		result.Status = models.InvocationTimedOut
		result.TimedOut = true

		return r.finish(ctx, logger, span, req, result)
	}

	logger.InfoContext(ctx, "Invocation started")
	r.publish(ctx, req.Provider, &events.InvocationStarted{
		BaseEvent:    events.NewBaseEvent(events.InvocationStartedEvent, req.Provider),
		InvocationID: invocationID,
		Action:       req.Action,
		Args:         req.Args,
	})

	resultCh := make(chan callResult, 1)

	go func() {
		defer func() { <-r.semaphore }()
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- callResult{err: fmt.Errorf("action '%s' panicked: %v", req.Action, rec)}
			}
		}()

		output, err := ext.Execute(ctx, req.Action, req.Args)
		resultCh <- callResult{output: output, err: err}
	}()

	select {
	case call := <-resultCh:
		if call.err != nil {
			result.Err = call.err.Error()
			result.Status = models.InvocationFailed
		} else {
			result.Output = call.output
			result.Status = models.InvocationSucceeded
		}
	case <-timerC:
		result.Err = fmt.Sprintf("action '%s' timed out after %s", req.Action, req.Timeout)
		result.Status = models.InvocationTimedOut
		result.TimedOut = true
	case <-ctx.Done():
		result.Err = "invocation abandoned: " + ctx.Err().Error()
		result.Status = models.InvocationTimedOut
		result.TimedOut = true
	}

	return r.finish(ctx, logger, span, req, result)
}

// finish stamps, logs, traces, persists and publishes one result. Audit
// writes use a non-cancelable context so a shutdown or timeout cannot
// lose the record of what happened.
func (r *Runner) finish(ctx context.Context, logger *slog.Logger, span trace.Span, req Request, result Result) Result {
	result.FinishedAt = time.Now().UTC()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	auditCtx := context.WithoutCancel(ctx)

	switch result.Status {
	case models.InvocationSucceeded:
		logger.InfoContext(auditCtx, "Invocation finished", "duration_ms", result.Duration.Milliseconds())
		span.SetStatus(codes.Ok, "")

		r.publish(auditCtx, req.Provider, &events.InvocationFinished{
			BaseEvent:    events.NewBaseEvent(events.InvocationFinishedEvent, req.Provider),
			InvocationID: result.InvocationID,
			Action:       req.Action,
			Status:       result.Status,
			DurationMS:   result.Duration.Milliseconds(),
		})
	case models.InvocationFailed, models.InvocationTimedOut, models.InvocationRunning:
		logger.WarnContext(auditCtx, "Invocation failed",
			"status", result.Status,
			"error", result.Err,
			"duration_ms", result.Duration.Milliseconds(),
		)
		otelhelper.SetError(span, errors.New(result.Err))

		r.publish(auditCtx, req.Provider, &events.InvocationFailed{
			BaseEvent:    events.NewBaseEvent(events.InvocationFailedEvent, req.Provider),
			InvocationID: result.InvocationID,
			Action:       req.Action,
			Status:       result.Status,
			Error:        result.Err,
			DurationMS:   result.Duration.Milliseconds(),
		})
	}

	r.persist(auditCtx, logger, req, result)

	return result
}

func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.eventBus == nil {
		return
	}

	if err := r.eventBus.Publish(ctx, key, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish invocation event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

func (r *Runner) persist(ctx context.Context, logger *slog.Logger, req Request, result Result) {
	if r.store == nil {
		return
	}

	record := &models.InvocationRecord{
		ID:         result.InvocationID,
		Provider:   result.Provider,
		Action:     result.Action,
		Args:       req.Args,
		Output:     result.Output,
		Error:      result.Err,
		Status:     result.Status,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		DurationMS: result.Duration.Milliseconds(),
	}

	if err := r.store.SaveInvocation(ctx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to persist invocation record", "error", err)
	}
}
