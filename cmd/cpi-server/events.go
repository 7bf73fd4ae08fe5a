package main

import (
	"context"
	"log/slog"

	"github.com/stratovia/cpi/pkg/eventbus"
	"github.com/stratovia/cpi/pkg/events"
)

// attachEventLog subscribes a structured audit trail to every lifecycle
// event the host publishes. Handlers never fail: a malformed event is
// worth a log line, not a redelivery loop.
func attachEventLog(bus eventbus.EventBus, logger *slog.Logger) error {
	audit := logger.With("module", "event-log")

	handlers := map[events.EventType]eventbus.EventHandler{
		events.ProviderRegisteredEvent: func(ctx context.Context, event any) error {
			registered, ok := event.(*events.ProviderRegistered)
			if !ok {
				return nil
			}

			audit.InfoContext(ctx, "Provider registered",
				"provider", registered.Provider,
				"provider_type", registered.ProviderType,
				"version", registered.Version,
				"source", registered.Source,
				"actions", registered.ActionCount,
			)

			return nil
		},
		events.ProviderLoadFailedEvent: func(ctx context.Context, event any) error {
			failed, ok := event.(*events.ProviderLoadFailed)
			if !ok {
				return nil
			}

			audit.WarnContext(ctx, "Provider load failed",
				"path", failed.Path,
				"error", failed.Error,
			)

			return nil
		},
		events.ProviderDeregisteredEvent: func(ctx context.Context, event any) error {
			deregistered, ok := event.(*events.ProviderDeregistered)
			if !ok {
				return nil
			}

			audit.InfoContext(ctx, "Provider deregistered", "provider", deregistered.Provider)

			return nil
		},
		events.ProviderHealthCheckedEvent: func(ctx context.Context, event any) error {
			checked, ok := event.(*events.ProviderHealthChecked)
			if !ok {
				return nil
			}

			if checked.Healthy {
				audit.DebugContext(ctx, "Provider healthy", "provider", checked.Provider)
			} else {
				audit.WarnContext(ctx, "Provider unhealthy",
					"provider", checked.Provider,
					"error", checked.Error,
				)
			}

			return nil
		},
		events.InvocationStartedEvent: func(ctx context.Context, event any) error {
			started, ok := event.(*events.InvocationStarted)
			if !ok {
				return nil
			}

			audit.InfoContext(ctx, "Invocation started",
				"invocation_id", started.InvocationID,
				"provider", started.Provider,
				"action", started.Action,
			)

			return nil
		},
		events.InvocationFinishedEvent: func(ctx context.Context, event any) error {
			finished, ok := event.(*events.InvocationFinished)
			if !ok {
				return nil
			}

			audit.InfoContext(ctx, "Invocation finished",
				"invocation_id", finished.InvocationID,
				"provider", finished.Provider,
				"action", finished.Action,
				"status", finished.Status,
				"duration_ms", finished.DurationMS,
			)

			return nil
		},
		events.InvocationFailedEvent: func(ctx context.Context, event any) error {
			failed, ok := event.(*events.InvocationFailed)
			if !ok {
				return nil
			}

			audit.WarnContext(ctx, "Invocation failed",
				"invocation_id", failed.InvocationID,
				"provider", failed.Provider,
				"action", failed.Action,
				"status", failed.Status,
				"error", failed.Error,
				"duration_ms", failed.DurationMS,
			)

			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return nil
}
