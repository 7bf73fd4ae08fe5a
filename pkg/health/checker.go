// Package health periodically runs every registered provider's install
// test and records the outcomes.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stratovia/cpi/pkg/eventbus"
	"github.com/stratovia/cpi/pkg/events"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/store"
)

const (
	// DefaultSchedule sweeps once a minute.
	DefaultSchedule = "@every 1m"

	// DefaultCheckTimeout bounds one provider's install test.
	DefaultCheckTimeout = 10 * time.Second
)

// Checker sweeps the registry on a cron schedule, calling each provider's
// install test. Event bus and store are optional; the in-memory status
// table is always maintained.
type Checker struct {
	logger   *slog.Logger
	registry *registry.Registry
	eventBus eventbus.EventPublisher
	store    store.Store
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	mutex    sync.RWMutex
	statuses map[string]models.ProviderHealth
}

type Option func(*Checker)

func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(c *Checker) { c.eventBus = bus }
}

func WithStore(s store.Store) Option {
	return func(c *Checker) { c.store = s }
}

func WithSchedule(schedule string) Option {
	return func(c *Checker) {
		if schedule != "" {
			c.schedule = schedule
		}
	}
}

func WithCheckTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewChecker validates the schedule up front so a bad expression fails at
// startup rather than at first fire.
func NewChecker(logger *slog.Logger, reg *registry.Registry, opts ...Option) (*Checker, error) {
	checker := &Checker{
		logger:   logger.With("module", "health"),
		registry: reg,
		schedule: DefaultSchedule,
		timeout:  DefaultCheckTimeout,
		statuses: make(map[string]models.ProviderHealth),
	}

	for _, opt := range opts {
		opt(checker)
	}

	if _, err := cron.ParseStandard(checker.schedule); err != nil {
		return nil, fmt.Errorf("invalid health schedule '%s': %w", checker.schedule, err)
	}

	return checker, nil
}

// Start begins scheduled sweeps. Overlapping runs are skipped rather than
// stacked.
func (c *Checker) Start(ctx context.Context) error {
	c.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.cron.AddFunc(c.schedule, func() {
		c.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health sweep: %w", err)
	}

	c.cron.Start()
	c.logger.InfoContext(ctx, "Health checker started", "schedule", c.schedule)

	return nil
}

// Stop halts scheduled sweeps. A sweep already in flight finishes.
func (c *Checker) Stop() {
	if c.cron != nil {
		c.cron.Stop()
		c.logger.Info("Health checker stopped")
	}
}

// RunOnce sweeps every registered provider now.
func (c *Checker) RunOnce(ctx context.Context) {
	names := c.registry.List()

	healthy := 0

	for _, name := range names {
		if c.checkProvider(ctx, name).Healthy {
			healthy++
		}
	}

	c.logger.InfoContext(ctx, "Health sweep finished", "providers", len(names), "healthy", healthy)
}

// Status returns a snapshot of the latest observation per provider.
func (c *Checker) Status() map[string]models.ProviderHealth {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snapshot := make(map[string]models.ProviderHealth, len(c.statuses))
	for name, health := range c.statuses {
		snapshot[name] = health
	}

	return snapshot
}

// StatusFor returns the latest observation for one provider.
func (c *Checker) StatusFor(provider string) (models.ProviderHealth, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	health, ok := c.statuses[provider]

	return health, ok
}

type checkResult struct {
	detail any
	err    error
}

// checkProvider runs one install test with a timeout. Like the runner, a
// check that outlives its deadline is abandoned rather than interrupted.
func (c *Checker) checkProvider(ctx context.Context, name string) models.ProviderHealth {
	health := models.ProviderHealth{
		Provider:  name,
		CheckedAt: time.Now().UTC(),
	}

	ext, err := c.registry.Get(name)
	if err != nil {
		// Deregistered between List and Get; not an observation.
		return health
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resultCh := make(chan checkResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- checkResult{err: fmt.Errorf("install test panicked: %v", rec)}
			}
		}()

		detail, err := protocol.TestInstall(checkCtx, ext)
		resultCh <- checkResult{detail: detail, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			health.Error = result.err.Error()
		} else {
			health.Healthy = true
			health.Detail = result.detail
		}
	case <-checkCtx.Done():
		if ctx.Err() != nil {
			health.Error = "install test abandoned: " + ctx.Err().Error()
		} else {
			health.Error = fmt.Sprintf("install test timed out after %s", c.timeout)
		}
	}

	c.record(context.WithoutCancel(ctx), health)

	return health
}

func (c *Checker) record(ctx context.Context, health models.ProviderHealth) {
	c.mutex.Lock()
	c.statuses[health.Provider] = health
	c.mutex.Unlock()

	if !health.Healthy {
		c.logger.WarnContext(ctx, "Provider unhealthy", "provider", health.Provider, "error", health.Error)
	}

	if c.store != nil {
		if err := c.store.SaveProviderHealth(ctx, &health); err != nil {
			c.logger.ErrorContext(ctx, "Failed to persist health report",
				"provider", health.Provider,
				"error", err,
			)
		}
	}

	if c.eventBus != nil {
		event := &events.ProviderHealthChecked{
			BaseEvent: events.NewBaseEvent(events.ProviderHealthCheckedEvent, health.Provider),
			Healthy:   health.Healthy,
			Detail:    health.Detail,
			Error:     health.Error,
		}

		if err := c.eventBus.Publish(ctx, health.Provider, event); err != nil {
			c.logger.WarnContext(ctx, "Failed to publish health event",
				"provider", health.Provider,
				"error", err,
			)
		}
	}
}
