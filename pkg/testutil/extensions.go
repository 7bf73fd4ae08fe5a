// Package testutil provides provider fixtures shared by tests across the
// repository.
package testutil

import (
	"context"
	"errors"
	"time"

	"github.com/stratovia/cpi/pkg/extension"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
	"github.com/stratovia/cpi/pkg/response"
	"github.com/stratovia/cpi/pkg/validation"
)

var (
	_ protocol.Extension        = (*EchoExtension)(nil)
	_ protocol.Extension        = (*SlowExtension)(nil)
	_ protocol.Extension        = (*FailingExtension)(nil)
	_ protocol.SettingsProvider = (*FailingExtension)(nil)
	_ protocol.InstallTester    = (*FailingExtension)(nil)
	_ protocol.Versioner        = (*FailingExtension)(nil)
)

// EchoExtension is a minimal provider: exactly the five mandatory methods,
// no optional capabilities, one echo action requiring a string "msg".
type EchoExtension struct {
	actions *extension.ActionSet
}

// NewEchoExtension builds the fixture.
func NewEchoExtension() *EchoExtension {
	set := extension.NewActionSet()

	set.Register(models.ActionDefinition{
		Name:        "echo",
		Description: "Echo a message back to the caller",
		Parameters: []models.ActionParameter{
			models.RequiredParam("msg", "message to echo", models.ParamTypeString),
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		msg, err := validation.ExtractString(args, "msg")
		if err != nil {
			return nil, err
		}

		return response.Success(map[string]any{"echo": msg}), nil
	})

	return &EchoExtension{actions: set}
}

func (e *EchoExtension) Name() string         { return "echo" }
func (e *EchoExtension) ProviderType() string { return "api" }
func (e *EchoExtension) Actions() []string    { return e.actions.Actions() }

func (e *EchoExtension) ActionDefinition(name string) (models.ActionDefinition, bool) {
	return e.actions.ActionDefinition(name)
}

func (e *EchoExtension) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	return e.actions.Execute(ctx, action, args)
}

// SlowExtension exposes a "wait" action that blocks for a fixed delay
// before succeeding. Used to exercise host-side timeout racing.
type SlowExtension struct {
	actions *extension.ActionSet
	delay   time.Duration
}

// NewSlowExtension builds the fixture with the given action delay.
func NewSlowExtension(delay time.Duration) *SlowExtension {
	ext := &SlowExtension{delay: delay}

	set := extension.NewActionSet()
	set.Register(models.ActionDefinition{
		Name:        "wait",
		Description: "Block for the configured delay, then succeed",
	}, func(ctx context.Context, args map[string]any) (any, error) {
		time.Sleep(ext.delay)

		return response.Success(map[string]any{"waited_ms": ext.delay.Milliseconds()}), nil
	})

	ext.actions = set

	return ext
}

func (e *SlowExtension) Name() string         { return "slow" }
func (e *SlowExtension) ProviderType() string { return "command" }
func (e *SlowExtension) Actions() []string    { return e.actions.Actions() }

func (e *SlowExtension) ActionDefinition(name string) (models.ActionDefinition, bool) {
	return e.actions.ActionDefinition(name)
}

func (e *SlowExtension) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	return e.actions.Execute(ctx, action, args)
}

// FailingExtension always fails: its single action errors and its install
// test reports a missing prerequisite. Implements all three optional
// capabilities so tests can cover overridden paths.
type FailingExtension struct {
	actions *extension.ActionSet
}

// NewFailingExtension builds the fixture.
func NewFailingExtension() *FailingExtension {
	set := extension.NewActionSet()
	set.Register(models.ActionDefinition{
		Name:        "explode",
		Description: "Always fails",
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("backend unavailable")
	})

	return &FailingExtension{actions: set}
}

func (e *FailingExtension) Name() string         { return "flaky" }
func (e *FailingExtension) ProviderType() string { return "command" }
func (e *FailingExtension) Actions() []string    { return e.actions.Actions() }

func (e *FailingExtension) ActionDefinition(name string) (models.ActionDefinition, bool) {
	return e.actions.ActionDefinition(name)
}

func (e *FailingExtension) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	return e.actions.Execute(ctx, action, args)
}

func (e *FailingExtension) DefaultSettings() map[string]any {
	return map[string]any{"retries": 0}
}

func (e *FailingExtension) TestInstall(ctx context.Context) (any, error) {
	return nil, errors.New("missing dependency: vmctl")
}

func (e *FailingExtension) Version() string { return "0.0.1-broken" }
