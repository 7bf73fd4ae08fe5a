package web_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/eventbus"
	"github.com/stratovia/cpi/pkg/events"
	"github.com/stratovia/cpi/pkg/health"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/runner"
	"github.com/stratovia/cpi/pkg/services"
	"github.com/stratovia/cpi/pkg/store/sqlite"
	"github.com/stratovia/cpi/pkg/testutil"
	"github.com/stratovia/cpi/pkg/web"
)

// TestAPI_FullLifecycle drives the whole host through the HTTP surface:
// event bus, audit store and health checker wired together the way
// cpi-server assembles them.
func TestAPI_FullLifecycle(t *testing.T) {
	ctx := context.Background()

	reg := registry.NewRegistry(testLogger())
	require.NoError(t, reg.Register(testutil.NewEchoExtension()))
	require.NoError(t, reg.Register(testutil.NewFailingExtension()))

	st, err := sqlite.NewStore(ctx, testLogger(), filepath.Join(t.TempDir(), "cpi.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close(context.Background()))
	})

	channel := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(channel, channel)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan any, 8)

	for _, eventType := range []events.EventType{
		events.InvocationStartedEvent,
		events.InvocationFinishedEvent,
		events.InvocationFailedEvent,
	} {
		require.NoError(t, bus.Handle(eventType, func(ctx context.Context, event any) error {
			received <- event

			return nil
		}))
	}

	require.NoError(t, bus.Subscribe(ctx))

	checker, err := health.NewChecker(testLogger(), reg, health.WithStore(st))
	require.NoError(t, err)
	checker.RunOnce(ctx)

	run := runner.NewRunner(testLogger(), reg, runner.WithStore(st), runner.WithEventBus(bus))
	providerService := services.NewProviderService(reg, nil, checker)
	invocationService := services.NewInvocationService(run, st)
	handlers := web.NewAPIHandlers(providerService, invocationService, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	registerRoutes(app, handlers)

	// Execute one success and one failure over HTTP.
	status, okBody := doRequest(t, app, http.MethodPost, "/providers/echo/actions/echo/execute",
		web.ExecuteActionRequest{Args: map[string]any{"msg": "end to end"}})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "succeeded", okBody["status"])

	status, failBody := doRequest(t, app, http.MethodPost, "/providers/flaky/actions/explode/execute", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "failed", failBody["status"])

	// Both invocations flow out on the bus.
	var seen []any

	for range 4 {
		select {
		case event := <-received:
			seen = append(seen, event)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for invocation events")
		}
	}

	var finished *events.InvocationFinished

	var failed *events.InvocationFailed

	for _, event := range seen {
		switch typed := event.(type) {
		case *events.InvocationFinished:
			finished = typed
		case *events.InvocationFailed:
			failed = typed
		}
	}

	require.NotNil(t, finished)
	require.NotNil(t, failed)
	assert.Equal(t, okBody["invocation_id"], finished.InvocationID)
	assert.Equal(t, failBody["invocation_id"], failed.InvocationID)

	// Both land in the audit history.
	status, history := doRequest(t, app, http.MethodGet, "/invocations", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, history["count"])

	// The health endpoint reflects the sweep and the store ping.
	status, healthBody := doRequest(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", healthBody["status"])

	providers, ok := healthBody["providers"].(map[string]any)
	require.True(t, ok)

	echoHealth, ok := providers["echo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, echoHealth["healthy"])

	flakyHealth, ok := providers["flaky"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, flakyHealth["healthy"])
}
