package services_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/config"
	"github.com/stratovia/cpi/pkg/health"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/services"
	"github.com/stratovia/cpi/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newProviderService(t *testing.T) *services.ProviderService {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	require.NoError(t, reg.Register(testutil.NewEchoExtension()))
	require.NoError(t, reg.Register(testutil.NewFailingExtension()))

	settingsPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("providers:\n  flaky:\n    settings:\n      retries: 3\n"), 0o600))

	overlay, err := config.Load(settingsPath)
	require.NoError(t, err)

	checker, err := health.NewChecker(testLogger(), reg)
	require.NoError(t, err)
	checker.RunOnce(context.Background())

	return services.NewProviderService(reg, overlay, checker)
}

func TestProviderService_ListProviders(t *testing.T) {
	service := newProviderService(t)

	details := service.ListProviders(context.Background())
	require.Len(t, details, 2)

	assert.Equal(t, "echo", details[0].Name)
	assert.Equal(t, []string{"echo"}, details[0].Actions)
	assert.Empty(t, details[0].Settings)

	assert.Equal(t, "flaky", details[1].Name)
	assert.Equal(t, "0.0.1-broken", details[1].Version)
	assert.Equal(t, map[string]any{"retries": 3}, details[1].Settings)
}

func TestProviderService_GetProvider(t *testing.T) {
	service := newProviderService(t)

	detail, err := service.GetProvider(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", detail.Name)
	assert.Equal(t, "api", detail.ProviderType)
	assert.Equal(t, []string{"echo"}, detail.Actions)

	_, err = service.GetProvider(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrProviderNotFound)
	assert.True(t, services.IsNotFoundError(err))
}

func TestProviderService_ListActions(t *testing.T) {
	service := newProviderService(t)

	definitions, err := service.ListActions(context.Background(), "echo")
	require.NoError(t, err)
	require.Len(t, definitions, 1)
	assert.Equal(t, "echo", definitions[0].Name)
	require.Len(t, definitions[0].Parameters, 1)
	assert.Equal(t, "msg", definitions[0].Parameters[0].Name)

	_, err = service.ListActions(context.Background(), "ghost")
	assert.True(t, services.IsNotFoundError(err))
}

func TestProviderService_GetAction(t *testing.T) {
	service := newProviderService(t)

	def, err := service.GetAction(context.Background(), "echo", "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", def.Name)

	_, err = service.GetAction(context.Background(), "echo", "reverse")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrActionNotFound)
	assert.True(t, services.IsNotFoundError(err))

	_, err = service.GetAction(context.Background(), "ghost", "echo")
	assert.ErrorIs(t, err, services.ErrProviderNotFound)
}

func TestProviderService_ActionSchema(t *testing.T) {
	service := newProviderService(t)

	def, document, err := service.ActionSchema(context.Background(), "echo", "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", def.Name)
	assert.Equal(t, "echo", document["title"])
	assert.Equal(t, []string{"msg"}, document["required"])
}

func TestProviderService_LintArgs(t *testing.T) {
	service := newProviderService(t)

	err := service.LintArgs(context.Background(), "echo", "echo", map[string]any{"msg": "fine"})
	assert.NoError(t, err)

	err = service.LintArgs(context.Background(), "echo", "echo", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msg is required")
	assert.False(t, services.IsNotFoundError(err))

	err = service.LintArgs(context.Background(), "echo", "reverse", nil)
	assert.True(t, services.IsNotFoundError(err))
}

func TestProviderService_TestProvider(t *testing.T) {
	service := newProviderService(t)

	result, err := service.TestProvider(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok"}, result)

	_, err = service.TestProvider(context.Background(), "flaky")
	require.Error(t, err)
	assert.Equal(t, "missing dependency: vmctl", err.Error())

	_, err = service.TestProvider(context.Background(), "ghost")
	assert.True(t, services.IsNotFoundError(err))
}

func TestProviderService_HealthSnapshot(t *testing.T) {
	service := newProviderService(t)

	snapshot := service.HealthSnapshot()
	require.Len(t, snapshot, 2)
	assert.True(t, snapshot["echo"].Healthy)
	assert.False(t, snapshot["flaky"].Healthy)

	bare := services.NewProviderService(registry.NewRegistry(testLogger()), nil, nil)
	assert.Empty(t, bare.HealthSnapshot())
}

func TestProviderService_HealthCheck(t *testing.T) {
	service := newProviderService(t)

	message, ok := service.HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "2 providers registered", message)
}
