package cmd_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/cmd"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestNewRegistry_RegistersBuiltins(t *testing.T) {
	reg, err := cmd.NewRegistry(testLogger(), nil, filepath.Join(t.TempDir(), "no-plugins-here"))
	require.NoError(t, err)

	assert.Equal(t, []string{"fileops", "localvm"}, reg.List())
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	st, err := cmd.NewStore(ctx, logger, "")
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = cmd.NewStore(ctx, logger, "sqlite://"+filepath.Join(t.TempDir(), "cpi.db"))
	require.NoError(t, err)
	require.NotNil(t, st)
	require.NoError(t, st.HealthCheck(ctx))
	require.NoError(t, st.Close(ctx))

	_, err = cmd.NewStore(ctx, logger, "cpi.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no scheme")

	_, err = cmd.NewStore(ctx, logger, "mysql://whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database scheme 'mysql'")
}

func TestNewEventBus(t *testing.T) {
	logger := testLogger()

	bus, err := cmd.NewEventBus("gochannel", logger)
	require.NoError(t, err)
	require.NotNil(t, bus)
	require.NoError(t, bus.Close())

	bus, err = cmd.NewEventBus("", logger)
	require.NoError(t, err)
	require.NotNil(t, bus)
	require.NoError(t, bus.Close())

	_, err = cmd.NewEventBus("carrier-pigeon", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported event bus provider")

	t.Setenv("KAFKA_BROKERS", "")

	_, err = cmd.NewEventBus("kafka", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
