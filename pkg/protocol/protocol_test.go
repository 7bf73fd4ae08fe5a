package protocol_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/protocol"
	"github.com/stratovia/cpi/pkg/testutil"
)

func TestCapabilityDefaults(t *testing.T) {
	ext := testutil.NewEchoExtension()

	assert.Equal(t, "NONE", protocol.Version(ext))
	assert.Equal(t, map[string]any{}, protocol.DefaultSettings(ext))

	result, err := protocol.TestInstall(context.Background(), ext)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok"}, result)
}

func TestCapabilityOverrides(t *testing.T) {
	ext := testutil.NewFailingExtension()

	assert.Equal(t, "0.0.1-broken", protocol.Version(ext))
	assert.Equal(t, map[string]any{"retries": 0}, protocol.DefaultSettings(ext))

	_, err := protocol.TestInstall(context.Background(), ext)
	require.Error(t, err)
	assert.Equal(t, "missing dependency: vmctl", err.Error())
}

func TestContractListAndDefinitionAgree(t *testing.T) {
	ext := testutil.NewEchoExtension()

	for _, name := range ext.Actions() {
		definition, found := ext.ActionDefinition(name)
		require.True(t, found)
		assert.Equal(t, name, definition.Name)
	}
}

func TestEndToEndEcho(t *testing.T) {
	ext := testutil.NewEchoExtension()
	ctx := context.Background()

	result, err := ext.Execute(ctx, "echo", map[string]any{"msg": "hi"})
	require.NoError(t, err)

	envelope, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"echo": "hi"}, envelope["data"])

	_, err = ext.Execute(ctx, "echo", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msg")
	assert.Contains(t, err.Error(), "not provided")

	_, err = ext.Execute(ctx, "nope", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, found := ext.ActionDefinition("nope")
	assert.False(t, found)
}
