package localvm_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/extensions/localvm"
)

func execute(t *testing.T, ext *localvm.Extension, action string, args map[string]any) map[string]any {
	t.Helper()

	result, err := ext.Execute(context.Background(), action, args)
	require.NoError(t, err)

	envelope, ok := result.(map[string]any)
	require.True(t, ok, "action %s should return an envelope", action)

	return envelope
}

func vmFromEnvelope(t *testing.T, envelope map[string]any) localvm.VM {
	t.Helper()

	require.Equal(t, true, envelope["success"])

	vm, ok := envelope["data"].(localvm.VM)
	require.True(t, ok, "data should carry a VM")

	return vm
}

func TestNewExtension_Metadata(t *testing.T) {
	ext := localvm.NewExtension()

	assert.Equal(t, "localvm", ext.Name())
	assert.Equal(t, "api", ext.ProviderType())
	assert.Equal(t, "0.3.0", ext.Version())
	assert.Equal(t, []string{
		"create_vm", "delete_vm", "get_vm", "has_vm", "list_vms", "start_vm", "stop_vm",
	}, ext.Actions())

	settings := ext.DefaultSettings()
	assert.Equal(t, int64(1024), settings["memory_mb"])
	assert.Equal(t, int64(1), settings["cpus"])

	def, ok := ext.ActionDefinition("create_vm")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, def.RequiredParameters())

	memory, ok := def.Parameter("memory_mb")
	require.True(t, ok)
	assert.Equal(t, int64(1024), memory.DefaultValue)
}

func TestLifecycle(t *testing.T) {
	ext := localvm.NewExtension()
	ctx := context.Background()

	vm := vmFromEnvelope(t, execute(t, ext, "create_vm", map[string]any{
		"name":      "web-1",
		"memory_mb": 2048,
		"cpus":      2,
	}))
	assert.Equal(t, "web-1", vm.Name)
	assert.Equal(t, int64(2048), vm.MemoryMB)
	assert.Equal(t, int64(2), vm.CPUs)
	assert.Equal(t, localvm.StateStopped, vm.State)
	assert.False(t, vm.CreatedAt.IsZero())

	has := execute(t, ext, "has_vm", map[string]any{"name": "web-1"})
	assert.Equal(t, true, has["result"])

	vm = vmFromEnvelope(t, execute(t, ext, "start_vm", map[string]any{"name": "web-1"}))
	assert.Equal(t, localvm.StateRunning, vm.State)

	_, err := ext.Execute(ctx, "start_vm", map[string]any{"name": "web-1"})
	require.Error(t, err)
	assert.Equal(t, "VM 'web-1' is already running", err.Error())

	vm = vmFromEnvelope(t, execute(t, ext, "stop_vm", map[string]any{"name": "web-1"}))
	assert.Equal(t, localvm.StateStopped, vm.State)

	_, err = ext.Execute(ctx, "stop_vm", map[string]any{"name": "web-1"})
	require.Error(t, err)
	assert.Equal(t, "VM 'web-1' is not running", err.Error())

	vm = vmFromEnvelope(t, execute(t, ext, "get_vm", map[string]any{"name": "web-1"}))
	assert.Equal(t, "web-1", vm.Name)

	deleted := execute(t, ext, "delete_vm", map[string]any{"name": "web-1"})
	assert.Equal(t, true, deleted["success"])
	assert.NotContains(t, deleted, "data")

	has = execute(t, ext, "has_vm", map[string]any{"name": "web-1"})
	assert.Equal(t, false, has["result"])

	_, err = ext.Execute(ctx, "get_vm", map[string]any{"name": "web-1"})
	require.Error(t, err)
	assert.Equal(t, "VM 'web-1' not found", err.Error())
}

func TestCreateVM_Validation(t *testing.T) {
	ext := localvm.NewExtension()
	ctx := context.Background()

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{
			name:    "missing name",
			args:    map[string]any{"memory_mb": 512},
			wantErr: "Required parameter 'name' not provided",
		},
		{
			name:    "non-string name",
			args:    map[string]any{"name": 42},
			wantErr: "Parameter 'name' must be a string",
		},
		{
			name:    "non-integer memory",
			args:    map[string]any{"name": "a", "memory_mb": "large"},
			wantErr: "Parameter 'memory_mb' must be an integer",
		},
		{
			name:    "fractional memory",
			args:    map[string]any{"name": "a", "memory_mb": 512.5},
			wantErr: "Parameter 'memory_mb' must be an integer",
		},
		{
			name:    "non-positive memory",
			args:    map[string]any{"name": "a", "memory_mb": 0},
			wantErr: "Parameter 'memory_mb' must be positive, got 0",
		},
		{
			name:    "non-positive cpus",
			args:    map[string]any{"name": "a", "cpus": -1},
			wantErr: "Parameter 'cpus' must be positive, got -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ext.Execute(ctx, "create_vm", tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestCreateVM_DefaultsAndDuplicates(t *testing.T) {
	ext := localvm.NewExtension()
	ctx := context.Background()

	vm := vmFromEnvelope(t, execute(t, ext, "create_vm", map[string]any{"name": "db-1"}))
	assert.Equal(t, int64(1024), vm.MemoryMB)
	assert.Equal(t, int64(1), vm.CPUs)

	_, err := ext.Execute(ctx, "create_vm", map[string]any{"name": "db-1"})
	require.Error(t, err)
	assert.Equal(t, "VM 'db-1' already exists", err.Error())
}

func TestListVMs(t *testing.T) {
	ext := localvm.NewExtension()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		execute(t, ext, "create_vm", map[string]any{"name": name})
	}

	envelope := execute(t, ext, "list_vms", nil)
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, data["count"])

	vms, ok := data["vms"].([]localvm.VM)
	require.True(t, ok)
	require.Len(t, vms, 3)
	assert.Equal(t, "alpha", vms[0].Name)
	assert.Equal(t, "mid", vms[1].Name)
	assert.Equal(t, "zeta", vms[2].Name)
}

func TestInstallReportsInventory(t *testing.T) {
	ext := localvm.NewExtension()

	execute(t, ext, "create_vm", map[string]any{"name": "one"})

	result, err := ext.TestInstall(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok", "vms": 1}, result)
}

func TestConcurrentCreates(t *testing.T) {
	ext := localvm.NewExtension()

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := ext.Execute(context.Background(), "create_vm", map[string]any{
				"name": fmt.Sprintf("vm-%d", i),
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	envelope := execute(t, ext, "list_vms", nil)
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 16, data["count"])
}
