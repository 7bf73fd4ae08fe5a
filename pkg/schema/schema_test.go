package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/schema"
	"github.com/stratovia/cpi/pkg/testutil"
)

func createVMDefinition() models.ActionDefinition {
	return models.ActionDefinition{
		Name:        "create_vm",
		Description: "Create a virtual machine",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "machine name", models.ParamTypeString),
			models.OptionalParamDefault("memory_mb", "memory in megabytes", models.ParamTypeNumber, 1024),
			models.OptionalParam("autostart", "start after create", models.ParamTypeBoolean),
		},
	}
}

func TestForAction(t *testing.T) {
	document := schema.ForAction(createVMDefinition())

	assert.Equal(t, "http://json-schema.org/draft-07/schema#", document["$schema"])
	assert.Equal(t, "create_vm", document["title"])
	assert.Equal(t, "object", document["type"])
	assert.Equal(t, true, document["additionalProperties"])
	assert.Equal(t, []string{"name"}, document["required"])

	properties, ok := document["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, properties, 3)

	name, ok := properties["name"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, "machine name", name["description"])
	assert.NotContains(t, name, "default")

	memory, ok := properties["memory_mb"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", memory["type"])
	assert.Equal(t, 1024, memory["default"])
}

func TestForAction_NoRequiredParameters(t *testing.T) {
	document := schema.ForAction(models.ActionDefinition{
		Name: "list_vms",
		Parameters: []models.ActionParameter{
			models.OptionalParam("filter", "name filter", models.ParamTypeString),
		},
	})

	assert.NotContains(t, document, "required")
}

func TestForExtension(t *testing.T) {
	documents := schema.ForExtension(testutil.NewEchoExtension())

	require.Contains(t, documents, "echo")
	assert.Equal(t, "echo", documents["echo"]["title"])
}

func TestValidateArgs(t *testing.T) {
	def := createVMDefinition()

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{
			name: "valid full set",
			args: map[string]any{"name": "web-1", "memory_mb": 2048, "autostart": true},
		},
		{
			name: "valid minimal set",
			args: map[string]any{"name": "web-1"},
		},
		{
			name: "fractional number accepted",
			args: map[string]any{"name": "web-1", "memory_mb": 1536.5},
		},
		{
			name: "extra arguments allowed",
			args: map[string]any{"name": "web-1", "labels": []string{"prod"}},
		},
		{
			name:    "missing required",
			args:    map[string]any{"memory_mb": 2048},
			wantErr: "name is required",
		},
		{
			name:    "wrong type",
			args:    map[string]any{"name": 42},
			wantErr: "Invalid type",
		},
		{
			name:    "nil args with required parameter",
			args:    nil,
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.ValidateArgs(def, tt.args)

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "create_vm")
			}
		})
	}
}

func TestValidateArgs_ReportsEveryDiagnostic(t *testing.T) {
	err := schema.ValidateArgs(createVMDefinition(), map[string]any{
		"memory_mb": "lots",
		"autostart": "yes",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "memory_mb")
	assert.Contains(t, err.Error(), "autostart")
	assert.Contains(t, err.Error(), "; ")
}
