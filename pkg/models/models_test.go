package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/models"
)

func TestParamTypeValid(t *testing.T) {
	valid := []models.ParamType{
		models.ParamTypeString,
		models.ParamTypeNumber,
		models.ParamTypeBoolean,
		models.ParamTypeObject,
		models.ParamTypeArray,
	}

	for _, pt := range valid {
		assert.True(t, pt.Valid(), "expected %q to be valid", pt)
	}

	assert.False(t, models.ParamType("integer").Valid())
	assert.False(t, models.ParamType("").Valid())
}

func TestParameterConstructors(t *testing.T) {
	req := models.RequiredParam("name", "VM name", models.ParamTypeString)
	assert.Equal(t, "name", req.Name)
	assert.True(t, req.Required)
	assert.Equal(t, models.ParamTypeString, req.Type)
	assert.Nil(t, req.DefaultValue)

	opt := models.OptionalParam("region", "target region", models.ParamTypeString)
	assert.False(t, opt.Required)
	assert.Nil(t, opt.DefaultValue)

	def := models.OptionalParamDefault("memory_mb", "memory size", models.ParamTypeNumber, 1024)
	assert.False(t, def.Required)
	assert.Equal(t, 1024, def.DefaultValue)
}

func TestActionDefinitionParameterLookup(t *testing.T) {
	definition := models.ActionDefinition{
		Name:        "create_vm",
		Description: "Create a virtual machine",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "VM name", models.ParamTypeString),
			models.OptionalParamDefault("memory_mb", "memory size", models.ParamTypeNumber, 1024),
			models.RequiredParam("image", "base image", models.ParamTypeString),
		},
	}

	param, found := definition.Parameter("memory_mb")
	require.True(t, found)
	assert.Equal(t, models.ParamTypeNumber, param.Type)

	_, found = definition.Parameter("missing")
	assert.False(t, found)

	assert.Equal(t, []string{"name", "image"}, definition.RequiredParameters())
}

func TestActionParameterJSONShape(t *testing.T) {
	param := models.OptionalParamDefault("cpus", "CPU count", models.ParamTypeNumber, 1)

	data, err := json.Marshal(param)
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "number", decoded["param_type"])
	assert.Equal(t, float64(1), decoded["default_value"])
	assert.Equal(t, false, decoded["required"])
}

func TestRequiredParameterOmitsDefaultValue(t *testing.T) {
	data, err := json.Marshal(models.RequiredParam("name", "VM name", models.ParamTypeString))
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(data, &decoded))
	_, present := decoded["default_value"]
	assert.False(t, present)
}
