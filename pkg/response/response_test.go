package response_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stratovia/cpi/pkg/response"
)

func TestSuccess(t *testing.T) {
	envelope := response.Success(map[string]any{"vm_id": "vm-01"})

	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, map[string]any{"vm_id": "vm-01"}, envelope["data"])
}

func TestSuccessWithoutPayload(t *testing.T) {
	envelope := response.Success(nil)

	assert.Equal(t, true, envelope["success"])
	_, present := envelope["data"]
	assert.False(t, present)
}

func TestBool(t *testing.T) {
	assert.Equal(t, map[string]any{"success": true, "result": true}, response.Bool(true))
	assert.Equal(t, map[string]any{"success": true, "result": false}, response.Bool(false))
}

func TestError(t *testing.T) {
	envelope := response.Error("disk not found")

	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "disk not found", envelope["error"])
}
