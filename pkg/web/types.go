// Package web provides HTTP request and response types for the provider API.
package web

import "github.com/stratovia/cpi/pkg/runner"

// ExecuteActionRequest represents the request body for executing an action.
// The body may be omitted entirely for actions that take no arguments.
type ExecuteActionRequest struct {
	Args      map[string]any `json:"args"`
	TimeoutMS int64          `json:"timeout_ms" validate:"omitempty,gte=0"`
}

// LintActionRequest represents the request body for linting sample
// arguments against an action's generated schema.
type LintActionRequest struct {
	Args map[string]any `json:"args"`
}

// ExecuteActionResponse represents the outcome of one invocation. Protocol
// failures are carried in Status/Error rather than the HTTP status code.
type ExecuteActionResponse struct {
	InvocationID string `json:"invocation_id"`
	Provider     string `json:"provider"`
	Action       string `json:"action"`
	Status       string `json:"status"`
	Output       any    `json:"output,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// LintActionResponse represents schema diagnostics for sample arguments.
// Diagnostics are data, not transport errors: a failed lint is still 200.
type LintActionResponse struct {
	Provider    string `json:"provider"`
	Action      string `json:"action"`
	Valid       bool   `json:"valid"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// TransformResultResponse flattens a runner result into the API shape.
func TransformResultResponse(result runner.Result) ExecuteActionResponse {
	return ExecuteActionResponse{
		InvocationID: result.InvocationID,
		Provider:     result.Provider,
		Action:       result.Action,
		Status:       string(result.Status),
		Output:       result.Output,
		Error:        result.Err,
		DurationMS:   result.Duration.Milliseconds(),
	}
}
