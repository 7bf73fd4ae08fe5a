// Package response builds the conventional result envelopes providers
// return from actions. The envelopes are presentation sugar over the
// contract's plain success-value-or-error-string outcome, not part of the
// type system.
package response

// Success wraps a payload in the standard success envelope. A nil payload
// produces an envelope without a data field.
func Success(data any) map[string]any {
	if data == nil {
		return map[string]any{"success": true}
	}

	return map[string]any{
		"success": true,
		"data":    data,
	}
}

// Bool wraps a yes/no outcome in the boolean convenience envelope.
func Bool(result bool) map[string]any {
	return map[string]any{
		"success": true,
		"result":  result,
	}
}

// Error wraps a failure message in the standard error envelope.
func Error(message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   message,
	}
}
