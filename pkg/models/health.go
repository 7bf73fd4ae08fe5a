package models

import "time"

// ProviderHealth is one install-test observation for a provider. Detail
// carries whatever diagnostic payload the provider returned.
type ProviderHealth struct {
	Provider  string    `json:"provider"`
	Healthy   bool      `json:"healthy"`
	Detail    any       `json:"detail,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
