package models

// Provider source markers for ProviderInfo.Source.
const (
	ProviderSourceBuiltin = "builtin"
	ProviderSourcePlugin  = "plugin"
)

// ProviderInfo is the host's summary of one registered provider. Version
// carries the provider's own opaque version string ("NONE" when the
// provider does not report one); Path is set for plugin-loaded providers
// only.
type ProviderInfo struct {
	Name         string `json:"name"`
	ProviderType string `json:"provider_type"`
	Version      string `json:"version"`
	Source       string `json:"source"`
	Path         string `json:"path,omitempty"`
	ActionCount  int    `json:"action_count"`
}
