package protocol

import "context"

// VersionUnknown is the sentinel returned for providers that do not report
// a version of their own.
const VersionUnknown = "NONE"

// SettingsProvider is implemented by providers that suggest static default
// configuration values. The settings are informational: hosts display them
// and operators copy them, but they are never merged into argument maps.
type SettingsProvider interface {
	DefaultSettings() map[string]any
}

// InstallTester is implemented by providers that can check their own
// prerequisites (binaries, daemons, credentials). The check is diagnostic
// and must not mutate provider state.
type InstallTester interface {
	TestInstall(ctx context.Context) (any, error)
}

// Versioner is implemented by providers that report their own version
// string. The value is opaque to the host.
type Versioner interface {
	Version() string
}

// DefaultSettings returns the provider's suggested settings, or an empty
// map for providers without the capability.
func DefaultSettings(ext Extension) map[string]any {
	if sp, ok := ext.(SettingsProvider); ok {
		if settings := sp.DefaultSettings(); settings != nil {
			return settings
		}
	}

	return map[string]any{}
}

// TestInstall runs the provider's self-check. Providers without the
// capability are considered trivially healthy.
func TestInstall(ctx context.Context, ext Extension) (any, error) {
	if it, ok := ext.(InstallTester); ok {
		return it.TestInstall(ctx)
	}

	return map[string]any{"status": "ok"}, nil
}

// Version returns the provider's version string, or VersionUnknown for
// providers without the capability.
func Version(ext Extension) string {
	if v, ok := ext.(Versioner); ok {
		return v.Version()
	}

	return VersionUnknown
}
