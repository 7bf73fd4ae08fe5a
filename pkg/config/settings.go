// Package config loads the optional host-side settings overlay file.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/stratovia/cpi/pkg/protocol"
)

// SettingsFile is the on-disk shape of the overlay:
//
//	providers:
//	  localvm:
//	    settings:
//	      image_root: /var/lib/cpi/images
type SettingsFile struct {
	Providers map[string]ProviderOverrides `yaml:"providers" validate:"dive,keys,required,endkeys"`
}

// ProviderOverrides carries the operator's setting overrides for one
// provider.
type ProviderOverrides struct {
	Settings map[string]any `yaml:"settings"`
}

// Overlay holds per-provider setting overrides. The merged view is
// informational: hosts display it to operators but never inject settings
// into argument maps.
type Overlay struct {
	overrides map[string]map[string]any
}

// Empty returns an overlay with no overrides.
func Empty() *Overlay {
	return &Overlay{overrides: map[string]map[string]any{}}
}

// Load reads and validates a settings overlay file. An empty path yields
// the empty overlay.
func Load(path string) (*Overlay, error) {
	if path == "" {
		return Empty(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var file SettingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %w", path, err)
	}

	overlay := Empty()

	for name, provider := range file.Providers {
		if len(provider.Settings) > 0 {
			overlay.overrides[name] = provider.Settings
		}
	}

	return overlay, nil
}

// Overrides returns the operator-supplied settings for one provider.
func (o *Overlay) Overrides(provider string) map[string]any {
	if o == nil {
		return nil
	}

	return o.overrides[provider]
}

// EffectiveSettings merges the overlay over the provider's suggested
// defaults. The result is a fresh map safe for the caller to annotate.
func (o *Overlay) EffectiveSettings(ext protocol.Extension) map[string]any {
	merged := make(map[string]any)

	for key, value := range protocol.DefaultSettings(ext) {
		merged[key] = value
	}

	if o != nil {
		for key, value := range o.overrides[ext.Name()] {
			merged[key] = value
		}
	}

	return merged
}
