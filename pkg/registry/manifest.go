package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIVersion is the protocol version this host speaks. Plugins whose
// manifest declares a different major version are refused before their
// code is ever mapped.
const APIVersion = "1.0.0"

// Manifest is the optional sidecar file (<plugin>.manifest.yaml) shipped
// next to a plugin's shared library.
type Manifest struct {
	Name        string `yaml:"name"        validate:"required"`
	Version     string `yaml:"version"     validate:"required,semver"`
	APIVersion  string `yaml:"api_version" validate:"required,semver"`
	Description string `yaml:"description"`
}

func manifestPath(pluginPath string) string {
	return strings.TrimSuffix(pluginPath, ".so") + ".manifest.yaml"
}

// checkManifest gates loading on the sidecar manifest. A missing manifest
// is fine; a present but broken or incompatible one is a refusal. Version
// matching is host policy layered on top of the loading ABI.
func (r *Registry) checkManifest(pluginPath string) error {
	data, err := os.ReadFile(manifestPath(pluginPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest

	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	if err := r.validate.Struct(&manifest); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	if majorVersion(manifest.APIVersion) != majorVersion(APIVersion) {
		return fmt.Errorf("incompatible api_version %s (host speaks %s)", manifest.APIVersion, APIVersion)
	}

	return nil
}

func majorVersion(version string) string {
	version = strings.TrimPrefix(version, "v")

	if i := strings.IndexByte(version, '.'); i >= 0 {
		return version[:i]
	}

	return version
}
