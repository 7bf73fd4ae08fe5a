// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/stratovia/cpi/pkg/eventbus"
	"github.com/stratovia/cpi/pkg/extensions/fileops"
	"github.com/stratovia/cpi/pkg/extensions/localvm"
	"github.com/stratovia/cpi/pkg/registry"
)

func registerNativeExtensions(reg *registry.Registry) error {
	if err := reg.Register(localvm.NewExtension()); err != nil {
		return err
	}

	fileExt, err := fileops.NewExtension("")
	if err != nil {
		return err
	}

	if err := reg.Register(fileExt); err != nil {
		return err
	}

	return nil
}

// NewRegistry builds the provider table every binary starts from: the
// built-in extensions plus whatever plugins live under pluginsPath. Bad
// plugins are refused individually and reported, never fatal. The bus may
// be nil; when set it is attached before anything registers, so boot-time
// lifecycle events are published too.
func NewRegistry(log *slog.Logger, bus eventbus.EventPublisher, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)
	if bus != nil {
		reg = reg.WithEventBus(bus)
	}

	if err := registerNativeExtensions(reg); err != nil {
		return nil, err
	}

	loaded, failures := reg.LoadDirectory(pluginsPath)
	if len(failures) > 0 {
		for _, failure := range failures {
			log.Warn("Plugin refused", "path", failure.Path, "error", failure.Err)
		}
	}

	log.Info("Registry ready", "providers", reg.Len(), "plugins", loaded, "refused", len(failures))

	return reg, nil
}
