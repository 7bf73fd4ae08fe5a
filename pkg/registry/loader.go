package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/stratovia/cpi/pkg/events"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
)

// LoadFailure records one plugin the loader refused and why.
type LoadFailure struct {
	Path string
	Err  error
}

// LoadPlugin opens a shared library, resolves the entry symbol, builds the
// extension once and registers it. Every failure is a refusal: the host
// logs, reports and keeps running. A refused plugin stays mapped in the
// process (Go cannot unload it) but never reaches the table.
func (r *Registry) LoadPlugin(path string) (protocol.Extension, error) {
	ext, err := r.loadPlugin(path)
	if err != nil {
		r.logger.Warn("Refusing plugin", "path", path, "error", err)

		r.publish(path, &events.ProviderLoadFailed{
			BaseEvent: events.NewBaseEvent(events.ProviderLoadFailedEvent, ""),
			Path:      path,
			Error:     err.Error(),
		})

		return nil, err
	}

	return ext, nil
}

func (r *Registry) loadPlugin(path string) (protocol.Extension, error) {
	ext, err := r.Probe(path)
	if err != nil {
		return nil, err
	}

	if err := r.register(ext, models.ProviderSourcePlugin, path); err != nil {
		return nil, err
	}

	return ext, nil
}

// Probe runs the full loading checks for one plugin, manifest through
// factory call, without registering the result. The audit tooling uses it
// to report on a plugin directory without touching the live table.
func (r *Registry) Probe(path string) (protocol.Extension, error) {
	if err := r.checkManifest(path); err != nil {
		return nil, err
	}

	plg, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin: %w", err)
	}

	sym, err := plg.Lookup(protocol.EntrySymbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", protocol.EntrySymbol, err)
	}

	factory, ok := sym.(func() protocol.Extension)
	if !ok {
		return nil, fmt.Errorf("symbol %s has type %T, want func() protocol.Extension", protocol.EntrySymbol, sym)
	}

	ext, err := instantiate(factory)
	if err != nil {
		return nil, err
	}

	if ext == nil {
		return nil, errors.New("factory returned a nil extension")
	}

	return ext, nil
}

// LoadDirectory walks dir for *.so files and loads each one, refusing bad
// plugins individually instead of aborting the sweep. It returns how many
// registered plus the per-file failures. A missing directory simply means
// no plugins are installed.
func (r *Registry) LoadDirectory(dir string) (int, []LoadFailure) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		r.logger.Debug("Plugins directory does not exist", "path", dir)

		return 0, nil
	}

	paths, err := PluginPaths(dir)
	if err != nil {
		return 0, []LoadFailure{{Path: dir, Err: err}}
	}

	r.logger.Info("Loading plugins", "path", dir, "found", len(paths))

	var (
		loaded   int
		failures []LoadFailure
	)

	for _, path := range paths {
		if _, err := r.LoadPlugin(path); err != nil {
			failures = append(failures, LoadFailure{Path: path, Err: err})

			continue
		}

		loaded++
	}

	return loaded, failures
}

// PluginPaths walks dir and returns every *.so file under it, including
// nested directories.
func PluginPaths(dir string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), ".so") {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// instantiate fences the factory call so a panicking plugin turns into a
// refusal instead of taking the host down.
func instantiate(factory func() protocol.Extension) (ext protocol.Extension, err error) {
	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()

	return factory(), nil
}
