// Package registry holds the host-side table of live provider extensions
// and loads additional ones from shared-library plugins.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/stratovia/cpi/pkg/eventbus"
	"github.com/stratovia/cpi/pkg/events"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
)

var (
	ErrNotFound  = errors.New("provider not registered")
	ErrDuplicate = errors.New("provider already registered")
	ErrNilExt    = errors.New("extension is nil")
	ErrEmptyName = errors.New("extension reports an empty name")
)

type Registry struct {
	logger   *slog.Logger
	eventBus eventbus.EventPublisher
	validate *validator.Validate

	mu         sync.RWMutex
	extensions map[string]protocol.Extension
	infos      map[string]models.ProviderInfo
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:     logger.With("module", "registry"),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		extensions: make(map[string]protocol.Extension),
		infos:      make(map[string]models.ProviderInfo),
	}
}

// WithEventBus makes the registry publish provider lifecycle events. A
// registry without a bus stays silent, which is what the CLI wants.
func (r *Registry) WithEventBus(bus eventbus.EventPublisher) *Registry {
	r.eventBus = bus

	return r
}

// Register adds a built-in extension to the table. The registry owns the
// instance from this point on.
func (r *Registry) Register(ext protocol.Extension) error {
	return r.register(ext, models.ProviderSourceBuiltin, "")
}

func (r *Registry) register(ext protocol.Extension, source, path string) error {
	if ext == nil {
		return ErrNilExt
	}

	name := ext.Name()
	if name == "" {
		return ErrEmptyName
	}

	info := models.ProviderInfo{
		Name:         name,
		ProviderType: ext.ProviderType(),
		Version:      protocol.Version(ext),
		Source:       source,
		Path:         path,
		ActionCount:  len(ext.Actions()),
	}

	r.mu.Lock()

	if _, exists := r.extensions[name]; exists {
		r.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	r.extensions[name] = ext
	r.infos[name] = info

	r.mu.Unlock()

	r.logger.Info("Registered provider",
		"provider", name,
		"provider_type", info.ProviderType,
		"version", info.Version,
		"source", source,
		"actions", info.ActionCount,
	)

	r.publish(name, &events.ProviderRegistered{
		BaseEvent:    events.NewBaseEvent(events.ProviderRegisteredEvent, name),
		ProviderType: info.ProviderType,
		Version:      info.Version,
		Source:       source,
		ActionCount:  info.ActionCount,
	})

	return nil
}

// Deregister removes an extension from the table. The plugin code itself
// stays mapped for the life of the process; Go cannot unload it.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()

	if _, exists := r.extensions[name]; !exists {
		r.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.extensions, name)
	delete(r.infos, name)

	r.mu.Unlock()

	r.logger.Info("Deregistered provider", "provider", name)

	r.publish(name, &events.ProviderDeregistered{
		BaseEvent: events.NewBaseEvent(events.ProviderDeregisteredEvent, name),
	})

	return nil
}

func (r *Registry) Get(name string) (protocol.Extension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext, exists := r.extensions[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return ext, nil
}

// Info returns the registration summary for one provider.
func (r *Registry) Info(name string) (models.ProviderInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.infos[name]
	if !exists {
		return models.ProviderInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return info, nil
}

// List returns the registered provider names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.extensions))
	for name := range r.extensions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Infos returns registration metadata for every provider, sorted by name.
func (r *Registry) Infos() []models.ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.ProviderInfo, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.extensions)
}

// HealthCheck reports the state of the provider table for the API health
// endpoint.
func (r *Registry) HealthCheck() (string, bool) {
	return fmt.Sprintf("%d providers registered", r.Len()), true
}

func (r *Registry) publish(key string, event eventbus.Event) {
	if r.eventBus == nil {
		return
	}

	if err := r.eventBus.Publish(context.Background(), key, event); err != nil {
		r.logger.Warn("Failed to publish provider event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}
