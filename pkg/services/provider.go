package services

import (
	"context"
	"fmt"

	"github.com/stratovia/cpi/pkg/config"
	"github.com/stratovia/cpi/pkg/health"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/schema"
)

// ProviderService answers catalog questions about registered providers.
// Overlay and checker may be nil.
type ProviderService struct {
	registry *registry.Registry
	overlay  *config.Overlay
	checker  *health.Checker
}

// NewProviderService creates a new provider catalog service.
func NewProviderService(reg *registry.Registry, overlay *config.Overlay, checker *health.Checker) *ProviderService {
	return &ProviderService{
		registry: reg,
		overlay:  overlay,
		checker:  checker,
	}
}

// ProviderDetail is the API's view of one provider: its registration
// summary, action names, and the effective settings shown to operators.
type ProviderDetail struct {
	models.ProviderInfo

	Actions  []string       `json:"actions"`
	Settings map[string]any `json:"settings,omitempty"`
}

// ListProviders returns every registered provider, sorted by name.
func (s *ProviderService) ListProviders(_ context.Context) []ProviderDetail {
	infos := s.registry.Infos()
	details := make([]ProviderDetail, 0, len(infos))

	for _, info := range infos {
		detail := ProviderDetail{ProviderInfo: info}

		if ext, err := s.registry.Get(info.Name); err == nil {
			detail.Actions = ext.Actions()
			detail.Settings = s.overlay.EffectiveSettings(ext)
		}

		details = append(details, detail)
	}

	return details
}

// GetProvider returns one provider's detail.
func (s *ProviderService) GetProvider(_ context.Context, name string) (*ProviderDetail, error) {
	ext, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	info, err := s.registry.Info(name)
	if err != nil {
		return nil, err
	}

	return &ProviderDetail{
		ProviderInfo: info,
		Actions:      ext.Actions(),
		Settings:     s.overlay.EffectiveSettings(ext),
	}, nil
}

// ListActions returns the full action definitions of one provider.
func (s *ProviderService) ListActions(_ context.Context, provider string) ([]models.ActionDefinition, error) {
	ext, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	names := ext.Actions()
	definitions := make([]models.ActionDefinition, 0, len(names))

	for _, name := range names {
		if def, ok := ext.ActionDefinition(name); ok {
			definitions = append(definitions, def)
		}
	}

	return definitions, nil
}

// GetAction returns one action definition.
func (s *ProviderService) GetAction(_ context.Context, provider, action string) (models.ActionDefinition, error) {
	ext, err := s.registry.Get(provider)
	if err != nil {
		return models.ActionDefinition{}, err
	}

	def, ok := ext.ActionDefinition(action)
	if !ok {
		return models.ActionDefinition{}, fmt.Errorf("%w: %s/%s", ErrActionNotFound, provider, action)
	}

	return def, nil
}

// ActionSchema returns one action definition together with its generated
// JSON Schema document.
func (s *ProviderService) ActionSchema(ctx context.Context, provider, action string) (models.ActionDefinition, map[string]any, error) {
	def, err := s.GetAction(ctx, provider, action)
	if err != nil {
		return models.ActionDefinition{}, nil, err
	}

	return def, schema.ForAction(def), nil
}

// LintArgs checks sample arguments against an action's schema. The
// returned error carries the joined diagnostics; it is advisory, the
// execute path never consults it.
func (s *ProviderService) LintArgs(ctx context.Context, provider, action string, args map[string]any) error {
	def, err := s.GetAction(ctx, provider, action)
	if err != nil {
		return err
	}

	return schema.ValidateArgs(def, args)
}

// TestProvider runs one provider's install test on demand.
func (s *ProviderService) TestProvider(ctx context.Context, provider string) (result any, err error) {
	ext, getErr := s.registry.Get(provider)
	if getErr != nil {
		return nil, getErr
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("install test panicked: %v", rec)
		}
	}()

	return protocol.TestInstall(ctx, ext)
}

// HealthSnapshot returns the latest health observation per provider, or
// an empty map when no checker runs.
func (s *ProviderService) HealthSnapshot() map[string]models.ProviderHealth {
	if s.checker == nil {
		return map[string]models.ProviderHealth{}
	}

	return s.checker.Status()
}

// HealthCheck reports the registry state for the API health endpoint.
func (s *ProviderService) HealthCheck() (string, bool) {
	return s.registry.HealthCheck()
}
