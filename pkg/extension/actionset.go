// Package extension provides the per-instance action registry providers
// build their contract implementation on. An ActionSet is populated once
// in the provider's constructor and read-only afterwards, which keeps
// independently loaded providers free of shared mutable state.
package extension

import (
	"context"
	"fmt"
	"sort"

	"github.com/stratovia/cpi/pkg/models"
)

// Handler executes one action. Handlers own argument validation (via the
// validation package) and any fallback for optional parameters; the
// ActionSet never inspects arguments on their behalf.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	definition models.ActionDefinition
	handler    Handler
}

// ActionSet maps action names to their schema and handler. Embed one in a
// provider to satisfy the Actions, ActionDefinition and Execute methods of
// the contract. Registration happens at construction time; afterwards the
// set is safe for concurrent use without locking.
type ActionSet struct {
	entries map[string]entry
}

// NewActionSet returns an empty action set.
func NewActionSet() *ActionSet {
	return &ActionSet{entries: make(map[string]entry)}
}

// Register adds an action. Registering the same name twice replaces the
// earlier entry; registering a nil handler panics immediately, at
// construction time, rather than surfacing at dispatch.
func (s *ActionSet) Register(definition models.ActionDefinition, handler Handler) {
	if handler == nil {
		panic(fmt.Sprintf("extension: nil handler for action %q", definition.Name))
	}

	s.entries[definition.Name] = entry{definition: definition, handler: handler}
}

// Actions returns all registered action names, sorted.
func (s *ActionSet) Actions() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ActionDefinition returns the schema for one action, or false for unknown
// names.
func (s *ActionSet) ActionDefinition(name string) (models.ActionDefinition, bool) {
	e, ok := s.entries[name]
	if !ok {
		return models.ActionDefinition{}, false
	}

	return e.definition, true
}

// Len returns the number of registered actions.
func (s *ActionSet) Len() int {
	return len(s.entries)
}

// Execute dispatches by name. Unknown names produce the standard not-found
// error; a panicking handler is converted into an error return so no fault
// crosses the loading boundary.
func (s *ActionSet) Execute(ctx context.Context, action string, args map[string]any) (result any, err error) {
	e, ok := s.entries[action]
	if !ok {
		return nil, fmt.Errorf("Action '%s' not found", action)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("action '%s' panicked: %v", action, r)
		}
	}()

	return e.handler(ctx, args)
}
