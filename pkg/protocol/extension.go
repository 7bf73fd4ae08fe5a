// Package protocol defines the provider contract: the Extension interface
// every backend driver implements, the optional capability interfaces a
// richer driver may add, and the entry symbol plugins export so the host
// can load them.
package protocol

import (
	"context"

	"github.com/stratovia/cpi/pkg/models"
)

// EntrySymbol is the exported symbol every provider plugin must define:
// a zero-argument factory the host resolves and calls exactly once per
// load.
//
//	func NewExtension() protocol.Extension
const EntrySymbol = "NewExtension"

// Factory is the signature of the plugin entry point. The returned
// instance is owned by the host from the moment the call returns; the
// plugin must not retain it.
type Factory func() Extension

// Extension is the capability interface every provider implements. A
// single instance serves all calls for the lifetime of the host process
// and must tolerate concurrent invocation of every method without
// external locking.
//
// Execute receives a context for deadline and trace propagation, but the
// contract does not require providers to honor cancellation: a call either
// completes, blocks, or fails, and hosts wanting timeouts race the call
// and abandon it. Execute must validate its own arguments (the host never
// pre-validates) and must convert any internal fault into an error return
// rather than letting a panic escape.
type Extension interface {
	// Name returns the stable provider identifier.
	Name() string

	// ProviderType returns the coarse category tag, e.g. "command" for
	// drivers that shell out to tooling or "api" for drivers speaking to
	// a service endpoint. Hosts use it for grouping, never for dispatch.
	ProviderType() string

	// Actions returns every action name the provider currently exposes.
	// Each returned name must resolve through ActionDefinition, and every
	// definition-bearing name must be present here.
	Actions() []string

	// ActionDefinition returns the schema for one action, or false when
	// the name is unknown. It must be a pure query.
	ActionDefinition(name string) (models.ActionDefinition, bool)

	// Execute runs the named action against the given argument map and
	// returns either a structured success value or an error whose message
	// is the whole failure report.
	Execute(ctx context.Context, action string, args map[string]any) (any, error)
}
