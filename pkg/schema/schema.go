// Package schema renders action definitions as JSON Schema documents and
// lint-checks argument maps against them. Linting is a host-side
// convenience: the dispatch path never consults these schemas, providers
// validate their own arguments.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
)

const draft7 = "http://json-schema.org/draft-07/schema#"

// ForAction renders one action definition as a draft-07 JSON Schema
// document. Extra arguments are allowed, matching how providers extract
// the keys they know and ignore the rest.
func ForAction(def models.ActionDefinition) map[string]any {
	properties := make(map[string]any, len(def.Parameters))

	for _, param := range def.Parameters {
		property := map[string]any{
			"type":        string(param.Type),
			"description": param.Description,
		}

		if param.DefaultValue != nil {
			property["default"] = param.DefaultValue
		}

		properties[param.Name] = property
	}

	document := map[string]any{
		"$schema":              draft7,
		"title":                def.Name,
		"description":          def.Description,
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}

	if required := def.RequiredParameters(); len(required) > 0 {
		document["required"] = required
	}

	return document
}

// ForExtension renders a schema document per action, keyed by action name.
func ForExtension(ext protocol.Extension) map[string]map[string]any {
	documents := make(map[string]map[string]any)

	for _, name := range ext.Actions() {
		if def, ok := ext.ActionDefinition(name); ok {
			documents[name] = ForAction(def)
		}
	}

	return documents
}

// ValidateArgs lints an argument map against an action's schema and
// reports every diagnostic at once.
func ValidateArgs(def models.ActionDefinition, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(ForAction(def))
	dataLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate arguments for action '%s': %w", def.Name, err)
	}

	if !result.Valid() {
		diagnostics := make([]string, 0, len(result.Errors()))
		for _, diagnostic := range result.Errors() {
			diagnostics = append(diagnostics, diagnostic.String())
		}

		return fmt.Errorf("schema validation failed for action '%s': %s", def.Name, strings.Join(diagnostics, "; "))
	}

	return nil
}
