// Package models defines the shared data types of the provider protocol:
// parameter schemas, action definitions and the host-side records kept
// about providers and their invocations.
package models

// ParamType is the closed set of parameter types an action can declare.
// Object and array values are accepted structurally; number admits both
// integral and fractional forms.
type ParamType string

const (
	ParamTypeString  ParamType = "string"
	ParamTypeNumber  ParamType = "number"
	ParamTypeBoolean ParamType = "boolean"
	ParamTypeObject  ParamType = "object"
	ParamTypeArray   ParamType = "array"
)

// Valid reports whether t is one of the declared parameter types.
func (t ParamType) Valid() bool {
	switch t {
	case ParamTypeString, ParamTypeNumber, ParamTypeBoolean, ParamTypeObject, ParamTypeArray:
		return true
	}

	return false
}

// ActionParameter describes one formal parameter of an action. DefaultValue
// is schema metadata for documentation and UI generation: the dispatcher
// never injects it into argument maps, handlers apply their own fallback
// after an optional extraction reports absence.
type ActionParameter struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Required     bool      `json:"required"`
	Type         ParamType `json:"param_type"`
	DefaultValue any       `json:"default_value,omitempty"`
}

// RequiredParam builds a mandatory parameter.
func RequiredParam(name, description string, paramType ParamType) ActionParameter {
	return ActionParameter{
		Name:        name,
		Description: description,
		Required:    true,
		Type:        paramType,
	}
}

// OptionalParam builds an optional parameter without a documented default.
func OptionalParam(name, description string, paramType ParamType) ActionParameter {
	return ActionParameter{
		Name:        name,
		Description: description,
		Required:    false,
		Type:        paramType,
	}
}

// OptionalParamDefault builds an optional parameter carrying a documented
// default value.
func OptionalParamDefault(name, description string, paramType ParamType, defaultValue any) ActionParameter {
	return ActionParameter{
		Name:         name,
		Description:  description,
		Required:     false,
		Type:         paramType,
		DefaultValue: defaultValue,
	}
}

// ActionDefinition describes one named action: its identity and the ordered
// parameter list. Parameter order is documentation-significant only, lookups
// are by name.
type ActionDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  []ActionParameter `json:"parameters"`
}

// Parameter returns the named parameter, if declared.
func (d ActionDefinition) Parameter(name string) (ActionParameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return ActionParameter{}, false
}

// RequiredParameters returns the names of all required parameters in
// declaration order.
func (d ActionDefinition) RequiredParameters() []string {
	var names []string

	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}

	return names
}
