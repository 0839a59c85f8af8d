// Package schema describes the parameters a tool accepts and validates untyped
// argument maps against them.
//
// A Schema is a floor, not an allow-list: required names must be present and
// declared properties must have the declared kind, while undeclared keys are
// ignored. Schemas are immutable once built and safe for concurrent use.
package schema

import (
	"fmt"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// Property declares one named parameter.
type Property struct {
	Name        string
	Kind        Kind
	Description string
}

// String declares a string property.
func String(name, description string) Property {
	return Property{Name: name, Kind: KindString, Description: description}
}

// Integer declares an integer property.
func Integer(name, description string) Property {
	return Property{Name: name, Kind: KindInteger, Description: description}
}

// Number declares a number property. Integers are accepted.
func Number(name, description string) Property {
	return Property{Name: name, Kind: KindNumber, Description: description}
}

// Boolean declares a boolean property.
func Boolean(name, description string) Property {
	return Property{Name: name, Kind: KindBoolean, Description: description}
}

// Object declares an object property.
func Object(name, description string) Property {
	return Property{Name: name, Kind: KindObject, Description: description}
}

// Array declares an array property.
func Array(name, description string) Property {
	return Property{Name: name, Kind: KindArray, Description: description}
}

// Schema is an ordered set of properties plus the names that must be present.
type Schema struct {
	props    []Property
	index    map[string]int
	required []string
}

// New builds a schema. Every required name must be a declared property.
func New(props []Property, required ...string) (*Schema, error) {
	s := &Schema{
		props: make([]Property, 0, len(props)),
		index: make(map[string]int, len(props)),
	}
	for _, p := range props {
		if p.Name == "" {
			return nil, fmt.Errorf("property name is empty")
		}
		if !p.Kind.Declarable() {
			return nil, fmt.Errorf("property %q has unsupported kind %q", p.Name, p.Kind)
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, fmt.Errorf("property %q declared twice", p.Name)
		}
		s.index[p.Name] = len(s.props)
		s.props = append(s.props, p)
	}
	seen := make(map[string]bool, len(required))
	for _, name := range required {
		if _, ok := s.index[name]; !ok {
			return nil, fmt.Errorf("required parameter %q is not a declared property", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		s.required = append(s.required, name)
	}
	return s, nil
}

// MustNew is New for statically declared schemas; it panics on an invalid declaration.
func MustNew(props []Property, required ...string) *Schema {
	s, err := New(props, required...)
	if err != nil {
		panic(err)
	}
	return s
}

// Empty returns a schema with no properties; it accepts any arguments.
func Empty() *Schema {
	return &Schema{index: map[string]int{}}
}

// Properties returns the declared properties in declaration order.
func (s *Schema) Properties() []Property {
	if s == nil {
		return nil
	}
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// Required returns the required names in declaration order.
func (s *Schema) Required() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.required))
	copy(out, s.required)
	return out
}

// Property looks up a declared property by name.
func (s *Schema) Property(name string) (Property, bool) {
	if s == nil {
		return Property{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Property{}, false
	}
	return s.props[i], true
}

// Validate checks args against the schema.
//
// The first required name missing from args yields a MissingParameter error;
// only when all required names are present are kinds checked, property by
// property in declaration order, yielding InvalidParameter. A null value counts
// as absent.
func (s *Schema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}
	for _, name := range s.required {
		if v, ok := args[name]; !ok || v == nil {
			return errmodel.MissingParameter(name)
		}
	}
	for _, p := range s.props {
		v, ok := args[p.Name]
		if !ok || v == nil {
			continue
		}
		if !p.Kind.Accepts(KindOf(v)) {
			return errmodel.InvalidParameter(p.Name, p.Kind.Describe())
		}
	}
	return nil
}
