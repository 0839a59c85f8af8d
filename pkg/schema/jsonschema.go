package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
)

// JSONSchema renders the schema as a JSON Schema object, the form published
// by tools/list as inputSchema.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
	if s == nil {
		return out
	}
	for _, p := range s.props {
		out.Properties[p.Name] = &jsonschema.Schema{
			Type:        string(p.Kind),
			Description: p.Description,
		}
	}
	if len(s.required) > 0 {
		out.Required = s.Required()
	}
	return out
}

// Compile checks that a rendered schema is valid JSON Schema (draft 2020-12).
// It does not validate any instance data.
func Compile(js *jsonschema.Schema) error {
	if js == nil {
		return nil
	}
	raw, err := json.Marshal(js)
	if err != nil {
		return err
	}
	// anonymous in-memory schema from parsed JSON
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	c := santhosh.NewCompiler()
	if err := c.AddResource("mem://schema.json", doc); err != nil {
		return err
	}
	_, err = c.Compile("mem://schema.json")
	return err
}
