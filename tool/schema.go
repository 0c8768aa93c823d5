package tool

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaValidator wraps a Tool with a JSON Schema describing its expected
// input shape, so a node can check whether a proposed tool call is
// well-formed before invoking Execute.
//
// Build the schema once (compilation is not free) and reuse it across
// calls; SchemaValidator is safe for concurrent use since the underlying
// *jsonschema.Schema is immutable after compilation.
type SchemaValidator struct {
	Tool
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles schemaDoc (a JSON Schema document, as a
// map[string]interface{} or equivalent json-decodable value) and pairs it
// with tool. Returns an error if schemaDoc does not compile.
func NewSchemaValidator(t Tool, schemaDoc map[string]interface{}) (*SchemaValidator, error) {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for tool %q: %w", t.Name(), err)
	}

	var unmarshalled interface{}
	if err := json.Unmarshal(raw, &unmarshalled); err != nil {
		return nil, fmt.Errorf("decode schema for tool %q: %w", t.Name(), err)
	}

	c := jsonschema.NewCompiler()
	resourceName := t.Name() + ".schema.json"
	if err := c.AddResource(resourceName, unmarshalled); err != nil {
		return nil, fmt.Errorf("add schema resource for tool %q: %w", t.Name(), err)
	}

	schema, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema for tool %q: %w", t.Name(), err)
	}

	return &SchemaValidator{Tool: t, schema: schema}, nil
}

// CanExecute implements Tool by overriding the embedded Tool's method:
// reports whether input satisfies the JSON Schema, so a node can reject a
// malformed tool call before spending a retry attempt on it.
func (v *SchemaValidator) CanExecute(input map[string]interface{}) bool {
	return v.schema.Validate(input) == nil
}

// ValidationError runs the same check as CanExecute but returns the
// schema validator's detailed error instead of collapsing it to a bool,
// for callers (e.g. ToolNode) that want to report why a call was rejected.
func (v *SchemaValidator) ValidationError(input map[string]interface{}) error {
	if err := v.schema.Validate(input); err != nil {
		return fmt.Errorf("tool %q input validation: %w", v.Name(), err)
	}
	return nil
}
