package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema []byte

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema.
// It checks required properties, unknown properties and basic value types.
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema jsonschema.Schema
	if err := json.Unmarshal(embeddedSchema, &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to generic JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var configValue any
	if err := json.Unmarshal(configData, &configValue); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	v := schemaValidator{defs: schema.Definitions}
	if err := v.validate(&schema, configValue, "config"); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct.
// Only fields tagged with jsonschema "required" are required.
func GenerateSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{RequiredFromJSONSchemaTags: true}
	return r.Reflect(&Config{})
}

type schemaValidator struct {
	defs jsonschema.Definitions
}

func (v schemaValidator) validate(s *jsonschema.Schema, value any, path string) error {
	s, err := v.resolve(s)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	switch s.Type {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		return v.validateObject(s, obj, path)
	case "array":
		if value == nil {
			return nil // nil slices marshal to null
		}
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		for i, item := range arr {
			if err := v.validate(s.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
	case "integer", "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected %s, got %T", path, s.Type, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
	}
	return nil
}

func (v schemaValidator) validateObject(s *jsonschema.Schema, obj map[string]any, path string) error {
	for _, name := range s.Required {
		val, ok := obj[name]
		if !ok || val == nil || val == "" {
			return fmt.Errorf("%s.%s is required", path, name)
		}
	}

	// walk in sorted order so the first reported error is stable
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var prop *jsonschema.Schema
		if s.Properties != nil {
			prop, _ = s.Properties.Get(k)
		}
		if prop == nil {
			return fmt.Errorf("%s.%s is not allowed", path, k)
		}
		if err := v.validate(prop, obj[k], path+"."+k); err != nil {
			return err
		}
	}
	return nil
}

// resolve follows local "#/$defs/Name" references
func (v schemaValidator) resolve(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	for s != nil && s.Ref != "" {
		name := strings.TrimPrefix(s.Ref, "#/$defs/")
		def, ok := v.defs[name]
		if !ok {
			return nil, fmt.Errorf("unknown schema reference %s", s.Ref)
		}
		s = def
	}
	if s == nil {
		return nil, fmt.Errorf("empty schema")
	}
	return s, nil
}
