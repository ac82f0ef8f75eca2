package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"schemagate/internal/schema/types"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Format implements types.SchemaFormat for JSON Schema
type Format struct{}

// New creates a new JSON format implementation
func New() *Format {
	return &Format{}
}

func (f *Format) Validate(schemaStr string) error {
	_, err := jsonschema.CompileString("schema.json", schemaStr)
	return err
}

func (f *Format) Serialize(data interface{}, schemaStr string) ([]byte, error) {
	schema, err := compile("schema.json", schemaStr)
	if err != nil {
		return nil, err
	}

	// Validate data against schema
	if err := schema.Validate(data); err != nil {
		return nil, fmt.Errorf("validate data: %w", err)
	}

	return json.Marshal(data)
}

func (f *Format) Deserialize(data []byte, schemaStr string) (interface{}, error) {
	var result interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}

	schema, err := compile("schema.json", schemaStr)
	if err != nil {
		return nil, err
	}

	// Validate data against schema
	if err := schema.Validate(result); err != nil {
		return nil, fmt.Errorf("validate data: %w", err)
	}

	return result, nil
}

func (f *Format) CheckCompatibility(oldSchema, newSchema string, level types.CompatibilityLevel) (*types.CompatibilityCheck, error) {
	// Both sides must at least compile before property comparison
	if _, err := compile("old.json", oldSchema); err != nil {
		return nil, err
	}
	if _, err := compile("new.json", newSchema); err != nil {
		return nil, err
	}

	slog.Debug("CheckCompatibility called", "level", level)

	var messages []string
	switch level {
	case types.Backward, types.BackwardTransitive:
		// New schema can read data written with old schema
		messages = f.backwardProblems(oldSchema, newSchema)
	case types.Forward, types.ForwardTransitive:
		// Old schema can read data written with new schema
		messages = f.forwardProblems(oldSchema, newSchema)
	case types.Full, types.FullTransitive:
		messages = append(f.backwardProblems(oldSchema, newSchema), f.forwardProblems(oldSchema, newSchema)...)
	default:
		// NONE performs no comparison
	}

	return &types.CompatibilityCheck{
		Compatible: len(messages) == 0,
		Messages:   messages,
	}, nil
}

func (f *Format) backwardProblems(oldSchemaStr, newSchemaStr string) []string {
	oldProps := f.getSchemaProperties(oldSchemaStr)
	newProps := f.getSchemaProperties(newSchemaStr)

	var problems []string

	// Required properties in the old schema must survive
	for prop, info := range oldProps {
		if info.required {
			if _, exists := newProps[prop]; !exists {
				slog.Debug("property missing in new schema", "property", prop)
				problems = append(problems, fmt.Sprintf("required property %s removed in new schema", prop))
			}
		}
	}

	for prop, oldInfo := range oldProps {
		if newInfo, exists := newProps[prop]; exists {
			if !f.isTypeCompatible(oldInfo.type_, newInfo.type_) {
				problems = append(problems, fmt.Sprintf("incompatible type change for property %s: %s -> %s", prop, oldInfo.type_, newInfo.type_))
			}
		}
	}

	return problems
}

func (f *Format) forwardProblems(oldSchemaStr, newSchemaStr string) []string {
	oldProps := f.getSchemaProperties(oldSchemaStr)
	newProps := f.getSchemaProperties(newSchemaStr)

	var problems []string

	// Required properties in the new schema must already exist
	for prop, info := range newProps {
		if info.required {
			if _, exists := oldProps[prop]; !exists {
				problems = append(problems, fmt.Sprintf("required property %s added in new schema", prop))
			}
		}
	}

	for prop, newInfo := range newProps {
		if oldInfo, exists := oldProps[prop]; exists {
			if !f.isTypeCompatible(oldInfo.type_, newInfo.type_) {
				problems = append(problems, fmt.Sprintf("incompatible type change for property %s: %s -> %s", prop, oldInfo.type_, newInfo.type_))
			}
		}
	}

	return problems
}

func compile(name, schemaStr string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(schemaStr))); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

type propertyInfo struct {
	required bool
	type_    string
}

func (f *Format) getSchemaProperties(schemaStr string) map[string]propertyInfo {
	props := make(map[string]propertyInfo)

	var schemaMap map[string]interface{}
	if err := json.Unmarshal([]byte(schemaStr), &schemaMap); err != nil {
		return props
	}

	if properties, ok := schemaMap["properties"].(map[string]interface{}); ok {
		required := make(map[string]bool)
		if requiredProps, ok := schemaMap["required"].([]interface{}); ok {
			for _, req := range requiredProps {
				if name, ok := req.(string); ok {
					required[name] = true
				}
			}
		}

		for name, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				type_ := "object" // default type
				if t, ok := propMap["type"].(string); ok {
					type_ = t
				}

				props[name] = propertyInfo{
					required: required[name],
					type_:    type_,
				}
			}
		}
	}

	return props
}

func (f *Format) isTypeCompatible(oldType, newType string) bool {
	switch oldType {
	case "null":
		return newType == "null"
	case "boolean":
		return newType == "boolean"
	case "integer":
		return newType == "integer" // Don't allow integer -> number conversion
	case "number":
		return newType == "number"
	case "string":
		return newType == "string"
	case "array":
		return newType == "array"
	case "object":
		return newType == "object"
	default:
		return false
	}
}
