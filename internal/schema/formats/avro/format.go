package avro

import (
	"encoding/json"
	"fmt"
	"strings"

	"schemagate/internal/avro"
	"schemagate/internal/schema/types"

	hamba "github.com/hamba/avro/v2"
)

// Format implements types.SchemaFormat for Avro. Validation and
// compatibility checking run through the structural engine in
// internal/avro; serialization uses hamba for the binary encoding.
type Format struct {
	validator *avro.Validator
	checker   *avro.Checker
}

// New creates a new Avro format implementation with the given engine
// configuration.
func New(cfg avro.Config) *Format {
	return &Format{
		validator: avro.NewValidator(cfg),
		checker:   avro.NewChecker(cfg),
	}
}

func (f *Format) Validate(schemaStr string) error {
	result := f.validator.ValidateBytes([]byte(schemaStr))
	if !result.IsValid {
		return fmt.Errorf("validate schema: %s", summarize(result.Errors))
	}

	// The structural engine accepts anything the Avro specification
	// allows; hamba must also be able to parse it or the registry would
	// admit schemas it cannot serialize with.
	if _, err := hamba.Parse(schemaStr); err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	return nil
}

// ValidateDetailed exposes the full diagnostic result for callers that
// need more than a pass/fail answer.
func (f *Format) ValidateDetailed(schemaStr string) avro.ValidationResult {
	return f.validator.ValidateBytes([]byte(schemaStr))
}

func (f *Format) Serialize(data interface{}, schemaStr string) ([]byte, error) {
	schema, err := hamba.Parse(schemaStr)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	native, err := f.toNative(data)
	if err != nil {
		return nil, fmt.Errorf("convert to native: %w", err)
	}

	return hamba.Marshal(schema, native)
}

func (f *Format) Deserialize(data []byte, schemaStr string) (interface{}, error) {
	schema, err := hamba.Parse(schemaStr)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	var native interface{}
	if err := hamba.Unmarshal(schema, data, &native); err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}

	return native, nil
}

func (f *Format) CheckCompatibility(oldSchema, newSchema string, level types.CompatibilityLevel) (*types.CompatibilityCheck, error) {
	mode, err := modeForLevel(level)
	if err != nil {
		return nil, err
	}

	result := f.checker.CheckBytes([]byte(oldSchema), []byte(newSchema), mode)
	return &types.CompatibilityCheck{
		Compatible: result.IsCompatible,
		Messages:   changeMessages(result),
	}, nil
}

// CheckCompatibilityDetailed exposes the full breaking-change report.
func (f *Format) CheckCompatibilityDetailed(oldSchema, newSchema string, level types.CompatibilityLevel) (avro.CompatibilityResult, error) {
	mode, err := modeForLevel(level)
	if err != nil {
		return avro.CompatibilityResult{}, err
	}
	return f.checker.CheckBytes([]byte(oldSchema), []byte(newSchema), mode), nil
}

func modeForLevel(level types.CompatibilityLevel) (avro.Mode, error) {
	switch level {
	case types.Backward, types.BackwardTransitive:
		return avro.ModeBackward, nil
	case types.Forward, types.ForwardTransitive:
		return avro.ModeForward, nil
	case types.Full, types.FullTransitive:
		return avro.ModeFull, nil
	case types.None:
		return avro.ModeNone, nil
	default:
		return "", fmt.Errorf("unsupported compatibility level: %s", level)
	}
}

func changeMessages(result avro.CompatibilityResult) []string {
	messages := make([]string, 0, len(result.BreakingChanges)+len(result.Warnings))
	for _, c := range result.BreakingChanges {
		messages = append(messages, fmt.Sprintf("%s: %s", c.Path, c.Message))
	}
	for _, c := range result.Warnings {
		messages = append(messages, fmt.Sprintf("%s: %s", c.Path, c.Message))
	}
	return messages
}

func summarize(diags []avro.Diagnostic) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		parts = append(parts, d.Message)
	}
	return strings.Join(parts, "; ")
}

func (f *Format) toNative(data interface{}) (interface{}, error) {
	// If data is already in native format, return as is
	if _, ok := data.(map[string]interface{}); ok {
		return data, nil
	}

	// Round-trip through JSON to normalize struct inputs
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal to JSON: %w", err)
	}

	var native interface{}
	if err := json.Unmarshal(jsonData, &native); err != nil {
		return nil, fmt.Errorf("unmarshal to native: %w", err)
	}

	return native, nil
}
