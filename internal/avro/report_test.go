package avro

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValidation(t *testing.T) ValidationResult {
	t.Helper()
	return NewValidator(DefaultConfig()).ValidateBytes([]byte(`{
		"type": "record",
		"name": "User",
		"fields": [{"name": "ID", "type": "widget"}]
	}`))
}

func sampleCompatibility(t *testing.T) CompatibilityResult {
	t.Helper()
	c := NewChecker(DefaultConfig())
	return c.CheckBytes(
		[]byte(`{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`),
		[]byte(`{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int"}]}`),
		ModeBackward,
	)
}

func TestFormatValidationReport_Text(t *testing.T) {
	report, err := FormatValidationReport(sampleValidation(t), ReportText)
	require.NoError(t, err)

	assert.Contains(t, report, "Avro Schema Validation Report")
	assert.Contains(t, report, "Valid: No")
	assert.Contains(t, report, "Errors: 1")
	assert.Contains(t, report, "Unknown type: 'widget'")
	// Naming warning for the PascalCase field name should show up too
	assert.Contains(t, report, "Warnings:")
}

func TestFormatValidationReport_Markdown(t *testing.T) {
	report, err := FormatValidationReport(sampleValidation(t), ReportMarkdown)
	require.NoError(t, err)

	assert.Contains(t, report, "# Avro Schema Validation Report")
	assert.Contains(t, report, "- **Valid**: No")
	assert.Contains(t, report, "| Path | Rule | Message |")
}

func TestFormatValidationReport_JSON(t *testing.T) {
	report, err := FormatValidationReport(sampleValidation(t), ReportJSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(report), &decoded))
	assert.Equal(t, false, decoded["is_valid"])
}

func TestFormatValidationReport_UnknownFormat(t *testing.T) {
	_, err := FormatValidationReport(sampleValidation(t), ReportFormat("yaml"))
	assert.Error(t, err)
}

func TestFormatCompatibilityReport_Text(t *testing.T) {
	report, err := FormatCompatibilityReport(sampleCompatibility(t), ReportText)
	require.NoError(t, err)

	assert.Contains(t, report, "Avro Schema Compatibility Report")
	assert.Contains(t, report, "Mode: BACKWARD")
	assert.Contains(t, report, "Compatible: No")
	assert.Contains(t, report, "added_required_field")
	assert.Contains(t, report, "Mitigation: Add a default value for the new field")
	assert.Contains(t, report, "Added Fields: age")
}

func TestFormatCompatibilityReport_Markdown(t *testing.T) {
	report, err := FormatCompatibilityReport(sampleCompatibility(t), ReportMarkdown)
	require.NoError(t, err)

	assert.Contains(t, report, "# Avro Schema Compatibility Report")
	assert.Contains(t, report, "- **Compatible**: No")
	assert.Contains(t, report, "## Breaking Changes")
	assert.Contains(t, report, "## Added Fields")
}

func TestFormatCompatibilityReport_JSON(t *testing.T) {
	report, err := FormatCompatibilityReport(sampleCompatibility(t), ReportJSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(report), &decoded))
	assert.Equal(t, false, decoded["is_compatible"])
	assert.Equal(t, "BACKWARD", decoded["compatibility_mode"])
}

func TestFormatCompatibilityReport_CompatiblePair(t *testing.T) {
	c := NewChecker(DefaultConfig())
	result := c.CheckBytes([]byte(`"int"`), []byte(`"long"`), ModeBackward)

	report, err := FormatCompatibilityReport(result, ReportText)
	require.NoError(t, err)
	assert.Contains(t, report, "Compatible: Yes")
	assert.Contains(t, report, "Compatibility Level: FULL")
}
