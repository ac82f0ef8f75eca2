package avro

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// The functions in this file bridge filesystem and JSON-text inputs into
// the core. Read and decode failures are folded into pre-formed
// diagnostics; the validator and checker themselves never touch a file.

// ValidateBytes decodes JSON schema text and validates the decoded value.
func (v *Validator) ValidateBytes(data []byte) ValidationResult {
	start := time.Now()
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return failedValidation(RuleValidJSON, fmt.Sprintf("Invalid JSON: %v", err), start)
	}
	result := v.Validate(value)
	result.Duration = time.Since(start)
	return result
}

// ValidateFile reads and validates an .avsc schema file.
func (v *Validator) ValidateFile(path string) ValidationResult {
	start := time.Now()
	content, err := os.ReadFile(path)
	if err != nil {
		return failedValidation(RuleFileExists, fmt.Sprintf("Failed to read schema file: %v", err), start)
	}
	result := v.ValidateBytes(content)
	result.Duration = time.Since(start)
	return result
}

func failedValidation(rule, message string, start time.Time) ValidationResult {
	return ValidationResult{
		IsValid: false,
		Errors: []Diagnostic{{
			Severity: SeverityError,
			Path:     "",
			Rule:     rule,
			Message:  message,
		}},
		Warnings: make([]Diagnostic, 0),
		Info:     make([]Diagnostic, 0),
		Duration: time.Since(start),
	}
}

// CheckBytes decodes two JSON schema texts and compares them.
func (c *Checker) CheckBytes(oldData, newData []byte, mode Mode) CompatibilityResult {
	start := time.Now()
	if mode == "" {
		mode = c.cfg.CompatibilityMode
	}

	var oldValue any
	if err := json.Unmarshal(oldData, &oldValue); err != nil {
		return decodeFailureResult(mode, "old", err, start)
	}
	var newValue any
	if err := json.Unmarshal(newData, &newValue); err != nil {
		return decodeFailureResult(mode, "new", err, start)
	}

	result := c.Check(oldValue, newValue, mode)
	result.Duration = time.Since(start)
	return result
}

// CheckFiles reads two .avsc schema files and compares them.
func (c *Checker) CheckFiles(oldPath, newPath string, mode Mode) CompatibilityResult {
	start := time.Now()
	if mode == "" {
		mode = c.cfg.CompatibilityMode
	}

	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return decodeFailureResult(mode, "old", err, start)
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return decodeFailureResult(mode, "new", err, start)
	}

	result := c.CheckBytes(oldData, newData, mode)
	result.Duration = time.Since(start)
	return result
}

func decodeFailureResult(mode Mode, which string, err error, start time.Time) CompatibilityResult {
	return CompatibilityResult{
		IsCompatible: false,
		Level:        LevelNone,
		Mode:         mode,
		BreakingChanges: []BreakingChange{{
			ChangeType: ChangeRemovedType,
			Path:       "/",
			Message:    fmt.Sprintf("Failed to parse %s schema: %v", which, err),
			Severity:   SeverityError,
		}},
		Warnings:       make([]BreakingChange, 0),
		AddedFields:    make([]string, 0),
		RemovedFields:  make([]string, 0),
		ModifiedFields: make([]string, 0),
		Duration:       time.Since(start),
	}
}
