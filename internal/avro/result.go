package avro

import "time"

// Severity classifies a diagnostic or breaking change.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a single structural finding from validation. Diagnostics
// are returned as data, never raised.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Path     string         `json:"path"`
	Rule     string         `json:"rule,omitempty"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

// Validation rule identifiers attached to diagnostics.
const (
	RuleNonNullSchema       = "non-null-schema"
	RuleValidSchemaType     = "valid-schema-type"
	RuleKnownType           = "known-type"
	RuleNonEmptyUnion       = "non-empty-union"
	RuleNoNestedUnions      = "no-nested-unions"
	RuleNoDuplicateUnion    = "no-duplicate-union-types"
	RuleRequiredTypeField   = "required-type-field"
	RuleRecordHasName       = "record-has-name"
	RuleRecordHasFields     = "record-has-fields"
	RuleFieldsIsArray       = "fields-is-array"
	RuleNonEmptyFields      = "non-empty-fields"
	RuleFieldIsObject       = "field-is-object"
	RuleFieldHasName        = "field-has-name"
	RuleFieldHasType        = "field-has-type"
	RuleValidName           = "valid-name"
	RuleValidFieldName      = "valid-field-name"
	RuleUniqueFieldNames    = "unique-field-names"
	RuleValidOrder          = "valid-order"
	RuleEnumHasName         = "enum-has-name"
	RuleEnumHasSymbols      = "enum-has-symbols"
	RuleSymbolsIsArray      = "symbols-is-array"
	RuleNonEmptySymbols     = "non-empty-symbols"
	RuleSymbolIsString      = "symbol-is-string"
	RuleValidSymbol         = "valid-symbol"
	RuleUniqueSymbols       = "unique-symbols"
	RuleValidDefault        = "valid-default"
	RuleArrayHasItems       = "array-has-items"
	RuleMapHasValues        = "map-has-values"
	RuleFixedHasName        = "fixed-has-name"
	RuleFixedHasSize        = "fixed-has-size"
	RuleValidSize           = "valid-size"
	RuleKnownLogicalType    = "known-logical-type"
	RuleDecimalHasPrecision = "decimal-has-precision"
	RuleDocRecommended      = "doc-recommended"
	RuleDefaultRecommended  = "default-recommended"
	RuleNamingConvention    = "naming-convention"
	RuleFileExists          = "file-exists"
	RuleValidJSON           = "valid-json"
)

// ValidationResult is the outcome of validating one schema value.
type ValidationResult struct {
	IsValid    bool          `json:"is_valid"`
	SchemaType Type          `json:"schema_type,omitempty"`
	Schema     *Schema       `json:"parsed_schema,omitempty"`
	Errors     []Diagnostic  `json:"errors"`
	Warnings   []Diagnostic  `json:"warnings"`
	Info       []Diagnostic  `json:"info"`
	Duration   time.Duration `json:"duration"`
}

// ErrorCount returns the number of errors.
func (r ValidationResult) ErrorCount() int { return len(r.Errors) }

// WarningCount returns the number of warnings.
func (r ValidationResult) WarningCount() int { return len(r.Warnings) }

// Mode selects the direction of a compatibility check.
type Mode string

const (
	// ModeBackward asks whether new code can read old data.
	ModeBackward Mode = "BACKWARD"
	// ModeForward asks whether old code can read new data.
	ModeForward Mode = "FORWARD"
	// ModeFull checks both directions.
	ModeFull Mode = "FULL"
	// ModeNone performs no structural comparison. It does not assert
	// compatibility; it signals that no contract is enforced.
	ModeNone Mode = "NONE"
)

// Level is the compatibility verdict attached to a result.
type Level string

const (
	LevelFull     Level = "FULL"
	LevelBackward Level = "BACKWARD"
	LevelForward  Level = "FORWARD"
	LevelNone     Level = "NONE"
)

// ChangeType classifies a breaking change between schema versions.
type ChangeType string

const (
	ChangeRemovedField       ChangeType = "removed_field"
	ChangeRemovedType        ChangeType = "removed_type"
	ChangeRemovedEnumSymbol  ChangeType = "removed_enum_symbol"
	ChangeChangedFieldType   ChangeType = "changed_field_type"
	ChangeAddedRequiredField ChangeType = "added_required_field"
	ChangeChangedName        ChangeType = "changed_name"
	ChangeChangedSize        ChangeType = "changed_size"
	ChangeChangedEnumOrder   ChangeType = "changed_enum_order"
	ChangeIncompatibleUnion  ChangeType = "incompatible_union"
)

// BreakingChange is one structural difference found between a writer and a
// reader schema.
type BreakingChange struct {
	ChangeType ChangeType `json:"change_type"`
	Path       string     `json:"path"`
	Message    string     `json:"message"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	Severity   Severity   `json:"severity"`
	Mitigation string     `json:"mitigation,omitempty"`
}

// CompatibilityResult is the outcome of comparing two schema versions.
type CompatibilityResult struct {
	IsCompatible    bool             `json:"is_compatible"`
	Level           Level            `json:"compatibility_level"`
	Mode            Mode             `json:"compatibility_mode"`
	BreakingChanges []BreakingChange `json:"breaking_changes"`
	Warnings        []BreakingChange `json:"warnings"`
	AddedFields     []string         `json:"added_fields"`
	RemovedFields   []string         `json:"removed_fields"`
	ModifiedFields  []string         `json:"modified_fields"`
	Duration        time.Duration    `json:"duration"`
}

// BreakingChangeCount returns the number of breaking changes.
func (r CompatibilityResult) BreakingChangeCount() int { return len(r.BreakingChanges) }
