package avro

// Config holds immutable options for validation and compatibility
// checking. Callers pass it in; the engine never mutates it.
type Config struct {
	// StrictMode enables strict validation behavior.
	StrictMode bool `yaml:"strict_mode" json:"strict_mode"`
	// CheckNamingConventions emits warnings for names that stray from
	// PascalCase types, camelCase/snake_case fields and
	// SCREAMING_SNAKE_CASE enum symbols.
	CheckNamingConventions bool `yaml:"check_naming_conventions" json:"check_naming_conventions"`
	// RequireDoc warns when types or fields lack documentation.
	RequireDoc bool `yaml:"require_doc" json:"require_doc"`
	// RequireDefault warns when nullable fields lack a default value.
	RequireDefault bool `yaml:"require_default" json:"require_default"`
	// CompatibilityMode is the default direction for Check when the
	// caller passes no mode.
	CompatibilityMode Mode `yaml:"compatibility_mode" json:"compatibility_mode"`
	// MaxErrors bounds the reported error count; 0 means unbounded.
	// Warnings and info messages are unaffected.
	MaxErrors int `yaml:"max_errors" json:"max_errors"`
	// IncludeWarnings controls whether warnings appear in results.
	IncludeWarnings bool `yaml:"include_warnings" json:"include_warnings"`
	// AllowUnknownLogicalTypes downgrades unknown logicalType values
	// from errors to informational messages.
	AllowUnknownLogicalTypes bool `yaml:"allow_unknown_logical_types" json:"allow_unknown_logical_types"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CheckNamingConventions:   true,
		CompatibilityMode:        ModeBackward,
		MaxErrors:                100,
		IncludeWarnings:          true,
		AllowUnknownLogicalTypes: true,
	}
}
