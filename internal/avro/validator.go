package avro

import (
	"fmt"
	"time"
)

// Validator checks decoded Avro schema values against the structural rules
// of the Avro specification. It never returns an error and never panics:
// every finding, including wrong-typed input, becomes a Diagnostic.
//
// A Validator holds only configuration. Each Validate call allocates its
// own name registry and accumulators, so one Validator is safe for
// concurrent use.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given configuration.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate validates a decoded schema value: a string (primitive name or
// reference to a named type), a list (union), or a mapping (complex or
// annotated type).
func (v *Validator) Validate(value any) ValidationResult {
	start := time.Now()
	run := newValidation(v.cfg)
	run.validateType("/", value, false)
	return v.assemble(run, value, start)
}

func (v *Validator) assemble(run *validation, value any, start time.Time) ValidationResult {
	errors := make([]Diagnostic, 0)
	warnings := make([]Diagnostic, 0)
	info := make([]Diagnostic, 0)

	for _, d := range run.diags {
		switch d.Severity {
		case SeverityError:
			errors = append(errors, d)
		case SeverityWarning:
			warnings = append(warnings, d)
		default:
			info = append(info, d)
		}
	}

	var parsed *Schema
	var schemaType Type
	if len(errors) == 0 {
		parsed = materialize(value)
		if parsed != nil {
			schemaType = parsed.Type
		}
	}

	// The cap bounds reported errors only; warnings and info are kept.
	if v.cfg.MaxErrors > 0 && len(errors) > v.cfg.MaxErrors {
		errors = errors[:v.cfg.MaxErrors]
	}
	if !v.cfg.IncludeWarnings {
		warnings = make([]Diagnostic, 0)
	}

	return ValidationResult{
		IsValid:    len(errors) == 0,
		SchemaType: schemaType,
		Schema:     parsed,
		Errors:     errors,
		Warnings:   warnings,
		Info:       info,
		Duration:   time.Since(start),
	}
}

// validation is the state of one Validate call: the per-call registry of
// named types and the diagnostic accumulator. Its lifetime is exactly one
// top-level call.
type validation struct {
	cfg   Config
	named map[string]map[string]any
	diags []Diagnostic
}

func newValidation(cfg Config) *validation {
	return &validation{
		cfg:   cfg,
		named: make(map[string]map[string]any),
	}
}

func (run *validation) report(sev Severity, path, rule, format string, args ...any) {
	run.diags = append(run.diags, Diagnostic{
		Severity: sev,
		Path:     path,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (run *validation) errorf(path, rule, format string, args ...any) {
	run.report(SeverityError, path, rule, format, args...)
}

func (run *validation) warnf(path, rule, format string, args ...any) {
	run.report(SeverityWarning, path, rule, format, args...)
}

func (run *validation) infof(path, rule, format string, args ...any) {
	run.report(SeverityInfo, path, rule, format, args...)
}

// validateType dispatches on the shape of a type expression.
func (run *validation) validateType(path string, schema any, inUnion bool) {
	if schema == nil {
		run.errorf(path, RuleNonNullSchema, "Schema cannot be null")
		return
	}

	switch s := schema.(type) {
	case string:
		run.validateStringType(path, s)
	case []any:
		run.validateUnion(path, s)
	case map[string]any:
		run.validateComplexType(path, s, inUnion)
	default:
		run.errorf(path, RuleValidSchemaType, "Invalid schema type: %T", schema)
	}
}

// validateStringType resolves a bare type name: a primitive, or a
// reference to a previously registered named type, matched by full name or
// by dotted suffix.
func (run *validation) validateStringType(path, typeName string) {
	if primitiveTypes[typeName] {
		return
	}
	if _, ok := run.named[typeName]; ok {
		return
	}
	for full := range run.named {
		if len(full) > len(typeName) && full[len(full)-len(typeName)-1] == '.' &&
			full[len(full)-len(typeName):] == typeName {
			return
		}
	}
	run.errorf(path, RuleKnownType, "Unknown type: '%s'", typeName)
}

func (run *validation) validateUnion(path string, members []any) {
	if len(members) == 0 {
		run.errorf(path, RuleNonEmptyUnion, "Union types cannot be empty")
		return
	}

	seen := make(map[string]bool)
	for i, member := range members {
		memberPath := fmt.Sprintf("%s[%d]", path, i)
		run.validateType(memberPath, member, true)

		identity := typeIdentity(member)
		if seen[identity] {
			run.errorf(memberPath, RuleNoDuplicateUnion, "Duplicate type in union: '%s'", identity)
		}
		seen[identity] = true
	}

	for i, member := range members {
		if _, ok := member.([]any); ok {
			run.errorf(fmt.Sprintf("%s[%d]", path, i), RuleNoNestedUnions,
				"Unions cannot directly contain other unions")
		}
	}
}

func (run *validation) validateComplexType(path string, schema map[string]any, inUnion bool) {
	rawType, present := schema["type"]
	if !present {
		run.errorf(path, RuleRequiredTypeField, "Missing required field: 'type'")
		return
	}

	typeVal, ok := rawType.(string)
	if !ok {
		run.errorf(path, RuleKnownType, "Unknown type: '%v'", rawType)
		return
	}

	switch typeVal {
	case "record":
		run.validateRecord(path, schema)
	case "enum":
		run.validateEnum(path, schema)
	case "array":
		run.validateArray(path, schema)
	case "map":
		run.validateMap(path, schema)
	case "fixed":
		run.validateFixed(path, schema)
	default:
		if primitiveTypes[typeVal] {
			run.validateAnnotatedPrimitive(path, schema)
			return
		}
		run.errorf(path, RuleKnownType, "Unknown type: '%s'", typeVal)
	}
}

// register makes a named type resolvable by its full name for the rest of
// this call. Records register before their fields are validated so that
// self-referential types resolve.
func (run *validation) register(schema map[string]any) {
	name := rawString(schema, "name")
	if name == "" {
		return
	}
	run.named[fullName(rawString(schema, "namespace"), name)] = schema
}

func (run *validation) validateRecord(path string, schema map[string]any) {
	if _, present := schema["name"]; !present {
		run.errorf(path, RuleRecordHasName, "Record type requires 'name' field")
		return
	}

	name := rawString(schema, "name")
	if !isValidName(name) {
		run.errorf(childPath(path, "name"), RuleValidName, "Invalid name format: '%s'", name)
	}

	run.register(schema)

	rawFields, present := schema["fields"]
	if !present {
		run.errorf(path, RuleRecordHasFields, "Record type requires 'fields' field")
		return
	}
	fields, ok := rawFields.([]any)
	if !ok {
		run.errorf(childPath(path, "fields"), RuleFieldsIsArray, "Fields must be an array")
		return
	}
	if len(fields) == 0 {
		run.errorf(childPath(path, "fields"), RuleNonEmptyFields, "Record must declare at least one field")
		return
	}

	fieldNames := make(map[string]bool)
	for i, field := range fields {
		run.validateField(fmt.Sprintf("%s[%d]", childPath(path, "fields"), i), field, fieldNames)
	}

	if run.cfg.RequireDoc && rawString(schema, "doc") == "" {
		run.warnf(path, RuleDocRecommended, "Record '%s' should have documentation", name)
	}
	if run.cfg.CheckNamingConventions && !pascalCasePattern.MatchString(name) {
		run.warnf(childPath(path, "name"), RuleNamingConvention, "Record name '%s' should be PascalCase", name)
	}
}

func (run *validation) validateField(path string, field any, existing map[string]bool) {
	f, ok := field.(map[string]any)
	if !ok {
		run.errorf(path, RuleFieldIsObject, "Field must be an object")
		return
	}

	if _, present := f["name"]; !present {
		run.errorf(path, RuleFieldHasName, "Field requires 'name'")
		return
	}
	name := rawString(f, "name")
	if !isValidName(name) {
		run.errorf(childPath(path, "name"), RuleValidFieldName, "Invalid field name format: '%s'", name)
	}
	if existing[name] {
		run.errorf(childPath(path, "name"), RuleUniqueFieldNames, "Duplicate field name: '%s'", name)
	}
	existing[name] = true

	fieldType, present := f["type"]
	if !present {
		run.errorf(path, RuleFieldHasType, "Field '%s' requires 'type'", name)
		return
	}
	run.validateType(childPath(path, "type"), fieldType, false)

	if rawOrder, present := f["order"]; present {
		order, ok := rawOrder.(string)
		if !ok || !validOrders[order] {
			run.errorf(childPath(path, "order"), RuleValidOrder,
				"Invalid order value: '%v'. Must be one of ascending, descending, ignore", rawOrder)
		}
	}

	if run.cfg.RequireDoc && rawString(f, "doc") == "" {
		run.warnf(path, RuleDocRecommended, "Field '%s' should have documentation", name)
	}
	if run.cfg.RequireDefault && isNullableType(fieldType) {
		if _, hasDefault := f["default"]; !hasDefault {
			run.warnf(path, RuleDefaultRecommended,
				"Optional field '%s' should have a default value", name)
		}
	}
	if run.cfg.CheckNamingConventions && !fieldCasePattern.MatchString(name) {
		run.warnf(childPath(path, "name"), RuleNamingConvention,
			"Field name '%s' should be camelCase or snake_case", name)
	}
}

// isNullableType reports whether a raw type expression is a union
// containing null.
func isNullableType(typeDef any) bool {
	members, ok := typeDef.([]any)
	if !ok {
		return false
	}
	for _, m := range members {
		if s, ok := m.(string); ok && s == "null" {
			return true
		}
	}
	return false
}

func (run *validation) validateEnum(path string, schema map[string]any) {
	if _, present := schema["name"]; !present {
		run.errorf(path, RuleEnumHasName, "Enum type requires 'name' field")
		return
	}
	name := rawString(schema, "name")
	if !isValidName(name) {
		run.errorf(childPath(path, "name"), RuleValidName, "Invalid name format: '%s'", name)
	}

	run.register(schema)

	rawSymbols, present := schema["symbols"]
	if !present {
		run.errorf(path, RuleEnumHasSymbols, "Enum type requires 'symbols' field")
		return
	}
	symbols, ok := rawSymbols.([]any)
	if !ok {
		run.errorf(childPath(path, "symbols"), RuleSymbolsIsArray, "Symbols must be an array")
		return
	}
	if len(symbols) == 0 {
		run.errorf(childPath(path, "symbols"), RuleNonEmptySymbols, "Enum must have at least one symbol")
	}

	seen := make(map[string]bool)
	for i, rawSymbol := range symbols {
		symbolPath := fmt.Sprintf("%s[%d]", childPath(path, "symbols"), i)
		symbol, ok := rawSymbol.(string)
		if !ok {
			run.errorf(symbolPath, RuleSymbolIsString, "Symbol must be a string, got %T", rawSymbol)
			continue
		}
		if !isValidName(symbol) {
			run.errorf(symbolPath, RuleValidSymbol, "Invalid symbol format: '%s'", symbol)
		}
		if seen[symbol] {
			run.errorf(symbolPath, RuleUniqueSymbols, "Duplicate symbol: '%s'", symbol)
		}
		seen[symbol] = true

		if run.cfg.CheckNamingConventions && !screamingCasePattern.MatchString(symbol) {
			run.warnf(symbolPath, RuleNamingConvention,
				"Symbol '%s' should be SCREAMING_SNAKE_CASE", symbol)
		}
	}

	if rawDefault, present := schema["default"]; present {
		def, ok := rawDefault.(string)
		if !ok || !seen[def] {
			run.errorf(childPath(path, "default"), RuleValidDefault,
				"Default value '%v' is not in symbols", rawDefault)
		}
	}
}

func (run *validation) validateArray(path string, schema map[string]any) {
	items, present := schema["items"]
	if !present {
		run.errorf(path, RuleArrayHasItems, "Array type requires 'items' field")
		return
	}
	run.validateType(childPath(path, "items"), items, false)
}

func (run *validation) validateMap(path string, schema map[string]any) {
	values, present := schema["values"]
	if !present {
		run.errorf(path, RuleMapHasValues, "Map type requires 'values' field")
		return
	}
	run.validateType(childPath(path, "values"), values, false)
}

func (run *validation) validateFixed(path string, schema map[string]any) {
	if _, present := schema["name"]; !present {
		run.errorf(path, RuleFixedHasName, "Fixed type requires 'name' field")
		return
	}
	name := rawString(schema, "name")
	if !isValidName(name) {
		run.errorf(childPath(path, "name"), RuleValidName, "Invalid name format: '%s'", name)
	}

	run.register(schema)

	if _, present := schema["size"]; !present {
		run.errorf(path, RuleFixedHasSize, "Fixed type requires 'size' field")
		return
	}
	if size, ok := rawInt(schema, "size"); !ok || size < 1 {
		run.errorf(childPath(path, "size"), RuleValidSize, "Size must be a positive integer, got %v", schema["size"])
	}
}

// validateAnnotatedPrimitive handles a primitive declared in object form,
// typically to carry a logicalType annotation.
func (run *validation) validateAnnotatedPrimitive(path string, schema map[string]any) {
	rawLogical, present := schema["logicalType"]
	if !present {
		return
	}

	logicalType, _ := rawLogical.(string)
	if !knownLogicalTypes[logicalType] {
		if run.cfg.AllowUnknownLogicalTypes {
			run.infof(childPath(path, "logicalType"), RuleKnownLogicalType, "Unknown logical type: '%v'", rawLogical)
		} else {
			run.errorf(childPath(path, "logicalType"), RuleKnownLogicalType, "Unknown logical type: '%v'", rawLogical)
		}
	}

	if logicalType == "decimal" {
		if _, ok := schema["precision"]; !ok {
			run.errorf(path, RuleDecimalHasPrecision, "Decimal logical type requires 'precision'")
		}
	}
}

// materialize builds the typed schema model from a raw value that has
// already validated cleanly.
func materialize(value any) *Schema {
	switch v := value.(type) {
	case string:
		return &Schema{Type: Type(v)}
	case []any:
		union := &Schema{Type: TypeUnion, Union: make([]*Schema, 0, len(v))}
		for _, member := range v {
			union.Union = append(union.Union, materialize(member))
		}
		return union
	case map[string]any:
		s := &Schema{
			Type:        Type(rawString(v, "type")),
			Name:        rawString(v, "name"),
			Namespace:   rawString(v, "namespace"),
			Doc:         rawString(v, "doc"),
			LogicalType: rawString(v, "logicalType"),
			Aliases:     nil,
		}
		if aliases := rawStringList(v, "aliases"); len(aliases) > 0 {
			s.Aliases = aliases
		}
		if p, ok := rawInt(v, "precision"); ok {
			s.Precision = p
		}
		if sc, ok := rawInt(v, "scale"); ok {
			s.Scale = sc
		}

		switch s.Type {
		case TypeRecord:
			for _, rawField := range rawList(v, "fields") {
				f, ok := rawField.(map[string]any)
				if !ok {
					continue
				}
				s.Fields = append(s.Fields, materializeField(f))
			}
		case TypeEnum:
			s.Symbols = rawStringList(v, "symbols")
			s.EnumDefault = rawString(v, "default")
		case TypeArray:
			s.Items = materialize(v["items"])
		case TypeMap:
			s.Values = materialize(v["values"])
		case TypeFixed:
			if size, ok := rawInt(v, "size"); ok {
				s.Size = size
			}
		}
		return s
	default:
		return nil
	}
}

func materializeField(f map[string]any) Field {
	field := Field{
		Name:  rawString(f, "name"),
		Type:  materialize(f["type"]),
		Doc:   rawString(f, "doc"),
		Order: rawString(f, "order"),
	}
	if aliases := rawStringList(f, "aliases"); len(aliases) > 0 {
		field.Aliases = aliases
	}
	if value, present := f["default"]; present {
		field.Default = DefaultOf(value)
	}
	return field
}
