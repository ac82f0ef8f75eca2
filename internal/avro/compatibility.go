package avro

import (
	"fmt"
	"time"
)

// promotions lists the allowed lossless writer-to-reader primitive
// widenings. Anything else is a breaking type change.
var promotions = map[string]map[string]bool{
	"int":    {"long": true, "float": true, "double": true},
	"long":   {"float": true, "double": true},
	"float":  {"double": true},
	"string": {"bytes": true},
	"bytes":  {"string": true},
}

// Checker decides whether two schema versions are safe to evolve between.
// Both versions must independently validate before any structural
// comparison happens. A Checker holds only configuration and is safe for
// concurrent use.
type Checker struct {
	cfg       Config
	validator *Validator
}

// NewChecker creates a compatibility checker with the given configuration.
func NewChecker(cfg Config) *Checker {
	return &Checker{cfg: cfg, validator: NewValidator(cfg)}
}

// Check compares two decoded schema values under the given mode. An empty
// mode falls back to the configured default direction.
//
// BACKWARD asks whether a reader using newSchema can read data written
// with oldSchema; FORWARD is the reverse; FULL runs both and unions the
// findings; NONE compares nothing and reports zero breaking changes.
func (c *Checker) Check(oldSchema, newSchema any, mode Mode) CompatibilityResult {
	start := time.Now()
	if mode == "" {
		mode = c.cfg.CompatibilityMode
	}
	if mode == "" {
		mode = ModeBackward
	}

	oldResult := c.validator.Validate(oldSchema)
	if !oldResult.IsValid {
		return parseFailureResult(mode, "old", oldResult, start)
	}
	newResult := c.validator.Validate(newSchema)
	if !newResult.IsValid {
		return parseFailureResult(mode, "new", newResult, start)
	}

	var changes []BreakingChange
	switch mode {
	case ModeBackward:
		changes = compare("/", oldSchema, newSchema)
	case ModeForward:
		changes = compare("/", newSchema, oldSchema)
	case ModeFull:
		changes = append(compare("/", oldSchema, newSchema), compare("/", newSchema, oldSchema)...)
	}

	breaking := make([]BreakingChange, 0)
	warnings := make([]BreakingChange, 0)
	for _, change := range changes {
		if change.Severity == SeverityError {
			breaking = append(breaking, change)
		} else {
			warnings = append(warnings, change)
		}
	}

	result := CompatibilityResult{
		IsCompatible:    len(breaking) == 0,
		Level:           classifyLevel(mode, breaking),
		Mode:            mode,
		BreakingChanges: breaking,
		Warnings:        warnings,
		AddedFields:     make([]string, 0),
		RemovedFields:   make([]string, 0),
		ModifiedFields:  make([]string, 0),
	}
	diffFields(&result, oldSchema, newSchema)
	result.Duration = time.Since(start)
	return result
}

func parseFailureResult(mode Mode, which string, validation ValidationResult, start time.Time) CompatibilityResult {
	message := "Unknown error"
	if len(validation.Errors) > 0 {
		message = validation.Errors[0].Message
	}
	return CompatibilityResult{
		IsCompatible: false,
		Level:        LevelNone,
		Mode:         mode,
		BreakingChanges: []BreakingChange{{
			ChangeType: ChangeRemovedType,
			Path:       "/",
			Message:    fmt.Sprintf("Failed to parse %s schema: %s", which, message),
			Severity:   SeverityError,
		}},
		Warnings:       make([]BreakingChange, 0),
		AddedFields:    make([]string, 0),
		RemovedFields:  make([]string, 0),
		ModifiedFields: make([]string, 0),
		Duration:       time.Since(start),
	}
}

// classifyLevel keeps the documented heuristic: FULL when nothing broke,
// and under a BACKWARD check FORWARD when no breaking change removed a
// field or changed a field type. It does not re-run the forward algorithm.
func classifyLevel(mode Mode, breaking []BreakingChange) Level {
	if len(breaking) == 0 {
		return LevelFull
	}
	if mode == ModeBackward {
		blocked := false
		for _, c := range breaking {
			if c.ChangeType == ChangeRemovedField || c.ChangeType == ChangeChangedFieldType {
				blocked = true
				break
			}
		}
		if !blocked {
			return LevelForward
		}
	}
	return LevelNone
}

// diffFields fills the field-name summary from the two top-level records.
// It is a plain set difference and does not feed the verdict.
func diffFields(result *CompatibilityResult, oldSchema, newSchema any) {
	oldRecord, okOld := oldSchema.(map[string]any)
	newRecord, okNew := newSchema.(map[string]any)
	if !okOld || !okNew {
		return
	}
	oldFields := fieldTypesByName(oldRecord)
	newFields := fieldTypesByName(newRecord)
	if oldFields == nil || newFields == nil {
		return
	}

	for _, name := range orderedFieldNames(newRecord) {
		if _, ok := oldFields[name]; !ok {
			result.AddedFields = append(result.AddedFields, name)
		}
	}
	for _, name := range orderedFieldNames(oldRecord) {
		newType, ok := newFields[name]
		if !ok {
			result.RemovedFields = append(result.RemovedFields, name)
			continue
		}
		if fmt.Sprintf("%v", oldFields[name]) != fmt.Sprintf("%v", newType) {
			result.ModifiedFields = append(result.ModifiedFields, name)
		}
	}
}

func fieldTypesByName(record map[string]any) map[string]any {
	fields, ok := record["fields"].([]any)
	if !ok {
		return nil
	}
	byName := make(map[string]any, len(fields))
	for _, rawField := range fields {
		if f, ok := rawField.(map[string]any); ok {
			byName[rawString(f, "name")] = f["type"]
		}
	}
	return byName
}

func orderedFieldNames(record map[string]any) []string {
	fields := rawList(record, "fields")
	names := make([]string, 0, len(fields))
	for _, rawField := range fields {
		if f, ok := rawField.(map[string]any); ok {
			names = append(names, rawString(f, "name"))
		}
	}
	return names
}

// compare walks the writer and reader trees in parallel. Comparison stops
// at a node whose shapes are incompatible: once the node type itself is
// wrong, subtree differences are moot.
func compare(path string, writer, reader any) []BreakingChange {
	writerShape := shapeOf(writer)
	readerShape := shapeOf(reader)

	if !shapesCompatible(writerShape, readerShape) {
		return []BreakingChange{{
			ChangeType: ChangeChangedFieldType,
			Path:       path,
			Message:    fmt.Sprintf("Incompatible types: writer='%s', reader='%s'", writerShape, readerShape),
			OldValue:   writerShape,
			NewValue:   readerShape,
			Severity:   SeverityError,
		}}
	}

	switch writerShape {
	case "record":
		return compareRecords(path, writer, reader)
	case "enum":
		return compareEnums(path, writer, reader)
	case "array":
		return compareWrapped(childPath(path, "items"), writer, reader, "items")
	case "map":
		return compareWrapped(childPath(path, "values"), writer, reader, "values")
	case "fixed":
		return compareFixed(path, writer, reader)
	case "union":
		return compareUnions(path, writer, reader)
	}
	return nil
}

// shapesCompatible reports whether a reader of the second shape can accept
// values written as the first, either exactly or via promotion.
func shapesCompatible(writerShape, readerShape string) bool {
	if writerShape == readerShape {
		return true
	}
	return promotions[writerShape][readerShape]
}

func compareRecords(path string, writer, reader any) []BreakingChange {
	writerRecord, okW := writer.(map[string]any)
	readerRecord, okR := reader.(map[string]any)
	if !okW || !okR {
		return nil
	}
	var changes []BreakingChange

	writerFull := rawFullName(writerRecord)
	readerFull := rawFullName(readerRecord)
	if writerFull != readerFull && !containsString(rawStringList(readerRecord, "aliases"), writerFull) {
		changes = append(changes, BreakingChange{
			ChangeType: ChangeChangedName,
			Path:       path,
			Message:    fmt.Sprintf("Record name changed from '%s' to '%s' without alias", writerFull, readerFull),
			OldValue:   writerFull,
			NewValue:   readerFull,
			Severity:   SeverityError,
			Mitigation: "Add an alias for the old name",
		})
	}

	writerFields := recordFields(writerRecord)
	readerFields := recordFields(readerRecord)
	readerByName := make(map[string]map[string]any, len(readerFields))
	readerByAlias := make(map[string]map[string]any)
	for _, f := range readerFields {
		readerByName[rawString(f, "name")] = f
		for _, alias := range rawStringList(f, "aliases") {
			readerByAlias[alias] = f
		}
	}
	writerByName := make(map[string]map[string]any, len(writerFields))
	for _, f := range writerFields {
		writerByName[rawString(f, "name")] = f
	}

	// Writer fields must be readable: missing on the reader side means the
	// value is silently dropped, which is survivable.
	for _, writerField := range writerFields {
		name := rawString(writerField, "name")
		readerField, ok := readerByName[name]
		if !ok {
			readerField, ok = readerByAlias[name]
		}
		if !ok {
			changes = append(changes, BreakingChange{
				ChangeType: ChangeRemovedField,
				Path:       childPath(path, "fields/"+name),
				Message:    fmt.Sprintf("Field '%s' exists in writer but not in reader (will be ignored)", name),
				OldValue:   name,
				Severity:   SeverityWarning,
			})
			continue
		}
		changes = append(changes,
			compare(childPath(path, "fields/"+name), writerField["type"], readerField["type"])...)
	}

	// Reader fields absent from the writer need a default to be fillable.
	for _, readerField := range readerFields {
		name := rawString(readerField, "name")
		if _, ok := writerByName[name]; ok {
			continue
		}
		aliasMatched := false
		for _, alias := range rawStringList(readerField, "aliases") {
			if _, ok := writerByName[alias]; ok {
				aliasMatched = true
				break
			}
		}
		if aliasMatched {
			continue
		}
		if _, hasDefault := readerField["default"]; !hasDefault {
			changes = append(changes, BreakingChange{
				ChangeType: ChangeAddedRequiredField,
				Path:       childPath(path, "fields/"+name),
				Message:    fmt.Sprintf("New field '%s' without default value", name),
				NewValue:   name,
				Severity:   SeverityError,
				Mitigation: "Add a default value for the new field",
			})
		} else {
			changes = append(changes, BreakingChange{
				ChangeType: ChangeAddedRequiredField,
				Path:       childPath(path, "fields/"+name),
				Message:    fmt.Sprintf("New field '%s' added with default value", name),
				NewValue:   name,
				Severity:   SeverityWarning,
			})
		}
	}

	return changes
}

func recordFields(record map[string]any) []map[string]any {
	raw := rawList(record, "fields")
	fields := make([]map[string]any, 0, len(raw))
	for _, rawField := range raw {
		if f, ok := rawField.(map[string]any); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func compareEnums(path string, writer, reader any) []BreakingChange {
	writerEnum, okW := writer.(map[string]any)
	readerEnum, okR := reader.(map[string]any)
	if !okW || !okR {
		return nil
	}
	var changes []BreakingChange

	writerSymbols := rawStringList(writerEnum, "symbols")
	readerSymbols := rawStringList(readerEnum, "symbols")
	readerSet := make(map[string]bool, len(readerSymbols))
	for _, s := range readerSymbols {
		readerSet[s] = true
	}
	_, readerHasDefault := readerEnum["default"]

	for _, symbol := range writerSymbols {
		if readerSet[symbol] {
			continue
		}
		if readerHasDefault {
			changes = append(changes, BreakingChange{
				ChangeType: ChangeRemovedEnumSymbol,
				Path:       childPath(path, "symbols/"+symbol),
				Message:    fmt.Sprintf("Enum symbol '%s' was removed (will use default)", symbol),
				OldValue:   symbol,
				Severity:   SeverityWarning,
			})
		} else {
			changes = append(changes, BreakingChange{
				ChangeType: ChangeRemovedEnumSymbol,
				Path:       childPath(path, "symbols/"+symbol),
				Message:    fmt.Sprintf("Enum symbol '%s' was removed from reader without default", symbol),
				OldValue:   symbol,
				Severity:   SeverityError,
				Mitigation: "Add a default value to the enum",
			})
		}
	}

	// Relative order of the shared symbols matters for sorting but never
	// blocks decoding.
	writerSet := make(map[string]bool, len(writerSymbols))
	for _, s := range writerSymbols {
		writerSet[s] = true
	}
	var writerCommon, readerCommon []string
	for _, s := range writerSymbols {
		if readerSet[s] {
			writerCommon = append(writerCommon, s)
		}
	}
	for _, s := range readerSymbols {
		if writerSet[s] {
			readerCommon = append(readerCommon, s)
		}
	}
	if !equalStrings(writerCommon, readerCommon) {
		changes = append(changes, BreakingChange{
			ChangeType: ChangeChangedEnumOrder,
			Path:       path,
			Message:    "Enum symbol order changed (may affect sort order)",
			Severity:   SeverityWarning,
		})
	}

	return changes
}

func compareWrapped(path string, writer, reader any, key string) []BreakingChange {
	writerInner := any("null")
	readerInner := any("null")
	if m, ok := writer.(map[string]any); ok {
		if v, present := m[key]; present {
			writerInner = v
		}
	}
	if m, ok := reader.(map[string]any); ok {
		if v, present := m[key]; present {
			readerInner = v
		}
	}
	return compare(path, writerInner, readerInner)
}

func compareFixed(path string, writer, reader any) []BreakingChange {
	writerFixed, okW := writer.(map[string]any)
	readerFixed, okR := reader.(map[string]any)
	if !okW || !okR {
		return nil
	}
	writerSize, _ := rawInt(writerFixed, "size")
	readerSize, _ := rawInt(readerFixed, "size")
	if writerSize == readerSize {
		return nil
	}
	// Fixed-width binary has no promotion path; any size change breaks.
	return []BreakingChange{{
		ChangeType: ChangeChangedSize,
		Path:       path,
		Message:    fmt.Sprintf("Fixed size changed from %d to %d", writerSize, readerSize),
		OldValue:   fmt.Sprintf("%d", writerSize),
		NewValue:   fmt.Sprintf("%d", readerSize),
		Severity:   SeverityError,
	}}
}

func compareUnions(path string, writer, reader any) []BreakingChange {
	writerMembers, ok := writer.([]any)
	if !ok {
		writerMembers = []any{writer}
	}
	readerMembers, ok := reader.([]any)
	if !ok {
		readerMembers = []any{reader}
	}

	var changes []BreakingChange
	for i, writerMember := range writerMembers {
		writerShape := shapeOf(writerMember)
		memberPath := fmt.Sprintf("%s[%d]", path, i)
		matched := false

		for _, readerMember := range readerMembers {
			if !shapesCompatible(writerShape, shapeOf(readerMember)) {
				continue
			}
			sub := compare(memberPath, writerMember, readerMember)
			if hasError(sub) {
				continue
			}
			changes = append(changes, sub...)
			matched = true
			break
		}

		if !matched {
			changes = append(changes, BreakingChange{
				ChangeType: ChangeIncompatibleUnion,
				Path:       memberPath,
				Message:    fmt.Sprintf("Writer union type '%s' has no compatible reader type", writerShape),
				OldValue:   writerShape,
				Severity:   SeverityError,
			})
		}
	}
	return changes
}

func hasError(changes []BreakingChange) bool {
	for _, c := range changes {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
