package avro

import "regexp"

// Type is an Avro type name, primitive or complex.
type Type string

const (
	// Primitive types
	TypeNull    Type = "null"
	TypeBoolean Type = "boolean"
	TypeInt     Type = "int"
	TypeLong    Type = "long"
	TypeFloat   Type = "float"
	TypeDouble  Type = "double"
	TypeBytes   Type = "bytes"
	TypeString  Type = "string"
	// Complex types
	TypeRecord Type = "record"
	TypeEnum   Type = "enum"
	TypeArray  Type = "array"
	TypeMap    Type = "map"
	TypeUnion  Type = "union"
	TypeFixed  Type = "fixed"
)

var primitiveTypes = map[string]bool{
	"null":    true,
	"boolean": true,
	"int":     true,
	"long":    true,
	"float":   true,
	"double":  true,
	"bytes":   true,
	"string":  true,
}

var complexTypes = map[string]bool{
	"record": true,
	"enum":   true,
	"array":  true,
	"map":    true,
	"fixed":  true,
}

var knownLogicalTypes = map[string]bool{
	"decimal":                true,
	"uuid":                   true,
	"date":                   true,
	"time-millis":            true,
	"time-micros":            true,
	"timestamp-millis":       true,
	"timestamp-micros":       true,
	"duration":               true,
	"local-timestamp-millis": true,
	"local-timestamp-micros": true,
}

var validOrders = map[string]bool{
	"ascending":  true,
	"descending": true,
	"ignore":     true,
}

// Names must start with [A-Za-z_] and contain only [A-Za-z0-9_], per the
// Avro specification.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	pascalCasePattern    = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	fieldCasePattern     = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)
	screamingCasePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// Default is a tri-state field default: a field may have no default at
// all, or an explicit default that is itself null. The two cases matter
// for compatibility checking and must not collapse into one.
type Default struct {
	Defined bool `json:"defined"`
	Value   any  `json:"value,omitempty"`
}

// NoDefault is the absent default.
var NoDefault = Default{}

// NullDefault is an explicit "default": null.
var NullDefault = Default{Defined: true, Value: nil}

// DefaultOf wraps an explicit default value.
func DefaultOf(v any) Default {
	return Default{Defined: true, Value: v}
}

// Field is a single field of a record schema.
type Field struct {
	Name    string   `json:"name"`
	Type    *Schema  `json:"type"`
	Default Default  `json:"default,omitempty"`
	Doc     string   `json:"doc,omitempty"`
	Order   string   `json:"order,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// IsOptional reports whether the field type is a union containing null.
func (f Field) IsOptional() bool {
	if f.Type == nil || f.Type.Type != TypeUnion {
		return false
	}
	for _, m := range f.Type.Union {
		if m != nil && m.Type == TypeNull {
			return true
		}
	}
	return false
}

// Schema is the materialized form of a validated Avro type expression.
// Type tags which of the optional members are meaningful: Fields for
// records, Symbols for enums, Items/Values for arrays and maps, Size for
// fixed, Union for unions. A bare named-type reference materializes as a
// Schema whose Type is the referenced name.
type Schema struct {
	Type        Type      `json:"type"`
	Name        string    `json:"name,omitempty"`
	Namespace   string    `json:"namespace,omitempty"`
	Doc         string    `json:"doc,omitempty"`
	LogicalType string    `json:"logicalType,omitempty"`
	Precision   int       `json:"precision,omitempty"`
	Scale       int       `json:"scale,omitempty"`
	Fields      []Field   `json:"fields,omitempty"`
	Symbols     []string  `json:"symbols,omitempty"`
	EnumDefault string    `json:"default,omitempty"`
	Items       *Schema   `json:"items,omitempty"`
	Values      *Schema   `json:"values,omitempty"`
	Size        int       `json:"size,omitempty"`
	Aliases     []string  `json:"aliases,omitempty"`
	Union       []*Schema `json:"union,omitempty"`
}

// FullName returns namespace.name when a namespace is present, else the
// bare name, else the type itself.
func (s *Schema) FullName() string {
	if s.Name == "" {
		return string(s.Type)
	}
	return fullName(s.Namespace, s.Name)
}

// FieldCount returns the number of record fields.
func (s *Schema) FieldCount() int {
	return len(s.Fields)
}

func fullName(namespace, name string) string {
	if namespace != "" {
		return namespace + "." + name
	}
	return name
}

// shapeOf maps a decoded schema value to its dispatch shape: a primitive
// or named-type string, "union" for lists, or the value of the "type" key
// for mappings. Anything else is "unknown".
func shapeOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		return "union"
	case map[string]any:
		if t, ok := v["type"].(string); ok {
			return t
		}
		return "unknown"
	default:
		return "unknown"
	}
}

// typeIdentity derives the identity string used for duplicate detection in
// unions: the primitive name, or the declared name of a named complex type.
func typeIdentity(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		t, ok := v["type"].(string)
		if !ok {
			return "unknown"
		}
		if complexTypes[t] {
			if name, ok := v["name"].(string); ok {
				return name
			}
		}
		return t
	default:
		return "unknown"
	}
}

func isValidName(name string) bool {
	return namePattern.MatchString(name)
}

// childPath appends a path segment without doubling the root slash.
func childPath(parent, segment string) string {
	if parent == "/" {
		return "/" + segment
	}
	return parent + "/" + segment
}

// Raw-value accessors tolerant of missing keys and wrong-typed values.
// Compatibility comparison never assumes a well-formed node even though
// inputs are pre-validated.

func rawString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func rawList(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

func rawStringList(m map[string]any, key string) []string {
	out := make([]string, 0)
	for _, v := range rawList(m, key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func rawFullName(m map[string]any) string {
	return fullName(rawString(m, "namespace"), rawString(m, "name"))
}

// rawInt accepts the integer encodings a JSON decoder may produce.
func rawInt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}
