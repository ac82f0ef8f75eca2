package avro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func changeTypes(changes []BreakingChange) []ChangeType {
	out := make([]ChangeType, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.ChangeType)
	}
	return out
}

func TestChecker_IdenticalSchemas(t *testing.T) {
	schema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int"}]
	}`)

	c := NewChecker(DefaultConfig())
	for _, mode := range []Mode{ModeBackward, ModeForward, ModeFull} {
		result := c.Check(schema, schema, mode)
		assert.True(t, result.IsCompatible, "mode %s", mode)
		assert.Equal(t, LevelFull, result.Level)
		assert.Empty(t, result.BreakingChanges)
	}
}

func TestChecker_AddedField(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "name", "type": "string"}]
	}`)

	t.Run("without default breaks backward", func(t *testing.T) {
		newSchema := decodeSchema(t, `{
			"type": "record",
			"name": "User",
			"fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int"}]
		}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.False(t, result.IsCompatible)
		require.Len(t, result.BreakingChanges, 1)
		change := result.BreakingChanges[0]
		assert.Equal(t, ChangeAddedRequiredField, change.ChangeType)
		assert.Equal(t, "/fields/age", change.Path)
		assert.NotEmpty(t, change.Mitigation)
		assert.Equal(t, []string{"age"}, result.AddedFields)
	})

	t.Run("with default is a warning", func(t *testing.T) {
		newSchema := decodeSchema(t, `{
			"type": "record",
			"name": "User",
			"fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int", "default": 0}]
		}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
		assert.Empty(t, result.BreakingChanges)
		assert.Contains(t, changeTypes(result.Warnings), ChangeAddedRequiredField)
	})

	t.Run("explicit null default counts", func(t *testing.T) {
		newSchema := decodeSchema(t, `{
			"type": "record",
			"name": "User",
			"fields": [{"name": "name", "type": "string"}, {"name": "nick", "type": ["null", "string"], "default": null}]
		}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
	})
}

func TestChecker_RemovedField(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "name", "type": "string"}, {"name": "email", "type": "string"}]
	}`)
	newSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "name", "type": "string"}]
	}`)

	t.Run("backward tolerates the drop", func(t *testing.T) {
		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
		assert.Contains(t, changeTypes(result.Warnings), ChangeRemovedField)
		assert.Equal(t, []string{"email"}, result.RemovedFields)
	})

	t.Run("forward needs a default for the dropped field", func(t *testing.T) {
		result := c.Check(oldSchema, newSchema, ModeForward)
		assert.False(t, result.IsCompatible)
		assert.Contains(t, changeTypes(result.BreakingChanges), ChangeAddedRequiredField)
	})
}

func TestChecker_Promotions(t *testing.T) {
	c := NewChecker(DefaultConfig())

	allowed := []struct{ writer, reader string }{
		{"int", "long"}, {"int", "float"}, {"int", "double"},
		{"long", "float"}, {"long", "double"},
		{"float", "double"},
		{"string", "bytes"}, {"bytes", "string"},
	}
	for _, p := range allowed {
		t.Run(p.writer+" to "+p.reader, func(t *testing.T) {
			result := c.Check(p.writer, p.reader, ModeBackward)
			assert.True(t, result.IsCompatible)
		})
	}

	denied := []struct{ writer, reader string }{
		{"long", "int"}, {"double", "float"}, {"double", "int"},
		{"string", "int"}, {"boolean", "int"}, {"null", "string"},
	}
	for _, p := range denied {
		t.Run(p.writer+" to "+p.reader+" denied", func(t *testing.T) {
			result := c.Check(p.writer, p.reader, ModeBackward)
			assert.False(t, result.IsCompatible)
			assert.Contains(t, changeTypes(result.BreakingChanges), ChangeChangedFieldType)
		})
	}
}

func TestChecker_FieldTypePromotionInRecord(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "Metric",
		"fields": [{"name": "count", "type": "int"}]
	}`)
	newSchema := decodeSchema(t, `{
		"type": "record",
		"name": "Metric",
		"fields": [{"name": "count", "type": "long"}]
	}`)

	// int widens to long going backward, but old readers cannot narrow
	assert.True(t, c.Check(oldSchema, newSchema, ModeBackward).IsCompatible)
	assert.False(t, c.Check(oldSchema, newSchema, ModeForward).IsCompatible)

	full := c.Check(oldSchema, newSchema, ModeFull)
	assert.False(t, full.IsCompatible)
	assert.Equal(t, []string{"count"}, full.ModifiedFields)
}

func TestChecker_RenamedRecord(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "name", "type": "string"}]
	}`)

	t.Run("rename without alias breaks", func(t *testing.T) {
		newSchema := decodeSchema(t, `{
			"type": "record",
			"name": "Person",
			"fields": [{"name": "name", "type": "string"}]
		}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.False(t, result.IsCompatible)
		require.Len(t, result.BreakingChanges, 1)
		assert.Equal(t, ChangeChangedName, result.BreakingChanges[0].ChangeType)
		assert.Equal(t, "Add an alias for the old name", result.BreakingChanges[0].Mitigation)
	})

	t.Run("alias covers the old name", func(t *testing.T) {
		newSchema := decodeSchema(t, `{
			"type": "record",
			"name": "Person",
			"aliases": ["User"],
			"fields": [{"name": "name", "type": "string"}]
		}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
	})
}

func TestChecker_RenamedFieldWithAlias(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "name", "type": "string"}]
	}`)
	newSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [{"name": "fullName", "aliases": ["name"], "type": "string"}]
	}`)

	result := c.Check(oldSchema, newSchema, ModeBackward)
	assert.True(t, result.IsCompatible)
	assert.Empty(t, result.Warnings)
}

func TestChecker_Enums(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{"type": "enum", "name": "Status", "symbols": ["ACTIVE", "PAUSED", "CLOSED"]}`)

	t.Run("removed symbol without default breaks", func(t *testing.T) {
		newSchema := decodeSchema(t, `{"type": "enum", "name": "Status", "symbols": ["ACTIVE", "PAUSED"]}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.False(t, result.IsCompatible)
		require.Len(t, result.BreakingChanges, 1)
		assert.Equal(t, ChangeRemovedEnumSymbol, result.BreakingChanges[0].ChangeType)
		assert.Equal(t, "/symbols/CLOSED", result.BreakingChanges[0].Path)
	})

	t.Run("reader default downgrades the removal", func(t *testing.T) {
		newSchema := decodeSchema(t, `{"type": "enum", "name": "Status", "symbols": ["ACTIVE", "PAUSED"], "default": "ACTIVE"}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
		assert.Contains(t, changeTypes(result.Warnings), ChangeRemovedEnumSymbol)
	})

	t.Run("added symbols are fine", func(t *testing.T) {
		newSchema := decodeSchema(t, `{"type": "enum", "name": "Status", "symbols": ["ACTIVE", "PAUSED", "CLOSED", "ARCHIVED"]}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
		assert.Empty(t, result.Warnings)
	})

	t.Run("reordered symbols warn", func(t *testing.T) {
		newSchema := decodeSchema(t, `{"type": "enum", "name": "Status", "symbols": ["CLOSED", "PAUSED", "ACTIVE"]}`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
		assert.Contains(t, changeTypes(result.Warnings), ChangeChangedEnumOrder)
	})
}

func TestChecker_Fixed(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{"type": "fixed", "name": "Digest", "size": 16}`)
	newSchema := decodeSchema(t, `{"type": "fixed", "name": "Digest", "size": 32}`)

	result := c.Check(oldSchema, newSchema, ModeBackward)
	assert.False(t, result.IsCompatible)
	require.Len(t, result.BreakingChanges, 1)
	change := result.BreakingChanges[0]
	assert.Equal(t, ChangeChangedSize, change.ChangeType)
	assert.Equal(t, "16", change.OldValue)
	assert.Equal(t, "32", change.NewValue)
}

func TestChecker_Unions(t *testing.T) {
	c := NewChecker(DefaultConfig())

	t.Run("widened union is backward compatible", func(t *testing.T) {
		oldSchema := decodeSchema(t, `["null", "string"]`)
		newSchema := decodeSchema(t, `["null", "string", "int"]`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
	})

	t.Run("narrowed union breaks", func(t *testing.T) {
		oldSchema := decodeSchema(t, `["null", "string", "int"]`)
		newSchema := decodeSchema(t, `["null", "string"]`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.False(t, result.IsCompatible)
		require.Len(t, result.BreakingChanges, 1)
		assert.Equal(t, ChangeIncompatibleUnion, result.BreakingChanges[0].ChangeType)
		assert.Equal(t, "/[2]", result.BreakingChanges[0].Path)
	})

	t.Run("members resolve via promotion", func(t *testing.T) {
		oldSchema := decodeSchema(t, `["null", "int"]`)
		newSchema := decodeSchema(t, `["null", "long"]`)

		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.True(t, result.IsCompatible)
	})
}

func TestChecker_NestedStructures(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "Order",
		"fields": [
			{"name": "items", "type": {"type": "array", "items": {
				"type": "record",
				"name": "Item",
				"fields": [{"name": "sku", "type": "string"}, {"name": "qty", "type": "int"}]
			}}},
			{"name": "labels", "type": {"type": "map", "values": "string"}}
		]
	}`)
	newSchema := decodeSchema(t, `{
		"type": "record",
		"name": "Order",
		"fields": [
			{"name": "items", "type": {"type": "array", "items": {
				"type": "record",
				"name": "Item",
				"fields": [{"name": "sku", "type": "string"}, {"name": "qty", "type": "long"}]
			}}},
			{"name": "labels", "type": {"type": "map", "values": "string"}}
		]
	}`)

	backward := c.Check(oldSchema, newSchema, ModeBackward)
	assert.True(t, backward.IsCompatible)

	forward := c.Check(oldSchema, newSchema, ModeForward)
	assert.False(t, forward.IsCompatible)
	require.Len(t, forward.BreakingChanges, 1)
	assert.Equal(t, "/fields/items/items/fields/qty", forward.BreakingChanges[0].Path)
}

func TestChecker_ModeNone(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{"type": "record", "name": "A", "fields": [{"name": "x", "type": "int"}]}`)
	newSchema := decodeSchema(t, `{"type": "record", "name": "B", "fields": [{"name": "y", "type": "string"}]}`)

	result := c.Check(oldSchema, newSchema, ModeNone)
	assert.True(t, result.IsCompatible)
	assert.Empty(t, result.BreakingChanges)
	assert.Equal(t, LevelFull, result.Level)
}

func TestChecker_DefaultModeFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompatibilityMode = ModeForward
	c := NewChecker(cfg)

	oldSchema := decodeSchema(t, `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}, {"name": "email", "type": "string"}]}`)
	newSchema := decodeSchema(t, `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`)

	// Dropping a required field is forward-incompatible, so the empty mode
	// must have fallen back to FORWARD.
	result := c.Check(oldSchema, newSchema, "")
	assert.Equal(t, ModeForward, result.Mode)
	assert.False(t, result.IsCompatible)
}

func TestChecker_LevelHeuristic(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`)

	t.Run("clean check reports FULL", func(t *testing.T) {
		result := c.Check(oldSchema, oldSchema, ModeBackward)
		assert.Equal(t, LevelFull, result.Level)
	})

	t.Run("added required field leaves FORWARD open", func(t *testing.T) {
		newSchema := decodeSchema(t, `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int"}]}`)
		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.False(t, result.IsCompatible)
		assert.Equal(t, LevelForward, result.Level)
	})

	t.Run("changed field type reports NONE", func(t *testing.T) {
		newSchema := decodeSchema(t, `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "int"}]}`)
		result := c.Check(oldSchema, newSchema, ModeBackward)
		assert.False(t, result.IsCompatible)
		assert.Equal(t, LevelNone, result.Level)
	})
}

func TestChecker_InvalidInputs(t *testing.T) {
	c := NewChecker(DefaultConfig())
	valid := decodeSchema(t, `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`)
	invalid := decodeSchema(t, `{"type": "record", "name": "User"}`)

	t.Run("invalid old schema", func(t *testing.T) {
		result := c.Check(invalid, valid, ModeBackward)
		assert.False(t, result.IsCompatible)
		assert.Equal(t, LevelNone, result.Level)
		require.Len(t, result.BreakingChanges, 1)
		assert.Contains(t, result.BreakingChanges[0].Message, "Failed to parse old schema")
	})

	t.Run("invalid new schema", func(t *testing.T) {
		result := c.Check(valid, invalid, ModeBackward)
		assert.False(t, result.IsCompatible)
		assert.Contains(t, result.BreakingChanges[0].Message, "Failed to parse new schema")
	})

	t.Run("nil schemas", func(t *testing.T) {
		result := c.Check(nil, valid, ModeBackward)
		assert.False(t, result.IsCompatible)
	})
}

func TestChecker_CheckBytes(t *testing.T) {
	c := NewChecker(DefaultConfig())

	t.Run("malformed JSON", func(t *testing.T) {
		result := c.CheckBytes([]byte(`{`), []byte(`"string"`), ModeBackward)
		assert.False(t, result.IsCompatible)
		assert.Contains(t, result.BreakingChanges[0].Message, "Failed to parse old schema")
	})

	t.Run("valid pair", func(t *testing.T) {
		result := c.CheckBytes([]byte(`"int"`), []byte(`"long"`), ModeBackward)
		assert.True(t, result.IsCompatible)
	})
}

func TestChecker_CheckFiles(t *testing.T) {
	c := NewChecker(DefaultConfig())

	result := c.CheckFiles("testdata/missing-old.avsc", "testdata/missing-new.avsc", ModeBackward)
	assert.False(t, result.IsCompatible)
	assert.Contains(t, result.BreakingChanges[0].Message, "Failed to parse old schema")
}

func TestChecker_FieldDiffSummary(t *testing.T) {
	c := NewChecker(DefaultConfig())
	oldSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "email", "type": "string"},
			{"name": "age", "type": "int"}
		]
	}`)
	newSchema := decodeSchema(t, `{
		"type": "record",
		"name": "User",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "age", "type": "long"},
			{"name": "phone", "type": "string", "default": ""}
		]
	}`)

	result := c.Check(oldSchema, newSchema, ModeBackward)
	assert.Equal(t, []string{"phone"}, result.AddedFields)
	assert.Equal(t, []string{"email"}, result.RemovedFields)
	assert.Equal(t, []string{"age"}, result.ModifiedFields)
}
