package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cadernos-ingest/constants"
)

// recordSchemaMap mirrors the destination table: every column is a string
// capped at 255 characters, the full name and birth date are mandatory for
// persistence, and the roll type is a closed enum.
func recordSchemaMap() map[string]any {
	enum := make([]any, 0, 3)
	for _, rt := range constants.RollTypesAsStringSlice() {
		enum = append(enum, rt)
	}

	column := func(extra map[string]any) map[string]any {
		m := map[string]any{"type": "string", "maxLength": 255}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	return map[string]any{
		"type":     "object",
		"required": []any{"nome_completo", "data_nascimento", "file_name"},
		"properties": map[string]any{
			"nome_completo":   column(map[string]any{"minLength": 1}),
			"parent_1":        column(nil),
			"parent_2":        column(nil),
			"data_nascimento": column(map[string]any{"pattern": `^[0-9]{2}-[0-9]{2}-[0-9]{4}$`}),
			"concelho":        column(nil),
			"posto":           column(nil),
			"type":            column(map[string]any{"enum": enum}),
			"file_name":       column(map[string]any{"minLength": 1}),
		},
	}
}

// CompileSchema compiles "schemaMap" into a reusable validator.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

var recordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema(recordSchemaMap())
})

// ValidateRecord checks a record against the destination schema. Records
// that fail here are counted and skipped, never inserted.
func (r *Record) Validate() error {
	schema, err := recordSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
