package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "mem://jikanwari/timetable.schema.json"

// recordSchema is the contract every dataset must satisfy before it is
// decoded into records.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "anyOf": [
      {"required": ["クラス", "曜日", "時限", "科目"]},
      {"required": ["class", "weekday", "period", "subject"]}
    ],
    "properties": {
      "クラス": {"type": "string"},
      "class": {"type": "string"},
      "曜日": {"type": "string"},
      "weekday": {"type": "string"},
      "時限": {"type": ["string", "number"]},
      "period": {"type": ["string", "number"]},
      "科目": {"type": "string"},
      "subject": {"type": "string"},
      "担当教師": {"type": ["string", "null"]},
      "teacher": {"type": ["string", "null"]},
      "教室": {"type": ["string", "null"]},
      "room": {"type": ["string", "null"]}
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(recordSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks raw JSON against the record contract.
func Validate(raw []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	var payload any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return &Error{Kind: KindMalformed, Err: err}
	}
	if err := schema.Validate(payload); err != nil {
		return &Error{Kind: KindInvalid, Err: err}
	}
	return nil
}
