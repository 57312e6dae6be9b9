package parsing

import (
	"encoding/json"

	"github.com/jonathan/repocompare/internal/schemas"
)

// Decode extracts JSON from raw, validates it against the named embedded schema and unmarshals it into out.
// An empty schema name skips validation. Every failure is a *ParseError.
func Decode(raw, schemaName string, out any) error {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return err
	}

	if schemaName != "" {
		if err := schemas.Validate(schemaName, doc); err != nil {
			return &ParseError{Stage: StageSchema, Message: "response does not match schema " + schemaName, Raw: raw, Cause: err}
		}
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return &ParseError{Stage: StageDecode, Message: "failed to decode response", Raw: raw, Cause: err}
	}
	return nil
}

// Extras returns the top-level fields of the JSON object in raw that are not listed in known.
func Extras(raw string, known ...string) map[string]any {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return nil
	}
	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
