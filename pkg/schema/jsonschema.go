package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Usage: see https://github.com/invopop/jsonschema?tab=readme-ov-file
//
// Field names are taken from yaml tags because the reflected types are
// yaml config documents.
func Get[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	var v T
	return reflector.Reflect(v)
}

// Indented renders the schema of T as indented JSON.
func Indented[T any]() ([]byte, error) {
	return json.MarshalIndent(Get[T](), "", "  ")
}
