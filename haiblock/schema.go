package haiblock

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaContent    = "content"
	schemaTransform  = "transform"
	schemaSubmission = "submission"
	schemaAnalytics  = "analytics"
	schemaPage       = "page"
)

var schemas = mustLoadSchemas(schemaContent, schemaTransform, schemaSubmission, schemaAnalytics, schemaPage)

func mustLoadSchemas(names ...string) map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(names))
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			panic(fmt.Sprintf("haiblock: missing schema %s: %v", name, err))
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("haiblock: invalid schema %s: %v", name, err))
		}
		out[name] = schema
	}
	return out
}

// validate checks body against the named schema.
func validate(name string, body []byte) error {
	result, err := schemas[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &SchemaError{Schema: name, Problems: []string{"malformed JSON"}, Err: err}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &SchemaError{Schema: name, Problems: problems}
}

// decode validates body against the named schema and unmarshals it into v.
func decode(name string, body []byte, v any) error {
	if err := validate(name, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &SchemaError{Schema: name, Problems: []string{err.Error()}, Err: err}
	}
	return nil
}
