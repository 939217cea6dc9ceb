package oas

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed metaschema.json
var metaSchemaJSON []byte

var (
	metaOnce   sync.Once
	metaSchema *gojsonschema.Schema
	metaErr    error
)

func compiledMetaSchema() (*gojsonschema.Schema, error) {
	metaOnce.Do(func() {
		metaSchema, metaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(metaSchemaJSON))
	})
	return metaSchema, metaErr
}

// conformsToMetaSchema validates that schema is an OpenAPI 3.0.3 schema object.
func conformsToMetaSchema(schema map[string]any) error {
	meta, err := compiledMetaSchema()
	if err != nil {
		return fmt.Errorf("compile meta-schema: %w", err)
	}
	res, err := meta.Validate(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return err
	}
	if !res.Valid() {
		return resultError(res)
	}
	return nil
}

// ToJSONSchema converts an OpenAPI 3.0 schema object into an equivalent
// draft-04 JSON Schema: nullable nodes accept null, annotations and
// extensions are dropped.
func ToJSONSchema(schema map[string]any) map[string]any {
	out := convertNode(schema)
	out["$schema"] = "http://json-schema.org/draft-04/schema#"
	return out
}

func convertNode(node map[string]any) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		switch {
		case strings.HasPrefix(k, "x-"):
		case k == "nullable", k == "example", k == "default", k == "discriminator",
			k == "readOnly", k == "writeOnly", k == "deprecated", k == "xml", k == "externalDocs":
		case k == "properties", k == "patternProperties":
			m, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			conv := make(map[string]any, len(m))
			for name, sub := range m {
				if s, ok := sub.(map[string]any); ok {
					conv[name] = convertNode(s)
				} else {
					conv[name] = sub
				}
			}
			out[k] = conv
		case k == "items", k == "additionalProperties", k == "additionalItems", k == "not":
			if s, ok := v.(map[string]any); ok {
				out[k] = convertNode(s)
			} else {
				out[k] = v
			}
		case k == "allOf", k == "anyOf", k == "oneOf":
			list := SchemaList(v)
			conv := make([]any, 0, len(list))
			for _, s := range list {
				if s == nil {
					conv = append(conv, map[string]any{})
					continue
				}
				conv = append(conv, convertNode(s))
			}
			out[k] = conv
		default:
			out[k] = v
		}
	}
	if IsNullable(node) {
		return map[string]any{"anyOf": []any{map[string]any{"type": "null"}, out}}
	}
	return out
}

// ValidateValue checks value against an OpenAPI 3.0 schema object.
func ValidateValue(schema map[string]any, value any) error {
	res, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ToJSONSchema(schema)),
		gojsonschema.NewGoLoader(value),
	)
	if err != nil {
		return err
	}
	if !res.Valid() {
		return resultError(res)
	}
	return nil
}

func resultError(res *gojsonschema.Result) error {
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}
