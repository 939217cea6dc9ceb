package touchpoint

import (
	"context"
	"fmt"
)

func eventSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"user", "journey", "items", "meta"},
		"properties": map[string]any{
			"user": map[string]any{
				"type":     "object",
				"required": []any{"name"},
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"nickname": map[string]any{"type": "string", "nullable": true},
				},
			},
			"journey": map[string]any{
				"type":                 "object",
				"x-enum-discriminator": "kind",
				"oneOf": []any{
					map[string]any{
						"type":     "object",
						"required": []any{"kind", "title"},
						"properties": map[string]any{
							"kind":  map[string]any{"type": "string", "enum": []any{"video"}},
							"title": map[string]any{"type": "string"},
						},
					},
					map[string]any{
						"type":     "object",
						"required": []any{"kind", "title", "url"},
						"properties": map[string]any{
							"kind":  map[string]any{"type": "string", "enum": []any{"link"}},
							"title": map[string]any{"type": "string"},
							"url":   map[string]any{"type": "string"},
						},
					},
				},
			},
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
			"meta": map[string]any{
				"type":     "object",
				"nullable": true,
				"required": []any{"source"},
				"properties": map[string]any{
					"source": map[string]any{"type": "string"},
				},
			},
			"note": map[string]any{"type": "string"},
		},
	}
}

// templateSchema is shaped like a generated request body schema with its
// references already inlined.
func templateSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"name", "cta"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"greeting": map[string]any{
				"anyOf":   []any{map[string]any{"type": "string"}, map[string]any{"type": "null"}},
				"default": nil,
			},
			"cta": map[string]any{
				"discriminator": map[string]any{"propertyName": "kind"},
				"oneOf": []any{
					map[string]any{
						"type":     "object",
						"required": []any{"kind", "url"},
						"properties": map[string]any{
							"kind": map[string]any{"type": "string", "enum": []any{"link"}},
							"url":  map[string]any{"type": "string"},
						},
					},
					map[string]any{
						"type":     "object",
						"required": []any{"kind", "label"},
						"properties": map[string]any{
							"kind":  map[string]any{"type": "string", "enum": []any{"button"}},
							"label": map[string]any{"type": "string"},
							"size":  map[string]any{"type": "integer"},
						},
					},
				},
			},
		},
	}
}

type fakeTemplates struct {
	schemas map[string]map[string]any
	err     error
	calls   int
}

func (f *fakeTemplates) TemplateSchema(_ context.Context, slug string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.schemas[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, slug)
	}
	return s, nil
}
