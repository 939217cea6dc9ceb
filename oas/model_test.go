package oas

import (
	"testing"

	"github.com/reoring/clientflow/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shaped like a pydantic model_json_schema() document.
func standardModel() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"user", "now"},
		"properties": map[string]any{
			"user": map[string]any{"allOf": []any{map[string]any{"$ref": "#/$defs/User"}}},
			"now":  map[string]any{"type": "number"},
		},
		"$defs": map[string]any{
			"User": map[string]any{
				"type":     "object",
				"required": []any{"name", "given_name", "tags"},
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"given_name": map[string]any{"anyOf": []any{
						map[string]any{"type": "string"},
						map[string]any{"type": "null"},
					}},
					"email": map[string]any{"type": "string"},
					"tags": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/$defs/Tag"},
					},
				},
			},
			"Tag": map[string]any{
				"type":       "object",
				"required":   []any{"slug"},
				"properties": map[string]any{"slug": map[string]any{"type": "string"}},
			},
		},
	}
}

func TestExtractFromModelSchema(t *testing.T) {
	doc := standardModel()
	tests := []struct {
		path    deep.Path
		typ     string
		missing bool
	}{
		{deep.P("now"), "number", false},
		{deep.P("user", "name"), "string", false},
		{deep.P("user", "given_name"), "string", true},
		{deep.P("user", "email"), "string", true},
		{deep.P("user", "tags", deep.Wildcard(), "slug"), "string", false},
	}
	for _, tc := range tests {
		t.Run(tc.path.Pretty(), func(t *testing.T) {
			r := ExtractFromModelSchema(doc, tc.path)
			require.True(t, r.OK, r.Reason)
			assert.Equal(t, tc.typ, TypeOf(r.Schema))
			assert.Equal(t, tc.missing, r.PotentiallyMissingOrNone)
		})
	}
}

func TestExtractFromModelSchema_Failures(t *testing.T) {
	doc := standardModel()
	tests := []struct {
		path   deep.Path
		reason string
	}{
		{deep.P("user", "nope"), `property "nope" is not declared`},
		{deep.P("user", "tags", 0), "only [*] is accepted"},
		{deep.P("user", "name", "x"), `cannot address into type "string"`},
	}
	for _, tc := range tests {
		r := ExtractFromModelSchema(doc, tc.path)
		assert.False(t, r.OK)
		assert.Contains(t, r.Reason, tc.reason)
	}

	bad := standardModel()
	bad["properties"].(map[string]any)["user"] = map[string]any{"$ref": "#/$defs/Missing"}
	r := ExtractFromModelSchema(bad, deep.P("user", "name"))
	assert.False(t, r.OK)
	assert.Contains(t, r.Reason, "unknown definition")

	cyclic := map[string]any{
		"$ref":  "#/$defs/A",
		"$defs": map[string]any{"A": map[string]any{"$ref": "#/$defs/A"}},
	}
	r = ExtractFromModelSchema(cyclic, deep.Path{})
	assert.False(t, r.OK)
}

func TestInlineRefs(t *testing.T) {
	doc := map[string]any{
		"components": map[string]any{"schemas": map[string]any{
			"Name": map[string]any{"type": "string", "minLength": 1},
			"Person": map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"$ref": "#/components/schemas/Name"}},
			},
		}},
	}
	schema := map[string]any{"$ref": "#/components/schemas/Person", "description": "who"}

	out, err := InlineRefs(doc, schema)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"type":        "object",
		"description": "who",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "minLength": 1},
		},
	}, out)
	// inputs untouched
	assert.Equal(t, "#/components/schemas/Person", schema["$ref"])
	person := doc["components"].(map[string]any)["schemas"].(map[string]any)["Person"].(map[string]any)
	assert.Contains(t, person["properties"].(map[string]any)["name"], "$ref")

	doc["components"].(map[string]any)["schemas"].(map[string]any)["Loop"] = map[string]any{
		"type":       "object",
		"properties": map[string]any{"next": map[string]any{"$ref": "#/components/schemas/Loop"}},
	}
	_, err = InlineRefs(doc, map[string]any{"$ref": "#/components/schemas/Loop"})
	assert.ErrorContains(t, err, "cyclic")
}
