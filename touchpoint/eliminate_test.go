package touchpoint

import (
	"testing"

	"github.com/reoring/clientflow/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctaNode(t *testing.T) map[string]any {
	t.Helper()
	n, ok := templateSchema()["properties"].(map[string]any)["cta"].(map[string]any)
	require.True(t, ok)
	return n
}

func TestCompileContext_Discriminator(t *testing.T) {
	cc := NewCompileContext()
	node := ctaNode(t)

	info, ok := cc.Discriminator(deep.P("cta"), node)
	require.True(t, ok)
	assert.Equal(t, "kind", info.Property)
	assert.Equal(t, []string{"link", "button"}, info.Values)
	assert.Equal(t, []int{0, 1}, info.Remaining())

	again, _ := cc.Discriminator(deep.P("cta"), node)
	assert.Same(t, info, again)

	_, ok = cc.Discriminator(deep.P("name"), map[string]any{"type": "string"})
	assert.False(t, ok)
}

func TestCompileContext_ConstAndXEnumDiscriminators(t *testing.T) {
	node := map[string]any{
		"x-enum-discriminator": "type",
		"oneOf": []any{
			map[string]any{"type": "object", "properties": map[string]any{"type": map[string]any{"const": "a"}}},
			map[string]any{"type": "object", "properties": map[string]any{"other": map[string]any{"type": "string"}}},
		},
	}
	info, ok := NewCompileContext().Discriminator(deep.Path{}, node)
	require.True(t, ok)
	assert.Equal(t, []int{0}, info.Remaining())
	reason, gone := info.Eliminated(1)
	assert.True(t, gone)
	assert.Contains(t, reason, "does not pin type")
}

func TestCompileContext_CloneInheritingEliminations(t *testing.T) {
	tmpl := templateSchema()

	// nothing fixed: sibling substitutions may settle on different branches
	cc := NewCompileContext()
	require.NoError(t, checkFixed(cc, tmpl, map[string]any{"cta": map[string]any{}}, deep.Path{}))
	info, _ := cc.Discriminator(deep.P("cta"), ctaNode(t))
	require.Equal(t, []int{0, 1}, info.Remaining())

	a := cc.CloneInheritingEliminations()
	require.NoError(t, checkTarget(a, tmpl, deep.P("cta", "url"), deep.Path{}))
	infoA, _ := a.Discriminator(deep.P("cta"), ctaNode(t))
	assert.Equal(t, []int{0}, infoA.Remaining())

	b := cc.CloneInheritingEliminations()
	require.NoError(t, checkTarget(b, tmpl, deep.P("cta", "label"), deep.Path{}))
	infoB, _ := b.Discriminator(deep.P("cta"), ctaNode(t))
	assert.Equal(t, []int{1}, infoB.Remaining())

	assert.Equal(t, []int{0, 1}, info.Remaining(), "clones must not eliminate in their parent")

	// a fixed discriminator is inherited by every clone
	fixed := NewCompileContext()
	require.NoError(t, checkFixed(fixed, tmpl, map[string]any{"cta": map[string]any{"kind": "link"}}, deep.Path{}))
	c := fixed.CloneInheritingEliminations()
	err := checkTarget(c, tmpl, deep.P("cta", "label"), deep.Path{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `kind="button": fixed kind is "link"`)
}

func TestCheckFixed_NestedEliminationsOnlyWhenSettled(t *testing.T) {
	tmpl := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outer": map[string]any{
				"discriminator": map[string]any{"propertyName": "t"},
				"oneOf": []any{
					map[string]any{"type": "object", "properties": map[string]any{
						"t":     map[string]any{"type": "string", "enum": []any{"x"}},
						"inner": ctaNodeLiteral(),
					}},
					map[string]any{"type": "object", "properties": map[string]any{
						"t":     map[string]any{"type": "string", "enum": []any{"y"}},
						"inner": ctaNodeLiteral(),
					}},
				},
			},
		},
	}
	value := map[string]any{"outer": map[string]any{"t": "x", "inner": map[string]any{"kind": "button"}}}

	cc := NewCompileContext()
	require.NoError(t, checkFixed(cc, tmpl, value, deep.Path{}))
	inner, ok := cc.Discriminator(deep.P("outer", "inner"), ctaNodeLiteral())
	require.True(t, ok)
	assert.Equal(t, []int{1}, inner.Remaining())
}

func ctaNodeLiteral() map[string]any {
	return templateSchema()["properties"].(map[string]any)["cta"].(map[string]any)
}

func TestAddressable(t *testing.T) {
	schema := eventSchema()
	assert.NoError(t, addressable(schema, deep.P("journey", "kind")))
	assert.NoError(t, addressable(schema, deep.P("meta")))
	assert.NoError(t, addressable(schema, deep.Path{}))
	assert.ErrorContains(t, addressable(schema, deep.P("missing")), "$.missing is not declared")
}
