package oas

import (
	"fmt"
	"strings"

	"github.com/reoring/clientflow/deep"
)

// maxInlineDepth bounds ref chains so that cyclic documents terminate.
const maxInlineDepth = 64

var refPrefixes = []string{"#/$defs/", "#/definitions/", "#/components/schemas/"}

// ModelResult is the answer of ExtractFromModelSchema. It is a value rather
// than an error because callers use it for advisory checks.
type ModelResult struct {
	OK     bool
	Schema map[string]any
	// PotentiallyMissingOrNone is true when any step on the path was
	// nullable or not required.
	PotentiallyMissingOrNone bool
	// Reason explains a failed lookup.
	Reason string
}

func modelFail(path deep.Path, i int, format string, args ...any) ModelResult {
	if i > len(path) {
		i = len(path)
	}
	return ModelResult{Reason: fmt.Sprintf(format, args...) + " at " + path[:i].Pretty()}
}

// ExtractFromModelSchema resolves path against a code-generated schema
// document. Local refs, single-item allOf wrappers and anyOf-with-null
// nullability are inlined while walking. Object nodes take key segments;
// array nodes take the wildcard segment only.
func ExtractFromModelSchema(document map[string]any, path deep.Path) ModelResult {
	defs := modelDefs(document)
	cur := document
	maybeMissing := false
	for i := 0; ; i++ {
		node, nullable, err := inlineModelNode(cur, defs)
		if err != nil {
			return modelFail(path, i, "%v", err)
		}
		cur = node
		if nullable {
			maybeMissing = true
		}
		if i == len(path) {
			return ModelResult{OK: true, Schema: cur, PotentiallyMissingOrNone: maybeMissing}
		}

		seg := path[i]
		switch TypeOf(cur) {
		case "object":
			if !seg.IsKey() {
				return modelFail(path, i, "object addressed by %s", seg)
			}
			sub, ok := Property(cur, seg.Key)
			if !ok {
				return modelFail(path, i, "property %q is not declared", seg.Key)
			}
			if !Required(cur)[seg.Key] {
				maybeMissing = true
			}
			cur = sub
		case "array":
			if !seg.IsWildcard() {
				return modelFail(path, i, "array addressed by %s; only [*] is accepted", seg)
			}
			items, ok := Items(cur)
			if !ok {
				return modelFail(path, i, "array has no items")
			}
			cur = items
		default:
			return modelFail(path, i, "cannot address into type %q", TypeOf(cur))
		}
	}
}

func modelDefs(doc map[string]any) map[string]any {
	defs := map[string]any{}
	for _, src := range []any{doc["$defs"], doc["definitions"]} {
		if m, ok := src.(map[string]any); ok {
			for k, v := range m {
				defs[k] = v
			}
		}
	}
	if comps, ok := doc["components"].(map[string]any); ok {
		if m, ok := comps["schemas"].(map[string]any); ok {
			for k, v := range m {
				defs[k] = v
			}
		}
	}
	return defs
}

func lookupRef(ref string, defs map[string]any) (map[string]any, error) {
	for _, p := range refPrefixes {
		if name, ok := strings.CutPrefix(ref, p); ok {
			target, ok := defs[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("$ref to unknown definition %q", name)
			}
			return target, nil
		}
	}
	return nil, fmt.Errorf("$ref %q not supported (local definitions only)", ref)
}

// inlineModelNode unwraps $ref, single-item allOf and anyOf [X, null] until
// a concrete node remains. nullable reports whether any unwrapped layer
// admitted null.
func inlineModelNode(node map[string]any, defs map[string]any) (map[string]any, bool, error) {
	nullable := IsNullable(node)
	for depth := 0; depth < maxInlineDepth; depth++ {
		if ref, ok := node["$ref"].(string); ok {
			target, err := lookupRef(ref, defs)
			if err != nil {
				return nil, false, err
			}
			node = target
			nullable = nullable || IsNullable(node)
			continue
		}
		if all := SchemaList(node["allOf"]); len(all) == 1 && all[0] != nil {
			node = all[0]
			nullable = nullable || IsNullable(node)
			continue
		}
		if alts := SchemaList(node["anyOf"]); len(alts) > 0 {
			var options []map[string]any
			sawNull := false
			for _, o := range alts {
				if o != nil && TypeOf(o) == "null" {
					sawNull = true
					continue
				}
				options = append(options, o)
			}
			if len(options) != 1 || options[0] == nil {
				return nil, false, fmt.Errorf("anyOf is only supported as a nullable wrapper around one schema")
			}
			node = options[0]
			nullable = nullable || sawNull || IsNullable(node)
			continue
		}
		return node, nullable, nil
	}
	return nil, false, fmt.Errorf("$ref chain deeper than %d (cycle?)", maxInlineDepth)
}

// UnwrapModelNode strips single-item allOf and anyOf [X, null] wrappers from
// a generated schema node whose $refs were already inlined. nullable reports
// whether a wrapper admitted null.
func UnwrapModelNode(node map[string]any) (map[string]any, bool, error) {
	return inlineModelNode(node, nil)
}

// InlineRefs returns a copy of schema with every local $ref replaced by its
// definition, looked up in document. Sibling keys of a $ref win over the
// referenced definition. Recursive definitions are an error.
func InlineRefs(document, schema map[string]any) (map[string]any, error) {
	defs := modelDefs(document)
	out, err := inlineAny(schema, defs, map[string]bool{})
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	return m, nil
}

func inlineAny(v any, defs map[string]any, visiting map[string]bool) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			if visiting[ref] {
				return nil, fmt.Errorf("cyclic $ref %q", ref)
			}
			target, err := lookupRef(ref, defs)
			if err != nil {
				return nil, err
			}
			visiting[ref] = true
			resolved, err := inlineAny(target, defs, visiting)
			delete(visiting, ref)
			if err != nil {
				return nil, err
			}
			merged, _ := resolved.(map[string]any)
			for k, sv := range t {
				if k == "$ref" {
					continue
				}
				c, err := inlineAny(sv, defs, visiting)
				if err != nil {
					return nil, err
				}
				merged[k] = c
			}
			return merged, nil
		}
		out := make(map[string]any, len(t))
		for k, sv := range t {
			if k == "example" || k == "default" || k == "enum" {
				out[k] = deep.Copy(sv)
				continue
			}
			c, err := inlineAny(sv, defs, visiting)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, sv := range t {
			c, err := inlineAny(sv, defs, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}
