package oas

import (
	"fmt"

	"github.com/reoring/clientflow/deep"
)

// ExtractValueAndSubschema walks schema and value together along path and
// returns the subschema and subvalue found there.
//
// A nullable node holding null answers ({"type": "null"}, nil) whatever path
// remains, as does an optional property missing from value or an array index
// past the end. A required property missing from value is an error.
func ExtractValueAndSubschema(schema map[string]any, value any, path deep.Path) (map[string]any, any, error) {
	r, err := walkValue(schema, value, path, false)
	if err != nil {
		return nil, nil, err
	}
	return r.schema, r.value, nil
}

// Split is the result of SplitInputPath.
type Split struct {
	// IsSplit is true when the walk stopped at a formatted string: the value
	// is a reference and ExtractPath addresses into the referenced entity.
	IsSplit bool
	// InputPath is the part of the path that was walked.
	InputPath deep.Path
	// ExtractPath is the remainder (empty unless IsSplit).
	ExtractPath deep.Path
	Schema      map[string]any
	Value       any
}

// IsNull reports whether the walk ended on a known-absent value.
func (s Split) IsNull() bool { return TypeOf(s.Schema) == "null" || s.Value == nil }

// SplitInputPath walks like ExtractValueAndSubschema but stops at the first
// string node declaring a format while path segments remain.
func SplitInputPath(schema map[string]any, value any, path deep.Path) (Split, error) {
	r, err := walkValue(schema, value, path, true)
	if err != nil {
		return Split{}, err
	}
	out := Split{
		IsSplit:   r.split,
		InputPath: append(deep.Path{}, path[:r.consumed]...),
		Schema:    r.schema,
		Value:     r.value,
	}
	if r.split {
		out.ExtractPath = append(deep.Path{}, path[r.consumed:]...)
	}
	return out, nil
}

type walkResult struct {
	schema   map[string]any
	value    any
	consumed int
	split    bool
}

func walkValue(schema map[string]any, value any, path deep.Path, stopAtFormat bool) (walkResult, error) {
	i := 0
	for {
		if IsNullable(schema) && value == nil {
			return walkResult{schema: NullSchema(), consumed: i}, nil
		}
		if TypeOf(schema) == "object" {
			if _, ok := Discriminator(schema); ok {
				obj, ok := value.(map[string]any)
				if !ok {
					return walkResult{}, resolveErr(path, i, "discriminated union needs an object value", deep.ErrExpectedMapping)
				}
				branch, ok := SelectBranch(schema, obj)
				if !ok {
					return walkResult{}, resolveErr(path, i, "no oneOf branch matches the discriminator value", nil)
				}
				schema = branch
			}
		}
		if i == len(path) {
			return walkResult{schema: schema, value: value, consumed: i}, nil
		}

		seg := path[i]
		switch TypeOf(schema) {
		case "object":
			if !seg.IsKey() {
				return walkResult{}, resolveErr(path, i, fmt.Sprintf("object schema addressed by %s", seg), deep.ErrExpectedMapping)
			}
			obj, ok := value.(map[string]any)
			if !ok {
				return walkResult{}, resolveErr(path, i, "object schema holds a non-object value", deep.ErrExpectedMapping)
			}
			sub, ok := Property(schema, seg.Key)
			if !ok {
				return walkResult{}, resolveErr(path, i+1, fmt.Sprintf("property %q is not declared", seg.Key), nil)
			}
			v, present := obj[seg.Key]
			if !present {
				if Required(schema)[seg.Key] {
					return walkResult{}, resolveErr(path, i+1, fmt.Sprintf("required property %q is missing", seg.Key), deep.ErrMissingKey)
				}
				return walkResult{schema: NullSchema(), consumed: i + 1}, nil
			}
			schema, value = sub, v
		case "array":
			if !seg.IsIndex() {
				return walkResult{}, resolveErr(path, i, fmt.Sprintf("array schema addressed by %q", seg.String()), deep.ErrExpectedSequence)
			}
			arr, ok := value.([]any)
			if !ok {
				return walkResult{}, resolveErr(path, i, "array schema holds a non-array value", deep.ErrExpectedSequence)
			}
			items, ok := Items(schema)
			if !ok {
				return walkResult{}, resolveErr(path, i, "array schema has no items", nil)
			}
			if seg.Index < 0 || seg.Index >= len(arr) {
				return walkResult{schema: NullSchema(), consumed: i + 1}, nil
			}
			schema, value = items, arr[seg.Index]
		case "string":
			if stopAtFormat && FormatOf(schema) != "" {
				return walkResult{schema: schema, value: value, consumed: i, split: true}, nil
			}
			return walkResult{}, resolveErr(path, i, "cannot address into a string", nil)
		default:
			return walkResult{}, resolveErr(path, i, fmt.Sprintf("cannot address into type %q", TypeOf(schema)), nil)
		}
		i++
	}
}

// DefaultResult is what a consumer would observe at a path.
type DefaultResult struct {
	Value any
	// Irrelevant is true when a null on the way makes the deeper path
	// unanswerable.
	Irrelevant bool
}

// ExtractSchemaDefault computes the value at path if fixed were completed by
// schema defaults. Wherever fixed has no value the node's default is used;
// a node with neither is an error. Array positions never fall back to
// defaults.
func ExtractSchemaDefault(schema map[string]any, fixed any, path deep.Path) (DefaultResult, error) {
	cur, val, present := schema, fixed, true
	for i := 0; ; i++ {
		if !present {
			d, ok := cur["default"]
			if !ok {
				return DefaultResult{}, resolveErr(path, i, "value missing and schema has no 'default'", nil)
			}
			val, present = d, true
		}
		if val == nil {
			if i == len(path) {
				return DefaultResult{}, nil
			}
			if IsNullable(cur) {
				return DefaultResult{Irrelevant: true}, nil
			}
			return DefaultResult{}, resolveErr(path, i, "null in a non-nullable position", nil)
		}
		if TypeOf(cur) == "object" {
			if _, ok := Discriminator(cur); ok {
				obj, ok := val.(map[string]any)
				if !ok {
					return DefaultResult{}, resolveErr(path, i, "discriminated union needs an object value", deep.ErrExpectedMapping)
				}
				branch, ok := SelectBranch(cur, obj)
				if !ok {
					return DefaultResult{}, resolveErr(path, i, "no oneOf branch matches the discriminator value", nil)
				}
				cur = branch
			}
		}
		if i == len(path) {
			return DefaultResult{Value: deep.Copy(val)}, nil
		}

		seg := path[i]
		switch TypeOf(cur) {
		case "object":
			if !seg.IsKey() {
				return DefaultResult{}, resolveErr(path, i, fmt.Sprintf("object schema addressed by %s", seg), deep.ErrExpectedMapping)
			}
			obj, ok := val.(map[string]any)
			if !ok {
				return DefaultResult{}, resolveErr(path, i, "object schema holds a non-object value", deep.ErrExpectedMapping)
			}
			sub, ok := Property(cur, seg.Key)
			if !ok {
				return DefaultResult{}, resolveErr(path, i+1, fmt.Sprintf("property %q is not declared", seg.Key), nil)
			}
			cur = sub
			val, present = obj[seg.Key]
		case "array":
			if !seg.IsIndex() {
				return DefaultResult{}, resolveErr(path, i, fmt.Sprintf("array schema addressed by %q", seg.String()), deep.ErrExpectedSequence)
			}
			arr, ok := val.([]any)
			if !ok {
				return DefaultResult{}, resolveErr(path, i, "array schema holds a non-array value", deep.ErrExpectedSequence)
			}
			items, ok := Items(cur)
			if !ok {
				return DefaultResult{}, resolveErr(path, i, "array schema has no items", nil)
			}
			if seg.Index < 0 || seg.Index >= len(arr) {
				return DefaultResult{}, resolveErr(path, i+1, "array positions have no defaults", deep.ErrIndexOutOfRange)
			}
			cur, val = items, arr[seg.Index]
		default:
			return DefaultResult{}, resolveErr(path, i, fmt.Sprintf("cannot address into type %q", TypeOf(cur)), nil)
		}
	}
}
