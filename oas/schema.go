// Package oas walks, checks and resolves OpenAPI 3.0.3 schema objects
// represented as map[string]any, including the x-enum-discriminator tagged
// union convention:
//
//	{
//	  "type": "object",
//	  "x-enum-discriminator": "type",
//	  "oneOf": [
//	    {"type": "object", "required": ["type"], "properties": {"type": {"type": "string", "enum": ["a"]}, ...}},
//	    {"type": "object", "required": ["type"], "properties": {"type": {"type": "string", "enum": ["b"]}, ...}}
//	  ]
//	}
package oas

import (
	"sort"

	"github.com/reoring/clientflow/deep"
)

// DiscriminatorKey is the extension naming the property that selects a oneOf branch.
const DiscriminatorKey = "x-enum-discriminator"

// NullSchema is the schema reported for values that are known to be absent.
func NullSchema() map[string]any { return map[string]any{"type": "null"} }

// TypeOf returns the schema's declared type, or "".
func TypeOf(s map[string]any) string {
	t, _ := s["type"].(string)
	return t
}

// IsNullable reports nullable: true.
func IsNullable(s map[string]any) bool {
	b, _ := s["nullable"].(bool)
	return b
}

// FormatOf returns the schema's declared format, or "".
func FormatOf(s map[string]any) string {
	f, _ := s["format"].(string)
	return f
}

// Discriminator returns the x-enum-discriminator property name, if any.
func Discriminator(s map[string]any) (string, bool) {
	d, ok := s[DiscriminatorKey].(string)
	return d, ok && d != ""
}

// Properties returns the properties mapping, or nil.
func Properties(s map[string]any) map[string]any {
	p, _ := s["properties"].(map[string]any)
	return p
}

// Property returns the subschema for a named property.
func Property(s map[string]any, name string) (map[string]any, bool) {
	p, ok := Properties(s)[name].(map[string]any)
	return p, ok
}

// Required returns the set of required property names. Both []any (decoded
// JSON) and []string (Go literals) are accepted.
func Required(s map[string]any) map[string]bool {
	out := map[string]bool{}
	switch t := s["required"].(type) {
	case []any:
		for _, r := range t {
			if name, ok := r.(string); ok {
				out[name] = true
			}
		}
	case []string:
		for _, name := range t {
			out[name] = true
		}
	}
	return out
}

// Items returns the array item schema.
func Items(s map[string]any) (map[string]any, bool) {
	it, ok := s["items"].(map[string]any)
	return it, ok
}

// SchemaList returns the schema objects of a list-valued keyword (oneOf,
// allOf, anyOf). Entries that are not objects are reported as nil.
func SchemaList(raw any) []map[string]any {
	var out []map[string]any
	switch t := raw.(type) {
	case []any:
		for _, v := range t {
			m, _ := v.(map[string]any)
			out = append(out, m)
		}
	case []map[string]any:
		out = append(out, t...)
	}
	return out
}

// DiscriminatorValue returns the single enum value a oneOf branch declares for
// the discriminator property.
func DiscriminatorValue(branch map[string]any, disc string) (string, bool) {
	ds, ok := Property(branch, disc)
	if !ok {
		return "", false
	}
	enum, ok := ds["enum"].([]any)
	if !ok || len(enum) != 1 {
		if es, ok := ds["enum"].([]string); ok && len(es) == 1 {
			return es[0], es[0] != ""
		}
		return "", false
	}
	v, ok := enum[0].(string)
	return v, ok && v != ""
}

// SelectBranch picks the oneOf branch whose discriminator enum matches the
// discriminator value found in value.
func SelectBranch(schema map[string]any, value map[string]any) (map[string]any, bool) {
	disc, ok := Discriminator(schema)
	if !ok {
		return nil, false
	}
	want, ok := value[disc].(string)
	if !ok {
		return nil, false
	}
	for _, b := range SchemaList(schema["oneOf"]) {
		if b == nil {
			continue
		}
		if got, ok := DiscriminatorValue(b, disc); ok && got == want {
			return b, true
		}
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveError reports a violation of the resolver's structural assumptions.
type ResolveError struct {
	Path   deep.Path
	Walked deep.Path
	Reason string
	Err    error
}

func (e *ResolveError) Error() string {
	msg := e.Reason + " at " + e.Walked.Pretty() + " while resolving " + e.Path.Pretty()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error { return e.Err }

func resolveErr(path deep.Path, i int, reason string, err error) error {
	if i > len(path) {
		i = len(path)
	}
	return &ResolveError{Path: path, Walked: path[:i], Reason: reason, Err: err}
}
