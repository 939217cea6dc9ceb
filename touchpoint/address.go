package touchpoint

import (
	"fmt"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/flows"
	"github.com/reoring/clientflow/oas"
)

// addressable returns nil when path can be read from every value the event
// schema admits, in every branch of every discriminated union on the way.
// Keys must be required, nullable nodes cannot be looked into and array
// indices must be covered by minItems.
func addressable(schema map[string]any, path deep.Path) error {
	nodes := []map[string]any{schema}
	for i, seg := range path {
		at := path[:i]
		var next []map[string]any
		concrete, err := expandBranches(nodes, at)
		if err != nil {
			return err
		}
		for _, n := range concrete {
			switch t := oas.TypeOf(n); t {
			case "object":
				if !seg.IsKey() {
					return fmt.Errorf("%s is an object and needs a key, not %s", at.Pretty(), seg.String())
				}
				sub, ok := oas.Property(n, seg.Key)
				if !ok {
					return fmt.Errorf("%s is not declared in every branch", path[:i+1].Pretty())
				}
				if !oas.Required(n)[seg.Key] {
					return fmt.Errorf("%s is not required", path[:i+1].Pretty())
				}
				next = append(next, sub)
			case "array":
				if !seg.IsIndex() {
					return fmt.Errorf("%s is an array and needs an index, not %q", at.Pretty(), seg.String())
				}
				minItems, _ := intKeyword(n, "minItems")
				if seg.Index >= minItems {
					return fmt.Errorf("%s needs minItems of at least %d, has %d", path[:i+1].Pretty(), seg.Index+1, minItems)
				}
				items, ok := oas.Items(n)
				if !ok {
					return fmt.Errorf("%s has no items schema", at.Pretty())
				}
				next = append(next, items)
			default:
				return fmt.Errorf("%s is a %s and has no %s", at.Pretty(), t, seg.String())
			}
		}
		nodes = next
	}
	return nil
}

// expandBranches replaces every union in nodes by all of its branches,
// recursively. A nullable node cannot be looked into.
func expandBranches(nodes []map[string]any, at deep.Path) ([]map[string]any, error) {
	var out []map[string]any
	queue := slices.Clone(nodes)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			return nil, fmt.Errorf("%s has an invalid schema", at.Pretty())
		}
		if oas.IsNullable(n) {
			return nil, fmt.Errorf("%s may be null", at.Pretty())
		}
		if branches := oas.SchemaList(n["oneOf"]); len(branches) > 0 {
			queue = append(queue, branches...)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func intKeyword(node map[string]any, key string) (int, bool) {
	switch t := node[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	}
	return 0, false
}

// checkTemplated verifies one format string and its declared parameters:
// every declared parameter is addressable in the event schema and the format
// references exactly the declared set.
func checkTemplated(schema map[string]any, where, format string, params []string) []string {
	var problems []string
	fail := func(msg string, args ...any) {
		problems = append(problems, where+": "+fmt.Sprintf(msg, args...))
	}

	declared := map[string]bool{}
	for _, p := range params {
		path := deep.ParseDotted(p)
		if len(path) == 0 {
			fail("empty parameter")
			continue
		}
		if slices.ContainsFunc(path, func(s deep.Segment) bool { return s.IsWildcard() || (s.IsKey() && s.Key == "") }) {
			fail("parameter %q is not a concrete path", p)
			continue
		}
		key := path.Keys().Pretty()
		if declared[key] {
			fail("parameter %q is declared twice", p)
			continue
		}
		declared[key] = true
		if err := addressable(schema, path); err != nil {
			fail("parameter %q: %v", p, err)
		}
	}

	parts, err := flows.ParseFormat(format)
	if err != nil {
		fail("%v", err)
		return problems
	}
	referenced := map[string]bool{}
	for _, part := range parts {
		if !part.HasField {
			continue
		}
		path, err := flows.ParseFieldName(part.Field)
		if err != nil {
			fail("%v", err)
			continue
		}
		if _, err := strconv.Atoi(path[0].Key); err == nil {
			fail("positional field {%s} is not supported", part.Field)
			continue
		}
		key := path.Keys().Pretty()
		referenced[key] = true
		if !declared[key] {
			fail("format references undeclared parameter {%s}", part.Field)
		}
	}
	for _, p := range params {
		key := deep.ParseDotted(p).Keys().Pretty()
		if declared[key] && !referenced[key] {
			fail("parameter %q is declared but not used", p)
			// report each unused parameter once
			delete(declared, key)
		}
	}
	return problems
}
