package oas

import (
	"github.com/reoring/clientflow"
	"github.com/reoring/clientflow/deep"
)

// CheckOptions controls CheckSchema. The zero value is the strict authoring
// profile: every oneOf on an object is a discriminated union, examples are
// optional and every potentially unset field needs a default.
type CheckOptions struct {
	// AllowUndiscriminatedOneOf permits oneOf on objects without
	// x-enum-discriminator.
	AllowUndiscriminatedOneOf bool
	// RequireExample requires an "example" on every node.
	RequireExample bool
	// AllowMissingDefault stops requiring "default" on optional fields.
	AllowMissingDefault bool
}

type checkFrame struct {
	node      map[string]any
	path      deep.Path
	allowDisc bool
	// noDefault marks positions where a default has no meaning: the root,
	// required properties, array items and composition branches.
	noDefault bool
}

// CheckSchema validates an authored schema. It returns nil or a
// clientflow.Issues holding the first violation found.
func CheckSchema(schema map[string]any, opts CheckOptions) error {
	root := deep.Path{}
	if err := conformsToMetaSchema(schema); err != nil {
		return clientflow.Failf(root, clientflow.CodeMetaSchema, "not an OpenAPI 3.0.3 schema: %v", err)
	}
	if p, found := findRef(schema, root); found {
		return clientflow.Failf(p, clientflow.CodeRefForbidden, "$ref is not allowed; inline the schema")
	}

	stack := []checkFrame{{node: schema, path: root, allowDisc: true, noDefault: true}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		children, err := checkNode(f, opts)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// findRef looks for "$ref" in the schema structure. Values under example,
// default and enum are data and are not scanned.
func findRef(node any, path deep.Path) (deep.Path, bool) {
	switch t := node.(type) {
	case map[string]any:
		if _, ok := t["$ref"]; ok {
			return path.Key("$ref"), true
		}
		for _, k := range sortedKeys(t) {
			if k == "example" || k == "default" || k == "enum" {
				continue
			}
			if p, ok := findRef(t[k], path.Key(k)); ok {
				return p, true
			}
		}
	case []any:
		for i, v := range t {
			if p, ok := findRef(v, path.Index(i)); ok {
				return p, true
			}
		}
	}
	return nil, false
}

func checkNode(f checkFrame, opts CheckOptions) ([]checkFrame, error) {
	node, path := f.node, f.path

	example, hasExample := node["example"]
	if opts.RequireExample && !hasExample {
		return nil, clientflow.Failf(path, clientflow.CodeMissingExample, "missing 'example'")
	}
	if hasExample {
		if err := ValidateValue(node, example); err != nil {
			return nil, clientflow.Failf(path.Key("example"), clientflow.CodeInvalidExample, "'example' does not match its schema: %v", err)
		}
	}

	def, hasDefault := node["default"]
	if f.noDefault && hasDefault {
		return nil, clientflow.Failf(path.Key("default"), clientflow.CodeIllogicalDefault,
			"'default' is meaningless here (root, required property, array item or composition branch)")
	}
	if !opts.AllowMissingDefault && !f.noDefault && !hasDefault {
		return nil, clientflow.Failf(path, clientflow.CodeMissingDefault, "missing 'default' for potentially unset field")
	}
	if hasDefault {
		if err := ValidateValue(node, def); err != nil {
			return nil, clientflow.Failf(path.Key("default"), clientflow.CodeInvalidDefault, "'default' does not match its schema: %v", err)
		}
	}

	childAllow := f.allowDisc
	var props map[string]any
	if TypeOf(node) == "object" {
		rawProps, hasProps := node["properties"]
		if hasProps {
			m, ok := rawProps.(map[string]any)
			if !ok {
				return nil, clientflow.Failf(path.Key("properties"), clientflow.CodeInvalidProperties, "'properties' must be a mapping")
			}
			props = m
		}

		_, hasOneOf := node["oneOf"]
		_, hasDisc := node[DiscriminatorKey]
		if (hasOneOf && !opts.AllowUndiscriminatedOneOf) || hasDisc {
			if err := checkDiscriminatedUnion(node, path, f.allowDisc, hasProps); err != nil {
				return nil, err
			}
			childAllow = false
		}

		if raw, ok := node["required"]; ok {
			if err := checkRequiredList(raw, path.Key("required")); err != nil {
				return nil, err
			}
		}
	}

	var children []checkFrame
	required := Required(node)
	for _, k := range sortedKeys(props) {
		sub, ok := props[k].(map[string]any)
		if !ok {
			return nil, clientflow.Failf(path.Key("properties").Key(k), clientflow.CodeInvalidProperties, "property schema must be a mapping")
		}
		children = append(children, checkFrame{
			node:      sub,
			path:      path.Key("properties").Key(k),
			allowDisc: childAllow,
			noDefault: required[k],
		})
	}
	if items, ok := Items(node); ok {
		children = append(children, checkFrame{node: items, path: path.Key("items"), allowDisc: childAllow, noDefault: true})
	}
	for _, kw := range []string{"allOf", "anyOf", "oneOf"} {
		for i, sub := range SchemaList(node[kw]) {
			if sub == nil {
				return nil, clientflow.Failf(path.Key(kw).Index(i), clientflow.CodeMetaSchema, "%s entries must be schema objects", kw)
			}
			children = append(children, checkFrame{node: sub, path: path.Key(kw).Index(i), allowDisc: false, noDefault: true})
		}
	}
	if not, ok := node["not"].(map[string]any); ok {
		children = append(children, checkFrame{node: not, path: path.Key("not"), allowDisc: false, noDefault: true})
	}
	return children, nil
}

func checkDiscriminatedUnion(node map[string]any, path deep.Path, allowed, hasProps bool) error {
	if !allowed {
		return clientflow.Failf(path, clientflow.CodeNestedDiscriminator, "x-enum-discriminator cannot be nested")
	}
	if hasProps {
		return clientflow.Failf(path.Key("properties"), clientflow.CodeDiscriminatorProperties,
			"'properties' must not be set alongside x-enum-discriminator; declare fields in the oneOf branches")
	}
	disc, ok := node[DiscriminatorKey].(string)
	if !ok || disc == "" {
		return clientflow.Failf(path.Key(DiscriminatorKey), clientflow.CodeInvalidDiscriminator, "x-enum-discriminator must be a non-empty string")
	}
	branches, ok := node["oneOf"].([]any)
	if !ok || len(branches) == 0 {
		return clientflow.Failf(path.Key("oneOf"), clientflow.CodeInvalidDiscriminator, "x-enum-discriminator requires a non-empty oneOf")
	}

	seen := make(map[string]int, len(branches))
	for i, raw := range branches {
		bp := path.Key("oneOf").Index(i)
		branch, ok := raw.(map[string]any)
		if !ok || TypeOf(branch) != "object" {
			return clientflow.Failf(bp, clientflow.CodeDiscriminatorBranch, "oneOf branch must be type object")
		}
		if !Required(branch)[disc] {
			return clientflow.Failf(bp.Key("required"), clientflow.CodeDiscriminatorBranch, "oneOf branch must list %q in required", disc)
		}
		dp := bp.Key("properties").Key(disc)
		ds, ok := Property(branch, disc)
		if !ok {
			return clientflow.Failf(dp, clientflow.CodeDiscriminatorBranch, "oneOf branch must declare the discriminator property")
		}
		if TypeOf(ds) != "string" {
			return clientflow.Failf(dp, clientflow.CodeDiscriminatorBranch, "discriminator must be type string")
		}
		if IsNullable(ds) {
			return clientflow.Failf(dp, clientflow.CodeDiscriminatorBranch, "discriminator must not be nullable")
		}
		enum, ok := ds["enum"].([]any)
		if !ok || len(enum) != 1 {
			return clientflow.Failf(dp.Key("enum"), clientflow.CodeDiscriminatorBranch, "discriminator enum must have exactly one value")
		}
		value, ok := enum[0].(string)
		if !ok || value == "" {
			return clientflow.Failf(dp.Key("enum"), clientflow.CodeDiscriminatorBranch, "discriminator enum value must be a non-empty string")
		}
		if prev, dup := seen[value]; dup {
			return clientflow.Failf(dp.Key("enum"), clientflow.CodeDuplicateDiscriminator,
				"discriminator value %q must be unique within oneOf (also used by branch %d)", value, prev)
		}
		seen[value] = i
	}
	return nil
}

func checkRequiredList(raw any, path deep.Path) error {
	list, ok := raw.([]any)
	if !ok {
		if ss, isStrings := raw.([]string); isStrings {
			list = make([]any, len(ss))
			for i, s := range ss {
				list[i] = s
			}
		} else {
			return clientflow.Failf(path, clientflow.CodeInvalidRequired, "'required' must be an array of strings")
		}
	}
	seen := make(map[string]bool, len(list))
	for i, r := range list {
		name, ok := r.(string)
		if !ok {
			return clientflow.Failf(path.Index(i), clientflow.CodeInvalidRequired, "'required' entries must be strings")
		}
		if seen[name] {
			return clientflow.Failf(path.Index(i), clientflow.CodeInvalidRequired, "%q is listed twice in 'required'", name)
		}
		seen[name] = true
	}
	return nil
}
