package touchpoint

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/oas"
)

// EnumDiscriminatorInfo tracks which branches of one discriminated oneOf
// are still plausible at a value path.
type EnumDiscriminatorInfo struct {
	// Path addresses the union's value inside the template parameters.
	Path deep.Path
	// Property is the discriminator property name.
	Property string
	// Values holds each branch's discriminator value, by branch index.
	Values   []string
	Branches []map[string]any

	eliminated map[int]string
}

// Remaining returns the indices of the branches not yet eliminated.
func (d *EnumDiscriminatorInfo) Remaining() []int {
	var out []int
	for i := range d.Branches {
		if _, gone := d.eliminated[i]; !gone {
			out = append(out, i)
		}
	}
	return out
}

// Eliminate rules out a branch. The first reason recorded wins.
func (d *EnumDiscriminatorInfo) Eliminate(branch int, reason string) {
	if _, gone := d.eliminated[branch]; gone {
		return
	}
	d.eliminated[branch] = reason
}

// Eliminated reports why branch was ruled out.
func (d *EnumDiscriminatorInfo) Eliminated(branch int) (string, bool) {
	r, ok := d.eliminated[branch]
	return r, ok
}

func (d *EnumDiscriminatorInfo) explain() string {
	parts := make([]string, 0, len(d.Branches))
	for _, i := range slices.Sorted(maps.Keys(d.eliminated)) {
		parts = append(parts, fmt.Sprintf("%s=%q: %s", d.Property, d.Values[i], d.eliminated[i]))
	}
	return strings.Join(parts, "; ")
}

func (d *EnumDiscriminatorInfo) clone() *EnumDiscriminatorInfo {
	cp := *d
	cp.eliminated = maps.Clone(d.eliminated)
	return &cp
}

// CompileContext holds the discriminator eliminations made while checking
// one email message's template parameters, keyed by union value path.
type CompileContext struct {
	infos map[string]*EnumDiscriminatorInfo
}

// NewCompileContext returns a context with nothing eliminated.
func NewCompileContext() *CompileContext {
	return &CompileContext{infos: map[string]*EnumDiscriminatorInfo{}}
}

// CloneInheritingEliminations returns a context that starts with every
// elimination made so far. Eliminations made in the clone do not reach c.
func (c *CompileContext) CloneInheritingEliminations() *CompileContext {
	out := NewCompileContext()
	for k, v := range c.infos {
		out.infos[k] = v.clone()
	}
	return out
}

// absorbEliminations records in c every elimination made in o.
func (c *CompileContext) absorbEliminations(o *CompileContext) {
	for key, info := range o.infos {
		mine, ok := c.infos[key]
		if !ok {
			c.infos[key] = info.clone()
			continue
		}
		for _, i := range slices.Sorted(maps.Keys(info.eliminated)) {
			mine.Eliminate(i, info.eliminated[i])
		}
	}
}

// Discriminator returns the bookkeeping for the union node at path,
// creating it on first use. ok is false when node is not a discriminated
// union.
func (c *CompileContext) Discriminator(path deep.Path, node map[string]any) (*EnumDiscriminatorInfo, bool) {
	key := path.Pretty()
	if info, ok := c.infos[key]; ok {
		return info, true
	}
	prop, ok := discriminatorOf(node)
	if !ok {
		return nil, false
	}
	branches := oas.SchemaList(node["oneOf"])
	info := &EnumDiscriminatorInfo{
		Path:       path,
		Property:   prop,
		Values:     make([]string, len(branches)),
		Branches:   make([]map[string]any, len(branches)),
		eliminated: map[int]string{},
	}
	for i, raw := range branches {
		b, _, err := oas.UnwrapModelNode(raw)
		if err != nil || b == nil {
			info.Eliminate(i, "branch is not a schema object")
			continue
		}
		info.Branches[i] = b
		v, ok := branchValue(b, prop)
		if !ok {
			info.Eliminate(i, "branch does not pin "+prop)
			continue
		}
		info.Values[i] = v
	}
	c.infos[key] = info
	return info, true
}

// discriminatorOf accepts both x-enum-discriminator and the OpenAPI
// discriminator object generated template schemas carry.
func discriminatorOf(node map[string]any) (string, bool) {
	if len(oas.SchemaList(node["oneOf"])) == 0 {
		return "", false
	}
	if p, ok := oas.Discriminator(node); ok {
		return p, true
	}
	d, _ := node["discriminator"].(map[string]any)
	p, _ := d["propertyName"].(string)
	return p, p != ""
}

func branchValue(branch map[string]any, prop string) (string, bool) {
	if v, ok := oas.DiscriminatorValue(branch, prop); ok {
		return v, true
	}
	ps, ok := oas.Property(branch, prop)
	if !ok {
		return "", false
	}
	v, ok := ps["const"].(string)
	return v, ok && v != ""
}

// checkFixed matches a fixed template parameter value against its template
// schema node, eliminating union branches the value rules out.
func checkFixed(ctx *CompileContext, raw map[string]any, value any, path deep.Path) error {
	node, nullable, err := oas.UnwrapModelNode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path.Pretty(), err)
	}
	if value == nil {
		if nullable || oas.IsNullable(node) || oas.TypeOf(node) == "null" {
			return nil
		}
		return fmt.Errorf("%s: null is not allowed", path.Pretty())
	}

	if branches := oas.SchemaList(node["oneOf"]); len(branches) > 0 {
		info, ok := ctx.Discriminator(path, node)
		if !ok {
			for _, b := range branches {
				if checkFixed(ctx.CloneInheritingEliminations(), b, value, path) == nil {
					return nil
				}
			}
			return fmt.Errorf("%s: value matches no oneOf branch", path.Pretty())
		}
		obj, isObj := value.(map[string]any)
		if !isObj {
			return fmt.Errorf("%s: expected an object for the %s union", path.Pretty(), info.Property)
		}
		if want, ok := obj[info.Property].(string); ok {
			for _, i := range info.Remaining() {
				if info.Values[i] != want {
					info.Eliminate(i, fmt.Sprintf("fixed %s is %q", info.Property, want))
				}
			}
		}
		for _, i := range info.Remaining() {
			if err := checkFixed(ctx.CloneInheritingEliminations(), info.Branches[i], value, path); err != nil {
				info.Eliminate(i, err.Error())
			}
		}
		remaining := info.Remaining()
		switch len(remaining) {
		case 0:
			return fmt.Errorf("%s: no %s branch accepts the fixed value (%s)", path.Pretty(), info.Property, info.explain())
		case 1:
			// only one branch left: its nested eliminations are certain
			return checkFixed(ctx, info.Branches[remaining[0]], value, path)
		}
		return nil
	}

	switch oas.TypeOf(node) {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected an object", path.Pretty())
		}
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			sub, err := propertySchema(node, k, path)
			if err != nil {
				return err
			}
			if sub == nil {
				continue
			}
			if err := checkFixed(ctx, sub, obj[k], path.Key(k)); err != nil {
				return err
			}
		}
		return nil
	case "array":
		list, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected an array", path.Pretty())
		}
		items, _ := oas.Items(node)
		if items == nil {
			return nil
		}
		for i, v := range list {
			if err := checkFixed(ctx, items, v, path.Index(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		if err := oas.ValidateValue(node, value); err != nil {
			return fmt.Errorf("%s: %w", path.Pretty(), err)
		}
		return nil
	}
}

// propertySchema returns the schema of an object's property k. A nil schema
// with a nil error means any value is accepted, which takes an explicit
// additionalProperties.
func propertySchema(node map[string]any, k string, path deep.Path) (map[string]any, error) {
	if sub, ok := oas.Property(node, k); ok {
		return sub, nil
	}
	switch ap := node["additionalProperties"].(type) {
	case map[string]any:
		return ap, nil
	case bool:
		if ap {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%s is not a template parameter", path.Key(k).Pretty())
}

// checkTarget verifies that a substitution can write a string at key. Union
// branches without such a string are eliminated in ctx.
func checkTarget(ctx *CompileContext, raw map[string]any, key, path deep.Path) error {
	node, _, err := oas.UnwrapModelNode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path.Pretty(), err)
	}
	if branches := oas.SchemaList(node["oneOf"]); len(branches) > 0 {
		info, ok := ctx.Discriminator(path, node)
		if !ok {
			for _, b := range branches {
				if checkTarget(ctx.CloneInheritingEliminations(), b, key, path) == nil {
					return nil
				}
			}
			return fmt.Errorf("%s: no oneOf branch accepts a string at %s", path.Pretty(), path.Concat(key).Pretty())
		}
		if len(key) > 0 && key[0].IsKey() && key[0].Key == info.Property {
			return fmt.Errorf("%s: the discriminator %s cannot be substituted", path.Pretty(), info.Property)
		}
		for _, i := range info.Remaining() {
			if err := checkTarget(ctx.CloneInheritingEliminations(), info.Branches[i], key, path); err != nil {
				info.Eliminate(i, err.Error())
			}
		}
		if len(info.Remaining()) == 0 {
			return fmt.Errorf("%s: no %s branch accepts a string at %s (%s)", path.Pretty(), info.Property, path.Concat(key).Pretty(), info.explain())
		}
		return nil
	}

	if len(key) == 0 {
		if t := oas.TypeOf(node); t != "string" {
			return fmt.Errorf("%s is a %s, substitutions produce strings", path.Pretty(), t)
		}
		return nil
	}
	seg := key[0]
	switch t := oas.TypeOf(node); t {
	case "object":
		if !seg.IsKey() {
			return fmt.Errorf("%s is an object and needs a key", path.Pretty())
		}
		sub, err := propertySchema(node, seg.Key, path)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil
		}
		return checkTarget(ctx, sub, key[1:], path.Key(seg.Key))
	case "array":
		if !seg.IsIndex() {
			return fmt.Errorf("%s is an array and needs an index", path.Pretty())
		}
		items, _ := oas.Items(node)
		if items == nil {
			return nil
		}
		return checkTarget(ctx, items, key[1:], path.Index(seg.Index))
	default:
		return fmt.Errorf("%s is a %s and has no %s", path.Pretty(), t, seg.String())
	}
}

// checkCoverage verifies that every required template field is provided,
// either by the fixed value or by a substitution at or below it.
func checkCoverage(ctx *CompileContext, raw map[string]any, fixed any, subs []deep.Path, path deep.Path) error {
	node, _, err := oas.UnwrapModelNode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path.Pretty(), err)
	}
	if branches := oas.SchemaList(node["oneOf"]); len(branches) > 0 {
		var candidates []map[string]any
		if info, ok := ctx.Discriminator(path, node); ok {
			remaining := info.Remaining()
			if len(remaining) == 0 {
				return fmt.Errorf("%s: no %s branch takes every substitution (%s)", path.Pretty(), info.Property, info.explain())
			}
			for _, i := range remaining {
				candidates = append(candidates, info.Branches[i])
			}
		} else {
			candidates = branches
		}
		var firstErr error
		for _, b := range candidates {
			err := checkCoverage(ctx.CloneInheritingEliminations(), b, fixed, subs, path)
			if err == nil {
				return nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: no branch remains", path.Pretty())
		}
		return firstErr
	}
	if oas.TypeOf(node) != "object" {
		return nil
	}
	obj, _ := fixed.(map[string]any)
	for _, k := range slices.Sorted(maps.Keys(oas.Required(node))) {
		child := path.Key(k)
		v, inFixed := obj[k]
		substituted := slices.ContainsFunc(subs, func(s deep.Path) bool { return s.HasPrefix(child) })
		if !inFixed && !substituted {
			return fmt.Errorf("required template parameter %s is neither fixed nor substituted", child.Pretty())
		}
		sub, ok := oas.Property(node, k)
		if !ok || (inFixed && v == nil) {
			continue
		}
		if err := checkCoverage(ctx, sub, v, subs, child); err != nil {
			return err
		}
	}
	return nil
}
