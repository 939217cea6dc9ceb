package oas

import (
	"fmt"

	"github.com/reoring/clientflow/deep"
)

// Visitor receives every schema node reached by Walk.
//
// schemaPath addresses the node inside the schema document; valuePath
// addresses the values the node describes (keys, wildcards for array items).
// inverted is true when the node is under a "not", at any depth.
type Visitor interface {
	OnItem(node map[string]any, schemaPath, valuePath deep.Path, inverted bool) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(node map[string]any, schemaPath, valuePath deep.Path, inverted bool) error

func (f VisitorFunc) OnItem(node map[string]any, schemaPath, valuePath deep.Path, inverted bool) error {
	return f(node, schemaPath, valuePath, inverted)
}

// MissingTypeError is returned when a visited node has no "type".
type MissingTypeError struct {
	SchemaPath deep.Path
}

func (e *MissingTypeError) Error() string {
	return fmt.Sprintf("schema node at %s has no type", e.SchemaPath.Pretty())
}

type walkOptions struct {
	inverted bool
}

// WalkOption tweaks Walk.
type WalkOption func(*walkOptions)

// Inverted starts the walk as if the root were already under a "not".
func Inverted() WalkOption { return func(o *walkOptions) { o.inverted = true } }

// Walk visits schema and every nested schema node, parents before children.
// Map-valued keywords are visited in key order.
func Walk(schema map[string]any, visitor Visitor, opts ...WalkOption) error {
	var o walkOptions
	for _, opt := range opts {
		opt(&o)
	}
	return walk(schema, visitor, deep.Path{}, deep.Path{}, o.inverted)
}

func walk(node map[string]any, v Visitor, sp, vp deep.Path, inverted bool) error {
	if node == nil {
		return fmt.Errorf("expected schema object at %s", sp.Pretty())
	}
	if _, ok := node["type"].(string); !ok {
		return &MissingTypeError{SchemaPath: sp}
	}
	if err := v.OnItem(node, sp, vp, inverted); err != nil {
		return err
	}

	// alternative views of the same value
	for _, kw := range []string{"allOf", "anyOf", "oneOf"} {
		for i, sub := range SchemaList(node[kw]) {
			if err := walk(sub, v, sp.Key(kw).Index(i), vp, inverted); err != nil {
				return err
			}
		}
	}
	if not, ok := node["not"].(map[string]any); ok {
		if err := walk(not, v, sp.Key("not"), vp, true); err != nil {
			return err
		}
	}

	props := Properties(node)
	for _, k := range sortedKeys(props) {
		sub, _ := props[k].(map[string]any)
		if err := walk(sub, v, sp.Key("properties").Key(k), vp.Key(k), inverted); err != nil {
			return err
		}
	}

	switch items := node["items"].(type) {
	case map[string]any:
		if err := walk(items, v, sp.Key("items"), vp.Wildcard(), inverted); err != nil {
			return err
		}
	case []any:
		for i, raw := range items {
			sub, _ := raw.(map[string]any)
			if err := walk(sub, v, sp.Key("items").Index(i), vp.Index(i), inverted); err != nil {
				return err
			}
		}
	}
	if ai, ok := node["additionalItems"].(map[string]any); ok {
		if err := walk(ai, v, sp.Key("additionalItems"), vp.Wildcard(), inverted); err != nil {
			return err
		}
	}

	// best effort: the pattern itself stands in for the key
	pp, _ := node["patternProperties"].(map[string]any)
	for _, p := range sortedKeys(pp) {
		sub, _ := pp[p].(map[string]any)
		if err := walk(sub, v, sp.Key("patternProperties").Key(p), vp.Key(p), inverted); err != nil {
			return err
		}
	}
	if ap, ok := node["additionalProperties"].(map[string]any); ok {
		if err := walk(ap, v, sp.Key("additionalProperties"), vp.Key("*"), inverted); err != nil {
			return err
		}
	}
	return nil
}
