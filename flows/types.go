// Package flows binds flow parameters to client screen inputs: the
// trigger-time transformation of server parameters, the production of
// screen input parameters and the safety analysis of flow screens.
package flows

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/internal/jsonio"
)

// Namespaces a binding may read from.
const (
	NamespaceServer   = "server"
	NamespaceClient   = "client"
	NamespaceStandard = "standard"
)

// Binding type tags.
const (
	TypeCopy         = "copy"
	TypeStringFormat = "string_format"
	TypeExtract      = "extract"
)

// VariableParameter is one rule populating a screen input field. It is a
// closed set: CopyParameter, StringFormatParameter and ExtractParameter.
type VariableParameter interface {
	// Type returns the JSON type tag.
	Type() string
	// Output is where the value lands in the screen input.
	Output() deep.Path
	variableParameter()
}

// CopyParameter copies a value across namespaces.
type CopyParameter struct {
	InputPath  deep.Path `json:"input_path"`
	OutputPath deep.Path `json:"output_path"`
}

// StringFormatParameter renders a Python-style format string against the
// server, client and standard namespaces.
type StringFormatParameter struct {
	Format     string    `json:"format"`
	OutputPath deep.Path `json:"output_path"`
}

// ExtractParameter pulls ExtractedPath out of the entity referenced by the
// formatted string at InputPath (always rooted at server).
type ExtractParameter struct {
	InputPath     deep.Path `json:"input_path"`
	ExtractedPath deep.Path `json:"extracted_path"`
	OutputPath    deep.Path `json:"output_path"`
	SkipIfMissing bool      `json:"skip_if_missing,omitempty"`
}

func (CopyParameter) Type() string         { return TypeCopy }
func (StringFormatParameter) Type() string { return TypeStringFormat }
func (ExtractParameter) Type() string      { return TypeExtract }

func (p CopyParameter) Output() deep.Path         { return p.OutputPath }
func (p StringFormatParameter) Output() deep.Path { return p.OutputPath }
func (p ExtractParameter) Output() deep.Path      { return p.OutputPath }

func (CopyParameter) variableParameter()         {}
func (StringFormatParameter) variableParameter() {}
func (ExtractParameter) variableParameter()      {}

func (p CopyParameter) MarshalJSON() ([]byte, error) {
	type plain CopyParameter
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeCopy, plain(p)})
}

func (p StringFormatParameter) MarshalJSON() ([]byte, error) {
	type plain StringFormatParameter
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeStringFormat, plain(p)})
}

func (p ExtractParameter) MarshalJSON() ([]byte, error) {
	type plain ExtractParameter
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeExtract, plain(p)})
}

// ErrUnsupportedBinding is returned for binding type tags outside the
// closed set.
var ErrUnsupportedBinding = errors.New("unsupported binding type")

// DecodeVariableParameter decodes one tagged binding.
func DecodeVariableParameter(data []byte) (VariableParameter, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case TypeCopy:
		var p CopyParameter
		if err := jsonio.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeStringFormat:
		var p StringFormatParameter
		if err := jsonio.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeExtract:
		var p ExtractParameter
		if err := jsonio.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBinding, head.Type)
	}
}

// ScreenBinding is the screen half of a FlowScreen: which client screen to
// realize and how to fill its input.
type ScreenBinding struct {
	Slug     string              `json:"slug"`
	Fixed    map[string]any      `json:"fixed"`
	Variable []VariableParameter `json:"variable"`
}

func (s *ScreenBinding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Slug     string            `json:"slug"`
		Fixed    map[string]any    `json:"fixed"`
		Variable []json.RawMessage `json:"variable"`
	}
	if err := jsonio.Unmarshal(data, &raw); err != nil {
		return err
	}
	vars := make([]VariableParameter, 0, len(raw.Variable))
	for i, r := range raw.Variable {
		p, err := DecodeVariableParameter(r)
		if err != nil {
			return fmt.Errorf("variable[%d]: %w", i, err)
		}
		vars = append(vars, p)
	}
	*s = ScreenBinding{Slug: raw.Slug, Fixed: raw.Fixed, Variable: vars}
	return nil
}

// FlowScreen is one screen step of a flow.
type FlowScreen struct {
	Screen          ScreenBinding `json:"screen"`
	Name            string        `json:"name,omitempty"`
	AllowedTriggers []string      `json:"allowed_triggers,omitempty"`
}

// Realizer answers which screen input paths may receive client-controlled
// values.
type Realizer interface {
	IsSafe(path deep.Path) bool
}

// RealizerFunc adapts a function to Realizer.
type RealizerFunc func(path deep.Path) bool

func (f RealizerFunc) IsSafe(path deep.Path) bool { return f(path) }

// ClientScreen is a schema-described UI unit.
type ClientScreen struct {
	Slug   string         `json:"slug"`
	Schema map[string]any `json:"schema"`
	// Realizer defaults to SchemaRealizer over Schema.
	Realizer Realizer `json:"-"`
}

func (s ClientScreen) realizer() Realizer {
	if s.Realizer != nil {
		return s.Realizer
	}
	return SchemaRealizer{Schema: s.Schema}
}

// SafeKey marks a screen schema node whose value may come from the client.
const SafeKey = "x-safe"

// SchemaRealizer treats a path as safe when the node it addresses, or any
// node above it, is marked x-safe: true. Under a discriminated union every
// branch that declares the path must agree.
type SchemaRealizer struct {
	Schema map[string]any
}

func (r SchemaRealizer) IsSafe(path deep.Path) bool {
	return schemaSafeAt(r.Schema, path)
}

func schemaSafeAt(node map[string]any, path deep.Path) bool {
	if node == nil {
		return false
	}
	if safe, _ := node[SafeKey].(bool); safe {
		return true
	}
	if len(path) == 0 {
		return false
	}
	if branches, ok := node["oneOf"].([]any); ok && len(branches) > 0 {
		seen := false
		for _, raw := range branches {
			b, _ := raw.(map[string]any)
			if b == nil {
				continue
			}
			if !declares(b, path[0]) {
				continue
			}
			seen = true
			if !schemaSafeAt(b, path) {
				return false
			}
		}
		return seen
	}
	seg := path[0]
	switch {
	case seg.IsKey():
		props, _ := node["properties"].(map[string]any)
		sub, _ := props[seg.Key].(map[string]any)
		return schemaSafeAt(sub, path[1:])
	default:
		items, _ := node["items"].(map[string]any)
		return schemaSafeAt(items, path[1:])
	}
}

func declares(node map[string]any, seg deep.Segment) bool {
	if seg.IsKey() {
		props, _ := node["properties"].(map[string]any)
		_, ok := props[seg.Key]
		return ok
	}
	_, ok := node["items"].(map[string]any)
	return ok
}

// ClientFlow describes the parameter schemas of a flow and its screens.
type ClientFlow struct {
	Slug         string         `json:"slug"`
	ClientSchema map[string]any `json:"client_schema"`
	ServerSchema map[string]any `json:"server_schema"`
	Screens      []FlowScreen   `json:"screens"`
}
