package flows

import (
	"errors"
	"fmt"

	"github.com/reoring/clientflow/deep"
)

// ProduceScreenInputParameters builds the input of a client screen from a
// transformed flow screen: a copy of the fixed skeleton with each binding's
// value set at its output path. The standard parameters are expected to be
// fresh for every call.
func ProduceScreenInputParameters(fs *FlowScreen, client, server, standard map[string]any) (map[string]any, error) {
	result := deep.CopyMap(fs.Screen.Fixed)
	ns := map[string]any{
		NamespaceServer:   server,
		NamespaceClient:   client,
		NamespaceStandard: standard,
	}
	for i, v := range fs.Screen.Variable {
		if v == nil {
			return nil, fmt.Errorf("variable[%d]: %w: nil", i, ErrUnsupportedBinding)
		}
		out := v.Output()
		if len(out) == 0 {
			return nil, fmt.Errorf("variable[%d] (%s): %w", i, v.Type(), errors.New("empty output_path"))
		}
		var value any
		switch p := v.(type) {
		case CopyParameter:
			got, err := deep.Extract(ns, p.InputPath)
			if err != nil {
				return nil, fmt.Errorf("variable[%d] (copy): %w", i, err)
			}
			value = deep.Copy(got)
		case StringFormatParameter:
			s, err := Render(p.Format, ns)
			if err != nil {
				return nil, fmt.Errorf("variable[%d] (string_format): %w", i, err)
			}
			value = s
		case ExtractParameter:
			got, err := deep.Extract(server, deep.Path{deep.Key(ExtractedKey)}.Concat(p.OutputPath.Keys()))
			if err != nil {
				return nil, fmt.Errorf("variable[%d] (extract): %w", i, err)
			}
			value = deep.Copy(got)
		default:
			return nil, fmt.Errorf("variable[%d]: %w: %T", i, ErrUnsupportedBinding, v)
		}
		if err := deep.Set(result, out, value); err != nil {
			return nil, fmt.Errorf("variable[%d] (%s): %w", i, v.Type(), err)
		}
	}
	return result, nil
}
