package flows

import (
	"fmt"
	"iter"

	"github.com/reoring/clientflow"
	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/oas"
)

// IsFlowScreenSafe reports whether client-controlled values can only reach
// screen inputs that the screen declares safe. Copies and format strings
// reading only server parameters are always safe; extract bindings must be
// rooted at server.
func IsFlowScreenSafe(fs *FlowScreen, screen ClientScreen) bool {
	realizer := screen.realizer()
	for _, v := range fs.Screen.Variable {
		switch p := v.(type) {
		case CopyParameter:
			if !isServerRooted(p.InputPath) && !realizer.IsSafe(p.OutputPath) {
				return false
			}
		case StringFormatParameter:
			if realizer.IsSafe(p.OutputPath) {
				continue
			}
			parts, err := ParseFormat(p.Format)
			if err != nil {
				return false
			}
			for _, part := range parts {
				if !part.HasField {
					continue
				}
				path, err := ParseFieldName(part.Field)
				if err != nil || !isServerRooted(path) {
					return false
				}
			}
		case ExtractParameter:
			if !isServerRooted(p.InputPath) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Usage classifies how a binding depends on a parameter.
type Usage string

const (
	UsageCopy         Usage = TypeCopy
	UsageStringFormat Usage = TypeStringFormat
	UsageExtract      Usage = TypeExtract
)

// RequiredParameter is one parameter path a flow screen depends on.
type RequiredParameter struct {
	// Binding is the index of the binding in the screen's variable list.
	Binding int
	// Path starts with the namespace (server, client or standard).
	Path  deep.Path
	Usage Usage
	// FormatSpec is the field's format spec for string_format usages.
	FormatSpec string
	// ExtractedPath is what an extract binding pulls out of the entity.
	ExtractedPath deep.Path
}

// RequiredParameters enumerates the dependencies of every binding in order.
// A malformed format string yields an error for its binding and the
// enumeration continues.
func RequiredParameters(fs *FlowScreen) iter.Seq2[RequiredParameter, error] {
	return func(yield func(RequiredParameter, error) bool) {
		for i, v := range fs.Screen.Variable {
			switch p := v.(type) {
			case CopyParameter:
				if !yield(RequiredParameter{Binding: i, Path: p.InputPath, Usage: UsageCopy}, nil) {
					return
				}
			case ExtractParameter:
				if !yield(RequiredParameter{Binding: i, Path: p.InputPath, Usage: UsageExtract, ExtractedPath: p.ExtractedPath}, nil) {
					return
				}
			case StringFormatParameter:
				parts, err := ParseFormat(p.Format)
				if err != nil {
					if !yield(RequiredParameter{Binding: i, Usage: UsageStringFormat}, fmt.Errorf("variable[%d]: %w", i, err)) {
						return
					}
					continue
				}
				for _, part := range parts {
					if !part.HasField {
						continue
					}
					path, err := ParseFieldName(part.Field)
					if err != nil {
						err = fmt.Errorf("variable[%d]: %w", i, err)
					}
					if !yield(RequiredParameter{Binding: i, Path: path, Usage: UsageStringFormat, FormatSpec: part.Spec}, err) {
						return
					}
				}
			default:
				if !yield(RequiredParameter{Binding: i}, fmt.Errorf("variable[%d]: %w: %T", i, ErrUnsupportedBinding, v)) {
					return
				}
			}
		}
	}
}

func bindingPath(i int) deep.Path { return deep.P("screen", "variable", i) }

// CheckStandardReferences verifies that every standard-rooted dependency of
// fs exists in the generated standard parameters model schema. Indices are
// checked as "any element".
func CheckStandardReferences(fs *FlowScreen, standardModel map[string]any) []clientflow.Issue {
	var out []clientflow.Issue
	for rp, err := range RequiredParameters(fs) {
		if err != nil || len(rp.Path) == 0 || rp.Path[0].Key != NamespaceStandard {
			continue
		}
		sub := make(deep.Path, 0, len(rp.Path)-1)
		for _, s := range rp.Path[1:] {
			if s.IsIndex() {
				s = deep.Wildcard()
			}
			sub = append(sub, s)
		}
		if res := oas.ExtractFromModelSchema(standardModel, sub); !res.OK {
			out = append(out, clientflow.IssueAt(bindingPath(rp.Binding), clientflow.CodeUnknownReference,
				fmt.Sprintf("standard parameter %s: %s", rp.Path.Pretty(), res.Reason),
				map[string]any{"path": rp.Path.Pretty()}))
		}
	}
	return out
}

// CheckFlowScreen lints a flow screen against its flow and client screen and
// returns every problem found.
func CheckFlowScreen(flow *ClientFlow, fs *FlowScreen, screen ClientScreen) clientflow.Issues {
	var iss clientflow.Issues
	add := func(i int, code, format string, args ...any) {
		iss = clientflow.AppendIssues(iss, clientflow.IssueAt(bindingPath(i), code, fmt.Sprintf(format, args...), nil))
	}

	for i, v := range fs.Screen.Variable {
		if v == nil {
			add(i, clientflow.CodeUnknownReference, "binding is empty")
			continue
		}
		if len(v.Output()) == 0 {
			add(i, clientflow.CodeEmptyOutputPath, "output_path must not be empty")
		}
		if p, ok := v.(ExtractParameter); ok && !isServerRooted(p.InputPath) {
			add(i, clientflow.CodeInvalidExtractSource, "extract input_path %s must be rooted at server", p.InputPath.Pretty())
		}
	}

	for rp, err := range RequiredParameters(fs) {
		if err != nil {
			add(rp.Binding, clientflow.CodeInvalidFormat, "%v", err)
			continue
		}
		if rp.FormatSpec == E164Spec && !isServerRooted(rp.Path) {
			add(rp.Binding, clientflow.CodeInvalidFormat, "%s is only supported on server parameters, not %s", E164Spec, rp.Path.Pretty())
		}
		if len(rp.Path) == 0 || !rp.Path[0].IsKey() {
			add(rp.Binding, clientflow.CodeUnknownReference, "parameter path is empty")
			continue
		}
		var schema map[string]any
		switch rp.Path[0].Key {
		case NamespaceServer:
			schema = flow.ServerSchema
		case NamespaceClient:
			schema = flow.ClientSchema
		case NamespaceStandard:
			continue
		default:
			add(rp.Binding, clientflow.CodeUnknownReference, "unknown namespace %q in %s", rp.Path[0].Key, rp.Path.Pretty())
			continue
		}
		if len(rp.Path) < 2 || isSynthesized(rp.Path) {
			continue
		}
		if _, ok := oas.Property(schema, rp.Path[1].String()); !ok {
			add(rp.Binding, clientflow.CodeUnknownReference, "%s is not declared in the flow's %s schema", rp.Path.Pretty(), rp.Path[0].Key)
		}
	}

	if !IsFlowScreenSafe(fs, screen) {
		iss = clientflow.AppendIssues(iss, clientflow.IssueAt(deep.Path{}, clientflow.CodeUnsafeFlowScreen,
			"client-controlled values reach screen inputs that are not marked x-safe", nil))
	}
	return iss
}
