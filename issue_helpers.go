package clientflow

import "fmt"

// Pather is implemented by path types that can render themselves for messages.
type Pather interface {
	Pretty() string
}

// IssueAt creates an Issue at the given path with provided code, message and params map.
// This is a convenience helper to improve readability at call sites with many parameters.
func IssueAt(p Pather, code, msg string, params map[string]any) Issue {
	return Issue{Path: p.Pretty(), Code: code, Message: msg, Params: params}
}

// Failf returns a single-issue Issues error at p.
func Failf(p Pather, code, format string, args ...any) error {
	return Issues{IssueAt(p, code, fmt.Sprintf(format, args...), nil)}
}
