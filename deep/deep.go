// Package deep addresses into JSON-like values: map[string]any mappings,
// []any sequences and scalars.
package deep

import (
	"errors"
	"fmt"
)

var (
	ErrExpectedMapping  = errors.New("expected mapping")
	ErrExpectedSequence = errors.New("expected sequence")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrMissingKey       = errors.New("missing key")
	ErrWildcard         = errors.New("wildcard cannot address a value")
	ErrEmptyPath        = errors.New("empty path")
)

// AddressError reports where a walk failed. Walked is the prefix of Path that
// had been traversed when the failure happened.
type AddressError struct {
	Err    error
	Path   Path
	Walked Path
	Got    string
}

func (e *AddressError) Error() string {
	msg := fmt.Sprintf("%v at %s while addressing %s", e.Err, e.Walked.Pretty(), e.Path.Pretty())
	if e.Got != "" {
		msg += " (got " + e.Got + ")"
	}
	return msg
}

func (e *AddressError) Unwrap() error { return e.Err }

func addrErr(err error, path Path, i int, got any) error {
	g := ""
	if got != nil || err == ErrExpectedMapping || err == ErrExpectedSequence {
		g = kindOf(got)
	}
	return &AddressError{Err: err, Path: path, Walked: path[:i], Got: g}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Extract walks path inside container and returns the terminal value.
// No defaulting is performed: a missing key or index is an error.
func Extract(container any, path Path) (any, error) {
	cur := container
	for i, seg := range path {
		switch seg.Kind {
		case KindKey:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, addrErr(ErrExpectedMapping, path, i, cur)
			}
			v, ok := m[seg.Key]
			if !ok {
				return nil, addrErr(ErrMissingKey, path, i+1, nil)
			}
			cur = v
		case KindIndex:
			s, ok := cur.([]any)
			if !ok {
				return nil, addrErr(ErrExpectedSequence, path, i, cur)
			}
			if seg.Index < 0 || seg.Index >= len(s) {
				return nil, addrErr(ErrIndexOutOfRange, path, i+1, nil)
			}
			cur = s[seg.Index]
		default:
			return nil, addrErr(ErrWildcard, path, i, nil)
		}
	}
	return cur, nil
}

type setOptions struct {
	autoExtend bool
}

// SetOption tweaks Set.
type SetOption func(*setOptions)

// AutoExtendLists allows an index equal to the current sequence length,
// appending to the sequence.
func AutoExtendLists() SetOption { return func(o *setOptions) { o.autoExtend = true } }

// Set stores value at path inside container, creating intermediate mappings
// for missing keys. Indices must exist, except that an index equal to the
// sequence length appends when AutoExtendLists is given. container is
// mutated in place; a root sequence cannot be extended.
func Set(container any, path Path, value any, opts ...SetOption) error {
	if len(path) == 0 {
		return &AddressError{Err: ErrEmptyPath, Path: path}
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	// assign replaces the current node inside its parent; nil at the root.
	var assign func(any)
	cur := container
	for i, seg := range path {
		last := i == len(path)-1
		switch seg.Kind {
		case KindKey:
			m, ok := cur.(map[string]any)
			if !ok {
				return addrErr(ErrExpectedMapping, path, i, cur)
			}
			if last {
				m[seg.Key] = value
				return nil
			}
			next, ok := m[seg.Key]
			if !ok {
				next = map[string]any{}
				m[seg.Key] = next
			}
			key := seg.Key
			assign = func(v any) { m[key] = v }
			cur = next
		case KindIndex:
			s, ok := cur.([]any)
			if !ok {
				return addrErr(ErrExpectedSequence, path, i, cur)
			}
			if seg.Index < 0 || seg.Index > len(s) {
				return addrErr(ErrIndexOutOfRange, path, i+1, nil)
			}
			if seg.Index == len(s) {
				if !o.autoExtend || assign == nil {
					return addrErr(ErrIndexOutOfRange, path, i+1, nil)
				}
				var fresh any = map[string]any{}
				if last {
					fresh = value
				}
				s = append(s, fresh)
				assign(s)
				if last {
					return nil
				}
			} else if last {
				s[seg.Index] = value
				return nil
			}
			idx := seg.Index
			seq := s
			assign = func(v any) { seq[idx] = v }
			cur = s[idx]
		default:
			return addrErr(ErrWildcard, path, i, nil)
		}
	}
	return nil
}

// Copy returns a structural copy of a JSON-like value. Mappings and sequences
// are always rebuilt, so the result shares no mutable structure with x.
func Copy(x any) any {
	switch t := x.(type) {
	case map[string]any:
		if t == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = Copy(v)
		}
		return out
	case []any:
		if t == nil {
			return []any(nil)
		}
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = Copy(v)
		}
		return out
	default:
		return x
	}
}

// CopyMap is Copy for the common case of a mapping root. A nil map copies to
// an empty one.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Copy(m).(map[string]any)
}
