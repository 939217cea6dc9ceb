package flows

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/clientflow/deep"
)

// FormatPart is a literal run optionally followed by a replacement field,
// as produced by Python's string.Formatter.parse.
type FormatPart struct {
	Literal  string
	HasField bool
	Field    string
	// Conversion is 0, 's', 'r' or 'a'.
	Conversion byte
	Spec       string
}

// Format is a parsed format string.
type Format []FormatPart

var errSingleClose = errors.New("single '}' encountered in format string")

// ParseFormat splits a Python-style format string into parts.
func ParseFormat(s string) (Format, error) {
	var out Format
	var lit strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end, err := scanField(s, i+1)
			if err != nil {
				return nil, err
			}
			part, err := splitField(s[i+1 : end])
			if err != nil {
				return nil, err
			}
			part.Literal = lit.String()
			lit.Reset()
			out = append(out, part)
			i = end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, errSingleClose
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if lit.Len() > 0 {
		out = append(out, FormatPart{Literal: lit.String()})
	}
	return out, nil
}

// scanField returns the index of the '}' closing the field that starts at i.
// Brackets in the field name are opaque; braces in the spec nest.
func scanField(s string, i int) (int, error) {
	depth := 1
	inSpec := false
	for i < len(s) {
		c := s[i]
		switch {
		case !inSpec && c == '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return 0, errors.New("missing ']' in format string")
			}
			i += j + 1
			continue
		case !inSpec && (c == ':' || c == '!'):
			inSpec = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return 0, errors.New("expected '}' before end of string")
}

func splitField(f string) (FormatPart, error) {
	part := FormatPart{HasField: true}
	i := 0
	for i < len(f) {
		if f[i] == '[' {
			j := strings.IndexByte(f[i:], ']')
			if j < 0 {
				return part, errors.New("missing ']' in format string")
			}
			i += j + 1
			continue
		}
		if f[i] == ':' || f[i] == '!' {
			break
		}
		i++
	}
	part.Field = f[:i]
	rest := f[i:]
	if strings.HasPrefix(rest, "!") {
		if len(rest) < 2 {
			return part, errors.New("end of string while looking for conversion specifier")
		}
		part.Conversion = rest[1]
		switch part.Conversion {
		case 's', 'r', 'a':
		default:
			return part, fmt.Errorf("unknown conversion specifier %q", string(part.Conversion))
		}
		rest = rest[2:]
		if rest != "" && rest[0] != ':' {
			return part, errors.New("expected ':' after conversion specifier")
		}
	}
	part.Spec = strings.TrimPrefix(rest, ":")
	return part, nil
}

// String renders the format back to text, escaping literal braces.
func (f Format) String() string {
	var b strings.Builder
	for _, p := range f {
		b.WriteString(strings.NewReplacer("{", "{{", "}", "}}").Replace(p.Literal))
		if !p.HasField {
			continue
		}
		b.WriteByte('{')
		b.WriteString(p.Field)
		if p.Conversion != 0 {
			b.WriteByte('!')
			b.WriteByte(p.Conversion)
		}
		if p.Spec != "" {
			b.WriteByte(':')
			b.WriteString(p.Spec)
		}
		b.WriteByte('}')
	}
	return b.String()
}

// ParseFieldName converts "server[user][0].name" into a path. Bracketed
// all-digit keys become indices; attributes and other keys become keys.
func ParseFieldName(name string) (deep.Path, error) {
	end := strings.IndexAny(name, ".[")
	if end < 0 {
		end = len(name)
	}
	if end == 0 {
		return nil, fmt.Errorf("field %q has no argument name", name)
	}
	path := deep.Path{deep.Key(name[:end])}
	rest := name[end:]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			n := strings.IndexAny(rest, ".[")
			if n < 0 {
				n = len(rest)
			}
			if n == 0 {
				return nil, fmt.Errorf("empty attribute in format field %q", name)
			}
			path = append(path, deep.Key(rest[:n]))
			rest = rest[n:]
		case '[':
			n := strings.IndexByte(rest, ']')
			if n < 0 {
				return nil, fmt.Errorf("missing ']' in format field %q", name)
			}
			key := rest[1:n]
			if key == "" {
				return nil, fmt.Errorf("empty attribute in format field %q", name)
			}
			if idx, err := strconv.Atoi(key); err == nil && idx >= 0 && isDigits(key) {
				path = append(path, deep.Index(idx))
			} else {
				path = append(path, deep.Key(key))
			}
			rest = rest[n+1:]
		default:
			return nil, fmt.Errorf("only '.' or '[' may follow ']' in format field %q", name)
		}
	}
	return path, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// FieldName renders a path as a format field name: the first segment is the
// argument, the rest are bracketed.
func FieldName(path deep.Path) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(path[0].String())
	for _, s := range path[1:] {
		b.WriteByte('[')
		b.WriteString(s.String())
		b.WriteByte(']')
	}
	return b.String()
}

// Render formats the template against keyword arguments, the way Python's
// str.format(**namespaces) does for JSON-like values.
func Render(format string, namespaces map[string]any) (string, error) {
	parts, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Literal)
		if !p.HasField {
			continue
		}
		if p.Field == "" || isDigits(strings.SplitN(p.Field, "[", 2)[0]) {
			return "", fmt.Errorf("positional format fields are not supported: {%s}", p.Field)
		}
		path, err := ParseFieldName(p.Field)
		if err != nil {
			return "", err
		}
		v, err := lookupField(namespaces, path)
		if err != nil {
			return "", fmt.Errorf("format field {%s}: %w", p.Field, err)
		}
		switch p.Conversion {
		case 's':
			v = pyStr(v)
		case 'r':
			v = pyRepr(v, false)
		case 'a':
			v = pyRepr(v, true)
		}
		if strings.ContainsAny(p.Spec, "{}") {
			return "", fmt.Errorf("format field {%s}: nested replacement fields are not supported", p.Field)
		}
		s, err := formatValue(v, p.Spec)
		if err != nil {
			return "", fmt.Errorf("format field {%s}: %w", p.Field, err)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// lookupField resolves like Python item access: a digit index on a mapping
// looks up the decimal key.
func lookupField(ns map[string]any, path deep.Path) (any, error) {
	cur, ok := ns[path[0].Key]
	if !ok {
		return nil, fmt.Errorf("KeyError: %q", path[0].Key)
	}
	for i, seg := range path[1:] {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg.String()]
			if !ok {
				return nil, fmt.Errorf("KeyError: %q at %s", seg.String(), path[:i+1].Pretty())
			}
			cur = v
		case []any:
			if !seg.IsIndex() {
				return nil, fmt.Errorf("list indices must be integers, got %q at %s", seg.String(), path[:i+1].Pretty())
			}
			if seg.Index >= len(t) {
				return nil, fmt.Errorf("IndexError: list index %d out of range at %s", seg.Index, path[:i+1].Pretty())
			}
			cur = t[seg.Index]
		default:
			return nil, fmt.Errorf("%s is not subscriptable at %s", pyTypeName(cur), path[:i+1].Pretty())
		}
	}
	return cur, nil
}
