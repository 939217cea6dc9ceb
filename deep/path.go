package deep

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// SegmentKind tells how a Segment addresses its container.
type SegmentKind int

const (
	// KindKey addresses a mapping by string key.
	KindKey SegmentKind = iota
	// KindIndex addresses a sequence by position.
	KindIndex
	// KindWildcard stands for any element of a sequence. It is only
	// meaningful when addressing schemas.
	KindWildcard
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

// Key returns a mapping segment.
func Key(name string) Segment { return Segment{Kind: KindKey, Key: name} }

// Index returns a sequence segment. Negative indices are rejected when used.
func Index(i int) Segment { return Segment{Kind: KindIndex, Index: i} }

// Wildcard returns the "any array element" segment.
func Wildcard() Segment { return Segment{Kind: KindWildcard} }

// IsKey reports whether s addresses a mapping.
func (s Segment) IsKey() bool { return s.Kind == KindKey }

// IsIndex reports whether s addresses a sequence position.
func (s Segment) IsIndex() bool { return s.Kind == KindIndex }

// IsWildcard reports whether s is the array wildcard.
func (s Segment) IsWildcard() bool { return s.Kind == KindWildcard }

// String renders the segment as it would appear in a dotted path.
func (s Segment) String() string {
	switch s.Kind {
	case KindIndex:
		return strconv.Itoa(s.Index)
	case KindWildcard:
		return "*"
	default:
		return s.Key
	}
}

// MarshalJSON encodes keys as strings and indices as integers.
func (s Segment) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindKey:
		return json.Marshal(s.Key)
	case KindIndex:
		return []byte(strconv.Itoa(s.Index)), nil
	default:
		return nil, errors.New("deep: wildcard segments have no JSON form")
	}
}

// UnmarshalJSON accepts a string (key) or a non-negative integer (index).
func (s *Segment) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var k string
		if err := json.Unmarshal(b, &k); err != nil {
			return err
		}
		*s = Key(k)
		return nil
	}
	i, err := strconv.Atoi(string(b))
	if err != nil || i < 0 {
		return fmt.Errorf("deep: path segment must be a string or non-negative integer, got %s", string(b))
	}
	*s = Index(i)
	return nil
}

// Path addresses a node inside a JSON-like value or schema.
type Path []Segment

// P builds a Path from strings (keys) and ints (indices). Any other element
// panics; this is meant for literals in code and tests.
func P(parts ...any) Path {
	out := make(Path, 0, len(parts))
	for _, p := range parts {
		switch t := p.(type) {
		case string:
			out = append(out, Key(t))
		case int:
			out = append(out, Index(t))
		case Segment:
			out = append(out, t)
		default:
			panic(fmt.Sprintf("deep.P: unsupported segment %T", p))
		}
	}
	return out
}

// ParseDotted splits "a.b.0" into a Path; purely numeric parts become indices
// and "*" becomes the wildcard.
func ParseDotted(s string) Path {
	if s == "" || s == "$" {
		return Path{}
	}
	s = strings.TrimPrefix(s, "$.")
	parts := strings.Split(s, ".")
	out := make(Path, 0, len(parts))
	for _, p := range parts {
		if p == "*" {
			out = append(out, Wildcard())
			continue
		}
		if i, err := strconv.Atoi(p); err == nil && i >= 0 {
			out = append(out, Index(i))
			continue
		}
		out = append(out, Key(p))
	}
	return out
}

// Key returns a new path with a key segment appended. The receiver is never
// aliased by the result.
func (p Path) Key(name string) Path { return p.Append(Key(name)) }

// Index returns a new path with an index segment appended.
func (p Path) Index(i int) Path { return p.Append(Index(i)) }

// Wildcard returns a new path with the wildcard appended.
func (p Path) Wildcard() Path { return p.Append(Wildcard()) }

// Append returns a new path with segs appended.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Concat returns p followed by q.
func (p Path) Concat(q Path) Path { return p.Append(q...) }

// Equal reports whether both paths have identical segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q is a prefix of p.
func (p Path) HasPrefix(q Path) bool {
	return len(q) <= len(p) && p[:len(q)].Equal(q)
}

// Pretty renders the path as $.a.b[0].c[*] for messages.
func (p Path) Pretty() string {
	b := &strings.Builder{}
	b.WriteString("$")
	for _, s := range p {
		switch s.Kind {
		case KindIndex:
			b.WriteString("[")
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteString("]")
		case KindWildcard:
			b.WriteString("[*]")
		default:
			b.WriteString(".")
			b.WriteString(s.Key)
		}
	}
	return b.String()
}

// String is Pretty.
func (p Path) String() string { return p.Pretty() }

// Keys stringifies every segment into a key, which is how output paths are
// stored inside synthesized mappings.
func (p Path) Keys() Path {
	out := make(Path, len(p))
	for i, s := range p {
		out[i] = Key(s.String())
	}
	return out
}
