// Package jsonio loads JSON and YAML documents into JSON-like trees.
// JSON numbers are kept as json.Number so integers survive round trips.
package jsonio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/clientflow/deep"
)

// ErrDuplicateKey is wrapped by DuplicateKeyError.
var ErrDuplicateKey = errors.New("duplicate object key")

// DuplicateKeyError reports the first repeated key of an authored document.
type DuplicateKeyError struct {
	Path deep.Path
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%v at %s", ErrDuplicateKey, e.Path.Pretty())
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// Unmarshal decodes JSON into v with UseNumber.
func Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("jsonio: trailing data after JSON value")
	}
	return nil
}

// Decode parses a JSON document into a tree, rejecting duplicate keys.
func Decode(data []byte) (any, error) {
	if err := CheckDuplicateKeys(data); err != nil {
		return nil, err
	}
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads a JSON or YAML file (by extension) into a tree.
func Load(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v any
	if isYAML(path) {
		v, err = DecodeYAML(data)
	} else {
		v, err = Decode(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// LoadObject is Load for documents whose root must be an object.
func LoadObject(path string) (map[string]any, error) {
	v, err := Load(path)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: root must be an object, got %T", path, v)
	}
	return m, nil
}

// LoadInto decodes a JSON or YAML file into v using v's JSON mapping.
func LoadInto(path string, v any) error {
	tree, err := Load(path)
	if err != nil {
		return err
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

type dupFrame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	path         deep.Path
	next         int
}

// CheckDuplicateKeys scans a JSON document and returns a *DuplicateKeyError
// for the first object key seen twice in the same object.
func CheckDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []dupFrame

	// valueDone is called after a complete value inside the top frame.
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.expectingKey = true
		} else {
			top.next++
		}
	}
	childPath := func() deep.Path {
		if len(stack) == 0 {
			return deep.Path{}
		}
		top := stack[len(stack)-1]
		if top.object {
			return top.path
		}
		return top.path.Index(top.next)
	}

	var lastKey string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				p := childPath()
				if len(stack) > 0 && stack[len(stack)-1].object {
					p = p.Key(lastKey)
				}
				stack = append(stack, dupFrame{object: v == '{', keys: map[string]struct{}{}, expectingKey: true, path: p})
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.object && top.expectingKey {
					if _, dup := top.keys[v]; dup {
						return &DuplicateKeyError{Path: top.path.Key(v)}
					}
					top.keys[v] = struct{}{}
					top.expectingKey = false
					lastKey = v
					continue
				}
			}
			valueDone()
		default:
			valueDone()
		}
	}
}
