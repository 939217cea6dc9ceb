package jsonio

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KeepsNumbers(t *testing.T) {
	v, err := Decode([]byte(`{"a": 12345678901234567890, "b": [1.5]}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), m["a"])
	assert.Equal(t, []any{json.Number("1.5")}, m["b"])
}

func TestCheckDuplicateKeys(t *testing.T) {
	tests := []struct {
		doc  string
		path string
	}{
		{`{"a": 1, "a": 2}`, "$.a"},
		{`{"a": {"b": 1, "c": [1, {"d": 1, "d": 2}]}}`, "$.a.c[1].d"},
		{`[{"x": 1}, {"y": 1, "y": 1}]`, "$[1].y"},
	}
	for _, tc := range tests {
		err := CheckDuplicateKeys([]byte(tc.doc))
		var de *DuplicateKeyError
		require.ErrorAs(t, err, &de, tc.doc)
		assert.Equal(t, tc.path, de.Path.Pretty())
		assert.ErrorIs(t, err, ErrDuplicateKey)
	}
	assert.NoError(t, CheckDuplicateKeys([]byte(`{"a": {"a": 1}, "b": [{"a": 1}, {"a": 2}]}`)))
}

func TestLoad_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("type: object\nproperties:\n  a:\n    type: string\n"), 0o600))
	js := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"type":"object","properties":{"a":{"type":"string"}}}`), 0o600))

	a, err := LoadObject(yml)
	require.NoError(t, err)
	b, err := LoadObject(js)
	require.NoError(t, err)
	assert.Equal(t, b, a)

	var into struct {
		Type string `json:"type"`
	}
	require.NoError(t, LoadInto(yml, &into))
	assert.Equal(t, "object", into.Type)

	arr := filepath.Join(dir, "arr.json")
	require.NoError(t, os.WriteFile(arr, []byte(`[1]`), 0o600))
	_, err = LoadObject(arr)
	assert.ErrorContains(t, err, "root must be an object")
}
