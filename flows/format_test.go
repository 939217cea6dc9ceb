package flows

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/reoring/clientflow/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	parts, err := ParseFormat("Hi {server[user][name]!r:>10}, {{not a field}} {client.x}")
	require.NoError(t, err)
	assert.Equal(t, Format{
		{Literal: "Hi ", HasField: true, Field: "server[user][name]", Conversion: 'r', Spec: ">10"},
		{Literal: ", {not a field} ", HasField: true, Field: "client.x"},
	}, parts)
}

func TestParseFormat_BracketsAreOpaque(t *testing.T) {
	parts, err := ParseFormat("{server[a:b!c]:>3}")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "server[a:b!c]", parts[0].Field)
	assert.Equal(t, ">3", parts[0].Spec)
}

func TestParseFormat_Errors(t *testing.T) {
	for _, s := range []string{"}", "{server", "{server!x}", "{server!rx}", "{server[a}"} {
		_, err := ParseFormat(s)
		assert.Error(t, err, s)
	}
}

func TestFormat_StringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"plain",
		"a {{b}} {server[x]!r:>5} c",
		"{server[phone_number]:e164}",
		"}}{{",
	} {
		parts, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, s, parts.String())
	}
}

func TestParseFieldName(t *testing.T) {
	p, err := ParseFieldName("server[a][0].b[_1]")
	require.NoError(t, err)
	assert.Equal(t, deep.P("server", "a", 0, "b", "_1"), p)

	for _, bad := range []string{"", "[a]", "server[]", "server.", "server[a]x", "server[a"} {
		_, err := ParseFieldName(bad)
		assert.Error(t, err, bad)
	}
}

func TestFieldName(t *testing.T) {
	p := deep.P("server", "__extracted", "a", "0", "_2")
	name := FieldName(p)
	assert.Equal(t, "server[__extracted][a][0][_2]", name)

	back, err := ParseFieldName(name)
	require.NoError(t, err)
	// digit keys come back as indices; Render looks those up as decimal keys
	assert.Equal(t, deep.P("server", "__extracted", "a", 0, "_2"), back)
}

func TestRender(t *testing.T) {
	ns := map[string]any{
		"server": map[string]any{
			"name":  "Ann",
			"quote": "it's",
			"n":     json.Number("42"),
			"big":   json.Number("1234567"),
			"pi":    json.Number("3.14159"),
			"half":  json.Number("2.50"),
			"huge":  1e16,
			"none":  nil,
			"yes":   true,
			"list":  []any{json.Number("1"), "a", nil},
			"dict":  map[string]any{"b": json.Number("2"), "a": "x"},
			"byidx": map[string]any{"0": "zero"},
			"neg":   -7,
			"ratio": 0.256,
		},
		"client": map[string]any{},
	}
	tests := []struct {
		format string
		want   string
	}{
		{"Hello {server[name]}!", "Hello Ann!"},
		{"{{literal}} {server[name]}", "{literal} Ann"},
		{"{server[quote]!r}", `"it's"`},
		{"{server[name]!r}", "'Ann'"},
		{"{server[n]:05d}", "00042"},
		{"{server[n]:+}", "+42"},
		{"{server[neg]:05}", "-0007"},
		{"{server[big]:,}", "1,234,567"},
		{"{server[pi]:.2f}", "3.14"},
		{"{server[pi]:.3}", "3.14"},
		{"{server[half]}", "2.5"},
		{"{server[huge]}", "1e+16"},
		{"{server[ratio]:.1%}", "25.6%"},
		{"{server[n]:.1f}", "42.0"},
		{"{server[none]}", "None"},
		{"{server[yes]}", "True"},
		{"{server[list]}", "[1, 'a', None]"},
		{"{server[dict]}", "{'a': 'x', 'b': 2}"},
		{"{server[list][1]}", "a"},
		{"{server[byidx][0]}", "zero"},
		{"{server[name]:>6}", "   Ann"},
		{"{server[name]:*^7}", "**Ann**"},
		{"{server[name]:<5}|", "Ann  |"},
		{"{server[name]:.2}", "An"},
		{"{server[name]!r:>7}", "  'Ann'"},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			got, err := Render(tc.format, ns)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	ns := map[string]any{"server": map[string]any{"s": "x", "n": 1, "none": nil, "list": []any{}}}
	for _, format := range []string{
		"{server[missing]}",
		"{client[x]}",
		"{0}",
		"{}",
		"{server[s]:e164}",
		"{server[s]:+}",
		"{server[n]:s}",
		"{server[none]:>4}",
		"{server[list][3]}",
		"{server[s][0]}",
		"{server[s]:{w}}",
	} {
		_, err := Render(format, ns)
		assert.Error(t, err, format)
	}
}

func TestPyFloatRepr(t *testing.T) {
	tests := map[float64]string{
		0:      "0.0",
		1:      "1.0",
		0.1:    "0.1",
		-2.5:   "-2.5",
		1e15:   "1000000000000000.0",
		1e16:   "1e+16",
		1.5e16: "1.5e+16",
		0.0001: "0.0001",
		1e-5:   "1e-05",
		123.45: "123.45",
	}
	for f, want := range tests {
		assert.Equal(t, want, pyFloatRepr(f))
	}
}

func TestQuotePy(t *testing.T) {
	assert.Equal(t, `'plain'`, quotePy("plain", false))
	assert.Equal(t, `"it's"`, quotePy("it's", false))
	assert.Equal(t, `'a\'b"c'`, quotePy(`a'b"c`, false))
	assert.Equal(t, `'line\nbreak\ttab'`, quotePy("line\nbreak\ttab", false))
	assert.Equal(t, `'café'`, quotePy("café", false))
	assert.Equal(t, `'caf\xe9'`, quotePy("café", true))
	assert.Equal(t, `'日'`, quotePy("日", false))
	assert.Equal(t, `'\u65e5'`, quotePy("日", true))
	assert.Equal(t, `'\x00'`, quotePy("\x00", false))
}

func TestFormatE164(t *testing.T) {
	assert.Equal(t, "+1 510-555-1234", FormatE164("+15105551234"))
	for _, s := range []string{"5105551234", "+445105551234", "+1510555123", "+1510555123x", ""} {
		assert.Equal(t, s, FormatE164(s))
	}
}
