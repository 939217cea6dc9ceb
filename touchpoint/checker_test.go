package touchpoint

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reoring/clientflow/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Valid(t *testing.T) {
	c := &Checker{Templates: &fakeTemplates{schemas: map[string]map[string]any{"welcome": templateSchema()}}}
	msgs := Messages{
		SMS: []SMSMessage{{
			BodyFormat:     "Hi {user[name]}, watch {journey.title}",
			BodyParameters: []string{"user.name", "journey.title"},
		}},
		Push: []PushMessage{{
			TitleFormat:     "{items[0]}",
			TitleParameters: []string{"items.0"},
			BodyFormat:      "No parameters here",
			ChannelID:       "daily",
		}},
		Email: []EmailMessage{{
			SubjectFormat:           "Welcome {user[name]}",
			SubjectParameters:       []string{"user.name"},
			Template:                "welcome",
			TemplateParametersFixed: map[string]any{"cta": map[string]any{"kind": "link"}, "greeting": nil},
			TemplateParametersSubstituted: []Substitution{
				{Key: deep.P("name"), Format: "{user[name]}", Parameters: []string{"user.name"}},
				{Key: deep.P("cta", "url"), Format: "https://example.com/{journey[title]!s}", Parameters: []string{"journey.title"}},
			},
		}},
	}
	p, err := c.Check(context.Background(), eventSchema(), msgs)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCheck_SchemaProblems(t *testing.T) {
	c := &Checker{}

	withDefault := eventSchema()
	withDefault["default"] = map[string]any{}
	p, err := c.Check(context.Background(), withDefault, Messages{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, CategorySchema, p.Category)
	assert.Contains(t, p.Message, "$.default")

	withNot := eventSchema()
	withNot["properties"].(map[string]any)["count"] = map[string]any{
		"type": "integer",
		"not":  map[string]any{"type": "integer", "enum": []any{3}},
	}
	p, err = c.Check(context.Background(), withNot, Messages{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, CategorySchema, p.Category)
	assert.Contains(t, p.Message, "not is not supported")
}

func TestCheck_ParameterProblems(t *testing.T) {
	tests := []struct {
		name   string
		format string
		params []string
		want   string
	}{
		{"branch without key", "{journey[url]}", []string{"journey.url"}, "not declared in every branch"},
		{"optional key", "{note}", []string{"note"}, "$.note is not required"},
		{"nullable parent", "{meta[source]}", []string{"meta.source"}, "$.meta may be null"},
		{"optional nested key", "{user[nickname]}", []string{"user.nickname"}, "$.user.nickname is not required"},
		{"index beyond minItems", "{items[1]}", []string{"items.1"}, "minItems of at least 2"},
		{"key into array", "{items[x]}", []string{"items.x"}, "needs an index"},
		{"into a string", "{user[name][first]}", []string{"user.name.first"}, "is a string"},
		{"undeclared reference", "{user[name]}", nil, "undeclared parameter {user[name]}"},
		{"unused declaration", "hello", []string{"user.name"}, `"user.name" is declared but not used`},
		{"declared twice", "{user[name]}", []string{"user.name", "user.name"}, "declared twice"},
		{"wildcard", "{items[0]}", []string{"items.*", "items.0"}, "not a concrete path"},
		{"positional", "{0}", nil, "positional"},
		{"bad format", "{user", []string{"user.name"}, "sms[0].body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Checker{}
			p, err := c.Check(context.Background(), eventSchema(), Messages{
				SMS: []SMSMessage{{BodyFormat: tc.format, BodyParameters: tc.params}},
			})
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, CategoryMessages, p.Category)
			assert.Contains(t, p.Message, tc.want)
		})
	}
}

func TestCheck_StopsAtFirstMessageProblem(t *testing.T) {
	c := &Checker{}
	msgs := Messages{
		SMS: []SMSMessage{{BodyFormat: "{note} {nickname}", BodyParameters: []string{"note", "nickname"}}},
		Push: []PushMessage{{
			TitleFormat: "{user[name]}",
			BodyFormat:  "ok",
		}},
	}
	p, err := c.Check(context.Background(), eventSchema(), msgs)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, strings.HasPrefix(p.Message, "sms[0].body: "), p.Message)
	assert.NotContains(t, p.Message, "\n")

	// fixing the sms surfaces the push problem
	msgs.SMS = nil
	p, err = c.Check(context.Background(), eventSchema(), msgs)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, strings.HasPrefix(p.Message, "push[0].title: "), p.Message)
}

// unionTemplate has two cta branches pinned to the same kind, so a fixed
// kind alone cannot tell them apart.
func unionTemplate() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"cta"},
		"properties": map[string]any{
			"cta": map[string]any{
				"x-enum-discriminator": "kind",
				"oneOf": []any{
					map[string]any{
						"type":     "object",
						"required": []any{"kind", "text", "url"},
						"properties": map[string]any{
							"kind": map[string]any{"type": "string", "enum": []any{"action"}},
							"text": map[string]any{"type": "string"},
							"url":  map[string]any{"type": "string"},
						},
					},
					map[string]any{
						"type":     "object",
						"required": []any{"kind", "text"},
						"properties": map[string]any{
							"kind": map[string]any{"type": "string", "enum": []any{"action"}},
							"text": map[string]any{"type": "integer"},
						},
					},
				},
			},
		},
	}
}

func TestCheck_CoverageUsesBranchesEverySubstitutionAccepts(t *testing.T) {
	c := &Checker{Templates: &fakeTemplates{schemas: map[string]map[string]any{"action": unionTemplate()}}}
	email := EmailMessage{
		Template:                "action",
		TemplateParametersFixed: map[string]any{"cta": map[string]any{"kind": "action"}},
		TemplateParametersSubstituted: []Substitution{
			{Key: deep.P("cta", "text"), Format: "{user[name]}", Parameters: []string{"user.name"}},
		},
	}
	// the integer branch is covered but cannot take the substituted text
	p, err := c.Check(context.Background(), eventSchema(), Messages{Email: []EmailMessage{email}})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Contains(t, p.Message, "required template parameter $.cta.url is neither fixed nor substituted")

	email.TemplateParametersFixed = map[string]any{"cta": map[string]any{"kind": "action", "url": "https://example.com"}}
	p, err = c.Check(context.Background(), eventSchema(), Messages{Email: []EmailMessage{email}})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCheck_EmailTemplateProblems(t *testing.T) {
	subst := func(key ...any) Substitution {
		return Substitution{Key: deep.P(key...), Format: "{user[name]}", Parameters: []string{"user.name"}}
	}
	tests := []struct {
		name  string
		email EmailMessage
		want  string
	}{
		{
			name:  "unknown template",
			email: EmailMessage{Template: "nope"},
			want:  `unknown email template "nope"`,
		},
		{
			name:  "empty template",
			email: EmailMessage{},
			want:  "template is empty",
		},
		{
			name: "fixed value of the wrong type",
			email: EmailMessage{
				Template:                      "welcome",
				TemplateParametersFixed:       map[string]any{"name": 3, "cta": map[string]any{"kind": "link", "url": "u"}},
				TemplateParametersSubstituted: nil,
			},
			want: "template_parameters_fixed: $.name",
		},
		{
			name: "unknown fixed key",
			email: EmailMessage{
				Template:                "welcome",
				TemplateParametersFixed: map[string]any{"colour": "red"},
			},
			want: "$.colour is not a template parameter",
		},
		{
			name: "fixed discriminator rules out every branch",
			email: EmailMessage{
				Template:                "welcome",
				TemplateParametersFixed: map[string]any{"cta": map[string]any{"kind": "banner"}},
			},
			want: "no kind branch accepts the fixed value",
		},
		{
			name: "substitution into an eliminated branch",
			email: EmailMessage{
				Template:                      "welcome",
				TemplateParametersFixed:       map[string]any{"cta": map[string]any{"kind": "link"}},
				TemplateParametersSubstituted: []Substitution{subst("name"), subst("cta", "label")},
			},
			want: "no kind branch accepts a string at $.cta.label",
		},
		{
			name: "substitution into a non-string",
			email: EmailMessage{
				Template:                      "welcome",
				TemplateParametersFixed:       map[string]any{"cta": map[string]any{"kind": "button"}},
				TemplateParametersSubstituted: []Substitution{subst("name"), subst("cta", "size")},
			},
			want: "is a integer, substitutions produce strings",
		},
		{
			name: "substituting the discriminator",
			email: EmailMessage{
				Template:                      "welcome",
				TemplateParametersSubstituted: []Substitution{subst("cta", "kind")},
			},
			want: "the discriminator kind cannot be substituted",
		},
		{
			name: "substitution overlaps a fixed value",
			email: EmailMessage{
				Template:                      "welcome",
				TemplateParametersFixed:       map[string]any{"name": "Ann"},
				TemplateParametersSubstituted: []Substitution{subst("name")},
			},
			want: "$.name is also fixed",
		},
		{
			name: "required parameter missing",
			email: EmailMessage{
				Template:                "welcome",
				TemplateParametersFixed: map[string]any{"cta": map[string]any{"kind": "link", "url": "https://example.com"}},
			},
			want: "required template parameter $.name is neither fixed nor substituted",
		},
		{
			name: "required field of the remaining branch missing",
			email: EmailMessage{
				Template:                      "welcome",
				TemplateParametersFixed:       map[string]any{"cta": map[string]any{"kind": "button"}},
				TemplateParametersSubstituted: []Substitution{subst("name")},
			},
			want: "required template parameter $.cta.label",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Checker{Templates: &fakeTemplates{schemas: map[string]map[string]any{"welcome": templateSchema()}}}
			p, err := c.Check(context.Background(), eventSchema(), Messages{Email: []EmailMessage{tc.email}})
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, CategoryMessages, p.Category)
			assert.Contains(t, p.Message, tc.want)
		})
	}
}

func TestCheck_ProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	c := &Checker{Templates: &fakeTemplates{err: boom}}
	_, err := c.Check(context.Background(), eventSchema(), Messages{Email: []EmailMessage{{Template: "welcome"}}})
	assert.ErrorIs(t, err, boom)

	c = &Checker{}
	_, err = c.Check(context.Background(), eventSchema(), Messages{Email: []EmailMessage{{Template: "welcome"}}})
	assert.ErrorContains(t, err, "template provider")
}

func TestProblem_String(t *testing.T) {
	p := &Problem{Category: CategoryMessages, Message: "sms[0].body: oops"}
	assert.Equal(t, "messages: sms[0].body: oops", p.String())
}
