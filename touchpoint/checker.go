package touchpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/oas"
)

// Category tells which input a Problem is about.
type Category string

const (
	CategorySchema   Category = "schema"
	CategoryMessages Category = "messages"
)

// Problem describes why a touch point was rejected. Checking stops at the
// first violation; callers fix it and check again to see the next one.
type Problem struct {
	Category Category
	Message  string
}

func (p *Problem) String() string { return string(p.Category) + ": " + p.Message }

// ErrTemplateNotFound is returned by a TemplateProvider for an unknown
// template slug.
var ErrTemplateNotFound = errors.New("email template not found")

// TemplateProvider returns the JSON schema of an email template's
// parameters, with references inlined.
type TemplateProvider interface {
	TemplateSchema(ctx context.Context, slug string) (map[string]any, error)
}

// Options tunes the event schema check. The zero value suits event schemas,
// which rarely carry defaults or examples.
type Options struct {
	RequireDefaults bool
	RequireExamples bool
}

// Checker validates touch points. Templates may be nil when no messages
// are emails.
type Checker struct {
	Templates TemplateProvider
	Options   Options
	Logger    *slog.Logger
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Check validates schema and then every message against it, in order. It
// returns a nil Problem when the touch point is sound. The error is
// reserved for failures of the template provider.
func (c *Checker) Check(ctx context.Context, schema map[string]any, messages Messages) (*Problem, error) {
	if msg := c.checkSchema(schema); msg != "" {
		return &Problem{Category: CategorySchema, Message: msg}, nil
	}
	msg, err := c.firstMessageProblem(ctx, schema, messages)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		c.logger().DebugContext(ctx, "touch point rejected", "problem", msg)
		return &Problem{Category: CategoryMessages, Message: msg}, nil
	}
	return nil, nil
}

func (c *Checker) firstMessageProblem(ctx context.Context, schema map[string]any, messages Messages) (string, error) {
	for i, m := range messages.SMS {
		if found := checkTemplated(schema, fmt.Sprintf("sms[%d].body", i), m.BodyFormat, m.BodyParameters); len(found) > 0 {
			return found[0], nil
		}
	}
	for i, m := range messages.Push {
		if found := checkTemplated(schema, fmt.Sprintf("push[%d].title", i), m.TitleFormat, m.TitleParameters); len(found) > 0 {
			return found[0], nil
		}
		if found := checkTemplated(schema, fmt.Sprintf("push[%d].body", i), m.BodyFormat, m.BodyParameters); len(found) > 0 {
			return found[0], nil
		}
	}
	for i, m := range messages.Email {
		where := fmt.Sprintf("email[%d]", i)
		if found := checkTemplated(schema, where+".subject", m.SubjectFormat, m.SubjectParameters); len(found) > 0 {
			return found[0], nil
		}
		for j, s := range m.TemplateParametersSubstituted {
			if found := checkTemplated(schema, fmt.Sprintf("%s.template_parameters_substituted[%d]", where, j), s.Format, s.Parameters); len(found) > 0 {
				return found[0], nil
			}
		}
		found, err := c.checkEmailTemplate(ctx, where, m)
		if err != nil {
			return "", err
		}
		if len(found) > 0 {
			return found[0], nil
		}
	}
	return "", nil
}

func (c *Checker) checkSchema(schema map[string]any) string {
	err := oas.CheckSchema(schema, oas.CheckOptions{
		AllowMissingDefault: !c.Options.RequireDefaults,
		RequireExample:      c.Options.RequireExamples,
	})
	if err != nil {
		return err.Error()
	}
	err = oas.Walk(schema, oas.VisitorFunc(func(node map[string]any, schemaPath, _ deep.Path, _ bool) error {
		for _, kw := range []string{"not", "anyOf", "allOf"} {
			if _, ok := node[kw]; ok {
				return fmt.Errorf("%s: %s is not supported in touch point schemas", schemaPath.Pretty(), kw)
			}
		}
		return nil
	}))
	if err != nil {
		return err.Error()
	}
	return ""
}

// checkEmailTemplate matches the fixed and substituted template parameters
// of m against the remote template schema.
func (c *Checker) checkEmailTemplate(ctx context.Context, where string, m EmailMessage) ([]string, error) {
	if m.Template == "" {
		return []string{where + ": template is empty"}, nil
	}
	if c.Templates == nil {
		return nil, errors.New("touchpoint: email messages need a template provider")
	}
	tmpl, err := c.Templates.TemplateSchema(ctx, m.Template)
	if errors.Is(err, ErrTemplateNotFound) {
		return []string{fmt.Sprintf("%s: unknown email template %q", where, m.Template)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", m.Template, err)
	}

	var problems []string
	cc := NewCompileContext()
	var fixed any = m.TemplateParametersFixed
	if m.TemplateParametersFixed == nil {
		fixed = map[string]any{}
	}
	if err := checkFixed(cc, tmpl, fixed, deep.Path{}); err != nil {
		problems = append(problems, fmt.Sprintf("%s.template_parameters_fixed: %v", where, err))
	}

	keys := make([]deep.Path, 0, len(m.TemplateParametersSubstituted))
	settled := make([]*CompileContext, 0, len(m.TemplateParametersSubstituted))
	for j, s := range m.TemplateParametersSubstituted {
		at := fmt.Sprintf("%s.template_parameters_substituted[%d]", where, j)
		if len(s.Key) == 0 {
			problems = append(problems, at+": key is empty")
			continue
		}
		if _, err := deep.Extract(fixed, s.Key); err == nil {
			problems = append(problems, fmt.Sprintf("%s: %s is also fixed", at, s.Key.Pretty()))
			continue
		}
		sc := cc.CloneInheritingEliminations()
		if err := checkTarget(sc, tmpl, s.Key, deep.Path{}); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", at, err))
			continue
		}
		keys = append(keys, s.Key)
		settled = append(settled, sc)
	}

	if len(problems) == 0 {
		// coverage may only use branches every substitution left standing
		for _, sc := range settled {
			cc.absorbEliminations(sc)
		}
		if err := checkCoverage(cc, tmpl, fixed, keys, deep.Path{}); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
		}
	}
	return problems, nil
}
