package flows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/internal/logging"
	"github.com/reoring/clientflow/oas"
)

// Synthesized server parameter keys.
const (
	ExtractedKey = "__extracted"
	NoneKey      = "__none"
	BonusKey     = "__bonus_format_specs"
	E164Spec     = "e164"
)

const tracerName = "github.com/reoring/clientflow/flows"

// Transformer rewrites server parameters and flow screens when a flow is
// triggered. It is safe for concurrent use; all per-trigger state lives in
// the call.
type Transformer struct {
	courses  CourseReader
	journeys JourneyReader
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics records trigger outcomes and extractions in m.
func WithMetrics(m *Metrics) Option { return func(t *Transformer) { t.metrics = m } }

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Transformer) {
		if tp != nil {
			t.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewTransformer returns a Transformer resolving course_uid references with
// courses and journey_uid references with journeys.
func NewTransformer(courses CourseReader, journeys JourneyReader, opts ...Option) *Transformer {
	t := &Transformer{
		courses:  courses,
		journeys: journeys,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TriggerResult is the outcome of HandleTriggerTimeTransformations. When
// Skipped is true the caller must not realize the screen and the other
// fields are nil. Otherwise ServerParameters and FlowScreen are the inputs
// themselves when nothing needed rewriting.
type TriggerResult struct {
	Skipped          bool
	ServerParameters map[string]any
	FlowScreen       *FlowScreen
}

// HandleTriggerTimeTransformations processes the bindings of fs in order:
// extract bindings resolve referenced entities into __extracted, and
// string_format bindings are rewritten to reference synthesized keys
// instead of references, nulls and e164 phone numbers.
func (t *Transformer) HandleTriggerTimeTransformations(ctx context.Context, flow *ClientFlow, fs *FlowScreen, server map[string]any) (TriggerResult, error) {
	ctx, span := t.tracer.Start(ctx, "flows.HandleTriggerTimeTransformations", trace.WithAttributes(
		attribute.String(logging.FlowKey, flow.Slug),
		attribute.String(logging.ScreenKey, fs.Screen.Slug),
	))
	defer span.End()

	r := &triggerRun{
		t:       t,
		flow:    flow,
		server:  server,
		screen:  fs,
		courses: map[string]any{},
	}
	res, err := r.run(ctx)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.metrics.trigger(OutcomeError)
		return TriggerResult{}, err
	case res.Skipped:
		span.SetAttributes(attribute.String(logging.OutcomeKey, OutcomeSkip))
		t.metrics.trigger(OutcomeSkip)
	default:
		span.SetAttributes(attribute.String(logging.OutcomeKey, OutcomeSuccess))
		t.metrics.trigger(OutcomeSuccess)
	}
	return res, nil
}

// triggerRun is the state of one trigger. owned is nil until the server
// parameters had to be copied; screenOwned likewise for the flow screen.
type triggerRun struct {
	t           *Transformer
	flow        *ClientFlow
	server      map[string]any
	owned       map[string]any
	screen      *FlowScreen
	screenOwned bool
	courses     map[string]any
}

func (r *triggerRun) params() map[string]any {
	if r.owned == nil {
		r.owned = deep.CopyMap(r.server)
	}
	return r.owned
}

func (r *triggerRun) current() map[string]any {
	if r.owned != nil {
		return r.owned
	}
	return r.server
}

func (r *triggerRun) replace(i int, p VariableParameter) {
	if !r.screenOwned {
		cp := *r.screen
		cp.Screen.Variable = slices.Clone(r.screen.Screen.Variable)
		r.screen = &cp
		r.screenOwned = true
	}
	r.screen.Screen.Variable[i] = p
}

func (r *triggerRun) run(ctx context.Context) (TriggerResult, error) {
	for i, v := range r.screen.Screen.Variable {
		switch p := v.(type) {
		case CopyParameter:
		case ExtractParameter:
			skip, err := r.extractBinding(ctx, p)
			if err != nil {
				return TriggerResult{}, fmt.Errorf("variable[%d] (extract): %w", i, err)
			}
			if skip {
				r.t.logger.DebugContext(ctx, "skipping flow screen", logging.FlowKey, r.flow.Slug, logging.ScreenKey, r.screen.Screen.Slug, "binding", i)
				return TriggerResult{Skipped: true}, nil
			}
		case StringFormatParameter:
			np, changed, err := r.stringFormatBinding(ctx, p)
			if err != nil {
				return TriggerResult{}, fmt.Errorf("variable[%d] (string_format): %w", i, err)
			}
			if changed {
				r.replace(i, np)
			}
		default:
			return TriggerResult{}, fmt.Errorf("variable[%d]: %w: %T", i, ErrUnsupportedBinding, v)
		}
	}
	return TriggerResult{ServerParameters: r.current(), FlowScreen: r.screen}, nil
}

func isServerRooted(p deep.Path) bool {
	return len(p) > 0 && p[0].IsKey() && p[0].Key == NamespaceServer
}

// isSynthesized reports server paths into keys written by a previous
// transformation.
func isSynthesized(p deep.Path) bool {
	return len(p) > 1 && p[1].IsKey() && (p[1].Key == ExtractedKey || p[1].Key == BonusKey)
}

func (r *triggerRun) extractBinding(ctx context.Context, p ExtractParameter) (bool, error) {
	if !isServerRooted(p.InputPath) {
		return false, fmt.Errorf("input_path %s must be rooted at %q", p.InputPath.Pretty(), NamespaceServer)
	}
	if len(p.OutputPath) == 0 {
		return false, errors.New("empty output_path")
	}
	sub, val, err := oas.ExtractValueAndSubschema(r.flow.ServerSchema, r.current(), p.InputPath[1:])
	if err != nil {
		return false, err
	}
	dst := deep.Path{deep.Key(ExtractedKey)}.Concat(p.OutputPath.Keys())
	if oas.TypeOf(sub) == "null" || val == nil {
		if p.SkipIfMissing {
			return true, nil
		}
		return false, deep.Set(r.params(), dst, nil)
	}
	v, err := r.extract(ctx, sub, val, p.ExtractedPath)
	if err != nil {
		return false, err
	}
	return false, deep.Set(r.params(), dst, v)
}

func (r *triggerRun) stringFormatBinding(ctx context.Context, p StringFormatParameter) (StringFormatParameter, bool, error) {
	parts, err := ParseFormat(p.Format)
	if err != nil {
		return p, false, err
	}
	out := p.OutputPath.Keys()
	changed := false

	for idx := range parts {
		part := &parts[idx]
		if !part.HasField {
			continue
		}
		path, err := ParseFieldName(part.Field)
		if err != nil {
			return p, false, err
		}
		if !isServerRooted(path) || isSynthesized(path) {
			continue
		}
		split, err := oas.SplitInputPath(r.flow.ServerSchema, r.current(), path[1:])
		if err != nil {
			return p, false, fmt.Errorf("field {%s}: %w", part.Field, err)
		}
		switch {
		case split.IsSplit:
			v, err := r.extract(ctx, split.Schema, split.Value, split.ExtractPath)
			if err != nil {
				return p, false, fmt.Errorf("field {%s}: %w", part.Field, err)
			}
			dst := deep.Path{deep.Key(ExtractedKey)}.Concat(out).Key(partKey(idx))
			if err := deep.Set(r.params(), dst, v); err != nil {
				return p, false, err
			}
			part.Field = FieldName(deep.Path{deep.Key(NamespaceServer)}.Concat(dst))
			changed = true
		case split.IsNull():
			if err := deep.Set(r.params(), deep.P(ExtractedKey, NoneKey), nil); err != nil {
				return p, false, err
			}
			part.Field = FieldName(deep.P(NamespaceServer, ExtractedKey, NoneKey))
			changed = true
		}
	}

	for idx := range parts {
		part := &parts[idx]
		if !part.HasField || part.Spec != E164Spec {
			continue
		}
		path, err := ParseFieldName(part.Field)
		if err != nil {
			return p, false, err
		}
		if !isServerRooted(path) {
			continue
		}
		// synthesized mappings key output indices by their decimal string
		v, err := lookupField(map[string]any{NamespaceServer: r.current()}, path)
		if err != nil {
			return p, false, fmt.Errorf("field {%s}: %w", part.Field, err)
		}
		s, ok := v.(string)
		if !ok {
			return p, false, fmt.Errorf("field {%s}: %s needs a string, got %s", part.Field, E164Spec, pyTypeName(v))
		}
		dst := deep.P(BonusKey, E164Spec).Concat(out).Key(partKey(idx))
		if err := deep.Set(r.params(), dst, FormatE164(s)); err != nil {
			return p, false, err
		}
		part.Field = FieldName(deep.Path{deep.Key(NamespaceServer)}.Concat(dst))
		part.Spec = ""
		changed = true
	}

	if !changed {
		return p, false, nil
	}
	return StringFormatParameter{Format: Format(parts).String(), OutputPath: p.OutputPath}, true, nil
}

func partKey(idx int) string { return "_" + strconv.Itoa(idx) }

// extract resolves the reference val (described by schema) and pulls path
// out of the referenced entity.
func (r *triggerRun) extract(ctx context.Context, schema map[string]any, val any, path deep.Path) (any, error) {
	if oas.TypeOf(schema) != "string" || oas.FormatOf(schema) == "" {
		return nil, fmt.Errorf("not an extractable target: need a string with a format, got type %q", oas.TypeOf(schema))
	}
	uid, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("not an extractable target: value is %s", pyTypeName(val))
	}
	format := ExtractionFormat(oas.FormatOf(schema))

	ctx, span := r.t.tracer.Start(ctx, "flows.extract", trace.WithAttributes(
		attribute.String(logging.FormatKey, string(format)),
		attribute.String(logging.UIDKey, uid),
	))
	defer span.End()
	r.t.logger.DebugContext(ctx, "extracting", logging.FlowKey, r.flow.Slug, logging.FormatKey, string(format), logging.UIDKey, uid)

	entity, err := r.t.entity(ctx, format, uid, r.courses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	r.t.metrics.extraction(format)
	v, err := deep.Extract(entity, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s from %s %q: %w", path.Pretty(), format, uid, err)
	}
	return deep.Copy(v), nil
}

// FormatE164 renders a US number "+1XXXXXXXXXX" as "+1 XXX-XXX-XXXX". Other
// values are returned unchanged; only the +1 country code is recognized.
func FormatE164(s string) string {
	if len(s) != 12 || !strings.HasPrefix(s, "+1") || !isDigits(s[2:]) {
		return s
	}
	return "+1 " + s[2:5] + "-" + s[5:8] + "-" + s[8:]
}
