package flows

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/reoring/clientflow/internal/jsonio"
)

// ExtractionFormat is a string format naming what an opaque reference
// points to. The set is closed: each format has its own extractor.
type ExtractionFormat string

const (
	FormatCourseUID  ExtractionFormat = "course_uid"
	FormatJourneyUID ExtractionFormat = "journey_uid"
)

var (
	// ErrEntityNotFound is returned (possibly wrapped) when a referenced
	// course or journey does not exist. Readers should return it too.
	ErrEntityNotFound = errors.New("referenced entity not found")
	// ErrUnsupportedFormat is returned for string formats without an
	// extractor.
	ErrUnsupportedFormat = errors.New("unsupported extraction format")
)

// CourseReader returns the public projection of a course. The result is
// serialized to JSON before extraction. A nil result means not found.
type CourseReader interface {
	ReadCourse(ctx context.Context, uid string) (any, error)
}

// JourneyReader returns the external JSON representation of a journey.
// Empty bytes or JSON null mean not found.
type JourneyReader interface {
	ReadJourney(ctx context.Context, uid string) ([]byte, error)
}

// CourseReaderFunc adapts a function to CourseReader.
type CourseReaderFunc func(ctx context.Context, uid string) (any, error)

func (f CourseReaderFunc) ReadCourse(ctx context.Context, uid string) (any, error) { return f(ctx, uid) }

// JourneyReaderFunc adapts a function to JourneyReader.
type JourneyReaderFunc func(ctx context.Context, uid string) ([]byte, error)

func (f JourneyReaderFunc) ReadJourney(ctx context.Context, uid string) ([]byte, error) {
	return f(ctx, uid)
}

// entity resolves uid to a JSON tree according to format. Courses are
// memoized in memo, which the caller scopes to one trigger.
func (t *Transformer) entity(ctx context.Context, format ExtractionFormat, uid string, memo map[string]any) (any, error) {
	switch format {
	case FormatCourseUID:
		if v, ok := memo[uid]; ok {
			return v, nil
		}
		v, err := t.readCourse(ctx, uid)
		if err != nil {
			return nil, err
		}
		memo[uid] = v
		return v, nil
	case FormatJourneyUID:
		return t.readJourney(ctx, uid)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

func (t *Transformer) readCourse(ctx context.Context, uid string) (any, error) {
	if t.courses == nil {
		return nil, errors.New("no course reader configured")
	}
	c, err := t.courses.ReadCourse(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("read course %q: %w", uid, err)
	}
	if c == nil {
		return nil, fmt.Errorf("course %q: %w", uid, ErrEntityNotFound)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("serialize course %q: %w", uid, err)
	}
	var tree any
	if err := jsonio.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("serialize course %q: %w", uid, err)
	}
	return tree, nil
}

func (t *Transformer) readJourney(ctx context.Context, uid string) (any, error) {
	if t.journeys == nil {
		return nil, errors.New("no journey reader configured")
	}
	b, err := t.journeys.ReadJourney(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("read journey %q: %w", uid, err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, fmt.Errorf("journey %q: %w", uid, ErrEntityNotFound)
	}
	var tree any
	if err := jsonio.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("decode journey %q: %w", uid, err)
	}
	return tree, nil
}
