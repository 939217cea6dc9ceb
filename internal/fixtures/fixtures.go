// Package fixtures serves courses and journeys from a JSON or YAML file, for
// rendering flow screens offline.
package fixtures

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/reoring/clientflow/flows"
	"github.com/reoring/clientflow/internal/jsonio"
)

// Store holds entities keyed by uid. It implements flows.CourseReader and
// flows.JourneyReader.
type Store struct {
	Courses  map[string]any `json:"courses"`
	Journeys map[string]any `json:"journeys"`
}

var (
	_ flows.CourseReader  = (*Store)(nil)
	_ flows.JourneyReader = (*Store)(nil)
)

// Load reads a store from a file shaped {"courses": {...}, "journeys": {...}}.
func Load(path string) (*Store, error) {
	var s Store
	if err := jsonio.LoadInto(path, &s); err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	return &s, nil
}

// ReadCourse returns the course, or nil when it is not in the store.
func (s *Store) ReadCourse(_ context.Context, uid string) (any, error) {
	c, ok := s.Courses[uid]
	if !ok {
		return nil, nil
	}
	return c, nil
}

// ReadJourney returns the journey's JSON, or nil when it is not in the
// store.
func (s *Store) ReadJourney(_ context.Context, uid string) ([]byte, error) {
	j, ok := s.Journeys[uid]
	if !ok {
		return nil, nil
	}
	return json.Marshal(j)
}
