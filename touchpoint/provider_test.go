package touchpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reoring/clientflow/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templatesDocument = `{
  "openapi": "3.0.3",
  "paths": {
    "/api/3/templates/welcome": {
      "post": {
        "tags": ["templates"],
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/WelcomeArgs"}}}}
      }
    },
    "/api/3/templates/untagged": {
      "post": {
        "tags": ["other"],
        "requestBody": {"content": {"application/json": {"schema": {"type": "object"}}}}
      }
    },
    "/api/3/health": {
      "get": {"tags": ["templates"]}
    }
  },
  "components": {
    "schemas": {
      "WelcomeArgs": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "cta": {"$ref": "#/components/schemas/Cta", "description": "call to action"}
        }
      },
      "Cta": {
        "type": "object",
        "required": ["url"],
        "properties": {"url": {"type": "string"}}
      }
    }
  }
}`

func templateServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/openapi.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestHTTPTemplateProvider(t *testing.T) {
	srv, hits := templateServer(t, http.StatusOK, templatesDocument)
	p := NewHTTPTemplateProvider(srv.URL+"/", WithHTTPClient(srv.Client()), WithCache(time.Minute, 8))

	s, err := p.TemplateSchema(context.Background(), "welcome")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"cta": map[string]any{
				"type":        "object",
				"required":    []any{"url"},
				"properties":  map[string]any{"url": map[string]any{"type": "string"}},
				"description": "call to action",
			},
		},
	}, s)

	_, err = p.TemplateSchema(context.Background(), "welcome")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second lookup is served from the cache")

	_, err = p.TemplateSchema(context.Background(), "untagged")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	_, err = p.TemplateSchema(context.Background(), "health")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Equal(t, int32(3), hits.Load(), "misses refetch")
}

func TestHTTPTemplateProvider_Failures(t *testing.T) {
	srv, hits := templateServer(t, http.StatusInternalServerError, `{}`)
	p := NewHTTPTemplateProvider(srv.URL, WithHTTPClient(srv.Client()))
	_, err := p.TemplateSchema(context.Background(), "welcome")
	assert.ErrorContains(t, err, "unexpected status")
	assert.Equal(t, int32(1), hits.Load(), "failures are not retried")

	srv, _ = templateServer(t, http.StatusOK, `{"a": 1, "a": 2}`)
	p = NewHTTPTemplateProvider(srv.URL, WithHTTPClient(srv.Client()))
	_, err = p.TemplateSchema(context.Background(), "welcome")
	assert.ErrorContains(t, err, "decode")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.TemplateSchema(ctx, "welcome")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChecker_WithHTTPTemplateProvider(t *testing.T) {
	srv, _ := templateServer(t, http.StatusOK, templatesDocument)
	c := &Checker{Templates: NewHTTPTemplateProvider(srv.URL, WithHTTPClient(srv.Client()))}

	p, err := c.Check(context.Background(), eventSchema(), Messages{Email: []EmailMessage{{
		Template: "welcome",
		TemplateParametersSubstituted: []Substitution{
			{Key: deep.P("name"), Format: "{user[name]}", Parameters: []string{"user.name"}},
		},
	}}})
	require.NoError(t, err)
	assert.Nil(t, p)
}
