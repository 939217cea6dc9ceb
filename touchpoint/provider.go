package touchpoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/reoring/clientflow/internal/jsonio"
	"github.com/reoring/clientflow/oas"
)

// TemplatePathPrefix is where the email-template service exposes its
// templates in its OpenAPI document.
const TemplatePathPrefix = "/api/3/templates/"

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 256
)

// HTTPTemplateProvider reads template parameter schemas from the OpenAPI
// document of the email-template service. Schemas are cached; failed
// fetches are not retried.
type HTTPTemplateProvider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	ttl     time.Duration
	size    int

	mu    sync.Mutex
	cache *lru.LRU[string, map[string]any]
}

// ProviderOption configures an HTTPTemplateProvider.
type ProviderOption func(*HTTPTemplateProvider)

// WithHTTPClient sets the client used for fetches, and with it the timeout.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *HTTPTemplateProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithCache sets how long and how many template schemas are cached.
func WithCache(ttl time.Duration, size int) ProviderOption {
	return func(p *HTTPTemplateProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
		if size > 0 {
			p.size = size
		}
	}
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *HTTPTemplateProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewHTTPTemplateProvider returns a provider for the service at baseURL.
func NewHTTPTemplateProvider(baseURL string, opts ...ProviderOption) *HTTPTemplateProvider {
	p := &HTTPTemplateProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:     DefaultCacheTTL,
		size:    DefaultCacheSize,
	}
	for _, o := range opts {
		o(p)
	}
	p.cache = lru.NewLRU[string, map[string]any](p.size, nil, p.ttl)
	return p
}

// TemplateSchema implements TemplateProvider.
func (p *HTTPTemplateProvider) TemplateSchema(ctx context.Context, slug string) (map[string]any, error) {
	if s, ok := p.cache.Get(slug); ok {
		return s, nil
	}

	// one fetch at a time refreshes every template
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.cache.Get(slug); ok {
		return s, nil
	}
	templates, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for k, s := range templates {
		p.cache.Add(k, s)
	}
	s, ok := templates[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, slug)
	}
	return s, nil
}

func (p *HTTPTemplateProvider) fetch(ctx context.Context) (map[string]map[string]any, error) {
	url := p.baseURL + "/openapi.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	p.logger.DebugContext(ctx, "fetching email templates", "url", url)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	doc, err := jsonio.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode %s: root must be an object", url)
	}
	return TemplateSchemas(root)
}

// TemplateSchemas indexes the request body schemas of the template
// operations in an OpenAPI document by template slug. Only operations under
// TemplatePathPrefix tagged "templates" count.
func TemplateSchemas(doc map[string]any) (map[string]map[string]any, error) {
	out := map[string]map[string]any{}
	paths, _ := doc["paths"].(map[string]any)
	for path, rawItem := range paths {
		rest, ok := strings.CutPrefix(path, TemplatePathPrefix)
		slug := strings.Trim(rest, "/")
		if !ok || slug == "" || strings.Contains(slug, "/") {
			continue
		}
		item, _ := rawItem.(map[string]any)
		for _, rawOp := range item {
			op, _ := rawOp.(map[string]any)
			if op == nil || !hasTag(op, "templates") {
				continue
			}
			schema := requestSchema(op)
			if schema == nil {
				continue
			}
			inlined, err := oas.InlineRefs(doc, schema)
			if err != nil {
				return nil, fmt.Errorf("template %q: %w", slug, err)
			}
			out[slug] = inlined
		}
	}
	return out, nil
}

func hasTag(op map[string]any, tag string) bool {
	tags, _ := op["tags"].([]any)
	return slices.Contains(tags, any(tag))
}

func requestSchema(op map[string]any) map[string]any {
	body, _ := op["requestBody"].(map[string]any)
	content, _ := body["content"].(map[string]any)
	media, _ := content["application/json"].(map[string]any)
	schema, _ := media["schema"].(map[string]any)
	return schema
}
