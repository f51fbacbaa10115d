// Package catalog fetches the OpenRouter model list and keeps it in a small
// on-disk cache so reports can carry model cards and pricing.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ai_demo_generator/generator"
)

var ErrCatalogUnavailable = errors.New("model catalog unavailable")

const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultCacheFile = "openrouter-models.json"
	DefaultMaxAge    = 24 * time.Hour
)

// Pricing holds per-token prices as the decimal strings OpenRouter returns.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
	Request    string `json:"request,omitempty"`
	Image      string `json:"image,omitempty"`
}

type Model struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ContextLength int            `json:"context_length"`
	Architecture  map[string]any `json:"architecture,omitempty"`
	Pricing       Pricing        `json:"pricing"`
	TopProvider   map[string]any `json:"top_provider,omitempty"`
}

// Cost is the USD price of one generation, rounded to 6 decimals.
type Cost struct {
	Currency       string  `json:"currency"`
	PromptCost     float64 `json:"prompt_cost"`
	CompletionCost float64 `json:"completion_cost"`
	TotalCost      float64 `json:"total_cost"`
}

// Cost prices usage with the model's per-token rates. A nil model or an
// unparsable price counts as free.
func (m *Model) Cost(usage generator.TokenUsage) Cost {
	c := Cost{Currency: "USD"}
	if m == nil {
		return c
	}
	prompt := float64(usage.PromptTokens) * parsePrice(m.Pricing.Prompt)
	completion := float64(usage.CompletionTokens) * parsePrice(m.Pricing.Completion)
	c.PromptCost = round6(prompt)
	c.CompletionCost = round6(completion)
	c.TotalCost = round6(prompt + completion)
	return c
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

type cacheFile struct {
	Timestamp time.Time `json:"timestamp"`
	Models    []Model   `json:"models"`
	Count     int       `json:"count"`
}

type modelsResponse struct {
	Data []Model `json:"data"`
}

type Options struct {
	BaseURL    string
	APIKey     string
	CacheFile  string
	MaxAge     time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client lists OpenRouter models. An empty CacheFile disables caching.
type Client struct {
	baseURL   string
	apiKey    string
	cacheFile string
	maxAge    time.Duration
	http      *http.Client
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		cacheFile: opts.CacheFile,
		maxAge:    opts.MaxAge,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// List returns the model catalog. With useCache a fresh cache short-circuits
// the request; a failed request falls back to the cache regardless of age.
func (c *Client) List(ctx context.Context, useCache bool) ([]Model, error) {
	if useCache {
		if cached, err := c.readCache(); err == nil && c.now().Sub(cached.Timestamp) < c.maxAge {
			catalogLookups.WithLabelValues("cache").Inc()
			c.logger.Debug("using cached model catalog", zap.Int("count", len(cached.Models)))
			return cached.Models, nil
		}
	}

	models, fetchErr := c.fetch(ctx)
	if fetchErr == nil {
		catalogLookups.WithLabelValues("api").Inc()
		if err := c.writeCache(models); err != nil {
			c.logger.Warn("failed to cache model catalog", zap.Error(err))
		}
		return models, nil
	}

	cached, err := c.readCache()
	if err != nil {
		catalogLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, fetchErr)
	}
	catalogLookups.WithLabelValues("stale").Inc()
	c.logger.Warn("falling back to cached model catalog",
		zap.Error(fetchErr),
		zap.Time("cached_at", cached.Timestamp),
	)
	return cached.Models, nil
}

// Get looks a model up by id. It returns nil without error when the catalog
// has no such model.
func (c *Client) Get(ctx context.Context, id string) (*Model, error) {
	models, err := c.List(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range models {
		if models[i].ID == id {
			m := models[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (c *Client) fetch(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("HTTP-Referer", generator.AttributionReferer)
	req.Header.Set("X-Title", generator.AttributionTitle)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("models API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data.Data, nil
}

// readCache and writeCache hold mu only for the file access; the HTTP fetch
// runs unlocked.
func (c *Client) readCache() (cacheFile, error) {
	var cf cacheFile
	if c.cacheFile == "" {
		return cf, os.ErrNotExist
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return cf, err
	}
	if err := json.Unmarshal(data, &cf); err != nil {
		return cf, err
	}
	return cf, nil
}

func (c *Client) writeCache(models []Model) error {
	if c.cacheFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(cacheFile{
		Timestamp: c.now().UTC(),
		Models:    models,
		Count:     len(models),
	}, "", "  ")
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.WriteFile(c.cacheFile, data, 0o644)
}
