// Package tastegraph talks to the external cultural-entity API: free-text
// search and cross-category insights for a set of entities.
package tastegraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/pkg/circuitbreaker"
	"github.com/culture-compass/backend/pkg/logger"
	"github.com/culture-compass/backend/pkg/utils"
)

const (
	DefaultBaseURL = "https://hackathon.api.qloo.com"

	// MaxSignalEntities bounds signal.interests.entities on one insights call.
	MaxSignalEntities = 10

	endpointSearch   = "search"
	endpointInsights = "v2/insights"
)

// Cache stores successful responses by request hash.
type Cache interface {
	GetResponse(ctx context.Context, requestHash string, response any) (bool, error)
	SetResponse(ctx context.Context, requestHash string, response any, ttl time.Duration) error
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Cache      Cache
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		logger.Warn("Taste-graph API key not configured")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cb := circuitbreaker.NewCircuitBreaker("tastegraph", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < 500)
		},
		Logger: logger.GetLogger(),
	})

	logger.Info("Taste-graph client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("cache", cfg.Cache != nil),
	)

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		cb:         cb,
	}
}

// Search looks up entities by free text. Categories, when given, narrow the
// result types.
func (c *Client) Search(ctx context.Context, query string, categories []string) Response {
	params := url.Values{}
	params.Set("query", query)
	if len(categories) > 0 {
		params.Set("types", strings.Join(TypesFor(categories), ","))
	}
	return c.get(ctx, endpointSearch, params)
}

// InsightsForEntities asks for entities of filterType that share affinity
// with the given ones. Only the first MaxSignalEntities ids are sent.
func (c *Client) InsightsForEntities(ctx context.Context, entityIDs []string, filterType string) Response {
	if len(entityIDs) == 0 {
		return errorResponse("no entity identifiers given")
	}
	if len(entityIDs) > MaxSignalEntities {
		entityIDs = entityIDs[:MaxSignalEntities]
	}

	params := url.Values{}
	params.Set("filter.type", filterOrDefault(filterType))
	params.Set("signal.interests.entities", strings.Join(entityIDs, ","))
	return c.get(ctx, endpointInsights, params)
}

// InsightsForText is InsightsForEntities seeded with free text.
func (c *Client) InsightsForText(ctx context.Context, text, filterType string) Response {
	params := url.Values{}
	params.Set("filter.type", filterOrDefault(filterType))
	params.Set("signal.text", text)
	return c.get(ctx, endpointInsights, params)
}

func filterOrDefault(filterType string) string {
	if filterType == "" {
		return TypePlace
	}
	return filterType
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("taste-graph API error: %d - %s", e.code, e.body)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) Response {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	hash := utils.HashKey(reqURL)

	if c.cache != nil {
		var cached Response
		hit, err := c.cache.GetResponse(ctx, hash, &cached)
		if err != nil {
			logger.Warn("Taste-graph cache read failed", zap.Error(err))
		} else if hit {
			metrics.TasteGraphRequests.WithLabelValues(endpoint, "cached").Inc()
			return cached
		}
	}

	start := time.Now()
	var resp Response
	err := c.cb.Execute(ctx, func() error {
		var err error
		resp, err = c.do(ctx, reqURL)
		return err
	})
	metrics.TasteGraphDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TasteGraphRequests.WithLabelValues(endpoint, "error").Inc()
		logger.Error("Taste-graph request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		var se *statusError
		if errors.As(err, &se) {
			return Response{Error: se.Error()}
		}
		return errorResponse("taste-graph request failed: %v", err)
	}

	metrics.TasteGraphRequests.WithLabelValues(endpoint, "ok").Inc()

	if c.cache != nil && !resp.Failed() {
		if err := c.cache.SetResponse(ctx, hash, resp, c.cacheTTL); err != nil {
			logger.Warn("Taste-graph cache write failed", zap.Error(err))
		}
	}

	return resp
}

func (c *Client) do(ctx context.Context, reqURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	logger.Debug("Taste-graph request", zap.String("url", reqURL))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return Response{}, &statusError{code: httpResp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
