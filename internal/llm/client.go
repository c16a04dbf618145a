package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/pkg/circuitbreaker"
	"github.com/culture-compass/backend/pkg/logger"
	"github.com/culture-compass/backend/pkg/retry"
)

var ErrEmptyCompletion = errors.New("completion returned no choices")

const DefaultModel = "gpt-4o"

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// Retry overrides the default backoff; zero fields fall back to defaults.
	Retry retry.Config
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type CompletionRequest struct {
	// Operation labels metrics and logs, e.g. "insights".
	Operation    string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	JSON         bool
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		Logger:           logger.GetLogger(),
	})

	retryConfig := cfg.Retry
	if retryConfig.MaxAttempts == 0 {
		retryConfig.MaxAttempts = 3
	}
	if retryConfig.InitialDelay == 0 {
		retryConfig.InitialDelay = 500 * time.Millisecond
	}
	if retryConfig.MaxDelay == 0 {
		retryConfig.MaxDelay = 5 * time.Second
	}
	if retryConfig.Multiplier == 0 {
		retryConfig.Multiplier = 2.0
	}
	if retryConfig.JitterFraction == 0 {
		retryConfig.JitterFraction = 0.1
	}
	if retryConfig.Retryable == nil {
		retryConfig.Retryable = isRetryable
	}
	if retryConfig.Logger == nil {
		retryConfig.Logger = logger.GetLogger()
	}

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.Bool("custom_base_url", cfg.BaseURL != ""),
	)

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) chatRequest(req CompletionRequest, stream bool) openai.ChatCompletionRequest {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.UserPrompt,
			},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatReq
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := c.chatRequest(req, false)
	start := time.Now()
	defer func() {
		metrics.LLMDuration.WithLabelValues(operation(req)).Observe(time.Since(start).Seconds())
	}()

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(ctx, chatReq)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return ErrEmptyCompletion
			}

			logger.Debug("LLM completion generated",
				zap.String("operation", operation(req)),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	c.recordUsage(result.Usage)
	return result, nil
}

// CompleteStream delivers the completion to onChunk piece by piece and
// returns the assembled text. Only opening the stream is retried; an error
// from onChunk stops the stream and is returned as is.
func (c *Client) CompleteStream(ctx context.Context, req CompletionRequest, onChunk func(string) error) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := c.chatRequest(req, true)
	start := time.Now()
	defer func() {
		metrics.LLMDuration.WithLabelValues(operation(req) + "_stream").Observe(time.Since(start).Seconds())
	}()

	var stream *openai.ChatCompletionStream
	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			s, err := c.client.CreateChatCompletionStream(ctx, chatReq)
			if err != nil {
				return fmt.Errorf("failed to open completion stream: %w", err)
			}
			stream = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var content strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read completion stream: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return nil, err
		}
	}

	logger.Debug("LLM stream completed",
		zap.String("operation", operation(req)),
		zap.Int("length", content.Len()),
	)

	return &CompletionResponse{Content: content.String()}, nil
}

func (c *Client) recordUsage(u Usage) {
	metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(u.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(u.CompletionTokens))
}

func operation(req CompletionRequest) string {
	if req.Operation == "" {
		return "completion"
	}
	return req.Operation
}

// isRetryable keeps client errors other than rate limiting from being retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500 || code == 0
}
