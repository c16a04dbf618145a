package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/pkg/logger"
)

const responsePrefix = "tastegraph:"

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	return newClient(context.Background(), &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})
}

func newClient(ctx context.Context, opts *redis.Options) (*Client, error) {
	client := redis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", opts.Addr))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetResponse stores a taste-graph response under its request hash.
func (c *Client) SetResponse(ctx context.Context, requestHash string, response any, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := c.client.Set(ctx, responsePrefix+requestHash, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set response cache: %w", err)
	}

	logger.Debug("Taste-graph response cached", zap.String("request_hash", requestHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetResponse(ctx context.Context, requestHash string, response any) (bool, error) {
	data, err := c.client.Get(ctx, responsePrefix+requestHash).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues("tastegraph").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get response cache: %w", err)
	}

	if err := json.Unmarshal(data, response); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	metrics.CacheHits.WithLabelValues("tastegraph").Inc()
	logger.Debug("Taste-graph cache hit", zap.String("request_hash", requestHash))
	return true, nil
}

// InvalidateResponses drops every cached taste-graph response.
func (c *Client) InvalidateResponses(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, responsePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Taste-graph cache invalidated")
	return nil
}
