// Package redis holds the Redis-backed rescan request queue. Operators (or
// external tooling) push slot ranges onto a sorted set; the rescan feeder
// drains them into the in-process interval queue.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/slotmon/internal/core/domain"
)

// Client wraps Redis operations for the rescan pipeline.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// Config holds Redis connection configuration. An empty URL disables the
// rescan pipeline entirely.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	Namespace string `yaml:"namespace"` // queue key suffix, default "mainnet"
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "mainnet"
	}

	return &Client{rdb: rdb, namespace: namespace}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) queueKey() string {
	return fmt.Sprintf("rescan_slots:%s", c.namespace)
}

// PushRequest adds a rescan request to the queue, ordered by start slot.
func (c *Client) PushRequest(ctx context.Context, req domain.RescanRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal rescan request: %w", err)
	}

	if err := c.rdb.ZAdd(ctx, c.queueKey(), redis.Z{
		Score:  float64(req.Start),
		Member: string(data),
	}).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// Submit queues a rescan request. It exists so the client can stand in as
// the rescan submission sink for the HTTP server.
func (c *Client) Submit(ctx context.Context, req domain.RescanRequest) error {
	return c.PushRequest(ctx, req)
}

// PopRequest pops the request with the lowest start slot. The bool return
// is false when the queue is empty. Malformed members are removed and
// skipped rather than surfaced: an error here means Redis itself failed,
// so valid requests behind a corrupt one keep draining.
func (c *Client) PopRequest(ctx context.Context) (domain.RescanRequest, bool, error) {
	for {
		results, err := c.rdb.ZRangeWithScores(ctx, c.queueKey(), 0, 0).Result()
		if err != nil {
			return domain.RescanRequest{}, false, fmt.Errorf("zrange failed: %w", err)
		}
		if len(results) == 0 {
			return domain.RescanRequest{}, false, nil
		}

		member, _ := results[0].Member.(string)

		req, err := decodeRequest(member)
		if err != nil {
			slog.Warn("Dropping malformed rescan request", "error", err)
			if err := c.rdb.ZRem(ctx, c.queueKey(), member).Err(); err != nil {
				return domain.RescanRequest{}, false, fmt.Errorf("zrem failed: %w", err)
			}
			continue
		}

		if err := c.rdb.ZRem(ctx, c.queueKey(), member).Err(); err != nil {
			return domain.RescanRequest{}, false, fmt.Errorf("zrem failed: %w", err)
		}

		return req, true, nil
	}
}

// decodeRequest parses one sorted-set member into a rescan request.
func decodeRequest(member string) (domain.RescanRequest, error) {
	var req domain.RescanRequest
	if err := json.Unmarshal([]byte(member), &req); err != nil {
		return domain.RescanRequest{}, fmt.Errorf("invalid rescan request: %w", err)
	}
	return req, nil
}

// QueueLen returns the number of pending rescan requests.
func (c *Client) QueueLen(ctx context.Context) (int64, error) {
	return c.rdb.ZCard(ctx, c.queueKey()).Result()
}
