// Package rpc implements the Solana JSON-RPC client the monitor consumes:
// getSlot for the chain head and getBlocks for batched confirmed-slot
// range checks, both at confirmed commitment.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/slotmon/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Config holds RPC endpoint settings.
type Config struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`    // appended as a URL path segment (Syndica-style)
	TimeoutMs int    `yaml:"timeout_ms"` // per-request timeout, 0 = 10s
}

// Client is a JSON-RPC 2.0 client over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	retry      RetryConfig
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg Config) *Client {
	endpoint := strings.TrimRight(cfg.URL, "/")
	if cfg.APIKey != "" {
		endpoint = endpoint + "/" + cfg.APIKey
	}

	timeout := defaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: DefaultRetryConfig,
	}
}

// RPCError is a JSON-RPC error object returned by the endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

var commitment = map[string]string{"commitment": "confirmed"}

// GetSlot returns the current confirmed chain head slot.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	raw, err := c.invoke(ctx, "getSlot", []any{commitment})
	if err != nil {
		return 0, err
	}

	var slot uint64
	if err := json.Unmarshal(raw, &slot); err != nil {
		return 0, fmt.Errorf("decode getSlot result: %w", err)
	}
	return slot, nil
}

// GetBlocks returns the ascending confirmed slot numbers in [start, end].
// Unconfirmed slots are absent from the result.
func (c *Client) GetBlocks(ctx context.Context, start, end uint64) ([]uint64, error) {
	raw, err := c.invoke(ctx, "getBlocks", []any{start, end, commitment})
	if err != nil {
		return nil, err
	}

	var slots []uint64
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("decode getBlocks result: %w", err)
	}
	return slots, nil
}

// invoke runs one method with retry and records call metrics.
func (c *Client) invoke(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()
	metrics.RPCCalls.WithLabelValues(method).Inc()

	raw, err := CallWithRetry(ctx, c.call, method, params, c.retry)

	metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
	}
	return raw, err
}

// call makes a single JSON-RPC call.
func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429), retry after: %s", resp.Header.Get("Retry-After"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
