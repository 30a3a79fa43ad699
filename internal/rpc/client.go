/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gro-garden-sync/internal/cache"
	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/retry"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// TokenProgramId is the SPL token program that owns fungible token accounts
	TokenProgramId = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	defaultTransactionCacheSize = 256
	maxResponseBytes            = 8 << 20
	maxErrorBodyBytes           = 512
)

// Config for NewClient. Zero values fall back to defaults.
type Config struct {
	Endpoint             string
	HttpClient           *http.Client
	Retry                retry.Policy
	RateLimit            float64
	RateBurst            int
	TransactionCacheSize int
	Clock                cache.Clock
}

// Client issues JSON-RPC requests against a single ledger endpoint. It is
// safe for concurrent use.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	limiter      *rate.Limiter
	retry        retry.Policy
	balances     *cache.BalanceCache
	transactions *lru.Cache[string, json.RawMessage]
}

type rpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	Id      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	Id      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}

	httpClient := cfg.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	policy := cfg.Retry
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy("rpc")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	size := cfg.TransactionCacheSize
	if size <= 0 {
		size = defaultTransactionCacheSize
	}
	transactions, err := lru.New[string, json.RawMessage](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction cache: %w", err)
	}

	return &Client{
		endpoint:     cfg.Endpoint,
		httpClient:   httpClient,
		limiter:      limiter,
		retry:        policy,
		balances:     cache.NewBalanceCache(cfg.Clock),
		transactions: transactions,
	}, nil
}

// call runs one JSON-RPC method through the retry policy and returns the raw result
func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()

	policy := c.retry
	policy.Name = method
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		metrics.RecordRpcRetry(method)
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}

	result, err := retry.Do(ctx, policy, func(ctx context.Context) (json.RawMessage, error) {
		return c.do(ctx, method, params)
	})
	metrics.RecordRpcCall(method, time.Since(start), err)
	return result, err
}

func (c *Client) do(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JsonRpc: "2.0", Id: 1, Method: method, Params: params})
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to encode %s request: %w", method, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to build %s request: %w", method, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close response body", zap.String("method", method), zap.Error(err))
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(payload), maxErrorBodyBytes)}
		if statusErr.Transient() {
			return nil, statusErr
		}
		return nil, retry.Permanent(statusErr)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err))
	}
	if decoded.Error != nil {
		decoded.Error.Method = method
		if decoded.Error.Transient() {
			return nil, decoded.Error
		}
		return nil, retry.Permanent(decoded.Error)
	}

	return decoded.Result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
