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

package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gro-garden-sync/internal/cache"
	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/retry"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPriceUrl = "https://api.jup.ag/price/v2"
	DefaultApyUrl   = "https://api.marinade.finance/msol/apy/30d"
	DefaultPriceTtl = 60 * time.Second
	DefaultApyTtl   = 300 * time.Second
)

// FallbackApy is served when the staking yield endpoint is unavailable
var FallbackApy = decimal.RequireFromString("0.068")

type Config struct {
	PriceUrl   string
	ApyUrl     string
	PriceTtl   time.Duration
	ApyTtl     time.Duration
	HttpClient *http.Client
	Retry      retry.Policy
	Clock      cache.Clock
}

// Client fetches advisory token prices and the liquid staking yield. Its
// methods never return errors; failures degrade to cached or default values.
type Client struct {
	priceUrl   string
	apyUrl     string
	httpClient *http.Client
	retry      retry.Policy
	prices     *cache.TTL[priceSnapshot]
	apy        *cache.TTL[decimal.Decimal]
}

type priceSnapshot struct {
	requested map[string]struct{}
	prices    map[string]decimal.Decimal
}

type priceResponse struct {
	Data map[string]*struct {
		Id    string              `json:"id"`
		Price decimal.NullDecimal `json:"price"`
	} `json:"data"`
}

type apyResponse struct {
	Value decimal.NullDecimal `json:"avg_staking_apy"`
}

func NewClient(cfg Config) *Client {
	if cfg.PriceUrl == "" {
		cfg.PriceUrl = DefaultPriceUrl
	}
	if cfg.ApyUrl == "" {
		cfg.ApyUrl = DefaultApyUrl
	}
	if cfg.PriceTtl <= 0 {
		cfg.PriceTtl = DefaultPriceTtl
	}
	if cfg.ApyTtl <= 0 {
		cfg.ApyTtl = DefaultApyTtl
	}
	if cfg.HttpClient == nil {
		cfg.HttpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy("price_feed")
	}

	return &Client{
		priceUrl:   cfg.PriceUrl,
		apyUrl:     cfg.ApyUrl,
		httpClient: cfg.HttpClient,
		retry:      cfg.Retry,
		prices:     cache.NewTTL[priceSnapshot](cfg.PriceTtl, cfg.Clock),
		apy:        cache.NewTTL[decimal.Decimal](cfg.ApyTtl, cfg.Clock),
	}
}

// TokenPrices returns USD prices keyed by mint. Mints without a quote are
// absent from the result. On failure the last fetched map is returned, or an
// empty map if nothing was ever fetched.
func (c *Client) TokenPrices(ctx context.Context, mints []string) map[string]decimal.Decimal {
	if len(mints) == 0 {
		return map[string]decimal.Decimal{}
	}

	if cached, ok := c.prices.Fresh(); ok && cached.covers(mints) {
		return copyPrices(cached.prices)
	}

	fetched, err := retry.Do(ctx, c.retry, func(ctx context.Context) (map[string]decimal.Decimal, error) {
		return c.fetchPrices(ctx, mints)
	})
	if err != nil {
		zap.L().Warn("Failed to fetch token prices", zap.Strings("mints", mints), zap.Error(err))
		metrics.RecordCacheFallback("prices")
		if last, ok := c.prices.Last(); ok {
			return copyPrices(last.prices)
		}
		return map[string]decimal.Decimal{}
	}

	requested := make(map[string]struct{}, len(mints))
	for _, mint := range mints {
		requested[mint] = struct{}{}
	}
	c.prices.Store(priceSnapshot{requested: requested, prices: fetched})
	return copyPrices(fetched)
}

func (c *Client) fetchPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	endpoint := c.priceUrl + "?ids=" + url.QueryEscape(strings.Join(mints, ","))

	var body priceResponse
	if err := c.getJson(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(body.Data))
	for mint, quote := range body.Data {
		if quote == nil || !quote.Price.Valid {
			continue
		}
		prices[mint] = quote.Price.Decimal
	}
	return prices, nil
}

// StakingApy returns the 30 day average liquid staking yield as a fraction
// (0.068 is 6.8%).
func (c *Client) StakingApy(ctx context.Context) decimal.Decimal {
	if cached, ok := c.apy.Fresh(); ok {
		return cached
	}

	var body apyResponse
	err := c.getJson(ctx, c.apyUrl, &body)
	if err == nil && (!body.Value.Valid || !body.Value.Decimal.IsPositive()) {
		err = fmt.Errorf("response has no positive avg_staking_apy")
	}
	if err != nil {
		zap.L().Warn("Failed to fetch staking APY, using fallback",
			zap.String("fallback", FallbackApy.String()),
			zap.Error(err))
		metrics.RecordCacheFallback("staking_apy")
		return FallbackApy
	}

	c.apy.Store(body.Value.Decimal)
	return body.Value.Decimal
}

func (c *Client) getJson(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close response body", zap.Error(err))
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (s priceSnapshot) covers(mints []string) bool {
	if len(s.prices) == 0 {
		return false
	}
	for _, mint := range mints {
		if _, ok := s.requested[mint]; !ok {
			return false
		}
	}
	return true
}

func copyPrices(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
