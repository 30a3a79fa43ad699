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
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/models"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// GetBalance returns the lamport balance of address. When the node cannot be
// reached after retries the last known balance is served instead.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	lamports, err := c.fetchBalance(ctx, address)
	if err != nil {
		if cached, ok := c.balances.Get(address); ok {
			zap.L().Warn("Serving cached balance after RPC failure",
				zap.String("address", address),
				zap.Uint64("lamports", cached.Value),
				zap.Time("cached_at", cached.StoredAt),
				zap.Error(err))
			metrics.RecordCacheFallback("balance")
			return cached.Value, nil
		}
		return 0, fmt.Errorf("failed to get balance for %s: %w", address, err)
	}

	c.balances.Put(address, lamports)
	return lamports, nil
}

func (c *Client) fetchBalance(ctx context.Context, address string) (uint64, error) {
	result, err := c.call(ctx, "getBalance", address)
	if err != nil {
		return 0, err
	}

	var body struct {
		Value *uint64 `json:"value"`
	}
	if err := json.Unmarshal(result, &body); err != nil {
		return 0, fmt.Errorf("%w: getBalance: %v", ErrMalformedResponse, err)
	}
	if body.Value == nil {
		return 0, fmt.Errorf("%w: getBalance: missing value", ErrMalformedResponse)
	}
	return *body.Value, nil
}

// GetLatestBlockhash returns the most recent finalized blockhash
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	result, err := c.call(ctx, "getLatestBlockhash", map[string]string{"commitment": "finalized"})
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	var body struct {
		Value *struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &body); err != nil {
		return "", fmt.Errorf("%w: getLatestBlockhash: %v", ErrMalformedResponse, err)
	}
	if body.Value == nil || body.Value.Blockhash == "" {
		return "", ErrMissingBlockhash
	}

	zap.L().Debug("Fetched latest blockhash",
		zap.String("blockhash", body.Value.Blockhash),
		zap.Uint64("last_valid_block_height", body.Value.LastValidBlockHeight))
	return body.Value.Blockhash, nil
}

// GetTokenAccountsByOwner lists non-empty SPL token holdings of address.
// Accounts that do not parse are skipped.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, address string) ([]models.TokenAccount, error) {
	result, err := c.call(ctx, "getTokenAccountsByOwner",
		address,
		map[string]string{"programId": TokenProgramId},
		map[string]string{"encoding": "jsonParsed"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts for %s: %w", address, err)
	}

	value := gjson.GetBytes(result, "value")
	if !value.IsArray() {
		return nil, fmt.Errorf("%w: getTokenAccountsByOwner: value is not a list", ErrMalformedResponse)
	}

	var accounts []models.TokenAccount
	for i, entry := range value.Array() {
		account, err := parseTokenAccount(entry)
		if err != nil {
			zap.L().Warn("Skipping unparseable token account",
				zap.String("owner", address),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		if account.Amount == 0 {
			continue
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func parseTokenAccount(entry gjson.Result) (models.TokenAccount, error) {
	info := entry.Get("account.data.parsed.info")
	if !info.Exists() {
		return models.TokenAccount{}, fmt.Errorf("missing parsed info")
	}

	mint := info.Get("mint").String()
	if mint == "" {
		return models.TokenAccount{}, fmt.Errorf("missing mint")
	}

	rawAmount := info.Get("tokenAmount.amount")
	if rawAmount.Type != gjson.String {
		return models.TokenAccount{}, fmt.Errorf("missing token amount")
	}
	amount, err := strconv.ParseUint(rawAmount.String(), 10, 64)
	if err != nil {
		return models.TokenAccount{}, fmt.Errorf("invalid token amount %q: %w", rawAmount.String(), err)
	}

	decimals := info.Get("tokenAmount.decimals")
	if !decimals.Exists() {
		return models.TokenAccount{}, fmt.Errorf("missing decimals")
	}

	return models.TokenAccount{
		Pubkey:   entry.Get("pubkey").String(),
		Mint:     mint,
		Amount:   amount,
		Decimals: int(decimals.Int()),
	}, nil
}
