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
	"strings"
	"time"

	"gro-garden-sync/internal/models"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// MemoProgramId is the SPL memo program (v2)
const MemoProgramId = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

const DefaultSignatureLimit = 20

// SignatureQuery bounds a getSignaturesForAddress request. Until stops the
// walk at (and excludes) a previously seen signature; Before starts it just
// older than the given signature, for paging backwards.
type SignatureQuery struct {
	Limit         int
	Until         string
	Before        string
	IncludeFailed bool
}

type signatureEntry struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	BlockTime *int64          `json:"blockTime"`
	Memo      *string         `json:"memo"`
	Err       json.RawMessage `json:"err"`
}

// GetSignaturesForAddress returns up to limit recent successful signatures, newest first
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]models.SignatureInfo, error) {
	return c.GetSignatures(ctx, address, SignatureQuery{Limit: limit})
}

// GetSignatures is GetSignaturesForAddress with optional until/before bounds.
// Failed transactions are excluded unless the query asks for them, in which
// case they come back marked Failed so a pager sees the full page.
func (c *Client) GetSignatures(ctx context.Context, address string, query SignatureQuery) ([]models.SignatureInfo, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultSignatureLimit
	}
	opts := map[string]any{"limit": limit}
	if query.Until != "" {
		opts["until"] = query.Until
	}
	if query.Before != "" {
		opts["before"] = query.Before
	}

	result, err := c.call(ctx, "getSignaturesForAddress", address, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", address, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("%w: getSignaturesForAddress: %v", ErrMalformedResponse, err)
	}

	signatures := make([]models.SignatureInfo, 0, len(raw))
	for i, item := range raw {
		var entry signatureEntry
		if err := json.Unmarshal(item, &entry); err != nil || entry.Signature == "" {
			zap.L().Warn("Skipping unparseable signature entry",
				zap.String("address", address),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		isFailed := failed(entry.Err)
		if isFailed && !query.IncludeFailed {
			continue
		}

		info := models.SignatureInfo{
			Signature: entry.Signature,
			Slot:      entry.Slot,
			Memo:      entry.Memo,
			Failed:    isFailed,
		}
		if entry.BlockTime != nil {
			t := time.Unix(*entry.BlockTime, 0).UTC()
			info.BlockTime = &t
		}
		signatures = append(signatures, info)
	}

	return signatures, nil
}

func failed(errField json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(errField))
	return trimmed != "" && trimmed != "null"
}

// GetTransaction returns the raw jsonParsed transaction payload. Finalized
// payloads never change and are served from an LRU after the first fetch.
func (c *Client) GetTransaction(ctx context.Context, signature string) (json.RawMessage, error) {
	if cached, ok := c.transactions.Get(signature); ok {
		return cached, nil
	}

	result, err := c.call(ctx, "getTransaction", signature, map[string]any{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", signature, err)
	}

	trimmed := strings.TrimSpace(string(result))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}
	if !gjson.ValidBytes(result) {
		return nil, fmt.Errorf("%w: getTransaction: invalid json", ErrMalformedResponse)
	}

	c.transactions.Add(signature, result)
	return result, nil
}

// TransactionMemos fetches a transaction and returns its memo texts
func (c *Client) TransactionMemos(ctx context.Context, signature string) ([]string, error) {
	raw, err := c.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	return ExtractMemos(raw), nil
}

// ExtractMemos returns the text of every memo instruction in a jsonParsed
// transaction, top level first, then inner instructions.
func ExtractMemos(raw json.RawMessage) []string {
	var memos []string
	collect := func(ix gjson.Result) {
		if ix.Get("programId").String() != MemoProgramId && ix.Get("program").String() != "spl-memo" {
			return
		}
		parsed := ix.Get("parsed")
		if parsed.Type == gjson.String {
			memos = append(memos, parsed.String())
		}
	}

	gjson.GetBytes(raw, "transaction.message.instructions").ForEach(func(_, ix gjson.Result) bool {
		collect(ix)
		return true
	})
	gjson.GetBytes(raw, "meta.innerInstructions").ForEach(func(_, inner gjson.Result) bool {
		inner.Get("instructions").ForEach(func(_, ix gjson.Result) bool {
			collect(ix)
			return true
		})
		return true
	})

	return memos
}
