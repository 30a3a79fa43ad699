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

package walletbridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gro-garden-sync/internal/pipeline"
	"gro-garden-sync/internal/secure"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

const (
	DefaultUrl = "http://localhost:8787"

	signAndSendPath  = "/v1/sign-and-send"
	errorNoWallet    = "no_wallet"
	signatureLength  = 64
	maxResponseBytes = 1 << 20
)

// Tokens is the auth token slot the bridge reads its bearer token from.
type Tokens interface {
	Get(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

var _ Tokens = (*secure.TokenStore)(nil)

type Config struct {
	Url        string
	HttpClient *http.Client
	Tokens     Tokens
}

// Client hands serialized transactions to a wallet bridge which prompts the
// user, signs and submits them. Every call yields a terminal result.
type Client struct {
	url        string
	httpClient *http.Client
	tokens     Tokens
}

var _ pipeline.WalletAuthorizer = (*Client)(nil)

type signRequest struct {
	Transactions []string `json:"transactions"`
}

type signResponse struct {
	Signatures []string `json:"signatures"`
	Error      string   `json:"error"`
	Message    string   `json:"message"`
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if cfg.Url == "" {
		cfg.Url = DefaultUrl
	}
	httpClient := cfg.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 150 * time.Second}
	}
	return &Client{
		url:        strings.TrimRight(cfg.Url, "/"),
		httpClient: httpClient,
		tokens:     cfg.Tokens,
	}, nil
}

func (c *Client) SignAndSend(ctx context.Context, transactions [][]byte) pipeline.AuthorizationResult {
	token, err := c.tokens.Get(ctx)
	if errors.Is(err, secure.ErrTokenNotFound) {
		return pipeline.AuthorizationFailed{Message: "wallet bridge is not paired; store a token first"}
	}
	if err != nil {
		zap.L().Error("Failed to read wallet bridge token", zap.Error(err))
		return pipeline.AuthorizationFailed{Message: "wallet bridge token is unavailable"}
	}

	encoded := make([]string, len(transactions))
	for i, tx := range transactions {
		encoded[i] = base64.StdEncoding.EncodeToString(tx)
	}
	body, err := json.Marshal(signRequest{Transactions: encoded})
	if err != nil {
		return pipeline.AuthorizationFailed{Message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+signAndSendPath, bytes.NewReader(body))
	if err != nil {
		return pipeline.AuthorizationFailed{Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("Wallet bridge unreachable", zap.String("url", c.url), zap.Error(err))
		return pipeline.AuthorizationFailed{Message: fmt.Sprintf("wallet bridge unreachable: %v", err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close response body", zap.Error(err))
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pipeline.AuthorizationFailed{Message: fmt.Sprintf("failed to read wallet bridge response: %v", err)}
	}

	var decoded signResponse
	decodeErr := json.Unmarshal(payload, &decoded)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
			zap.L().Error("Failed to clear rejected wallet bridge token", zap.Error(err))
		}
		return pipeline.AuthorizationFailed{Message: "wallet bridge rejected the token; pair again"}
	case resp.StatusCode == http.StatusNotFound, decodeErr == nil && decoded.Error == errorNoWallet:
		return pipeline.NoWallet{}
	case resp.StatusCode != http.StatusOK:
		return pipeline.AuthorizationFailed{Message: failureMessage(resp.StatusCode, decoded, payload)}
	case decodeErr != nil:
		return pipeline.AuthorizationFailed{Message: fmt.Sprintf("malformed wallet bridge response: %v", decodeErr)}
	case decoded.Error != "":
		return pipeline.AuthorizationFailed{Message: failureMessage(resp.StatusCode, decoded, payload)}
	}

	// The transaction went out either way. An unreadable signature is blanked
	// and the deposit is recorded under the unknown signature.
	for i, sig := range decoded.Signatures {
		if !isSignature(sig) {
			zap.L().Warn("Wallet bridge returned an invalid signature", zap.String("signature", sig))
			decoded.Signatures[i] = ""
		}
	}
	return pipeline.Authorized{Signatures: decoded.Signatures}
}

func failureMessage(status int, decoded signResponse, payload []byte) string {
	switch {
	case decoded.Message != "":
		return decoded.Message
	case decoded.Error != "":
		return decoded.Error
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return fmt.Sprintf("wallet bridge returned status %d", status)
	}
	return fmt.Sprintf("wallet bridge returned status %d: %s", status, text)
}

func isSignature(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == signatureLength
}
