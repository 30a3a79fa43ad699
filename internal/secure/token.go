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

package secure

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"gro-garden-sync/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// TokenKey is the secret slot holding the wallet bridge auth token.
const TokenKey = "wallet_bridge_token"

var (
	ErrTokenNotFound = errors.New("auth token not found")
	ErrTokenCorrupt  = errors.New("stored auth token cannot be decrypted")

	hkdfSalt = []byte("gro-token-store")
)

// TokenStore keeps one opaque auth token encrypted at rest. The blob is
// nonce || XChaCha20-Poly1305 ciphertext, bound to the slot name.
type TokenStore struct {
	secrets store.SecretStore
	aead    cipher.AEAD
	key     string
}

func NewTokenStore(secrets store.SecretStore, masterSecret []byte) (*TokenStore, error) {
	if secrets == nil {
		return nil, fmt.Errorf("secret store is required")
	}
	if len(masterSecret) == 0 {
		return nil, fmt.Errorf("TOKEN_STORE_SECRET is required")
	}

	reader := hkdf.New(sha256.New, masterSecret, hkdfSalt, []byte("gro-"+TokenKey+"-v1"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	return &TokenStore{secrets: secrets, aead: aead, key: TokenKey}, nil
}

func (t *TokenStore) Get(ctx context.Context) (string, error) {
	blob, err := t.secrets.GetSecret(ctx, t.key)
	if errors.Is(err, store.ErrSecretNotFound) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read auth token: %w", err)
	}

	nonceSize := t.aead.NonceSize()
	if len(blob) < nonceSize+t.aead.Overhead() {
		return "", ErrTokenCorrupt
	}
	plaintext, err := t.aead.Open(nil, blob[:nonceSize], blob[nonceSize:], []byte(t.key))
	if err != nil {
		zap.L().Warn("Failed to decrypt stored auth token", zap.Error(err))
		return "", ErrTokenCorrupt
	}
	return string(plaintext), nil
}

func (t *TokenStore) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("auth token cannot be empty")
	}

	nonce := make([]byte, t.aead.NonceSize(), t.aead.NonceSize()+len(token)+t.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	blob := t.aead.Seal(nonce, nonce, []byte(token), []byte(t.key))

	if err := t.secrets.PutSecret(ctx, t.key, blob); err != nil {
		return fmt.Errorf("failed to store auth token: %w", err)
	}
	zap.L().Info("Auth token stored")
	return nil
}

func (t *TokenStore) Clear(ctx context.Context) error {
	if err := t.secrets.DeleteSecret(ctx, t.key); err != nil {
		return fmt.Errorf("failed to clear auth token: %w", err)
	}
	zap.L().Info("Auth token cleared")
	return nil
}
