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

package instruction

import (
	"fmt"

	"gro-garden-sync/internal/models"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// MaxDepositLamports caps a single deposit at one million SOL
const MaxDepositLamports = 1_000_000 * models.LamportsPerSol

// IsValidAddress reports whether s is base58 text decoding to exactly 32 bytes
func IsValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == 32
}

// ParseAddress validates s and converts it into a public key
func ParseAddress(s string) (solana.PublicKey, error) {
	if !IsValidAddress(s) {
		return solana.PublicKey{}, fmt.Errorf("invalid address: %q", s)
	}
	return solana.PublicKeyFromBase58(s)
}

// IsValidDepositAmount reports whether 0 < lamports <= MaxDepositLamports
func IsValidDepositAmount(lamports uint64) bool {
	return lamports > 0 && lamports <= MaxDepositLamports
}

// ShortAddress abbreviates an address as ABCD...WXYZ
func ShortAddress(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}
