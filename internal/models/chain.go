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

package models

import "time"

// TokenAccount is a non-empty token holding returned by getTokenAccountsByOwner
type TokenAccount struct {
	Pubkey   string `json:"pubkey"`
	Mint     string `json:"mint"`
	Amount   uint64 `json:"amount"`
	Decimals int    `json:"decimals"`
}

// SignatureInfo is one entry of an address's signature history
type SignatureInfo struct {
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"block_time,omitempty"`
	Memo      *string    `json:"memo,omitempty"`
	Failed    bool       `json:"failed,omitempty"`
}

// WalletInfo is a wallet the syncer watches
type WalletInfo struct {
	Address string `yaml:"address" json:"address"`
	Label   string `yaml:"label" json:"label,omitempty"`
}
