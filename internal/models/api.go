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

import (
	"time"

	"github.com/shopspring/decimal"
)

// GardenState is everything needed to render a wallet's garden
type GardenState struct {
	WalletAddress    string                      `json:"wallet_address"`
	Plants           []Plant                     `json:"plants"`
	Streak           *Streak                     `json:"streak,omitempty"`
	Weather          Weather                     `json:"weather"`
	GrowthMultiplier float64                     `json:"growth_multiplier"`
	Balance          *uint64                     `json:"balance_lamports,omitempty"`
	Prices           map[Species]decimal.Decimal `json:"prices,omitempty"`
	PortfolioUsd     decimal.Decimal             `json:"portfolio_usd"`
	StakingApy       decimal.Decimal             `json:"staking_apy"`
	ObservedAt       time.Time                   `json:"observed_at"`
}

// WeeklySummary counts journal activity over the last seven days
type WeeklySummary struct {
	WalletAddress string    `json:"wallet_address"`
	Since         time.Time `json:"since"`
	Deposits      int       `json:"deposits"`
	Growth        int       `json:"growth"`
	Streaks       int       `json:"streaks"`
	Blooms        int       `json:"blooms"`
}

// VisitedGarden is a read-only estimate of another wallet's garden
type VisitedGarden struct {
	WalletAddress string  `json:"wallet_address"`
	Plants        []Plant `json:"plants"`
}

// DepositResult is the persisted effect of a successful deposit
type DepositResult struct {
	Signature string  `json:"signature"`
	Plant     *Plant  `json:"plant,omitempty"`
	Streak    *Streak `json:"streak,omitempty"`
	NewPlant  bool    `json:"new_plant"`
}
