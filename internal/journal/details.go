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

package journal

import (
	"fmt"
	"math/big"
	"time"

	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/store"

	"github.com/shopspring/decimal"
)

// Sol converts lamports to whole SOL.
func Sol(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

// FormatSol renders lamports as SOL with four decimals, e.g. "0.0500".
func FormatSol(lamports uint64) string {
	return Sol(lamports).StringFixed(4)
}

func DepositDetails(species models.Species, lamports uint64) string {
	info := species.Info()
	return fmt.Sprintf("Deposited %s %s to grow %s", FormatSol(lamports), info.DisplayName, info.PlantName)
}

func GrowthDetails(species models.Species, stage models.GrowthStage) string {
	return fmt.Sprintf("%s grew into a %s", species.Info().PlantName, stage.DisplayName())
}

func BloomDetails(species models.Species) string {
	return fmt.Sprintf("%s is in full bloom", species.Info().PlantName)
}

// StageEntries returns the GROWTH entry, plus BLOOM on reaching full bloom,
// for a plant moving from one stage to a later one. No entries otherwise.
func StageEntries(plant models.Plant, next models.GrowthStage, at time.Time) []store.AppendJournalParams {
	if next <= plant.GrowthStage {
		return nil
	}
	entries := []store.AppendJournalParams{{
		WalletAddress: plant.WalletAddress,
		Timestamp:     at,
		Action:        models.ActionGrowth,
		Details:       GrowthDetails(plant.Species, next),
	}}
	if next == models.StageBlooming {
		entries = append(entries, store.AppendJournalParams{
			WalletAddress: plant.WalletAddress,
			Timestamp:     at,
			Action:        models.ActionBloom,
			Details:       BloomDetails(plant.Species),
		})
	}
	return entries
}

func StreakDetails(days int) string {
	return fmt.Sprintf("%d-day streak!", days)
}

func VisitDetails(friend string) string {
	return fmt.Sprintf("Left a sunflower in %s's garden", instruction.ShortAddress(friend))
}
