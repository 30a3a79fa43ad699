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

import "fmt"

// Rarity of a plant species
type Rarity string

const (
	RarityCommon   Rarity = "COMMON"
	RarityUncommon Rarity = "UNCOMMON"
	RarityRare     Rarity = "RARE"
)

// Species identifies the plant grown for an asset mint. The value is the
// canonical species name used in deposit memos.
type Species string

const (
	SpeciesSol  Species = "SOL"
	SpeciesUsdc Species = "USDC"
	SpeciesBonk Species = "BONK"
	SpeciesJup  Species = "JUP"
	SpeciesRay  Species = "RAY"
	SpeciesOrca Species = "ORCA"
)

// SpeciesInfo describes one row of the asset-mint table
type SpeciesInfo struct {
	Species     Species
	Mint        string
	DisplayName string
	PlantName   string
	Description string
	GrowthRate  float64
	Rarity      Rarity
	Decimals    int
}

var speciesTable = []SpeciesInfo{
	{
		Species:     SpeciesSol,
		Mint:        "So11111111111111111111111111111111111111112",
		DisplayName: "Solana",
		PlantName:   "Solana Fern",
		Description: "A resilient fern that thrives on native SOL deposits.",
		GrowthRate:  1.0,
		Rarity:      RarityCommon,
		Decimals:    9,
	},
	{
		Species:     SpeciesUsdc,
		Mint:        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		DisplayName: "USD Coin",
		PlantName:   "Stableleaf",
		Description: "Slow and steady. Never wilts in a storm.",
		GrowthRate:  0.5,
		Rarity:      RarityCommon,
		Decimals:    6,
	},
	{
		Species:     SpeciesBonk,
		Mint:        "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		DisplayName: "Bonk",
		PlantName:   "Bonk Cactus",
		Description: "Spiky, unpredictable and fast growing.",
		GrowthRate:  1.5,
		Rarity:      RarityUncommon,
		Decimals:    5,
	},
	{
		Species:     SpeciesJup,
		Mint:        "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
		DisplayName: "Jupiter",
		PlantName:   "Jupiter Vine",
		Description: "Climbs toward the best route to the sun.",
		GrowthRate:  1.2,
		Rarity:      RarityUncommon,
		Decimals:    6,
	},
	{
		Species:     SpeciesRay,
		Mint:        "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
		DisplayName: "Raydium",
		PlantName:   "Radiant Sunflower",
		Description: "Follows liquidity like a sunflower follows light.",
		GrowthRate:  1.1,
		Rarity:      RarityRare,
		Decimals:    6,
	},
	{
		Species:     SpeciesOrca,
		Mint:        "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
		DisplayName: "Orca",
		PlantName:   "Ocean Lily",
		Description: "Floats calmly on deep pools.",
		GrowthRate:  1.0,
		Rarity:      RarityRare,
		Decimals:    6,
	},
}

// AllSpecies returns the asset-mint table in canonical order
func AllSpecies() []SpeciesInfo {
	out := make([]SpeciesInfo, len(speciesTable))
	copy(out, speciesTable)
	return out
}

// LookupSpecies finds a species by its canonical name
func LookupSpecies(s Species) (SpeciesInfo, bool) {
	for _, info := range speciesTable {
		if info.Species == s {
			return info, true
		}
	}
	return SpeciesInfo{}, false
}

// SpeciesForMint finds the species grown for an asset mint
func SpeciesForMint(mint string) (SpeciesInfo, bool) {
	for _, info := range speciesTable {
		if info.Mint == mint {
			return info, true
		}
	}
	return SpeciesInfo{}, false
}

// ParseSpecies validates a species name
func ParseSpecies(name string) (Species, error) {
	if info, ok := LookupSpecies(Species(name)); ok {
		return info.Species, nil
	}
	return "", fmt.Errorf("unknown species: %q", name)
}

// Info returns the table row for s, falling back to SOL for unknown values
func (s Species) Info() SpeciesInfo {
	if info, ok := LookupSpecies(s); ok {
		return info
	}
	return speciesTable[0]
}
