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

// GrowthStage is an ordered plant lifecycle phase. Higher values are more advanced.
type GrowthStage int

const (
	StageSeed GrowthStage = iota
	StageSprout
	StageSapling
	StageMature
	StageBlooming
)

// StageThreshold is the minimum age and deposit count required to reach a stage
type StageThreshold struct {
	Stage       GrowthStage
	MinDays     int
	MinDeposits int
}

// StageThresholds lists every stage from least to most advanced
var StageThresholds = []StageThreshold{
	{Stage: StageSeed, MinDays: 0, MinDeposits: 1},
	{Stage: StageSprout, MinDays: 3, MinDeposits: 2},
	{Stage: StageSapling, MinDays: 7, MinDeposits: 4},
	{Stage: StageMature, MinDays: 14, MinDeposits: 7},
	{Stage: StageBlooming, MinDays: 30, MinDeposits: 10},
}

var stageNames = map[GrowthStage]string{
	StageSeed:     "SEED",
	StageSprout:   "SPROUT",
	StageSapling:  "SAPLING",
	StageMature:   "MATURE",
	StageBlooming: "BLOOMING",
}

var stageDisplayNames = map[GrowthStage]string{
	StageSeed:     "Seed",
	StageSprout:   "Sprout",
	StageSapling:  "Sapling",
	StageMature:   "Mature",
	StageBlooming: "Blooming",
}

func (g GrowthStage) String() string {
	if name, ok := stageNames[g]; ok {
		return name
	}
	return stageNames[StageSeed]
}

// DisplayName is the human readable stage name
func (g GrowthStage) DisplayName() string {
	if name, ok := stageDisplayNames[g]; ok {
		return name
	}
	return stageDisplayNames[StageSeed]
}

// ParseGrowthStage converts a persisted stage name back into a GrowthStage
func ParseGrowthStage(name string) GrowthStage {
	for stage, n := range stageNames {
		if n == name {
			return stage
		}
	}
	return StageSeed
}

func (g GrowthStage) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GrowthStage) UnmarshalText(text []byte) error {
	*g = ParseGrowthStage(string(text))
	return nil
}

// HealthTier buckets a health score for presentation
type HealthTier string

const (
	HealthVibrant        HealthTier = "Vibrant"
	HealthNeedsAttention HealthTier = "Needs attention"
	HealthWilting        HealthTier = "Wilting"
	HealthDormant        HealthTier = "Dormant"
)

// Plant is the garden record owned by one (wallet, mint) pair
type Plant struct {
	Id                   string      `json:"id"`
	WalletAddress        string      `json:"wallet_address"`
	TokenMint            string      `json:"token_mint"`
	Species              Species     `json:"species"`
	GrowthStage          GrowthStage `json:"growth_stage"`
	HealthScore          int         `json:"health_score"`
	GrowthPoints         float64     `json:"growth_points"`
	PlantedAt            time.Time   `json:"planted_at"`
	LastWateredAt        time.Time   `json:"last_watered_at"`
	TotalDeposits        int         `json:"total_deposits"`
	TotalDepositedAmount uint64      `json:"total_deposited_amount"`
	GridX                int         `json:"grid_x"`
	GridY                int         `json:"grid_y"`
	IsStaked             bool        `json:"is_staked"`
	StakedAmount         uint64      `json:"staked_amount"`
	EarnedYield          float64     `json:"earned_yield"`
	Version              int         `json:"-"`
}

// Streak tracks consecutive active days for a wallet
type Streak struct {
	WalletAddress   string `json:"wallet_address"`
	CurrentStreak   int    `json:"current_streak"`
	LongestStreak   int    `json:"longest_streak"`
	LastActiveDate  string `json:"last_active_date"`
	TotalActiveDays int    `json:"total_active_days"`
}

// JournalAction is the kind of a journal entry
type JournalAction string

const (
	ActionDeposit JournalAction = "DEPOSIT"
	ActionGrowth  JournalAction = "GROWTH"
	ActionVisit   JournalAction = "VISIT"
	ActionStreak  JournalAction = "STREAK"
	ActionBloom   JournalAction = "BLOOM"
)

// JournalEntry is an append-only garden log row
type JournalEntry struct {
	Id              string        `json:"id"`
	WalletAddress   string        `json:"wallet_address"`
	Timestamp       time.Time     `json:"timestamp"`
	Action          JournalAction `json:"action"`
	Details         string        `json:"details"`
	GardenSnapshot  int           `json:"garden_snapshot"`
	SourceSignature string        `json:"source_signature,omitempty"`
}

// Weather is the garden ambience derived from streak and plants
type Weather string

const (
	WeatherSunny        Weather = "Sunny"
	WeatherPartlyCloudy Weather = "Partly Cloudy"
	WeatherCloudy       Weather = "Cloudy"
	WeatherRainy        Weather = "Rainy"
	WeatherGoldenHour   Weather = "Golden Hour"
)

const (
	GridColumns = 4
	GridRows    = 3
	MaxPlants   = GridColumns * GridRows
)

// LamportsPerSol is the number of lamports in one whole SOL
const LamportsPerSol uint64 = 1_000_000_000
