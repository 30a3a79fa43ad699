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

package main

import (
	"context"
	"flag"
	"fmt"

	"gro-garden-sync/internal/common"
	"gro-garden-sync/internal/config"
	"gro-garden-sync/internal/growth"
	"gro-garden-sync/internal/journal"
	"gro-garden-sync/internal/models"

	"go.uber.org/zap"
)

func printPlant(plant models.Plant, isLast bool) {
	info := plant.Species.Info()
	fmt.Printf("%s %-18s %-9s health %3d (%s) at (%d,%d)\n",
		common.BoxPrefix(isLast),
		info.PlantName,
		plant.GrowthStage.DisplayName(),
		plant.HealthScore,
		growth.Tier(plant.HealthScore),
		plant.GridX,
		plant.GridY)

	detail := fmt.Sprintf("deposits: %d, total: %s SOL", plant.TotalDeposits, journal.FormatSol(plant.TotalDepositedAmount))
	if plant.IsStaked {
		detail += fmt.Sprintf(", staked: %s SOL", journal.FormatSol(plant.StakedAmount))
	}
	fmt.Printf("%s   %s\n", common.BoxDetailPrefix(isLast), detail)
}

func printPlants(plants []models.Plant) {
	if len(plants) == 0 {
		fmt.Println("└  (no plants yet)")
		return
	}
	for i, plant := range plants {
		printPlant(plant, i == len(plants)-1)
	}
}

func printState(state *models.GardenState) {
	fmt.Printf("\n┌─ Garden: %s\n", state.WalletAddress)
	fmt.Printf("│  Weather: %s (x%.2f growth)\n", state.Weather, state.GrowthMultiplier)
	if state.Streak != nil {
		fmt.Printf("│  Streak: %d days (longest %d, last active %s)\n",
			state.Streak.CurrentStreak, state.Streak.LongestStreak, state.Streak.LastActiveDate)
	}
	if state.Balance != nil {
		fmt.Printf("│  Balance: %s SOL (~$%s)\n", journal.FormatSol(*state.Balance), state.PortfolioUsd.StringFixed(2))
	} else {
		fmt.Println("│  Balance: unavailable")
	}
	fmt.Printf("│  Staking APY: %s%%\n", state.StakingApy.Shift(2).StringFixed(2))
	common.PrintBoxSeparator(78)
	printPlants(state.Plants)
}

func printJournal(entries []models.JournalEntry) {
	fmt.Printf("\n┌─ Journal (%d entries)\n", len(entries))
	common.PrintBoxSeparator(78)
	if len(entries) == 0 {
		fmt.Println("└  (empty)")
		return
	}
	for i, entry := range entries {
		fmt.Printf("%s %s  %-8s %s\n",
			common.BoxPrefix(i == len(entries)-1),
			entry.Timestamp.Local().Format("2006-01-02 15:04"),
			entry.Action,
			entry.Details)
	}
}

func printSummary(summary *models.WeeklySummary) {
	fmt.Printf("\n┌─ This week (since %s)\n", summary.Since.Local().Format("2006-01-02"))
	fmt.Printf("│  Deposits: %d\n", summary.Deposits)
	fmt.Printf("│  Growth:   %d\n", summary.Growth)
	fmt.Printf("│  Streaks:  %d\n", summary.Streaks)
	fmt.Printf("└  Blooms:   %d\n", summary.Blooms)
}

func main() {
	walletFlag := flag.String("wallet", "", "Wallet address whose garden to show (required unless -visit is set)")
	visitFlag := flag.String("visit", "", "Show a friend's garden estimated from chain data")
	journalFlag := flag.Int("journal", 0, "Also print the newest N journal entries")
	summaryFlag := flag.Bool("summary", false, "Also print the weekly summary")
	syncFlag := flag.Bool("sync", false, "Sync the wallet with the chain before printing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger, _ := common.InitializeLogger("")
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	if *walletFlag == "" && *visitFlag == "" {
		logger.Fatal("Either --wallet or --visit is required")
	}

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *visitFlag != "" {
		visited, err := services.Garden.Visit(ctx, *visitFlag)
		if err != nil {
			logger.Fatal("Failed to visit garden", zap.String("wallet", *visitFlag), zap.Error(err))
		}
		common.PrintHeader("FRIEND'S GARDEN", common.DefaultWidth)
		fmt.Printf("\n┌─ Garden: %s\n", visited.WalletAddress)
		common.PrintBoxSeparator(78)
		printPlants(visited.Plants)
		common.PrintFooter(fmt.Sprintf("%d plants estimated from chain data", len(visited.Plants)), common.DefaultWidth)
		if *walletFlag == "" {
			return
		}
	}

	if *syncFlag {
		report, err := services.SyncEngine.SyncAccount(ctx, *walletFlag)
		if err != nil {
			logger.Fatal("Failed to sync wallet", zap.String("wallet", *walletFlag), zap.Error(err))
		}
		logger.Info("Wallet synced",
			zap.Int("plants_updated", report.PlantsUpdated),
			zap.Int("deposits_recorded", report.DepositsRecorded))
	}

	state, err := services.Garden.State(ctx, *walletFlag)
	if err != nil {
		logger.Fatal("Failed to load garden", zap.String("wallet", *walletFlag), zap.Error(err))
	}

	common.PrintHeader("GARDEN REPORT", common.DefaultWidth)
	printState(state)

	if *journalFlag > 0 {
		entries, err := services.Garden.Journal(ctx, *walletFlag, *journalFlag)
		if err != nil {
			logger.Error("Failed to load journal", zap.Error(err))
		} else {
			printJournal(entries)
		}
	}

	if *summaryFlag {
		summary, err := services.Garden.WeeklySummary(ctx, *walletFlag)
		if err != nil {
			logger.Error("Failed to load weekly summary", zap.Error(err))
		} else {
			printSummary(summary)
		}
	}

	common.PrintFooter(fmt.Sprintf("%d of %d plots planted", len(state.Plants), models.MaxPlants), common.DefaultWidth)
}
