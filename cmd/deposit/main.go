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
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"gro-garden-sync/internal/common"
	"gro-garden-sync/internal/config"
	"gro-garden-sync/internal/garden"
	"gro-garden-sync/internal/journal"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/pipeline"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type depositRequest struct {
	wallet      string
	species     models.Species
	lamports    uint64
	sunflowerTo string
	token       string
	clearToken  bool
}

func parseAndValidateFlags() (*depositRequest, error) {
	walletFlag := flag.String("wallet", "", "Wallet address that signs the transaction")
	amountFlag := flag.String("amount", "", "Amount of SOL to deposit (e.g., 0.05)")
	speciesFlag := flag.String("species", string(models.SpeciesSol), "Species to plant or water (SOL, USDC, BONK, JUP, RAY, ORCA)")
	sunflowerFlag := flag.String("sunflower-to", "", "Leave a sunflower in this friend's garden instead of depositing")
	tokenFlag := flag.String("token", "", "Store the wallet bridge auth token and exit")
	clearFlag := flag.Bool("clear-token", false, "Forget the stored wallet bridge auth token and exit")
	flag.Parse()

	req := &depositRequest{
		wallet:      *walletFlag,
		sunflowerTo: *sunflowerFlag,
		token:       strings.TrimSpace(*tokenFlag),
		clearToken:  *clearFlag,
	}
	if req.token != "" || req.clearToken {
		return req, nil
	}

	if req.wallet == "" {
		return nil, fmt.Errorf("--wallet is required")
	}
	if req.sunflowerTo != "" {
		return req, nil
	}

	species, err := models.ParseSpecies(strings.ToUpper(*speciesFlag))
	if err != nil {
		return nil, err
	}
	req.species = species

	if *amountFlag == "" {
		return nil, fmt.Errorf("--amount is required for a deposit")
	}
	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	lamports := amount.Shift(9)
	if !lamports.Equal(lamports.Truncate(0)) {
		return nil, fmt.Errorf("amount has more than 9 decimal places")
	}
	if !lamports.BigInt().IsUint64() {
		return nil, fmt.Errorf("amount is too large")
	}
	req.lamports = lamports.BigInt().Uint64()

	return req, nil
}

func describe(outcome pipeline.Outcome) string {
	switch o := outcome.(type) {
	case pipeline.Success:
		return "✓ Submitted: " + o.Signature
	case pipeline.NoWalletAvailable:
		return "✗ No wallet app is available to approve the transaction"
	case pipeline.Failure:
		return "✗ Failed: " + o.Message
	default:
		return "✗ Unknown outcome"
	}
}

func main() {
	req, err := parseAndValidateFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger, _ := common.InitializeLogger("")
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	if cfg.Deposit.TokenStoreSecret == "" {
		logger.Fatal("TOKEN_STORE_SECRET is required to deposit")
	}

	ctx := context.Background()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	switch {
	case req.clearToken:
		if err := services.TokenStore.Clear(ctx); err != nil {
			logger.Fatal("Failed to clear wallet bridge token", zap.Error(err))
		}
		fmt.Println("✓ Wallet bridge token cleared")
		return
	case req.token != "":
		if err := services.TokenStore.Set(ctx, req.token); err != nil {
			logger.Fatal("Failed to store wallet bridge token", zap.Error(err))
		}
		fmt.Println("✓ Wallet bridge token stored")
		return
	}

	if req.sunflowerTo != "" {
		common.PrintHeader("SUNFLOWER GIFT", common.DefaultWidth)
		outcome, err := services.Garden.SendSunflower(ctx, req.wallet, req.sunflowerTo)
		if err != nil {
			logger.Fatal("Failed to send sunflower", zap.Error(err))
		}
		common.PrintFooter(describe(outcome), common.DefaultWidth)
		return
	}

	common.PrintHeader("DEPOSIT", common.DefaultWidth)
	fmt.Printf("Wallet:  %s\n", req.wallet)
	fmt.Printf("Species: %s\n", req.species.Info().PlantName)
	fmt.Printf("Amount:  %s SOL\n", journal.FormatSol(req.lamports))
	fmt.Printf("Mode:    %s\n", services.Pipeline.Mode())
	fmt.Println("\nApprove the transaction in your wallet...")

	outcome, result, err := services.Garden.Deposit(ctx, req.wallet, req.species, req.lamports)
	if err != nil {
		if errors.Is(err, garden.ErrInvalidAddress) || errors.Is(err, garden.ErrInvalidAmount) {
			logger.Fatal("Invalid deposit request", zap.Error(err))
		}
		// The transaction may already be on chain; the next sync reconstructs the journal.
		logger.Error("Deposit submitted but not fully recorded", zap.Error(err))
	}

	if result != nil && result.Plant != nil {
		verb := "Watered"
		if result.NewPlant {
			verb = "Planted"
		}
		fmt.Printf("\n%s %s (%s, %d deposits)\n",
			verb, result.Plant.Species.Info().PlantName, result.Plant.GrowthStage.DisplayName(), result.Plant.TotalDeposits)
		if result.Streak != nil {
			fmt.Printf("Streak: %d days\n", result.Streak.CurrentStreak)
		}
	}
	common.PrintFooter(describe(outcome), common.DefaultWidth)
}
