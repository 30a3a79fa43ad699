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

package garden

import (
	"context"
	"fmt"
	"time"

	"gro-garden-sync/internal/growth"
	"gro-garden-sync/internal/journal"
	"gro-garden-sync/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State assembles the wallet's garden. Balance, prices and yield are fetched
// concurrently and are best effort; only storage errors fail the call.
func (s *Service) State(ctx context.Context, wallet string) (*models.GardenState, error) {
	if _, err := parseWallet(wallet); err != nil {
		return nil, err
	}

	plants, err := s.store.GetPlants(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to load plants: %w", err)
	}
	streak, err := s.store.GetStreak(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}

	mints := priceMints(plants)

	var (
		balance    *uint64
		mintPrices map[string]decimal.Decimal
		apy        decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lamports, err := s.chain.GetBalance(gctx, wallet)
		if err != nil {
			zap.L().Warn("Balance unavailable for garden state", zap.String("wallet", wallet), zap.Error(err))
			return nil
		}
		balance = &lamports
		return nil
	})
	g.Go(func() error {
		mintPrices = s.prices.TokenPrices(gctx, mints)
		return nil
	})
	g.Go(func() error {
		apy = s.prices.StakingApy(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prices := make(map[models.Species]decimal.Decimal, len(mintPrices))
	for mint, price := range mintPrices {
		if info, ok := models.SpeciesForMint(mint); ok {
			prices[info.Species] = price
		}
	}

	portfolio := decimal.Zero
	if solPrice, ok := prices[models.SpeciesSol]; ok && balance != nil {
		portfolio = journal.Sol(*balance).Mul(solPrice).Round(2)
	}

	current := 0
	if streak != nil {
		current = streak.CurrentStreak
	}

	return &models.GardenState{
		WalletAddress:    wallet,
		Plants:           plants,
		Streak:           streak,
		Weather:          growth.Weather(streak, plants),
		GrowthMultiplier: growth.Multiplier(current),
		Balance:          balance,
		Prices:           prices,
		PortfolioUsd:     portfolio,
		StakingApy:       apy,
		ObservedAt:       s.now(),
	}, nil
}

// priceMints is SOL plus every planted species, without duplicates.
func priceMints(plants []models.Plant) []string {
	solMint := models.SpeciesSol.Info().Mint
	seen := map[string]bool{solMint: true}
	mints := []string{solMint}
	for _, p := range plants {
		if !seen[p.TokenMint] {
			seen[p.TokenMint] = true
			mints = append(mints, p.TokenMint)
		}
	}
	return mints
}

// Visit estimates a friend's garden from chain data alone: a SOL plant when
// the balance is positive, then one plant per held species token.
func (s *Service) Visit(ctx context.Context, address string) (*models.VisitedGarden, error) {
	if _, err := parseWallet(address); err != nil {
		return nil, err
	}

	var (
		balance  uint64
		accounts []models.TokenAccount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.chain.GetBalance(gctx, address)
		if err != nil {
			return fmt.Errorf("failed to fetch balance: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		accounts, err = s.chain.GetTokenAccountsByOwner(gctx, address)
		if err != nil {
			return fmt.Errorf("failed to fetch token accounts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	plants := []models.Plant{}
	add := func(info models.SpeciesInfo, amount uint64) {
		i := len(plants)
		plants = append(plants, models.Plant{
			Id:                   address + ":" + info.Mint,
			WalletAddress:        address,
			TokenMint:            info.Mint,
			Species:              info.Species,
			GrowthStage:          growth.VisitStage(amount),
			HealthScore:          visitHealth,
			PlantedAt:            now,
			LastWateredAt:        now,
			TotalDepositedAmount: amount,
			GridX:                i % models.GridColumns,
			GridY:                i / models.GridColumns,
		})
	}

	seen := map[string]bool{}
	if balance > 0 {
		sol := models.SpeciesSol.Info()
		add(sol, balance)
		seen[sol.Mint] = true
	}
	for _, account := range accounts {
		if len(plants) >= models.MaxPlants {
			break
		}
		info, ok := models.SpeciesForMint(account.Mint)
		if !ok || seen[info.Mint] {
			continue
		}
		seen[info.Mint] = true
		add(info, account.Amount)
	}

	return &models.VisitedGarden{WalletAddress: address, Plants: plants}, nil
}

const visitHealth = 80

// WeeklySummary counts the wallet's journal activity over the last 7 days.
func (s *Service) WeeklySummary(ctx context.Context, wallet string) (*models.WeeklySummary, error) {
	since := s.now().Add(-7 * 24 * time.Hour)
	entries, err := s.store.GetJournalEntriesSince(ctx, wallet, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}

	summary := &models.WeeklySummary{WalletAddress: wallet, Since: since}
	for _, entry := range entries {
		switch entry.Action {
		case models.ActionDeposit:
			summary.Deposits++
		case models.ActionGrowth:
			summary.Growth++
		case models.ActionStreak:
			summary.Streaks++
		case models.ActionBloom:
			summary.Blooms++
		}
	}
	return summary, nil
}

// Journal returns the newest journal entries first.
func (s *Service) Journal(ctx context.Context, wallet string, limit int) ([]models.JournalEntry, error) {
	entries, err := s.store.GetJournalEntries(ctx, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}
	return entries, nil
}
