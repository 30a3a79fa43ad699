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
	"errors"
	"fmt"
	"time"

	"gro-garden-sync/internal/chainsync"
	"gro-garden-sync/internal/growth"
	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/journal"
	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/pipeline"
	"gro-garden-sync/internal/store"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidAmount  = errors.New("deposit amount must be between 1 lamport and 1,000,000 SOL")
	ErrSelfVisit      = errors.New("cannot leave a sunflower in your own garden")
	ErrReadOnly       = errors.New("no transaction submitter configured")
)

// Chain is the read side of the ledger used for balances and friends' gardens.
type Chain interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, address string) ([]models.TokenAccount, error)
}

// Prices supplies advisory market data. It never fails.
type Prices interface {
	TokenPrices(ctx context.Context, mints []string) map[string]decimal.Decimal
	StakingApy(ctx context.Context) decimal.Decimal
}

// Submitter drives transactions through the wallet.
type Submitter interface {
	Deposit(ctx context.Context, wallet solana.PublicKey, species models.Species, lamports uint64) pipeline.Outcome
	SendSunflower(ctx context.Context, from, to solana.PublicKey) pipeline.Outcome
	Staked() bool
}

type Config struct {
	Store     store.GardenStore
	Chain     Chain
	Prices    Prices
	Submitter Submitter
	Now       func() time.Time
	// Location decides which calendar day an activity counts for.
	Location *time.Location
}

// Service is the application layer over the garden: deposits, gifts and the
// read models built from storage and chain data.
type Service struct {
	store     store.GardenStore
	chain     Chain
	prices    Prices
	submitter Submitter
	now       func() time.Time
	location  *time.Location
}

var _ chainsync.EventSink = (*Service)(nil)

func NewService(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		store:     cfg.Store,
		chain:     cfg.Chain,
		prices:    cfg.Prices,
		submitter: cfg.Submitter,
		now:       cfg.Now,
		location:  cfg.Location,
	}
}

// RecordActivity advances the wallet's streak for the calendar day of at.
// advanced is false for a second activity on the same day.
func (s *Service) RecordActivity(ctx context.Context, wallet string, at time.Time) (streak *models.Streak, advanced bool, err error) {
	existing, err := s.store.GetStreak(ctx, wallet)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load streak: %w", err)
	}

	next, changed, err := growth.NextStreak(existing, wallet, growth.DateOf(at.In(s.location)))
	if err != nil {
		return existing, false, err
	}
	if !changed {
		return existing, false, nil
	}

	if err := s.store.SaveStreak(ctx, next); err != nil {
		return existing, false, fmt.Errorf("failed to save streak: %w", err)
	}
	return &next, true, nil
}

// journalStreak notes streaks that reached two days or more.
func (s *Service) journalStreak(ctx context.Context, streak *models.Streak, at time.Time) {
	if streak == nil || streak.CurrentStreak <= 1 {
		return
	}
	s.appendJournal(ctx, store.AppendJournalParams{
		WalletAddress: streak.WalletAddress,
		Timestamp:     at,
		Action:        models.ActionStreak,
		Details:       journal.StreakDetails(streak.CurrentStreak),
	})
}

func (s *Service) appendJournal(ctx context.Context, params store.AppendJournalParams) error {
	_, err := s.store.AppendJournalEntry(ctx, params)
	if err != nil {
		zap.L().Warn("Failed to append journal entry",
			zap.String("wallet", params.WalletAddress),
			zap.String("action", string(params.Action)),
			zap.Error(err))
		return err
	}
	metrics.RecordJournalEntry(string(params.Action))
	return nil
}

// PublishDeposit counts a deposit found on chain toward the streak.
func (s *Service) PublishDeposit(ctx context.Context, event chainsync.DepositEvent) {
	streak, advanced, err := s.RecordActivity(ctx, event.WalletAddress, event.BlockTime)
	if err != nil {
		zap.L().Warn("Failed to record chain deposit activity",
			zap.String("wallet", event.WalletAddress),
			zap.String("signature", event.Signature),
			zap.Error(err))
		return
	}
	if advanced {
		s.journalStreak(ctx, streak, event.BlockTime)
	}
}

func parseWallet(address string) (solana.PublicKey, error) {
	key, err := instruction.ParseAddress(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return key, nil
}
