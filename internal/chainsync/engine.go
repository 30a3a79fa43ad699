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

package chainsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gro-garden-sync/internal/growth"
	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/journal"
	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/rpc"
	"gro-garden-sync/internal/store"

	"go.uber.org/zap"
)

const DefaultSignatureWindow = 30

// ChainReader is the subset of the ledger RPC the engine needs.
type ChainReader interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetSignatures(ctx context.Context, address string, query rpc.SignatureQuery) ([]models.SignatureInfo, error)
	TransactionMemos(ctx context.Context, signature string) ([]string, error)
}

// DepositEvent is a deposit recognized on chain and journaled for the first time.
type DepositEvent struct {
	WalletAddress string
	Signature     string
	Species       models.Species
	Lamports      uint64
	BlockTime     time.Time
}

// EventSink receives newly recognized deposits, e.g. to advance a streak.
type EventSink interface {
	PublishDeposit(ctx context.Context, event DepositEvent)
}

type SyncReport struct {
	WalletAddress     string    `json:"wallet_address"`
	Balance           *uint64   `json:"balance,omitempty"`
	PlantsChecked     int       `json:"plants_checked"`
	PlantsUpdated     int       `json:"plants_updated"`
	SignaturesScanned int       `json:"signatures_scanned"`
	DepositsRecorded  int       `json:"deposits_recorded"`
	Duplicates        int       `json:"duplicates"`
	Skipped           int       `json:"skipped"`
	Cursor            string    `json:"cursor,omitempty"`
	SyncedAt          time.Time `json:"synced_at"`
}

type Config struct {
	SignatureWindow int
	Now             func() time.Time
}

type Engine struct {
	chain  ChainReader
	store  store.GardenStore
	sink   EventSink
	window int
	now    func() time.Time
}

// NewEngine creates a sync engine. sink may be nil.
func NewEngine(cfg Config, chain ChainReader, gardenStore store.GardenStore, sink EventSink) *Engine {
	if cfg.SignatureWindow <= 0 {
		cfg.SignatureWindow = DefaultSignatureWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		chain:  chain,
		store:  gardenStore,
		sink:   sink,
		window: cfg.SignatureWindow,
		now:    cfg.Now,
	}
}

// SyncAccount reconciles one wallet: balance (best effort), plant vitals,
// then new deposit memos since the stored cursor. Each write is independent,
// so an error part way leaves earlier writes valid.
func (e *Engine) SyncAccount(ctx context.Context, wallet string) (report SyncReport, err error) {
	start := time.Now()
	defer func() { metrics.RecordSync(time.Since(start), err) }()

	now := e.now()
	report = SyncReport{WalletAddress: wallet, SyncedAt: now}

	if balance, err := e.chain.GetBalance(ctx, wallet); err != nil {
		zap.L().Warn("Balance unavailable during sync", zap.String("wallet", wallet), zap.Error(err))
	} else {
		report.Balance = &balance
	}

	if err := e.refreshPlants(ctx, wallet, now, &report); err != nil {
		return report, err
	}
	if err := e.reconcileHistory(ctx, wallet, &report); err != nil {
		return report, err
	}

	zap.L().Info("Wallet synced",
		zap.String("wallet", wallet),
		zap.Int("plants_updated", report.PlantsUpdated),
		zap.Int("signatures_scanned", report.SignaturesScanned),
		zap.Int("deposits_recorded", report.DepositsRecorded),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (e *Engine) refreshPlants(ctx context.Context, wallet string, now time.Time, report *SyncReport) error {
	plants, err := e.store.GetPlants(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to load plants: %w", err)
	}
	report.PlantsChecked = len(plants)

	for _, plant := range plants {
		next, changed := growth.Recompute(plant, now)
		if !changed {
			continue
		}

		err := e.store.UpdatePlantVitals(ctx, store.UpdateVitalsParams{
			PlantId:         plant.Id,
			HealthScore:     next.HealthScore,
			GrowthStage:     next.GrowthStage,
			ExpectedVersion: plant.Version,
		})
		if errors.Is(err, store.ErrConcurrentModification) {
			// Another pass got there first and journals the transition itself.
			zap.L().Debug("Plant changed concurrently, skipping", zap.String("plant_id", plant.Id))
			continue
		}
		if err != nil {
			zap.L().Warn("Failed to update plant vitals", zap.String("plant_id", plant.Id), zap.Error(err))
			continue
		}
		report.PlantsUpdated++

		for _, entry := range journal.StageEntries(plant, next.GrowthStage, now) {
			e.appendJournal(ctx, entry)
		}
	}
	return nil
}

func (e *Engine) appendJournal(ctx context.Context, params store.AppendJournalParams) {
	if _, err := e.store.AppendJournalEntry(ctx, params); err != nil {
		zap.L().Warn("Failed to append journal entry",
			zap.String("wallet", params.WalletAddress),
			zap.String("action", string(params.Action)),
			zap.Error(err))
		return
	}
	metrics.RecordJournalEntry(string(params.Action))
}

// reconcileHistory walks signatures newer than the cursor, oldest first. The
// cursor only advances past signatures whose memos could be read, so a failed
// fetch is retried on the next sync; already journaled signatures dedupe.
func (e *Engine) reconcileHistory(ctx context.Context, wallet string, report *SyncReport) error {
	cursor, err := e.store.GetSyncCursor(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to load sync cursor: %w", err)
	}

	signatures, err := e.signaturesSince(ctx, wallet, cursor)
	if err != nil {
		return fmt.Errorf("failed to fetch signatures: %w", err)
	}
	report.Cursor = cursor

	next := cursor
	blocked := false
	for i := len(signatures) - 1; i >= 0; i-- {
		sig := signatures[i]
		if sig.Failed {
			if !blocked {
				next = sig.Signature
			}
			continue
		}
		report.SignaturesScanned++

		memos, err := e.memosFor(ctx, sig)
		if err != nil {
			zap.L().Warn("Failed to read memos, will retry next sync",
				zap.String("signature", sig.Signature), zap.Error(err))
			report.Skipped++
			blocked = true
			continue
		}

		if err := e.recordDeposit(ctx, wallet, sig, memos, report); err != nil {
			zap.L().Warn("Failed to journal deposit, will retry next sync",
				zap.String("signature", sig.Signature), zap.Error(err))
			report.Skipped++
			blocked = true
			continue
		}
		if !blocked {
			next = sig.Signature
		}
	}

	if next != cursor {
		if err := e.store.SetSyncCursor(ctx, wallet, next); err != nil {
			return fmt.Errorf("failed to save sync cursor: %w", err)
		}
		report.Cursor = next
	}
	return nil
}

// signaturesSince returns every signature newer than cursor, newest first,
// paging backwards a window at a time until the cursor is reached. Without a
// cursor only the newest window is read. Failed transactions are included so
// a short page really means the end.
func (e *Engine) signaturesSince(ctx context.Context, wallet, cursor string) ([]models.SignatureInfo, error) {
	query := rpc.SignatureQuery{Limit: e.window, Until: cursor, IncludeFailed: true}

	var all []models.SignatureInfo
	for {
		page, err := e.chain.GetSignatures(ctx, wallet, query)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if cursor == "" || len(page) < e.window {
			return all, nil
		}
		query.Before = page[len(page)-1].Signature
	}
}

func (e *Engine) memosFor(ctx context.Context, sig models.SignatureInfo) ([]string, error) {
	if sig.Memo != nil {
		return instruction.SplitMemos(*sig.Memo), nil
	}
	return e.chain.TransactionMemos(ctx, sig.Signature)
}

// recordDeposit journals the first deposit memo of a transaction. Only
// storage failures are returned; memo problems are counted and skipped.
func (e *Engine) recordDeposit(ctx context.Context, wallet string, sig models.SignatureInfo, memos []string, report *SyncReport) error {
	for _, memo := range memos {
		fields, err := instruction.ParseDepositMemo(memo)
		if errors.Is(err, instruction.ErrNotGroMemo) || errors.Is(err, instruction.ErrNotDepositMemo) {
			continue
		}
		if err != nil {
			zap.L().Warn("Skipping malformed deposit memo",
				zap.String("signature", sig.Signature), zap.String("memo", memo), zap.Error(err))
			report.Skipped++
			continue
		}

		blockTime := e.now()
		if sig.BlockTime != nil {
			blockTime = *sig.BlockTime
		}

		_, err = e.store.AppendJournalEntry(ctx, store.AppendJournalParams{
			WalletAddress:   wallet,
			Timestamp:       blockTime,
			Action:          models.ActionDeposit,
			Details:         journal.DepositDetails(fields.Species, fields.Lamports),
			SourceSignature: sig.Signature,
		})
		if errors.Is(err, store.ErrDuplicateJournalEntry) {
			report.Duplicates++
			return nil
		}
		if err != nil {
			return err
		}

		report.DepositsRecorded++
		metrics.RecordJournalEntry(string(models.ActionDeposit))
		if e.sink != nil {
			e.sink.PublishDeposit(ctx, DepositEvent{
				WalletAddress: wallet,
				Signature:     sig.Signature,
				Species:       fields.Species,
				Lamports:      fields.Lamports,
				BlockTime:     blockTime,
			})
		}
		return nil
	}
	return nil
}
