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
	"fmt"
	"sync"
	"time"

	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/models"

	"go.uber.org/zap"
)

// Syncer reconciles a single wallet.
type Syncer interface {
	SyncAccount(ctx context.Context, wallet string) (SyncReport, error)
}

// WalletListFunc returns the wallets to reconcile on each tick.
type WalletListFunc func(ctx context.Context) ([]models.WalletInfo, error)

type PollerConfig struct {
	Syncer          Syncer
	Wallets         WalletListFunc
	PollingInterval time.Duration
}

// Poller syncs every watched wallet on a fixed interval.
type Poller struct {
	syncer          Syncer
	wallets         WalletListFunc
	pollingInterval time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewPoller(cfg PollerConfig) *Poller {
	return &Poller{
		syncer:          cfg.Syncer,
		wallets:         cfg.Wallets,
		pollingInterval: cfg.PollingInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval, until Stop or ctx ends.
func (p *Poller) Start(ctx context.Context) error {
	if p.syncer == nil || p.wallets == nil {
		return fmt.Errorf("poller requires a syncer and a wallet source")
	}
	if p.pollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive, got %v", p.pollingInterval)
	}

	go p.pollLoop(ctx)

	zap.L().Info("Chain sync poller started", zap.Duration("polling_interval", p.pollingInterval))
	return nil
}

// Stop waits for the in-progress pass to finish.
func (p *Poller) Stop() {
	zap.L().Info("Stopping chain sync poller")
	p.stopOnce.Do(func() { close(p.stopChan) })
	<-p.doneChan
	zap.L().Info("Chain sync poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	p.pollWallets(ctx)

	for {
		select {
		case <-ticker.C:
			p.pollWallets(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ANSI color helpers for console output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
)

func (p *Poller) pollWallets(ctx context.Context) {
	wallets, err := p.wallets(ctx)
	if err != nil {
		zap.L().Error("Failed to load watched wallets", zap.Error(err))
		return
	}
	if len(wallets) == 0 {
		zap.L().Warn("No wallets to sync")
		return
	}

	fmt.Printf("\n%s[%s] Syncing %d wallets%s\n",
		colorCyan, time.Now().Format("15:04:05"), len(wallets), colorReset)

	var wg sync.WaitGroup

	for _, wallet := range wallets {
		wg.Add(1)

		go func(w models.WalletInfo) {
			defer wg.Done()

			label := w.Label
			if label == "" {
				label = instruction.ShortAddress(w.Address)
			}

			report, err := p.syncer.SyncAccount(ctx, w.Address)
			if err != nil {
				fmt.Printf("  %s✗ %s: %s%s\n", colorRed, label, err, colorReset)
				zap.L().Error("Failed to sync wallet", zap.String("wallet", w.Address), zap.Error(err))
				return
			}
			fmt.Printf("  %s✓ %s | plants %d/%d | deposits +%d%s\n",
				colorGreen, label, report.PlantsUpdated, report.PlantsChecked, report.DepositsRecorded, colorReset)
		}(wallet)
	}

	wg.Wait()
}
