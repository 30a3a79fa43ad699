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
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gro-garden-sync/internal/chainsync"
	"gro-garden-sync/internal/common"
	"gro-garden-sync/internal/config"
	"gro-garden-sync/internal/httpapi"
	"gro-garden-sync/internal/reminder"

	"go.uber.org/zap"
)

func main() {
	walletsFlag := flag.String("wallets", "", "Optional path to wallets.yaml (default: WALLETS_FILE, falling back to every wallet in the database)")
	noApi := flag.Bool("no-api", false, "Only run the poller, without the HTTP API")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger, _ := common.InitializeLogger("")
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting Gro garden syncer")

	if *walletsFlag != "" {
		cfg.Sync.WalletsFile = *walletsFlag
	}
	zap.L().Info("Watching wallets", zap.String("file", cfg.Sync.WalletsFile))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	wallets := services.WalletSource()

	poller := chainsync.NewPoller(chainsync.PollerConfig{
		Syncer:          services.SyncEngine,
		Wallets:         wallets,
		PollingInterval: cfg.Sync.PollingInterval,
	})
	if err := poller.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start poller", zap.Error(err))
	}

	var reminders *reminder.Scheduler
	if cfg.Reminder.Enabled {
		morning := ""
		if cfg.Reminder.MorningEnabled {
			morning = cfg.Reminder.MorningSchedule
		}
		reminders, err = reminder.NewScheduler(reminder.Config{
			Schedule:        cfg.Reminder.Schedule,
			MorningSchedule: morning,
			Wallets:         wallets,
			Streaks:         services.DbService,
		})
		if err != nil {
			zap.L().Fatal("Failed to create reminder scheduler", zap.Error(err))
		}
		if err := reminders.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start reminders", zap.Error(err))
		}
	}

	var server *httpapi.Server
	if !*noApi {
		server = httpapi.NewServer(httpapi.Config{
			ListenAddr:      cfg.Api.ListenAddr,
			ShutdownTimeout: cfg.Api.ShutdownTimeout,
			Gardens:         services.Garden,
			Syncer:          services.SyncEngine,
			Observer:        services.DbService,
		})
		server.Start()
	}

	zap.L().Info("Syncer running",
		zap.Duration("polling_interval", cfg.Sync.PollingInterval),
		zap.Bool("api", server != nil),
		zap.Bool("reminders", reminders != nil))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("HTTP API did not shut down cleanly", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Stop()
		}()
		if reminders != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reminders.Stop()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Syncer stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
