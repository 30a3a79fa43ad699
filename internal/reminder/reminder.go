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

package reminder

import (
	"context"
	"fmt"
	"time"

	"gro-garden-sync/internal/chainsync"
	"gro-garden-sync/internal/growth"
	"gro-garden-sync/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSchedule        = "0 19 * * *"
	DefaultMorningSchedule = "0 9 * * *"

	MorningMessage = "Your garden is growing! Check in on your plants and keep your streak alive."
)

// StreakReader is the slice of the garden store reminders need.
type StreakReader interface {
	GetStreak(ctx context.Context, wallet string) (*models.Streak, error)
}

// Notifier delivers a reminder to a wallet owner.
type Notifier interface {
	Notify(ctx context.Context, wallet, message string) error
}

// LogNotifier writes reminders to the log. Used when no push channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, wallet, message string) error {
	zap.L().Info("Garden reminder",
		zap.String("wallet", wallet),
		zap.String("message", message))
	return nil
}

// Message returns the reminder for streak as of today, or false when the
// wallet was active today or never had a streak.
func Message(streak *models.Streak, today string) (string, bool) {
	if streak == nil || streak.CurrentStreak < 1 {
		return "", false
	}
	days, err := growth.DaysBetween(streak.LastActiveDate, today)
	if err != nil || days < 1 {
		return "", false
	}
	if days == 1 {
		return fmt.Sprintf("Your %d-day streak is about to end! Visit your garden to keep it going.", streak.CurrentStreak), true
	}
	return "Your garden misses you! Come back and restart your streak.", true
}

// Config configures the scheduler. An empty MorningSchedule disables the
// morning check-in.
type Config struct {
	Schedule        string
	MorningSchedule string
	Location        *time.Location
	Wallets         chainsync.WalletListFunc
	Streaks         StreakReader
	Notifier        Notifier
	Now             func() time.Time
}

// Scheduler checks every watched wallet on a cron schedule and notifies the
// ones whose streak is at risk. It can also send every wallet a morning
// check-in.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	morning  string
	location *time.Location
	wallets  chainsync.WalletListFunc
	streaks  StreakReader
	notifier Notifier
	now      func() time.Time
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Wallets == nil || cfg.Streaks == nil {
		return nil, fmt.Errorf("reminder scheduler requires a wallet source and a streak reader")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.MorningSchedule != "" {
		if _, err := cron.ParseStandard(cfg.MorningSchedule); err != nil {
			return nil, fmt.Errorf("invalid morning reminder schedule %q: %w", cfg.MorningSchedule, err)
		}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Location)),
		schedule: cfg.Schedule,
		morning:  cfg.MorningSchedule,
		location: cfg.Location,
		wallets:  cfg.Wallets,
		streaks:  cfg.Streaks,
		notifier: cfg.Notifier,
		now:      cfg.Now,
	}, nil
}

// Start registers the jobs and starts the cron runner. Runs stop with ctx or Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.addJob(ctx, s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	if s.morning != "" {
		if err := s.addJob(ctx, s.morning, s.RunMorning); err != nil {
			return fmt.Errorf("failed to schedule morning reminders: %w", err)
		}
	}
	s.cron.Start()

	zap.L().Info("Reminders scheduled",
		zap.String("streak_schedule", s.schedule),
		zap.String("morning_schedule", s.morning))
	return nil
}

func (s *Scheduler) addJob(ctx context.Context, spec string, run func(context.Context) int) error {
	_, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		run(ctx)
	})
	return err
}

// Stop waits for a running reminder pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("Reminders stopped")
}

// RunOnce checks every wallet's streak and returns how many reminders were
// delivered.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	today := growth.DateOf(s.now().In(s.location))
	return s.notifyWallets(ctx, "streak", func(wallet string) (string, bool) {
		streak, err := s.streaks.GetStreak(ctx, wallet)
		if err != nil {
			zap.L().Warn("Failed to load streak for reminder", zap.String("wallet", wallet), zap.Error(err))
			return "", false
		}
		return Message(streak, today)
	})
}

// RunMorning sends the morning check-in to every watched wallet.
func (s *Scheduler) RunMorning(ctx context.Context) int {
	return s.notifyWallets(ctx, "morning", func(string) (string, bool) {
		return MorningMessage, true
	})
}

func (s *Scheduler) notifyWallets(ctx context.Context, kind string, message func(wallet string) (string, bool)) int {
	wallets, err := s.wallets(ctx)
	if err != nil {
		zap.L().Error("Failed to list wallets for reminders", zap.String("kind", kind), zap.Error(err))
		return 0
	}

	sent := 0
	for _, wallet := range wallets {
		text, ok := message(wallet.Address)
		if !ok {
			continue
		}
		if err := s.notifier.Notify(ctx, wallet.Address, text); err != nil {
			zap.L().Warn("Failed to deliver reminder", zap.String("wallet", wallet.Address), zap.Error(err))
			continue
		}
		sent++
	}

	zap.L().Debug("Reminder pass complete",
		zap.String("kind", kind),
		zap.Int("wallets", len(wallets)),
		zap.Int("sent", sent))
	return sent
}
