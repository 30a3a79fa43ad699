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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/metrics"
	"gro-garden-sync/internal/models"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultWakeLockTimeout = 120 * time.Second

	// SunflowerLamports is the token amount sent with a sunflower gift
	SunflowerLamports uint64 = 1_000

	kindDeposit   = "deposit"
	kindSunflower = "sunflower"
)

var ErrAuthorizationPending = errors.New("another wallet authorization is already in progress")

type Config struct {
	Mode            models.DepositMode
	WakeLockTimeout time.Duration
	// Staking is only consulted in liquid staking mode.
	Staking instruction.LiquidStakingAccounts
}

// Pipeline assembles transactions and drives them through the wallet. It
// never persists anything; callers act on the returned Outcome.
type Pipeline struct {
	mode        models.DepositMode
	wakeTimeout time.Duration
	staking     instruction.LiquidStakingAccounts

	blockhashes BlockhashSource
	authorizer  WalletAuthorizer
	wakeLock    WakeLock

	inflight *semaphore.Weighted
}

func New(cfg Config, blockhashes BlockhashSource, authorizer WalletAuthorizer, wakeLock WakeLock) (*Pipeline, error) {
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("unknown deposit mode: %q", cfg.Mode)
	}
	if blockhashes == nil {
		return nil, fmt.Errorf("blockhash source is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("wallet authorizer is required")
	}
	if wakeLock == nil {
		wakeLock = NopWakeLock{}
	}
	if cfg.WakeLockTimeout <= 0 {
		cfg.WakeLockTimeout = DefaultWakeLockTimeout
	}
	if cfg.Mode == models.DepositModeLiquidStaking && cfg.Staking.ProgramId.IsZero() {
		cfg.Staking = instruction.MarinadeMainnet()
	}

	return &Pipeline{
		mode:        cfg.Mode,
		wakeTimeout: cfg.WakeLockTimeout,
		staking:     cfg.Staking,
		blockhashes: blockhashes,
		authorizer:  authorizer,
		wakeLock:    wakeLock,
		inflight:    semaphore.NewWeighted(1),
	}, nil
}

func (p *Pipeline) Mode() models.DepositMode {
	return p.mode
}

// Staked reports whether deposits go through the liquid staking program.
func (p *Pipeline) Staked() bool {
	return p.mode == models.DepositModeLiquidStaking
}

// DepositInstructions returns the mode's value instructions followed by the
// deposit memo. The memo is always last.
func (p *Pipeline) DepositInstructions(wallet solana.PublicKey, species models.Species, lamports uint64) ([]solana.Instruction, error) {
	var instructions []solana.Instruction
	switch p.mode {
	case models.DepositModeLiquidStaking:
		set, err := instruction.LiquidStakingDepositSet(p.staking, wallet, lamports)
		if err != nil {
			return nil, fmt.Errorf("failed to build liquid staking deposit: %w", err)
		}
		instructions = append(instructions, set...)
	default:
		instructions = append(instructions, instruction.Transfer(wallet, wallet, lamports))
	}
	return append(instructions, instruction.Memo(wallet, instruction.DepositMemo(species, lamports))), nil
}

// SunflowerInstructions sends a token amount to a friend, tagged with the
// sunflower memo.
func SunflowerInstructions(from, to solana.PublicKey) []solana.Instruction {
	return []solana.Instruction{
		instruction.Transfer(from, to, SunflowerLamports),
		instruction.Memo(from, instruction.SunflowerMemo),
	}
}

func (p *Pipeline) Deposit(ctx context.Context, wallet solana.PublicKey, species models.Species, lamports uint64) Outcome {
	instructions, err := p.DepositInstructions(wallet, species, lamports)
	if err != nil {
		return p.fail(kindDeposit, err)
	}
	return p.submit(ctx, kindDeposit, wallet, instructions)
}

func (p *Pipeline) SendSunflower(ctx context.Context, from, to solana.PublicKey) Outcome {
	return p.submit(ctx, kindSunflower, from, SunflowerInstructions(from, to))
}

// BuildTransaction compiles instructions into an unsigned legacy transaction
// paid by payer. Signature slots are zero filled for the wallet to replace.
func BuildTransaction(instructions []solana.Instruction, blockhash string, payer solana.PublicKey) ([]byte, error) {
	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid blockhash %q: %w", blockhash, err)
	}

	tx, err := solana.NewTransaction(instructions, hash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to compile transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return raw, nil
}

func (p *Pipeline) submit(ctx context.Context, kind string, payer solana.PublicKey, instructions []solana.Instruction) Outcome {
	if !p.inflight.TryAcquire(1) {
		zap.L().Warn("Rejecting wallet authorization while another is pending", zap.String("kind", kind))
		return p.fail(kind, ErrAuthorizationPending)
	}
	defer p.inflight.Release(1)

	blockhash, err := p.blockhashes.GetLatestBlockhash(ctx)
	if err != nil {
		return p.fail(kind, fmt.Errorf("failed to fetch blockhash: %w", err))
	}

	raw, err := BuildTransaction(instructions, blockhash, payer)
	if err != nil {
		return p.fail(kind, err)
	}

	release, err := p.wakeLock.Acquire(p.wakeTimeout)
	if err != nil {
		zap.L().Warn("Failed to acquire wake lock, continuing without it", zap.Error(err))
		release = nil
	}
	defer func() {
		if release == nil {
			return
		}
		if err := release(); err != nil {
			zap.L().Warn("Failed to release wake lock", zap.Error(err))
		}
	}()

	zap.L().Info("Requesting wallet authorization",
		zap.String("kind", kind),
		zap.String("payer", payer.String()),
		zap.Int("instructions", len(instructions)),
		zap.Int("bytes", len(raw)))

	// Once dispatched the wallet prompt cannot be withdrawn, so the caller's
	// cancellation does not reach it.
	result := p.authorizer.SignAndSend(context.WithoutCancel(ctx), [][]byte{raw})
	outcome := outcomeFor(result)

	switch o := outcome.(type) {
	case Success:
		zap.L().Info("Wallet authorization succeeded", zap.String("kind", kind), zap.String("signature", o.Signature))
	case NoWalletAvailable:
		zap.L().Warn("No wallet available for authorization", zap.String("kind", kind))
	case Failure:
		zap.L().Warn("Wallet authorization failed", zap.String("kind", kind), zap.String("message", o.Message))
	}
	metrics.RecordAuthorization(kind, outcome.Label())
	return outcome
}

func (p *Pipeline) fail(kind string, err error) Outcome {
	zap.L().Error("Transaction pipeline failed", zap.String("kind", kind), zap.Error(err))
	outcome := Failure{Message: err.Error()}
	metrics.RecordAuthorization(kind, outcome.Label())
	return outcome
}
