package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/models"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wallet = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	friend = solana.MustPublicKeyFromBase58("7GgPYjS5Dza89wV6FpZ23kUJRG5vbQ1GM25ezspYFSoE")

	testBlockhash = solana.Hash(sha256.Sum256([]byte("blockhash"))).String()
)

type staticBlockhash struct {
	hash string
	err  error
}

func (s staticBlockhash) GetLatestBlockhash(context.Context) (string, error) {
	return s.hash, s.err
}

type fakeAuthorizer struct {
	mu       sync.Mutex
	result   AuthorizationResult
	received [][]byte
	ctxErr   error
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeAuthorizer) SignAndSend(ctx context.Context, transactions [][]byte) AuthorizationResult {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = transactions
	f.ctxErr = ctx.Err()
	return f.result
}

type countingWakeLock struct {
	acquired atomic.Int32
	released atomic.Int32
	timeout  time.Duration
	err      error
}

func (c *countingWakeLock) Acquire(timeout time.Duration) (func() error, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.timeout = timeout
	c.acquired.Add(1)
	return func() error {
		c.released.Add(1)
		return errors.New("release failures are ignored")
	}, nil
}

func newPipeline(t *testing.T, mode models.DepositMode, authorizer WalletAuthorizer, wake WakeLock) *Pipeline {
	t.Helper()
	p, err := New(Config{Mode: mode}, staticBlockhash{hash: testBlockhash}, authorizer, wake)
	require.NoError(t, err)
	return p
}

func decode(t *testing.T, raw []byte) *solana.Transaction {
	t.Helper()
	tx, err := solana.TransactionFromBytes(raw)
	require.NoError(t, err)
	return tx
}

func programOf(t *testing.T, tx *solana.Transaction, i int) solana.PublicKey {
	t.Helper()
	program, err := tx.Message.Program(tx.Message.Instructions[i].ProgramIDIndex)
	require.NoError(t, err)
	return program
}

func TestDeposit_SelfTransferTransaction(t *testing.T) {
	authorizer := &fakeAuthorizer{result: Authorized{Signatures: []string{"5sig"}}}
	wake := &countingWakeLock{}
	p := newPipeline(t, models.DepositModeSelfTransfer, authorizer, wake)

	outcome := p.Deposit(context.Background(), wallet, models.SpeciesSol, 50_000_000)
	assert.Equal(t, Success{Signature: "5sig"}, outcome)

	require.Len(t, authorizer.received, 1)
	tx := decode(t, authorizer.received[0])

	assert.Equal(t, testBlockhash, tx.Message.RecentBlockhash.String())
	assert.Equal(t, wallet, tx.Message.AccountKeys[0], "payer is the first account")
	require.Len(t, tx.Signatures, 1)
	assert.True(t, tx.Signatures[0].IsZero(), "signature slot left for the wallet")

	require.Len(t, tx.Message.Instructions, 2)
	assert.Equal(t, instruction.SystemProgramId, programOf(t, tx, 0))
	assert.Equal(t, instruction.MemoProgramId, programOf(t, tx, 1))
	assert.Equal(t, "gro:deposit:v1:SOL:50000000", string(tx.Message.Instructions[1].Data))

	assert.Equal(t, int32(1), wake.acquired.Load())
	assert.Equal(t, int32(1), wake.released.Load())
	assert.Equal(t, DefaultWakeLockTimeout, wake.timeout)
	assert.False(t, p.Staked())
}

func TestDeposit_LiquidStakingTransaction(t *testing.T) {
	authorizer := &fakeAuthorizer{result: Authorized{Signatures: []string{"5sig"}}}
	p := newPipeline(t, models.DepositModeLiquidStaking, authorizer, nil)
	assert.True(t, p.Staked())

	outcome := p.Deposit(context.Background(), wallet, models.SpeciesSol, 2_000_000_000)
	require.IsType(t, Success{}, outcome)

	tx := decode(t, authorizer.received[0])
	require.Len(t, tx.Message.Instructions, 3)
	assert.Equal(t, instruction.AssociatedTokenAccountProgramId, programOf(t, tx, 0))
	assert.Equal(t, instruction.MarinadeMainnet().ProgramId, programOf(t, tx, 1))
	assert.Equal(t, instruction.MemoProgramId, programOf(t, tx, 2))

	deposit := tx.Message.Instructions[1]
	require.Len(t, deposit.Accounts, instruction.DepositAccountCount)
	signer, err := tx.Message.Account(deposit.Accounts[instruction.DepositSignerIndex])
	require.NoError(t, err)
	assert.Equal(t, wallet, signer)
	assert.Equal(t, uint64(2_000_000_000), binary.LittleEndian.Uint64(deposit.Data[8:]))
}

func TestDepositInstructions_MemoAlwaysLast(t *testing.T) {
	for _, mode := range []models.DepositMode{models.DepositModeSelfTransfer, models.DepositModeLiquidStaking} {
		p := newPipeline(t, mode, &fakeAuthorizer{}, nil)
		for _, lamports := range []uint64{1, 1_000_000, 999_999_999_999} {
			instructions, err := p.DepositInstructions(wallet, models.SpeciesBonk, lamports)
			require.NoError(t, err)
			last := instructions[len(instructions)-1]
			assert.Equal(t, instruction.MemoProgramId, last.ProgramID(), "mode %s", mode)
		}
	}
}

func TestSendSunflower(t *testing.T) {
	authorizer := &fakeAuthorizer{result: Authorized{Signatures: []string{"gift"}}}
	p := newPipeline(t, models.DepositModeLiquidStaking, authorizer, nil)

	outcome := p.SendSunflower(context.Background(), wallet, friend)
	assert.Equal(t, Success{Signature: "gift"}, outcome)

	tx := decode(t, authorizer.received[0])
	require.Len(t, tx.Message.Instructions, 2)
	transfer := tx.Message.Instructions[0]
	recipient, err := tx.Message.Account(transfer.Accounts[1])
	require.NoError(t, err)
	assert.Equal(t, friend, recipient)
	assert.Equal(t, SunflowerLamports, binary.LittleEndian.Uint64(transfer.Data[4:]))
	assert.Equal(t, instruction.SunflowerMemo, string(tx.Message.Instructions[1].Data))
}

func TestOutcomeMapping(t *testing.T) {
	tests := []struct {
		name   string
		result AuthorizationResult
		want   Outcome
	}{
		{"success", Authorized{Signatures: []string{"a", "b"}}, Success{Signature: "a"}},
		{"success without signatures", Authorized{}, Success{Signature: UnknownSignature}},
		{"success with blank signature", Authorized{Signatures: []string{""}}, Success{Signature: UnknownSignature}},
		{"no wallet", NoWallet{}, NoWalletAvailable{}},
		{"failure", AuthorizationFailed{Message: "user rejected"}, Failure{Message: "user rejected"}},
		{"nil result", nil, Failure{Message: "wallet returned an unrecognized result"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wake := &countingWakeLock{}
			p := newPipeline(t, models.DepositModeSelfTransfer, &fakeAuthorizer{result: tt.result}, wake)
			assert.Equal(t, tt.want, p.Deposit(context.Background(), wallet, models.SpeciesSol, 10))
			assert.Equal(t, wake.acquired.Load(), wake.released.Load(), "wake lock released on every path")
		})
	}
}

func TestDeposit_BlockhashFailure(t *testing.T) {
	authorizer := &fakeAuthorizer{result: Authorized{Signatures: []string{"never"}}}
	wake := &countingWakeLock{}
	p, err := New(Config{Mode: models.DepositModeSelfTransfer},
		staticBlockhash{err: errors.New("rpc down")}, authorizer, wake)
	require.NoError(t, err)

	outcome := p.Deposit(context.Background(), wallet, models.SpeciesSol, 10)
	failure, ok := outcome.(Failure)
	require.True(t, ok)
	assert.Contains(t, failure.Message, "rpc down")
	assert.Nil(t, authorizer.received, "wallet must not be prompted without a blockhash")
	assert.Equal(t, int32(0), wake.acquired.Load())
}

func TestDeposit_WakeLockUnavailable(t *testing.T) {
	authorizer := &fakeAuthorizer{result: Authorized{Signatures: []string{"sig"}}}
	p := newPipeline(t, models.DepositModeSelfTransfer, authorizer, &countingWakeLock{err: errors.New("denied")})

	assert.Equal(t, Success{Signature: "sig"}, p.Deposit(context.Background(), wallet, models.SpeciesSol, 10))
}

func TestDeposit_SingleInFlightAuthorization(t *testing.T) {
	authorizer := &fakeAuthorizer{
		result:  Authorized{Signatures: []string{"first"}},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	p := newPipeline(t, models.DepositModeSelfTransfer, authorizer, nil)

	done := make(chan Outcome, 1)
	go func() {
		done <- p.Deposit(context.Background(), wallet, models.SpeciesSol, 10)
	}()
	<-authorizer.started

	second := p.SendSunflower(context.Background(), wallet, friend)
	assert.Equal(t, Failure{Message: ErrAuthorizationPending.Error()}, second)

	close(authorizer.block)
	assert.Equal(t, Success{Signature: "first"}, <-done)
}

func TestDeposit_CancellationDoesNotReachWallet(t *testing.T) {
	authorizer := &fakeAuthorizer{
		result:  Authorized{Signatures: []string{"sig"}},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	p := newPipeline(t, models.DepositModeSelfTransfer, authorizer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- p.Deposit(ctx, wallet, models.SpeciesSol, 10)
	}()
	<-authorizer.started
	cancel()
	close(authorizer.block)

	assert.Equal(t, Success{Signature: "sig"}, <-done)
	assert.NoError(t, authorizer.ctxErr)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Mode: "mainnet-magic"}, staticBlockhash{}, &fakeAuthorizer{}, nil)
	assert.Error(t, err)

	_, err = New(Config{Mode: models.DepositModeSelfTransfer}, nil, &fakeAuthorizer{}, nil)
	assert.Error(t, err)

	_, err = New(Config{Mode: models.DepositModeSelfTransfer}, staticBlockhash{}, nil, nil)
	assert.Error(t, err)
}

func TestBuildTransaction_InvalidBlockhash(t *testing.T) {
	_, err := BuildTransaction(SunflowerInstructions(wallet, friend), "not-a-hash", wallet)
	assert.Error(t, err)
}
