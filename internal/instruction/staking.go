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

package instruction

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LiquidStakingAccounts are the fixed program accounts of a Marinade style
// liquid staking pool.
type LiquidStakingAccounts struct {
	ProgramId               solana.PublicKey
	State                   solana.PublicKey
	MsolMint                solana.PublicKey
	LiqPoolSolLeg           solana.PublicKey
	LiqPoolMsolLeg          solana.PublicKey
	LiqPoolMsolLegAuthority solana.PublicKey
	Reserve                 solana.PublicKey
	MsolMintAuthority       solana.PublicKey
}

// MarinadeMainnet returns the mainnet Marinade Finance accounts
func MarinadeMainnet() LiquidStakingAccounts {
	return LiquidStakingAccounts{
		ProgramId:               solana.MustPublicKeyFromBase58("MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD"),
		State:                   solana.MustPublicKeyFromBase58("8szGkuLTAux9XMgZ2vtY39jVSowEcpBfFfD8hXSEqdGC"),
		MsolMint:                solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So"),
		LiqPoolSolLeg:           solana.MustPublicKeyFromBase58("UefNb6z6yvArqe4cJHTXCqStRsKmWhGxnZzuHbikP5Q"),
		LiqPoolMsolLeg:          solana.MustPublicKeyFromBase58("7GgPYjS5Dza89wV6FpZ23kUJRG5vbQ1GM25ezspYFSoE"),
		LiqPoolMsolLegAuthority: solana.MustPublicKeyFromBase58("EyaSjUtSgo9aRD1f8LWXwdvkpDTmXAW54yoSHZRF14WL"),
		Reserve:                 solana.MustPublicKeyFromBase58("Du3Ysj1wKbxPKkuPPnvzQLQh8oMSVifs3jGZjJWXFmHN"),
		MsolMintAuthority:       solana.MustPublicKeyFromBase58("3JLPCS1qM2zRw3Dp6V4hZnYHd4toMNPkNesXdX9tg6KM"),
	}
}

// DeriveLiquidStakingAccounts rebuilds the pool's program derived addresses
// from its state account. The mSOL leg is a plain token account and must be
// supplied.
func DeriveLiquidStakingAccounts(programId, state, msolMint, msolLeg solana.PublicKey) (LiquidStakingAccounts, error) {
	derive := func(seed string) (solana.PublicKey, error) {
		address, _, err := solana.FindProgramAddress([][]byte{state[:], []byte(seed)}, programId)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("failed to derive %s address: %w", seed, err)
		}
		return address, nil
	}

	accounts := LiquidStakingAccounts{
		ProgramId:      programId,
		State:          state,
		MsolMint:       msolMint,
		LiqPoolMsolLeg: msolLeg,
	}
	var err error
	if accounts.LiqPoolSolLeg, err = derive("liq_sol"); err != nil {
		return LiquidStakingAccounts{}, err
	}
	if accounts.LiqPoolMsolLegAuthority, err = derive("liq_st_sol_authority"); err != nil {
		return LiquidStakingAccounts{}, err
	}
	if accounts.Reserve, err = derive("reserve"); err != nil {
		return LiquidStakingAccounts{}, err
	}
	if accounts.MsolMintAuthority, err = derive("st_mint"); err != nil {
		return LiquidStakingAccounts{}, err
	}
	return accounts, nil
}

const (
	// DepositAccountCount is the length of the deposit account list
	DepositAccountCount = 11
	// DepositSignerIndex is the position of the depositor in the account list
	DepositSignerIndex = 6
	// DepositMintToIndex is the position of the depositor's mSOL token account
	DepositMintToIndex = 7
)

// AnchorDiscriminator returns the first 8 bytes of sha256("<namespace>:<name>")
func AnchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// DepositData encodes the deposit discriminator followed by lamports as u64 LE
func DepositData(lamports uint64) []byte {
	discriminator := AnchorDiscriminator("global", "deposit")
	data := make([]byte, 16)
	copy(data[0:8], discriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], lamports)
	return data
}

// LiquidStakingDeposit stakes lamports from signer and mints the pool token
// into mintTo. The account order is fixed by the program.
func LiquidStakingDeposit(accounts LiquidStakingAccounts, signer, mintTo solana.PublicKey, lamports uint64) solana.Instruction {
	return solana.NewInstruction(
		accounts.ProgramId,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(accounts.State, true, false),
			solana.NewAccountMeta(accounts.MsolMint, true, false),
			solana.NewAccountMeta(accounts.LiqPoolSolLeg, true, false),
			solana.NewAccountMeta(accounts.LiqPoolMsolLeg, true, false),
			solana.NewAccountMeta(accounts.LiqPoolMsolLegAuthority, false, false),
			solana.NewAccountMeta(accounts.Reserve, true, false),
			solana.NewAccountMeta(signer, true, true),
			solana.NewAccountMeta(mintTo, true, false),
			solana.NewAccountMeta(accounts.MsolMintAuthority, false, false),
			solana.NewAccountMeta(SystemProgramId, false, false),
			solana.NewAccountMeta(TokenProgramId, false, false),
		},
		DepositData(lamports),
	)
}

// LiquidStakingDepositSet returns the idempotent ATA creation for the pool
// token followed by the deposit itself.
func LiquidStakingDepositSet(accounts LiquidStakingAccounts, signer solana.PublicKey, lamports uint64) ([]solana.Instruction, error) {
	createAta, ata, err := CreateAssociatedTokenAccountIdempotent(signer, signer, accounts.MsolMint)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		createAta,
		LiquidStakingDeposit(accounts, signer, ata, lamports),
	}, nil
}
