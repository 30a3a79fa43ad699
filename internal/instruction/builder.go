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
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

var (
	MemoProgramId                   = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	AssociatedTokenAccountProgramId = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	TokenProgramId                  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	SystemProgramId                 = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

// createIdempotent is the associated token account program instruction that
// succeeds when the account already exists.
const createIdempotent byte = 1

// Transfer moves lamports between two system accounts. from must sign.
func Transfer(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

// Memo attaches UTF-8 text to a transaction with signer as its only required signer
func Memo(signer solana.PublicKey, text string) solana.Instruction {
	return solana.NewInstruction(
		MemoProgramId,
		solana.AccountMetaSlice{solana.NewAccountMeta(signer, false, true)},
		[]byte(text),
	)
}

// FindAssociatedTokenAddress derives the ATA for (owner, tokenProgram, mint)
func FindAssociatedTokenAddress(owner, tokenProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		AssociatedTokenAccountProgramId,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return address, nil
}

// CreateAssociatedTokenAccountIdempotent creates owner's ATA for mint, paid
// by payer. The instruction is a no-op when the account already exists.
func CreateAssociatedTokenAccountIdempotent(payer, owner, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, err := FindAssociatedTokenAddress(owner, TokenProgramId, mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	ix := solana.NewInstruction(
		AssociatedTokenAccountProgramId,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(SystemProgramId, false, false),
			solana.NewAccountMeta(TokenProgramId, false, false),
		},
		[]byte{createIdempotent},
	)
	return ix, ata, nil
}
