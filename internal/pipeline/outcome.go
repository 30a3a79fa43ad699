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
	"time"
)

// AuthorizationResult is what the wallet collaborator reports after a sign
// and send round trip. The variants are Authorized, NoWallet and
// AuthorizationFailed.
type AuthorizationResult interface {
	isAuthorizationResult()
}

// Authorized carries the base58 signatures of the submitted transactions.
type Authorized struct {
	Signatures []string
}

// NoWallet means no wallet app could take the request.
type NoWallet struct{}

type AuthorizationFailed struct {
	Message string
}

func (Authorized) isAuthorizationResult()          {}
func (NoWallet) isAuthorizationResult()            {}
func (AuthorizationFailed) isAuthorizationResult() {}

// WalletAuthorizer signs and submits serialized transactions. Implementations
// must return a terminal result; they are never retried.
type WalletAuthorizer interface {
	SignAndSend(ctx context.Context, transactions [][]byte) AuthorizationResult
}

// BlockhashSource supplies the recent blockhash a transaction references.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context) (string, error)
}

// WakeLock keeps the host awake while a wallet prompt is open. The returned
// release func must be safe to call once on every exit path.
type WakeLock interface {
	Acquire(timeout time.Duration) (release func() error, err error)
}

// NopWakeLock is used on hosts that never suspend.
type NopWakeLock struct{}

func (NopWakeLock) Acquire(time.Duration) (func() error, error) {
	return func() error { return nil }, nil
}

// Outcome is the domain result of a submitted transaction: Success,
// NoWalletAvailable or Failure.
type Outcome interface {
	isOutcome()
	// Label is the metrics and log label of the variant.
	Label() string
}

type Success struct {
	Signature string
}

type NoWalletAvailable struct{}

type Failure struct {
	Message string
}

func (Success) isOutcome()           {}
func (NoWalletAvailable) isOutcome() {}
func (Failure) isOutcome()           {}

func (Success) Label() string           { return "success" }
func (NoWalletAvailable) Label() string { return "no_wallet" }
func (Failure) Label() string           { return "failure" }

// UnknownSignature stands in when the wallet reports success without any
// signature.
const UnknownSignature = "unknown"

func outcomeFor(result AuthorizationResult) Outcome {
	switch r := result.(type) {
	case Authorized:
		if len(r.Signatures) == 0 || r.Signatures[0] == "" {
			return Success{Signature: UnknownSignature}
		}
		return Success{Signature: r.Signatures[0]}
	case NoWallet:
		return NoWalletAvailable{}
	case AuthorizationFailed:
		return Failure{Message: r.Message}
	default:
		return Failure{Message: "wallet returned an unrecognized result"}
	}
}
