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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gro-garden-sync/internal/models"
)

const (
	memoNamespace     = "gro"
	depositMemoPrefix = "gro:deposit:v1"
	// SunflowerMemo tags a social gift transfer
	SunflowerMemo = "gro:sunflower:v1"
)

var (
	ErrNotGroMemo     = errors.New("memo is not a gro memo")
	ErrNotDepositMemo = errors.New("gro memo is not a deposit")
	ErrMalformedMemo  = errors.New("malformed gro memo")
)

// DepositMemo is the canonical deposit memo text: gro:deposit:v1:<SPECIES>:<LAMPORTS>
func DepositMemo(species models.Species, lamports uint64) string {
	return fmt.Sprintf("%s:%s:%d", depositMemoPrefix, species, lamports)
}

// DepositMemoFields are the values carried by a deposit memo
type DepositMemoFields struct {
	Species  models.Species
	Lamports uint64
}

// StripMemoPrefix removes the "[<len>] " marker the signature history adds in
// front of memo text.
func StripMemoPrefix(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		if idx := strings.Index(raw, "] "); idx >= 0 {
			return raw[idx+2:]
		}
	}
	return raw
}

// SplitMemos separates the "; " joined memos of a multi-memo transaction
func SplitMemos(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "; ") {
		if part = StripMemoPrefix(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseDepositMemo parses a deposit memo. ErrNotGroMemo means the text belongs
// to something else and ErrNotDepositMemo means it is another gro kind, such
// as a sunflower gift. ErrMalformedMemo means it claims to be a deposit but
// is broken.
func ParseDepositMemo(raw string) (DepositMemoFields, error) {
	text := StripMemoPrefix(raw)
	if !strings.HasPrefix(text, memoNamespace+":") {
		return DepositMemoFields{}, ErrNotGroMemo
	}

	parts := strings.Split(text, ":")
	if parts[1] != "" && parts[1] != "deposit" {
		return DepositMemoFields{}, ErrNotDepositMemo
	}
	if len(parts) < 5 {
		return DepositMemoFields{}, fmt.Errorf("%w: %q", ErrMalformedMemo, text)
	}

	species, err := models.ParseSpecies(parts[3])
	if err != nil {
		return DepositMemoFields{}, fmt.Errorf("%w: %v", ErrMalformedMemo, err)
	}

	lamports, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return DepositMemoFields{}, fmt.Errorf("%w: invalid lamports %q", ErrMalformedMemo, parts[4])
	}

	return DepositMemoFields{Species: species, Lamports: lamports}, nil
}
