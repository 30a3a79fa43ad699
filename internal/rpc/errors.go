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

package rpc

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingBlockhash    = errors.New("rpc: response has no blockhash")
	ErrMalformedResponse   = errors.New("rpc: malformed response")
	ErrTransactionNotFound = errors.New("rpc: transaction not found")
)

// RPCError is a JSON-RPC error object returned by the ledger node
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Method  string `json:"-"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s failed: code=%d msg=%s", e.Method, e.Code, e.Message)
}

// Transient reports whether the node signalled a server-side condition
// (node behind, slot skipped, rate limited) rather than a bad request.
func (e *RPCError) Transient() bool {
	return e.Code <= -32000 && e.Code >= -32099
}

// HTTPStatusError is a non-200 response from the endpoint
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rpc endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("rpc endpoint returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *HTTPStatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
