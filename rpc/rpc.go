// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rpc implements the ledger RPC transport used to read program accounts
// and the current slot height.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/blinklabs-io/acctsync/account"
)

// Transport is the read-only view of a single RPC endpoint
type Transport interface {
	// FetchAccount returns the account at the address, or nil with no error if
	// the account does not exist
	FetchAccount(ctx context.Context, address account.Pubkey) (*AccountInfo, error)
	// FetchSlotHeight returns the current slot
	FetchSlotHeight(ctx context.Context) (uint64, error)
}

// AccountInfo is the raw account returned by the RPC node
type AccountInfo struct {
	Data     []byte
	Owner    account.Pubkey
	Lamports uint64
	// Slot is the context slot the node answered at
	Slot uint64
}

var ErrInvalidResponse = errors.New("rpc: invalid response")

// HTTPError is returned for non-2xx HTTP responses
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return "rpc: http " + status
}

// ResponseError is a JSON-RPC error object returned by the node
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("rpc: error %d: %s", e.Code, e.Message)
}
