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

package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/acctsync/account"
	"github.com/bytedance/sonic"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultCommitment = CommitmentConfirmed

	// Cap on response bodies; the largest program account is well under this
	maxResponseSize = 4 << 20
)

type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Client is a JSON-RPC 2.0 client for a single ledger RPC endpoint
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	commitment Commitment
	headers    map[string]string
	requestId  atomic.Uint64
}

// ClientOptionFunc is a type that represents functions that modify the Client config
type ClientOptionFunc func(*Client)

// WithHTTPClient specifies the HTTP client to use. The client's own timeout is left untouched
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout specifies the per-request timeout for the default HTTP client
func WithTimeout(timeout time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithCommitment specifies the commitment level used for reads
func WithCommitment(commitment Commitment) ClientOptionFunc {
	return func(c *Client) {
		c.commitment = commitment
	}
}

// WithHeader adds an HTTP header to every request, such as an API key
func WithHeader(key string, value string) ClientOptionFunc {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// NewClient returns a Client for the endpoint URL
func NewClient(url string, options ...ClientOptionFunc) *Client {
	c := &Client{
		url:        url,
		timeout:    DefaultTimeout,
		commitment: DefaultCommitment,
		headers:    make(map[string]string),
	}
	for _, option := range options {
		option(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	return c
}

// URL returns the endpoint URL
func (c *Client) URL() string {
	return c.url
}

// Close releases idle connections held by the HTTP client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type request struct {
	JsonRpc string `json:"jsonrpc"`
	Id      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type response[T any] struct {
	JsonRpc string         `json:"jsonrpc"`
	Id      uint64         `json:"id"`
	Result  T              `json:"result"`
	Error   *ResponseError `json:"error"`
}

type contextValue[T any] struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value T `json:"value"`
}

type accountValue struct {
	Data     []string `json:"data"`
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

// FetchAccount calls getAccountInfo with base64 encoding
func (c *Client) FetchAccount(ctx context.Context, address account.Pubkey) (*AccountInfo, error) {
	result, err := call[contextValue[*accountValue]](
		ctx,
		c,
		"getAccountInfo",
		[]any{
			address.String(),
			map[string]any{
				"encoding":   "base64",
				"commitment": c.commitment,
			},
		},
	)
	if err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	if len(result.Value.Data) != 2 || result.Value.Data[1] != "base64" {
		return nil, fmt.Errorf("%w: unexpected account data encoding", ErrInvalidResponse)
	}
	data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("%w: account data: %w", ErrInvalidResponse, err)
	}
	owner, err := account.ParsePubkey(result.Value.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: account owner: %w", ErrInvalidResponse, err)
	}
	return &AccountInfo{
		Data:     data,
		Owner:    owner,
		Lamports: result.Value.Lamports,
		Slot:     result.Context.Slot,
	}, nil
}

// FetchSlotHeight calls getSlot
func (c *Client) FetchSlotHeight(ctx context.Context) (uint64, error) {
	slot, err := call[uint64](
		ctx,
		c,
		"getSlot",
		[]any{
			map[string]any{
				"commitment": c.commitment,
			},
		},
	)
	if err != nil {
		return 0, err
	}
	return slot, nil
}

func call[T any](ctx context.Context, c *Client, method string, params []any) (T, error) {
	var ret T
	reqBody, err := sonic.ConfigStd.Marshal(
		request{
			JsonRpc: "2.0",
			Id:      c.requestId.Add(1),
			Method:  method,
			Params:  params,
		},
	)
	if err != nil {
		return ret, fmt.Errorf("rpc: encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return ret, fmt.Errorf("rpc: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ret, fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return ret, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return ret, fmt.Errorf("rpc: %s: read response: %w", method, err)
	}
	var tmpResp response[T]
	if err := sonic.ConfigStd.Unmarshal(respBody, &tmpResp); err != nil {
		return ret, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, method, err)
	}
	if tmpResp.Error != nil {
		return ret, tmpResp.Error
	}
	return tmpResp.Result, nil
}
