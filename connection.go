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

// Package acctsync keeps application state synchronized with program accounts
// stored on a ledger network, over unreliable and rate-limited RPC endpoints.
//
// The ConnectionManager owns the single active endpoint and rotates through the
// configured endpoints when failures cross a threshold. WithFallback runs read
// operations against the active endpoint with retries. The poller package builds
// per-resource adaptive polling on top of both, and the account package decodes
// the fetched account data.
package acctsync

import (
	"fmt"

	"github.com/blinklabs-io/acctsync/rpc"
)

// ConnectionId uniquely identifies a Connection for the lifetime of its ConnectionManager
type ConnectionId uint64

// DialFunc creates the transport for an endpoint
type DialFunc func(endpoint Endpoint) (rpc.Transport, error)

// DefaultDialFunc creates an rpc.Client for the endpoint URL
func DefaultDialFunc(endpoint Endpoint) (rpc.Transport, error) {
	if endpoint.URL == "" {
		return nil, fmt.Errorf("endpoint %q: missing url", endpoint.Label)
	}
	return rpc.NewClient(endpoint.URL), nil
}

// Connection is the transport for one endpoint. A Connection is replaced, never
// modified, when the manager switches endpoints
type Connection struct {
	id        ConnectionId
	index     int
	endpoint  Endpoint
	transport rpc.Transport
}

// Id returns the connection ID
func (c *Connection) Id() ConnectionId {
	return c.id
}

// Index returns the endpoint index in the manager's list
func (c *Connection) Index() int {
	return c.index
}

// Endpoint returns the endpoint the connection talks to
func (c *Connection) Endpoint() Endpoint {
	return c.endpoint
}

// Transport returns the underlying transport
func (c *Connection) Transport() rpc.Transport {
	return c.transport
}

func (c *Connection) String() string {
	return fmt.Sprintf("%d:%s", c.index, c.endpoint)
}
